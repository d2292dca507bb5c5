package removal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"charactercut/internal/layers"
)

const (
	// maxUploadBytes mirrors the service's request-size limit.
	maxUploadBytes = 10 * 1024 * 1024

	processPath = "/api/process"
	refinePath  = "/api/refine"

	defaultTimeout = 60 * time.Second
)

// Client removes backgrounds by calling the inference service over HTTP.
// Refine re-uploads a manually corrected cutout so the service can hand back
// a fresh download URL tied to the original processing session.
type Client struct {
	baseURL string
	http    *http.Client

	mu               sync.Mutex
	lastProcessingID string
}

// processResponse is the service's JSON envelope. DownloadURL carries the
// result as a base64 PNG data URL.
type processResponse struct {
	ProcessingID   string  `json:"processing_id"`
	SessionID      string  `json:"session_id"`
	DownloadURL    string  `json:"download_url"`
	ProcessingTime float64 `json:"processing_time"`
	ExpiresAt      string  `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a client for the inference service rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Remove uploads img to the service and decodes the returned cutout.
func (c *Client) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	result, err := c.post(ctx, c.baseURL+processPath, "file", img, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastProcessingID = result.ProcessingID
	c.mu.Unlock()

	return layers.DecodeDataURI(result.DownloadURL)
}

// Refine uploads a manually corrected cutout, tagged with the processing id
// from the preceding Remove when one exists.
func (c *Client) Refine(ctx context.Context, img image.Image) (image.Image, error) {
	c.mu.Lock()
	processingID := c.lastProcessingID
	c.mu.Unlock()

	fields := map[string]string{}
	if processingID != "" {
		fields["original_processing_id"] = processingID
	}

	result, err := c.post(ctx, c.baseURL+refinePath, "refined_image", img, fields)
	if err != nil {
		return nil, err
	}
	return layers.DecodeDataURI(result.DownloadURL)
}

func (c *Client) post(ctx context.Context, url, fileField string, img image.Image, fields map[string]string) (*processResponse, error) {
	requestID := ksuid.New().String()

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if encoded.Len() > maxUploadBytes {
		return nil, fmt.Errorf("image too large: %d bytes exceeds %d limit", encoded.Len(), maxUploadBytes)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fileField, "upload.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, &encoded); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("removal service: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("removal service: unexpected status %d", resp.StatusCode)
	}

	var result processResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.DownloadURL == "" {
		return nil, fmt.Errorf("removal service: response missing download_url")
	}

	slog.Debug("removal service call",
		"request_id", requestID,
		"processing_id", result.ProcessingID,
		"service_time", result.ProcessingTime,
		"round_trip", time.Since(start))

	return &result, nil
}
