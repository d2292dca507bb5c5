package removal

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charactercut/internal/layers"
)

func testImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func TestClientRemoveRoundTrip(t *testing.T) {
	cutout := testImage(3, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	uri, err := layers.EncodeDataURI(cutout)
	require.NoError(t, err)

	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(maxUploadBytes))
		if _, _, ferr := r.FormFile("file"); ferr == nil {
			gotField = "file"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"processing_id":   "p1",
			"session_id":      "s1",
			"download_url":    uri,
			"processing_time": 0.42,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	out, err := c.Remove(context.Background(), testImage(3, 3, color.RGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, "file", gotField)

	b := out.Bounds()
	assert.Equal(t, 3, b.Dx())
	assert.Equal(t, 3, b.Dy())
	r, g, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(20), g>>8)
}

func TestClientRefineCarriesProcessingID(t *testing.T) {
	uri, err := layers.EncodeDataURI(testImage(2, 2, color.RGBA{A: 255}))
	require.NoError(t, err)

	var refineField, refineID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(maxUploadBytes))
		switch r.URL.Path {
		case "/api/process":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"processing_id": "proc-7",
				"download_url":  uri,
			})
		case "/api/refine":
			if _, _, ferr := r.FormFile("refined_image"); ferr == nil {
				refineField = "refined_image"
			}
			refineID = r.FormValue("original_processing_id")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"processing_id": "proc-8",
				"download_url":  uri,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err = c.Remove(context.Background(), testImage(2, 2, color.RGBA{A: 255}))
	require.NoError(t, err)

	out, err := c.Refine(context.Background(), testImage(2, 2, color.RGBA{R: 5, A: 255}))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "refined_image", refineField)
	assert.Equal(t, "proc-7", refineID)
}

func TestClientRemoveServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "Background removal service temporarily unavailable",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Remove(context.Background(), testImage(2, 2, color.RGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporarily unavailable")
	assert.Contains(t, err.Error(), "503")
}

func TestClientRemoveMissingDownloadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"processing_id": "p1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Remove(context.Background(), testImage(2, 2, color.RGBA{A: 255}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download_url")
}

func TestClientRemoveRejectsBadDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"download_url": "data:image/jpeg;base64,AAAA",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Remove(context.Background(), testImage(2, 2, color.RGBA{A: 255}))
	require.Error(t, err)
}

func TestClientRemoveContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL)
	_, err := c.Remove(ctx, testImage(2, 2, color.RGBA{A: 255}))
	assert.Error(t, err)
}

func TestPassthroughReturnsInput(t *testing.T) {
	img := testImage(2, 2, color.RGBA{R: 1, A: 255})
	out, err := NewPassthrough().Remove(context.Background(), img)
	require.NoError(t, err)
	assert.Same(t, image.Image(img), out)
}
