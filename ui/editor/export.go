package editor

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURIBytes extracts the raw PNG bytes from a base64 PNG data URI, for
// writing the exported cutout to disk.
func DataURIBytes(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, "data:image/png;base64,")
	if !ok {
		return nil, fmt.Errorf("not a PNG data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return raw, nil
}
