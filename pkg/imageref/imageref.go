// Package imageref resolves the opaque image references handed to the
// assessment pipeline. References are filesystem paths; the pipeline never
// deletes them.
package imageref

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageBytes bounds the size of an image sent to a remote service.
const MaxImageBytes = 20 << 20

// Read loads the image and sniffs its MIME type.
func Read(ref string) ([]byte, string, error) {
	if ref == "" {
		return nil, "", fmt.Errorf("empty image reference")
	}
	info, err := os.Stat(ref)
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat image %s: %w", ref, err)
	}
	if info.Size() > MaxImageBytes {
		return nil, "", fmt.Errorf("image %s is %d bytes, limit is %d", ref, info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", ref, err)
	}
	return data, http.DetectContentType(data), nil
}

// DataURI encodes image bytes as a data URI.
func DataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// PublicURL maps an upload path below a "static/" directory to the URL it is
// served from, e.g. "/srv/app/static/uploads/a.jpg" -> "/static/uploads/a.jpg".
// Paths outside a static directory map to "".
func PublicURL(ref string) string {
	slashed := filepath.ToSlash(strings.ReplaceAll(ref, `\`, "/"))
	idx := strings.LastIndex(slashed, "static/")
	if idx < 0 {
		return ""
	}
	return "/" + slashed[idx:]
}
