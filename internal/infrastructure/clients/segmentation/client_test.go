package segmentation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/retry"
)

func encodeMaskPNG(t *testing.T, w, h int, fg image.Rectangle) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := fg.Min.Y; y < fg.Max.Y; y++ {
		for x := fg.Min.X; x < fg.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wound.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.SegmentationConfig{Endpoint: server.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	client.retryCfg = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	return client
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(&config.SegmentationConfig{})
	assert.Error(t, err)
}

func TestClient_SegmentDetected(t *testing.T) {
	maskPNG := encodeMaskPNG(t, entities.CanonicalFrameSize, entities.CanonicalFrameSize, image.Rect(200, 100, 250, 200))
	var got segmentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/segment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(segmentResponse{Detected: true, MaskPNG: maskPNG})
	})

	mask, detected, err := client.Segment(context.Background(), writeImage(t))

	require.NoError(t, err)
	assert.True(t, detected)
	assert.True(t, mask.IsCanonical())
	assert.Equal(t, 50*100, mask.Count())
	assert.True(t, mask.At(100, 200))
	assert.False(t, mask.At(99, 200))
	assert.Equal(t, "image/png", got.MimeType)
	assert.NotEmpty(t, got.Image)
}

func TestClient_SegmentNotDetected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(segmentResponse{Detected: false})
	})

	mask, detected, err := client.Segment(context.Background(), writeImage(t))

	require.NoError(t, err)
	assert.False(t, detected)
	assert.Nil(t, mask)
}

func TestClient_SegmentRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := client.Segment(context.Background(), writeImage(t))

	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_SegmentBadRequestIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unsupported image", http.StatusUnprocessableEntity)
	})

	_, _, err := client.Segment(context.Background(), writeImage(t))

	assert.ErrorContains(t, err, "status 422")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SegmentInvalidMask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(segmentResponse{Detected: true, MaskPNG: "bm90IGEgcG5n"})
	})

	_, _, err := client.Segment(context.Background(), writeImage(t))

	assert.ErrorContains(t, err, "invalid mask image")
}
