package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/retry"
)

// 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.EnrichmentConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL + "/",
		TextModel:    "text-model",
		VisionModel:  "vision-model",
		RateLimitRPM: 6000,
	}, nil)
	require.NoError(t, err)
	client.retryCfg = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	t.Cleanup(client.Close)
	return client
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.EnrichmentConfig{}, nil)
	assert.Error(t, err)

	_, err = NewClient(nil, nil)
	assert.Error(t, err)
}

func TestClient_SynthesizeReport(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "### CLINICAL FINDINGS & CLASSIFICATION:\nok")
	})

	report, err := client.SynthesizeReport(context.Background(), entities.Measurements{Area: 3}, "ctx text")

	require.NoError(t, err)
	assert.Equal(t, "### CLINICAL FINDINGS & CLASSIFICATION:\nok", report)
	assert.Equal(t, "text-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "ctx text")
}

func TestClient_SynthesizeResearchUsesProtocolLibrary(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "offload")
	})

	out, err := client.SynthesizeResearch(context.Background(), "length=2.0 cm")

	require.NoError(t, err)
	assert.Equal(t, "offload", out)
	assert.Contains(t, got.Messages[1].Content, "Sharp Debridement")
	assert.Contains(t, got.Messages[1].Content, "length=2.0 cm")
}

func TestClient_CaptionSendsImageAsDataURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wound.png")
	png, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, png, 0o600))

	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeCompletion(w, "sloughy wound bed")
	})

	caption, err := client.Caption(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "sloughy wound bed", caption)
	assert.Equal(t, "vision-model", raw["model"])

	messages := raw["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestClient_CaptionMissingImage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.Caption(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))

	assert.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestClient_UnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.SynthesizeResearch(context.Background(), "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrEnrichmentUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeCompletion(w, "recovered")
	})

	out, err := client.SynthesizeResearch(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_EmptyCompletionFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := client.SynthesizeReport(context.Background(), entities.Measurements{}, "")

	assert.ErrorContains(t, err, "no content")
}

func TestTokenBucket_WaitHonoursContext(t *testing.T) {
	bucket := newTokenBucketWithRate(1, 1)
	defer bucket.Stop()

	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.DeadlineExceeded)
}
