package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/prompts"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/imageref"
	"github.com/zatekoja/woundsense/backend/pkg/retry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the enrichment provider against any OpenAI-compatible
// chat completions endpoint.
type Client struct {
	apiKey      string
	textModel   string
	visionModel string
	baseURL     string
	httpClient  *http.Client
	limiter     *tokenBucket
	library     *config.ProtocolLibrary
	retryCfg    retry.Config
}

var _ providers.EnrichmentProvider = (*Client)(nil)

// NewClient creates a new chat completions client. library may be nil.
func NewClient(cfg *config.EnrichmentConfig, library *config.ProtocolLibrary) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("enrichment api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = "gpt-4o-mini"
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = textModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		textModel:   textModel,
		visionModel: visionModel,
		baseURL:     baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:  newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		library:  library,
		retryCfg: retry.ClientConfig(),
	}, nil
}

// Close stops the rate limiter refill.
func (c *Client) Close() {
	c.limiter.Stop()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Caption describes the wound image with the vision model.
func (c *Client) Caption(ctx context.Context, imageRef string) (string, error) {
	data, mimeType, err := imageref.Read(imageRef)
	if err != nil {
		return "", err
	}

	messages := []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompts.Caption},
			{Type: "image_url", ImageURL: &imageURL{URL: imageref.DataURI(data, mimeType)}},
		},
	}}
	return c.complete(ctx, "caption", c.visionModel, messages)
}

// SynthesizeResearch matches the measurements against the protocol library.
func (c *Client) SynthesizeResearch(ctx context.Context, measurementsText string) (string, error) {
	return c.complete(ctx, "research", c.textModel, c.textMessages(prompts.Research(measurementsText, c.library)))
}

// SynthesizeReport writes the structured clinical report.
func (c *Client) SynthesizeReport(ctx context.Context, m entities.Measurements, contextText string) (string, error) {
	return c.complete(ctx, "report", c.textModel, c.textMessages(prompts.Report(m, contextText)))
}

func (c *Client) textMessages(userPrompt string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: prompts.System},
		{Role: "user", Content: userPrompt},
	}
}

func (c *Client) complete(ctx context.Context, operation, model string, messages []chatMessage) (string, error) {
	ctx, span := observability.StartSpan(ctx, "enrichment."+operation)
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	)

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordOpenAIMetric(ctx, model, operation, 0, 0, err)
			return "", err
		}
		recordOpenAIRateLimitWait(ctx, model, time.Since(waitStart))
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", err
	}

	logger := observability.LoggerFromContext(ctx)
	var text string
	err = retry.DoWithLog(ctx, c.retryCfg, "openai "+operation, func() error {
		var callErr error
		text, callErr = c.post(ctx, operation, model, body)
		return callErr
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("enrichment request failed, retrying")
	})
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, operation, model string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordOpenAIMetric(ctx, model, operation, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordOpenAIMetric(ctx, model, operation, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", retry.Permanent(fmt.Errorf("%w: chat completion failed with status %d", providers.ErrEnrichmentUnauthorized, resp.StatusCode))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		default:
			return "", retry.Permanent(fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
		}
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordOpenAIMetric(ctx, model, operation, resp.StatusCode, time.Since(start), err)
		return "", retry.Permanent(fmt.Errorf("failed to decode chat completion: %w", err))
	}
	if len(envelope.Choices) == 0 || strings.TrimSpace(envelope.Choices[0].Message.Content) == "" {
		err := errors.New("chat completion returned no content")
		recordOpenAIMetric(ctx, model, operation, resp.StatusCode, time.Since(start), err)
		return "", retry.Permanent(err)
	}

	recordOpenAIMetric(ctx, model, operation, resp.StatusCode, time.Since(start), nil)
	return envelope.Choices[0].Message.Content, nil
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
	stop   chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-bucket.stop:
				return
			case <-ticker.C:
				select {
				case bucket.tokens <- struct{}{}:
				default:
				}
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

// Stop ends the refill goroutine. It is safe on a nil bucket.
func (b *tokenBucket) Stop() {
	if b == nil {
		return
	}
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
}

type openAIMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	openaiMetricsOnce sync.Once
	openaiMetricsInit bool
	openaiMetrics     openAIMetrics
)

func ensureOpenAIMetrics() {
	openaiMetricsOnce.Do(initOpenAIMetrics)
}

func initOpenAIMetrics() {
	meter := otel.Meter("github.com/zatekoja/woundsense/backend/openai")

	requestCount, err := meter.Int64Counter(
		"ai.openai.request.count",
		metric.WithDescription("Number of chat completion requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.openai.request.duration",
		metric.WithDescription("Chat completion request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.openai.request.errors",
		metric.WithDescription("Number of chat completion request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.openai.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	openaiMetrics = openAIMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	openaiMetricsInit = true
}

func recordOpenAIMetric(ctx context.Context, model, operation string, statusCode int, duration time.Duration, err error) {
	ensureOpenAIMetrics()
	if !openaiMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	openaiMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	openaiMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		openaiMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordOpenAIRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureOpenAIMetrics()
	if !openaiMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	openaiMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
