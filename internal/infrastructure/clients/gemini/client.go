// Package gemini implements the enrichment provider on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/clients/prompts"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/imageref"
	"github.com/zatekoja/woundsense/backend/pkg/retry"
)

const defaultModel = "gemini-2.5-flash"

// Client talks to Gemini through the genai SDK.
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
	library     *config.ProtocolLibrary
	retryCfg    retry.Config
}

var _ providers.EnrichmentProvider = (*Client)(nil)

// NewClient creates a Gemini client. cfg.BaseURL overrides the API endpoint
// when set.
func NewClient(ctx context.Context, cfg *config.EnrichmentConfig, library *config.ProtocolLibrary) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = defaultModel
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = textModel
	}

	return &Client{
		client:      client,
		textModel:   textModel,
		visionModel: visionModel,
		library:     library,
		retryCfg:    retry.ClientConfig(),
	}, nil
}

// Caption describes the wound image.
func (c *Client) Caption(ctx context.Context, imageRef string) (string, error) {
	data, mimeType, err := imageref.Read(imageRef)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompts.Caption),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}
	return c.generate(ctx, "caption", c.visionModel, contents, nil)
}

// SynthesizeResearch matches the measurements against the protocol library.
func (c *Client) SynthesizeResearch(ctx context.Context, measurementsText string) (string, error) {
	return c.generateText(ctx, "research", prompts.Research(measurementsText, c.library))
}

// SynthesizeReport writes the structured clinical report.
func (c *Client) SynthesizeReport(ctx context.Context, m entities.Measurements, contextText string) (string, error) {
	return c.generateText(ctx, "report", prompts.Report(m, contextText))
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	system := genai.NewContentFromText(prompts.System, genai.RoleUser)
	return c.generate(ctx, operation, c.textModel, contents, system)
}

func (c *Client) generate(ctx context.Context, operation, model string, contents []*genai.Content, system *genai.Content) (string, error) {
	ctx, span := observability.StartSpan(ctx, "enrichment."+operation)
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	)

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr[float32](0.2),
	}

	logger := observability.LoggerFromContext(ctx)
	var text string
	err := retry.DoWithLog(ctx, c.retryCfg, "gemini "+operation, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
		if err != nil {
			return classify(err)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return retry.Permanent(errors.New("gemini returned no text"))
		}
		return nil
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

// classify marks errors that a retry cannot fix as permanent.
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return err
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return retry.Permanent(fmt.Errorf("%w: gemini request failed with status %d", providers.ErrEnrichmentUnauthorized, code))
	case code == http.StatusTooManyRequests || code >= 500:
		return err
	default:
		return retry.Permanent(err)
	}
}
