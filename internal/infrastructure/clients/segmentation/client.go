// Package segmentation calls the wound segmentation model worker over HTTP.
package segmentation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/imageref"
	"github.com/zatekoja/woundsense/backend/pkg/retry"
)

// Client sends images to the segmentation worker and decodes its masks.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retryCfg   retry.Config
}

var _ providers.SegmentationModel = (*Client)(nil)

// NewClient creates a segmentation worker client.
func NewClient(cfg *config.SegmentationConfig) (*Client, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New("segmentation endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.ClientConfig(),
	}, nil
}

type segmentRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
}

type segmentResponse struct {
	Detected bool   `json:"detected"`
	MaskPNG  string `json:"mask_png"`
}

// Segment returns the wound mask for the image. detected is false when the
// model found no wound; mask is nil in that case.
func (c *Client) Segment(ctx context.Context, imageRef string) (*entities.Mask, bool, error) {
	ctx, span := observability.StartSpan(ctx, "segmentation.segment")
	defer span.End()

	data, mimeType, err := imageref.Read(imageRef)
	if err != nil {
		observability.RecordError(span, err)
		return nil, false, err
	}
	body, err := json.Marshal(segmentRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	})
	if err != nil {
		return nil, false, err
	}

	var out segmentResponse
	err = retry.DoWithLog(ctx, c.retryCfg, "segmentation", func() error {
		return c.post(ctx, body, &out)
	}, func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("segmentation request failed, retrying")
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, false, err
	}

	observability.SetSpanAttributes(span, attribute.Bool("segmentation.detected", out.Detected))
	if !out.Detected {
		return nil, false, nil
	}

	mask, err := decodeMask(out.MaskPNG)
	if err != nil {
		observability.RecordError(span, err)
		return nil, false, err
	}
	return mask, true, nil
}

func (c *Client) post(ctx context.Context, body []byte, out *segmentResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/segment", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("segmentation worker returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return err
		}
		return retry.Permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode segmentation response: %w", err))
	}
	return nil
}

// decodeMask turns a base64 PNG into a binary mask. Pixels brighter than
// mid-grey are wound.
func decodeMask(encoded string) (*entities.Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid mask encoding: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid mask image: %w", err)
	}
	return maskFromImage(img), nil
}

func maskFromImage(img image.Image) *entities.Mask {
	b := img.Bounds()
	mask := entities.NewMask(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > 127 {
				mask.Set(y-b.Min.Y, x-b.Min.X, true)
			}
		}
	}
	return mask
}
