package rekognition

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Provider locates faces with the Rekognition DetectFaces API.
// Rekognition does not expose embeddings, so it only serves as a locator.
type Provider struct {
	client      *Client
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

var _ provider.FaceLocator = (*Provider)(nil)

// NewProvider creates a new Rekognition face locator
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	return newProvider(client, opts...), nil
}

func newProvider(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (p *Provider) logAudit(ctx context.Context, success bool, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: audit.EventFaceDetected,
		Provider:  "rekognition",
		Success:   success,
		Metadata:  metadata,
	}

	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return domain.ErrInvalidImage
	}
	if len(image) < minImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too small (%d bytes, minimum %d)", len(image), minImageSize))
	}
	if len(image) > maxImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too large (%d bytes, maximum %d)", len(image), maxImageSize))
	}
	return nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API.
// Rekognition answers with ratios of the image size; they are converted to
// pixels using the image header. Returns an empty slice if no faces are found.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	meta := map[string]string{"image_size": strconv.Itoa(len(image))}

	if err := validateImage(image); err != nil {
		p.logAudit(ctx, false, err, meta)
		return nil, err
	}

	width, height, err := imaging.Dimensions(image)
	if err != nil {
		p.logAudit(ctx, false, err, meta)
		return nil, err
	}

	output, err := p.client.rekognition.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		if mapped, ok := classifyError(err); ok {
			err = mapped
		}
		p.logAudit(ctx, false, err, meta)
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		confidence := float64(*detail.Confidence)
		if confidence < p.client.config.MinConfidence {
			continue
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox:  toPixels(detail.BoundingBox, width, height),
			Confidence:   confidence / 100,
			QualityScore: calculateQualityScore(detail.Quality),
		})
	}

	meta["faces_count"] = strconv.Itoa(len(faces))
	p.logAudit(ctx, true, nil, meta)

	return faces, nil
}

// toPixels converts a ratio bounding box to pixel coordinates clipped to the image
func toPixels(box *types.BoundingBox, width, height int) domain.BoundingBox {
	ratio := func(v *float32) float64 {
		if v == nil {
			return 0
		}
		return float64(*v)
	}

	x := clamp(int(ratio(box.Left)*float64(width)), 0, width)
	y := clamp(int(ratio(box.Top)*float64(height)), 0, height)
	w := clamp(int(ratio(box.Width)*float64(width)), 0, width-x)
	h := clamp(int(ratio(box.Height)*float64(height)), 0, height-y)

	return domain.BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// calculateQualityScore computes an overall quality score from Rekognition quality metrics
// Returns a score between 0.0 (poor quality) and 1.0 (excellent quality)
func calculateQualityScore(quality *types.ImageQuality) float64 {
	if quality == nil {
		return 0.0
	}

	brightness := 0.0
	sharpness := 0.0

	if quality.Brightness != nil {
		brightness = float64(*quality.Brightness) / 100.0
	}

	if quality.Sharpness != nil {
		sharpness = float64(*quality.Sharpness) / 100.0
	}

	// sharpness pesa mais para reconhecimento
	return brightness*0.3 + sharpness*0.7
}
