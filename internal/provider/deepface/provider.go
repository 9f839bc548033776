package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels

	// detectorSkip tells DeepFace the input is already a cropped face
	detectorSkip = "skip"
)

// Provider implements provider.FaceLocator and provider.EmbeddingExtractor
// on top of the DeepFace REST API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// DetectFaces detects faces in the image. DeepFace answers 400 when
// enforce_detection is on and nothing is found; that maps to no faces.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	resp, err := p.client.Represent(ctx, RepresentRequest{
		Img:              encodeImage(image),
		EnforceDetection: true,
		Align:            false,
	})
	if err != nil {
		if isNoFaceError(err) {
			return []provider.DetectedFace{}, nil
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		faceArea := float64(result.FacialArea.W * result.FacialArea.H)

		confidence := calculateConfidence(faceArea)
		if result.FaceConfidence != nil {
			if *result.FaceConfidence <= 0 {
				continue
			}
			confidence = *result.FaceConfidence
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: domain.BoundingBox{
				X:      result.FacialArea.X,
				Y:      result.FacialArea.Y,
				Width:  result.FacialArea.W,
				Height: result.FacialArea.H,
			},
			Confidence:   confidence,
			QualityScore: calculateQuality(faceArea),
		})
	}

	return faces, nil
}

// ExtractEmbedding returns the embedding of an already cropped face
func (p *Provider) ExtractEmbedding(ctx context.Context, faceImage []byte) ([]float64, error) {
	if len(faceImage) == 0 {
		return nil, domain.ErrExtractionFailed.WithError(domain.ErrInvalidImage)
	}

	resp, err := p.client.Represent(ctx, RepresentRequest{
		Img:              encodeImage(faceImage),
		DetectorBackend:  detectorSkip,
		EnforceDetection: false,
		Align:            true,
	})
	if err != nil {
		return nil, domain.ErrExtractionFailed.WithError(fmt.Errorf("represent: %w", err))
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, domain.ErrExtractionFailed.WithError(ErrNoFaceInResponse)
	}

	return resp.Results[0].Embedding, nil
}

func encodeImage(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func isNoFaceError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(statusErr.Body), "face could not be detected")
}

// calculateConfidence estimates confidence based on face area for DeepFace
// versions that do not report face_confidence
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

// calculateQuality estimates quality score based on face area
func calculateQuality(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.4
	}
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.6 + (normalized * 0.35)
}

var (
	_ provider.FaceLocator        = (*Provider)(nil)
	_ provider.EmbeddingExtractor = (*Provider)(nil)
)
