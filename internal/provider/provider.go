package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// FaceLocator encontra regiões de rosto em uma imagem codificada
type FaceLocator interface {
	// DetectFaces returns every face candidate found in the image.
	// An empty slice means no face; it is not an error.
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// EmbeddingExtractor gera o vetor de identidade de uma imagem de rosto
type EmbeddingExtractor interface {
	// ExtractEmbedding returns the identity vector of an already cropped
	// face image. Every failure wraps domain.ErrExtractionFailed.
	ExtractEmbedding(ctx context.Context, faceImage []byte) ([]float64, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox  domain.BoundingBox `json:"bounding_box"`
	Confidence   float64            `json:"confidence"`
	QualityScore float64            `json:"quality_score"`
}

// Best returns the highest-confidence candidate, or nil when there is none.
// Ties keep the candidate reported first.
func Best(faces []DetectedFace) *DetectedFace {
	var best *DetectedFace
	for i := range faces {
		if best == nil || faces[i].Confidence > best.Confidence {
			best = &faces[i]
		}
	}
	return best
}

// LocateFace runs the locator and keeps only the best candidate
func LocateFace(ctx context.Context, locator FaceLocator, image []byte) (*domain.BoundingBox, error) {
	faces, err := locator.DetectFaces(ctx, image)
	if err != nil {
		return nil, err
	}

	best := Best(faces)
	if best == nil {
		return nil, nil
	}

	box := best.BoundingBox
	box.Confidence = best.Confidence
	return &box, nil
}
