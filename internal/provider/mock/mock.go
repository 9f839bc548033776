package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const (
	embeddingDimension = 512
	minImageSize       = 64
)

// Provider implementa FaceLocator e EmbeddingExtractor para testes e desenvolvimento
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// DetectFaces simula detecção: um rosto centralizado ocupando 60% da imagem
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	width, height := dimensions(image)

	return []provider.DetectedFace{
		{
			BoundingBox: domain.BoundingBox{
				X:      width / 5,
				Y:      height / 5,
				Width:  width * 3 / 5,
				Height: height * 3 / 5,
			},
			Confidence:   0.99,
			QualityScore: 0.95,
		},
	}, nil
}

// ExtractEmbedding gera embedding determinístico baseado no hash da imagem
func (p *Provider) ExtractEmbedding(ctx context.Context, faceImage []byte) ([]float64, error) {
	if len(faceImage) < minImageSize {
		return nil, domain.ErrExtractionFailed.WithError(domain.ErrInvalidImage)
	}

	return generateEmbedding(faceImage), nil
}

// dimensions reads the image header; undecodable input falls back to 320x240
func dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 320, 240
	}
	return cfg.Width, cfg.Height
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.FaceLocator        = (*Provider)(nil)
	_ provider.EmbeddingExtractor = (*Provider)(nil)
)
