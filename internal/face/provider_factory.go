package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/haar"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/rekognition"
)

// ProviderType defines supported face provider backends
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace REST service (locator and extractor)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is AWS Rekognition (locator only)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeHaar is the OpenCV cascade (locator only, gocv build tag)
	ProviderTypeHaar ProviderType = "gocv"
	// ProviderTypeMock is the deterministic in-process provider
	ProviderTypeMock ProviderType = "mock"
)

// NewLocator creates the FaceLocator selected by LOCATOR.
// The haar locator holds native memory; callers close it when it
// implements io.Closer.
//
// Environment variables:
//   - LOCATOR: "deepface", "rekognition", "gocv" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL: DeepFace service
//   - AWS_REGION + AWS SDK credential chain: Rekognition
//   - CASCADE_PATH: Haar cascade XML file
func NewLocator(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.FaceLocator, error) {
	switch ProviderType(cfg.Locator) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeRekognition:
		rekogConfig := rekognition.DefaultConfig()
		rekogConfig.Region = cfg.AWSRegion

		var opts []rekognition.ProviderOption
		if auditLogger != nil {
			opts = append(opts, rekognition.WithAuditLogger(auditLogger))
		}

		prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
		if err != nil {
			return nil, fmt.Errorf("create rekognition locator: %w", err)
		}
		return prov, nil

	case ProviderTypeHaar:
		loc, err := haar.New(cfg.CascadePath, haar.DefaultParams())
		if err != nil {
			return nil, fmt.Errorf("create haar locator: %w", err)
		}
		return loc, nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown locator type: %s (supported: %s, %s, %s, %s)",
			cfg.Locator, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeHaar, ProviderTypeMock)
	}
}

// NewExtractor creates the EmbeddingExtractor selected by EXTRACTOR.
// Rekognition and the cascade do not expose embeddings and are rejected.
func NewExtractor(cfg *config.Config) (provider.EmbeddingExtractor, error) {
	switch ProviderType(cfg.Extractor) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: %s, %s)",
			cfg.Extractor, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}

	return deepface.NewProvider(deepfaceConfig)
}
