package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// DefaultMinImages is the number of poses required for a new identity
const DefaultMinImages = 4

// GalleryInvalidator is told whenever enrolled embeddings change
type GalleryInvalidator interface {
	Invalidate()
}

// EnrollRequest carries the pose images of a new identity
type EnrollRequest struct {
	ExternalID string
	Name       string
	BirthDate  *time.Time
	Images     [][]byte
}

type EnrollmentService struct {
	identities  repository.IdentityRepositoryInterface
	embeddings  repository.EmbeddingRepositoryInterface
	locator     provider.FaceLocator
	extractor   provider.EmbeddingExtractor
	gallery     GalleryInvalidator
	auditLogger audit.Logger
	logger      *slog.Logger
	minImages   int
}

func NewEnrollmentService(
	identities repository.IdentityRepositoryInterface,
	embeddings repository.EmbeddingRepositoryInterface,
	locator provider.FaceLocator,
	extractor provider.EmbeddingExtractor,
	logger *slog.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentService{
		identities:  identities,
		embeddings:  embeddings,
		locator:     locator,
		extractor:   extractor,
		auditLogger: &audit.NoOpLogger{},
		logger:      logger.With("component", "enrollment"),
		minImages:   DefaultMinImages,
	}
}

func (s *EnrollmentService) WithMinImages(n int) *EnrollmentService {
	if n > 0 {
		s.minImages = n
	}
	return s
}

func (s *EnrollmentService) WithGallery(g GalleryInvalidator) *EnrollmentService {
	s.gallery = g
	return s
}

func (s *EnrollmentService) WithAuditLogger(l audit.Logger) *EnrollmentService {
	s.auditLogger = l
	return s
}

// Enroll creates an identity from at least minImages pose images. Every
// image must contain exactly one face; nothing is stored unless all of
// them yield an embedding.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*domain.Identity, error) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if req.ExternalID == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("external_id is required"))
	}
	if len(req.Images) < s.minImages {
		return nil, domain.ErrNotEnoughImages.WithError(fmt.Errorf("got %d images, need %d", len(req.Images), s.minImages))
	}

	vectors, err := s.embedAll(ctx, req.Images)
	if err != nil {
		return nil, fmt.Errorf("enroll %s: %w", req.ExternalID, err)
	}

	identity := &domain.Identity{
		ExternalID: req.ExternalID,
		Name:       strings.TrimSpace(req.Name),
		BirthDate:  req.BirthDate,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	stored, err := s.embeddings.Append(ctx, identity.ID, vectors)
	if err != nil {
		// sem embeddings a identidade não serve para nada
		if delErr := s.identities.Delete(ctx, identity.ExternalID); delErr != nil {
			s.logger.Error("failed to remove identity without embeddings",
				slog.String("external_id", identity.ExternalID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("enroll %s: store embeddings: %w", identity.ExternalID, err)
	}
	identity.Embeddings = stored

	s.changed(ctx, audit.EventIdentityEnrolled, identity.ExternalID, len(stored))
	return identity, nil
}

// AddImages appends more poses to an existing identity
func (s *EnrollmentService) AddImages(ctx context.Context, externalID string, images [][]byte) ([]domain.EnrolledEmbedding, error) {
	if len(images) == 0 {
		return nil, domain.ErrNotEnoughImages
	}

	identity, err := s.identities.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedAll(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("add images to %s: %w", externalID, err)
	}

	stored, err := s.embeddings.Append(ctx, identity.ID, vectors)
	if err != nil {
		return nil, fmt.Errorf("add images to %s: %w", externalID, err)
	}

	s.changed(ctx, audit.EventIdentityEnrolled, externalID, len(stored))
	return stored, nil
}

func (s *EnrollmentService) Delete(ctx context.Context, externalID string) error {
	if err := s.identities.Delete(ctx, externalID); err != nil {
		return err
	}
	s.changed(ctx, audit.EventIdentityDeleted, externalID, 0)
	return nil
}

func (s *EnrollmentService) List(ctx context.Context) ([]domain.Identity, error) {
	return s.identities.List(ctx)
}

func (s *EnrollmentService) Get(ctx context.Context, externalID string) (*domain.Identity, error) {
	return s.identities.GetByExternalID(ctx, externalID)
}

func (s *EnrollmentService) embedAll(ctx context.Context, images [][]byte) ([][]float64, error) {
	vectors := make([][]float64, 0, len(images))
	for i, img := range images {
		v, err := s.embed(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// embed locates the single face of an image and extracts its embedding
func (s *EnrollmentService) embed(ctx context.Context, image []byte) ([]float64, error) {
	faces, err := s.locator.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	if len(faces) > 1 {
		return nil, domain.ErrMultipleFaces
	}

	face, err := imaging.PrepareFace(image, faces[0].BoundingBox)
	if err != nil {
		return nil, err
	}

	return s.extractor.ExtractEmbedding(ctx, face)
}

func (s *EnrollmentService) changed(ctx context.Context, event audit.EventType, externalID string, embeddings int) {
	if s.gallery != nil {
		s.gallery.Invalidate()
	}

	s.logger.Info("gallery changed",
		slog.String("event", string(event)),
		slog.String("external_id", externalID),
		slog.Int("embeddings", embeddings),
	)

	_ = s.auditLogger.Log(ctx, audit.Event{
		EventType:  event,
		ExternalID: externalID,
		Success:    true,
		Metadata:   map[string]string{"embeddings": strconv.Itoa(embeddings)},
	})
}
