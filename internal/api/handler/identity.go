package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

// EnrollmentService interface for the service
type EnrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*domain.Identity, error)
	AddImages(ctx context.Context, externalID string, images [][]byte) ([]domain.EnrolledEmbedding, error)
	Delete(ctx context.Context, externalID string) error
	List(ctx context.Context) ([]domain.Identity, error)
	Get(ctx context.Context, externalID string) (*domain.Identity, error)
}

type IdentityHandler struct {
	service EnrollmentService
	logger  *slog.Logger
}

func NewIdentityHandler(service EnrollmentService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		service: service,
		logger:  logger,
	}
}

// IdentityResponse describes an enrolled identity
type IdentityResponse struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	BirthDate  *string `json:"birth_date,omitempty"`
	Embeddings int     `json:"embeddings"`
	EnrolledAt string  `json:"enrolled_at"`
}

func toIdentityResponse(identity *domain.Identity) IdentityResponse {
	resp := IdentityResponse{
		ID:         identity.ID.String(),
		ExternalID: identity.ExternalID,
		Name:       identity.Name,
		Embeddings: len(identity.Embeddings),
		EnrolledAt: identity.EnrolledAt.UTC().Format(time.RFC3339),
	}
	if identity.BirthDate != nil {
		d := identity.BirthDate.Format(time.DateOnly)
		resp.BirthDate = &d
	}
	return resp
}

// Enroll POST /v1/identities - enroll a new identity from pose images
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	// 1. Extract fields
	externalID := strings.TrimSpace(c.FormValue("external_id"))
	if externalID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("external_id is required"))
	}

	birthDate, err := parseBirthDate(c.FormValue("birth_date"))
	if err != nil {
		return err
	}

	// 2. Extract images
	images, err := extractImages(c)
	if err != nil {
		return err
	}

	// 3. Enroll
	identity, err := h.service.Enroll(c.UserContext(), service.EnrollRequest{
		ExternalID: externalID,
		Name:       c.FormValue("name"),
		BirthDate:  birthDate,
		Images:     images,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toIdentityResponse(identity))
}

// AddImages POST /v1/identities/:external_id/embeddings - add more poses
func (h *IdentityHandler) AddImages(c *fiber.Ctx) error {
	externalID := c.Params("external_id")

	images, err := extractImages(c)
	if err != nil {
		return err
	}

	stored, err := h.service.AddImages(c.UserContext(), externalID, images)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"external_id": externalID,
		"added":       len(stored),
	})
}

// Get GET /v1/identities/:external_id
func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	identity, err := h.service.Get(c.UserContext(), c.Params("external_id"))
	if err != nil {
		return err
	}
	return c.JSON(toIdentityResponse(identity))
}

// List GET /v1/identities
func (h *IdentityHandler) List(c *fiber.Ctx) error {
	identities, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]IdentityResponse, 0, len(identities))
	for i := range identities {
		resp = append(resp, toIdentityResponse(&identities[i]))
	}

	return c.JSON(fiber.Map{"identities": resp})
}

// Delete DELETE /v1/identities/:external_id
func (h *IdentityHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("external_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseBirthDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("birth_date must be YYYY-MM-DD"))
	}
	return &d, nil
}
