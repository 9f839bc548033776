package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const maxResultWait = 60 * time.Second

// SessionManager is the subset of session.Manager used over HTTP
type SessionManager interface {
	Start(ctx context.Context) (domain.Status, error)
	Status(id uuid.UUID) (domain.Status, error)
	Cancel(id uuid.UUID) (domain.Status, error)
	Result(id uuid.UUID) (domain.Result, error)
	Wait(ctx context.Context, id uuid.UUID) (domain.Result, error)
	Sessions() []domain.Status
}

type SessionHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

func NewSessionHandler(manager SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger,
	}
}

// SessionResponse is returned by the session endpoints
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	Status    domain.Status `json:"status"`
}

// ResultResponse wraps a terminal result
type ResultResponse struct {
	Result domain.Result `json:"result"`
}

// Start POST /v1/sessions - open the camera and begin a login attempt
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	// 1. Start session
	status, err := h.manager.Start(c.UserContext())
	if err != nil {
		return err
	}

	// 2. Return first status
	c.Location("/v1/sessions/" + status.SessionID.String())
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{
		SessionID: status.SessionID.String(),
		Status:    status,
	})
}

// List GET /v1/sessions - every tracked session
func (h *SessionHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sessions": h.manager.Sessions(),
	})
}

// Get GET /v1/sessions/:id - current status
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	status, err := h.manager.Status(id)
	if err != nil {
		return err
	}

	return c.JSON(SessionResponse{SessionID: id.String(), Status: status})
}

// Cancel DELETE /v1/sessions/:id - stop the session and release the camera
func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	status, err := h.manager.Cancel(id)
	if err != nil {
		return err
	}

	h.logger.Info("session cancelled", slog.String("session_id", id.String()), slog.String("state", string(status.State)))

	return c.JSON(SessionResponse{SessionID: id.String(), Status: status})
}

// Result GET /v1/sessions/:id/result - consume the terminal result.
// ?wait=10s blocks until the session finishes or the wait elapses.
func (h *SessionHandler) Result(c *fiber.Ctx) error {
	// 1. Parse params
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	wait, err := parseWait(c.Query("wait"))
	if err != nil {
		return err
	}

	// 2. Optionally block
	if wait > 0 {
		ctx, cancel := context.WithTimeout(c.UserContext(), wait)
		defer cancel()

		if _, err := h.manager.Wait(ctx, id); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.ErrSessionNotTerminal
			}
			return err
		}
	}

	// 3. Consume
	result, err := h.manager.Result(id)
	if err != nil {
		return err
	}

	return c.JSON(ResultResponse{Result: result})
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrBadRequest.WithError(err)
	}
	return id, nil
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, domain.ErrBadRequest.WithError(errors.New("wait must be a positive duration"))
	}
	if d > maxResultWait {
		d = maxResultWait
	}
	return d, nil
}
