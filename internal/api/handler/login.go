package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const maxLoginsLimit = 500

// LoginHistory lists accepted logins
type LoginHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.LoginRecord, error)
}

type LoginHandler struct {
	history LoginHistory
	logger  *slog.Logger
}

func NewLoginHandler(history LoginHistory, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{history: history, logger: logger}
}

// List GET /v1/logins?limit=50 - newest accepted logins first
func (h *LoginHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxLoginsLimit {
		return domain.ErrValidationFailed
	}

	logins, err := h.history.Recent(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"logins": logins})
}
