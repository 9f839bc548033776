package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// LocalOperator marks requests that presented the operator API key
const LocalOperator = "operator"

// APIKey guards operator routes (enrollment, identity removal) with a
// static key sent as a Bearer token. An empty key disables the check,
// which is only accepted outside production.
func APIKey(key string) fiber.Handler {
	expected := sha256.Sum256([]byte(key))

	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}

		// 1. Extract Bearer token
		token := extractBearerToken(c)
		if token == "" {
			return domain.ErrUnauthorized
		}

		// 2. Compare hashes in constant time
		got := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
			return domain.ErrUnauthorized
		}

		// 3. Mark request
		c.Locals(LocalOperator, true)

		return c.Next()
	}
}

// IsOperator reports whether the request was authenticated by APIKey
func IsOperator(c *fiber.Ctx) bool {
	ok, _ := c.Locals(LocalOperator).(bool)
	return ok
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
