package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func newLoggedApp(buf *bytes.Buffer) *fiber.App {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))})
	app.Use(Recover(logger))
	app.Use(Logger(logger, "/health"))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return domain.ErrIdentityNotFound })
	app.Get("/panic", func(c *fiber.Ctx) error { panic("camera exploded") })
	return app
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
		wantLevel  string
	}{
		{path: "/ok", wantStatus: 200, wantLevel: "INFO"},
		{path: "/health", wantStatus: 200, wantLevel: "DEBUG"},
		{path: "/missing", wantStatus: 404, wantLevel: "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var buf bytes.Buffer
			resp, err := newLoggedApp(&buf).Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			rec := lastRecord(t, &buf)
			assert.Equal(t, "http request", rec["msg"])
			assert.Equal(t, tt.wantLevel, rec["level"])
			assert.Equal(t, tt.path, rec["path"])
			assert.EqualValues(t, tt.wantStatus, rec["status"])
		})
	}
}

func TestRecover_LogsPanic(t *testing.T) {
	var buf bytes.Buffer
	resp, err := newLoggedApp(&buf).Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INTERNAL_ERROR")
	assert.NotContains(t, string(body), "camera exploded")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "panic recovered", rec["msg"])
	assert.Equal(t, "camera exploded", rec["panic"])
	assert.Contains(t, rec["stack"], "runtime/debug")
}
