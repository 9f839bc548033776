//go:build integration

package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	capturemock "github.com/saturnino-fabrica-de-software/facegate/internal/capture/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/matcher"
	providermock "github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
)

func startDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "facegate_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/facegate_test?sslmode=disable", host, port.Port())

	require.NoError(t, database.MigrateUp(dsn, nil))

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// TestIntegration_EnrollThenLogin enrolls the synthetic camera frame and
// expects a session on the same camera to accept it
func TestIntegration_EnrollThenLogin(t *testing.T) {
	pool := startDatabase(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	faces := providermock.New()
	identities := repository.NewIdentityRepository(pool)
	embeddings := repository.NewEmbeddingRepository(pool)
	logins := repository.NewLoginRepository(pool)

	gallery := service.NewCachedGallery(embeddings, time.Minute, nil)
	enrollment := service.NewEnrollmentService(identities, embeddings, faces, faces, logger).WithGallery(gallery)
	recorder := service.NewLoginRecorder(logins, nil, logger)

	clock := clockwork.NewRealClock()
	opener, err := capture.NewOpener(capture.Config{Kind: capture.KindMock, Device: "it", Width: 320, Height: 240}, clock)
	require.NoError(t, err)

	manager := session.NewManager(opener, session.Config{
		Dwell:          50 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		RenderInterval: 10 * time.Millisecond,
		Timeout:        5 * time.Second,
	}, session.Deps{
		Locator:   faces,
		Extractor: faces,
		Gallery:   gallery,
		Matcher:   matcher.New(matcher.DefaultThreshold, matcher.DefaultScale),
		Clock:     clock,
		Logger:    logger,
		Sinks:     []session.ResultSink{recorder},
	})
	t.Cleanup(func() { _ = manager.Shutdown(ctx) })

	router := newTestRouter(t, &Dependencies{
		Sessions:   manager,
		Enrollment: enrollment,
		Logins:     recorder,
		DB:         pool,
	})

	// 1. Enroll four poses of the synthetic frame
	frame := capturemock.GenerateFrame(320, 240).Data
	images := []handlerImage{{frame}, {frame}, {frame}, {frame}}
	body, contentType := enrollForm("ana", "Ana", images)
	req := httptest.NewRequest("POST", "/v1/identities", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := router.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	// 2. Start session and wait for the verdict
	resp, err = router.App().Test(httptest.NewRequest("POST", "/v1/sessions", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	var started handler.SessionResponse
	decodeJSON(t, resp.Body, &started)

	resp, err = router.App().Test(httptest.NewRequest("GET", "/v1/sessions/"+started.SessionID+"/result?wait=5s", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var result handler.ResultResponse
	decodeJSON(t, resp.Body, &result)

	assert.Equal(t, domain.OutcomeAccepted, result.Result.Outcome)
	assert.Equal(t, "ana", result.Result.Identity)

	// 3. Login journal
	assert.Eventually(t, func() bool {
		recent, err := recorder.Recent(ctx, 10)
		return err == nil && len(recent) == 1
	}, 5*time.Second, 50*time.Millisecond)

	// 4. Ready probe sees the database
	resp, err = router.App().Test(httptest.NewRequest("GET", "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
