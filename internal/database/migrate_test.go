//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
)

func startPostgres(t *testing.T) string {
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

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/facegate_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)

	db, err := database.NewPool(database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("up creates the schema", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "facegate_test", nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		status, err := migrator.Run(database.ActionUp, 0)
		require.NoError(t, err)
		assert.Equal(t, uint(4), status.Version)

		assertTableExists(t, db, "identities")
		assertTableExists(t, db, "face_embeddings")
		assertTableExists(t, db, "logins")
		assertTableExists(t, db, "webhook_queue")
		assertTableExists(t, db, "rate_limit_counters")
	})

	t.Run("up is idempotent", func(t *testing.T) {
		require.NoError(t, database.MigrateUp(dsn, nil))
	})

	t.Run("version reports latest", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "facegate_test", nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		status, err := migrator.Run(database.ActionVersion, 0)
		require.NoError(t, err)
		assert.False(t, status.Dirty)
		assert.Equal(t, uint(4), status.Version)
	})

	t.Run("embeddings cascade with their identity", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO identities (id, external_id, name) VALUES ('7d0f7b9e-5d2a-4a37-9b57-1c1f7b3c9a10', 'ana', 'Ana')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO face_embeddings (id, identity_id, position, embedding)
			VALUES ('0b0c9a51-3f5e-4d61-8c1f-2a6d9f0e7b22', '7d0f7b9e-5d2a-4a37-9b57-1c1f7b3c9a10', 0, '[0.1,0.2,0.3]')`)
		require.NoError(t, err)

		_, err = db.Exec(`DELETE FROM identities WHERE external_id = 'ana'`)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM face_embeddings`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("down rolls back one step", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "facegate_test", nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		status, err := migrator.Run(database.ActionDown, 0)
		require.NoError(t, err)
		assert.Equal(t, uint(3), status.Version)

		_, err = migrator.Run(database.ActionForce, 0)
		assert.Error(t, err)
	})
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}
