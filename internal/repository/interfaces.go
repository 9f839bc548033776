package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityRepositoryInterface defines operations for identity data access
type IdentityRepositoryInterface interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
	Delete(ctx context.Context, externalID string) error
	Count(ctx context.Context) (int, error)
}

// EmbeddingRepositoryInterface defines operations for enrolled embeddings
type EmbeddingRepositoryInterface interface {
	Append(ctx context.Context, identityID uuid.UUID, vectors [][]float64) ([]domain.EnrolledEmbedding, error)
	AllEmbeddings(ctx context.Context) ([]domain.Identity, error)
}

// LoginRepositoryInterface defines operations for the login journal
type LoginRepositoryInterface interface {
	Create(ctx context.Context, record *domain.LoginRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.LoginRecord, error)
}
