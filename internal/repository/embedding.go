package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const foreignKeyViolation = "23503"

// EmbeddingRepository stores the face embeddings of enrolled identities
type EmbeddingRepository struct {
	pool PgxPool
}

func NewEmbeddingRepository(pool PgxPool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Append stores vectors after the identity's existing embeddings, keeping
// their order. All vectors are written or none.
func (r *EmbeddingRepository) Append(ctx context.Context, identityID uuid.UUID, vectors [][]float64) ([]domain.EnrolledEmbedding, error) {
	if len(vectors) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM face_embeddings WHERE identity_id = $1`,
		identityID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next embedding position: %w", err)
	}

	query := `
		INSERT INTO face_embeddings (id, identity_id, position, embedding, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	stored := make([]domain.EnrolledEmbedding, 0, len(vectors))
	for i, vector := range vectors {
		e := domain.EnrolledEmbedding{
			ID:         uuid.New(),
			IdentityID: identityID,
			Position:   next + i,
			Vector:     vector,
		}

		err := tx.QueryRow(ctx, query, e.ID, identityID, e.Position, toVector(vector)).Scan(&e.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return nil, domain.ErrIdentityNotFound
			}
			return nil, fmt.Errorf("insert embedding %d: %w", e.Position, err)
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit embeddings: %w", err)
	}

	return stored, nil
}

// AllEmbeddings returns every identity that has at least one embedding,
// in enrollment order, with its embeddings in position order.
func (r *EmbeddingRepository) AllEmbeddings(ctx context.Context) ([]domain.Identity, error) {
	query := `
		SELECT i.id, i.external_id, i.name, i.enrolled_at,
		       e.id, e.position, e.embedding, e.created_at
		FROM identities i
		INNER JOIN face_embeddings e ON e.identity_id = i.id
		ORDER BY i.enrolled_at, i.id, e.position
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var (
			identity  domain.Identity
			embedding domain.EnrolledEmbedding
			vector    *pgvector.Vector
		)

		if err := rows.Scan(
			&identity.ID,
			&identity.ExternalID,
			&identity.Name,
			&identity.EnrolledAt,
			&embedding.ID,
			&embedding.Position,
			&vector,
			&embedding.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		embedding.IdentityID = identity.ID
		embedding.Vector = fromVector(vector)

		// rows of one identity are contiguous
		last := len(identities) - 1
		if last < 0 || identities[last].ID != identity.ID {
			identities = append(identities, identity)
			last++
		}
		identities[last].Embeddings = append(identities[last].Embeddings, embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return identities, nil
}
