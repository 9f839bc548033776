package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, external_id, name, birth_date, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING enrolled_at, updated_at
	`

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.ExternalID,
		identity.Name,
		identity.BirthDate,
	).Scan(&identity.EnrolledAt, &identity.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

func (r *IdentityRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error) {
	query := `
		SELECT id, external_id, name, birth_date, enrolled_at, updated_at
		FROM identities
		WHERE external_id = $1
	`

	var identity domain.Identity
	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&identity.ID,
		&identity.ExternalID,
		&identity.Name,
		&identity.BirthDate,
		&identity.EnrolledAt,
		&identity.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by external_id: %w", err)
	}

	return &identity, nil
}

// List returns identities in enrollment order, without embeddings
func (r *IdentityRepository) List(ctx context.Context) ([]domain.Identity, error) {
	query := `
		SELECT id, external_id, name, birth_date, enrolled_at, updated_at
		FROM identities
		ORDER BY enrolled_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(
			&identity.ID,
			&identity.ExternalID,
			&identity.Name,
			&identity.BirthDate,
			&identity.EnrolledAt,
			&identity.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// Delete removes the identity; its embeddings go with it (ON DELETE CASCADE)
func (r *IdentityRepository) Delete(ctx context.Context, externalID string) error {
	query := `
		DELETE FROM identities
		WHERE external_id = $1
	`

	result, err := r.pool.Exec(ctx, query, externalID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}
