package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// LoginRepository is the database side of the login journal
type LoginRepository struct {
	pool PgxPool
}

func NewLoginRepository(pool PgxPool) *LoginRepository {
	return &LoginRepository{pool: pool}
}

func (r *LoginRepository) Create(ctx context.Context, record *domain.LoginRecord) error {
	query := `
		INSERT INTO logins (id, session_id, identity_id, external_id, name, confidence, distance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.SessionID,
		record.IdentityID,
		record.ExternalID,
		record.Name,
		record.Confidence,
		record.Distance,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create login: %w", err)
	}

	return nil
}

// ListRecent returns the newest logins first
func (r *LoginRepository) ListRecent(ctx context.Context, limit int) ([]domain.LoginRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, identity_id, external_id, name, confidence, distance, created_at
		FROM logins
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	defer rows.Close()

	records := make([]domain.LoginRecord, 0)
	for rows.Next() {
		var rec domain.LoginRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.IdentityID,
			&rec.ExternalID,
			&rec.Name,
			&rec.Confidence,
			&rec.Distance,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan login: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logins: %w", err)
	}

	return records, nil
}
