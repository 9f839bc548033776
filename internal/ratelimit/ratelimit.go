// Package ratelimit keeps fixed window request counters in PostgreSQL so
// that every API instance on the same database enforces one limit.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
)

// DB interface for database operations
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store counts hits per key in the rate_limit_counters table
type Store struct {
	db     DB
	logger *slog.Logger
}

func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "rate_limit_store"),
	}
}

// Um contador expirado recomeça em 1 com uma nova janela
const hitQuery = `
	INSERT INTO rate_limit_counters (key, count, window_end)
	VALUES ($1, 1, $3)
	ON CONFLICT (key)
	DO UPDATE SET
		count = CASE
			WHEN rate_limit_counters.window_end <= $2 THEN 1
			ELSE rate_limit_counters.count + 1
		END,
		window_end = CASE
			WHEN rate_limit_counters.window_end <= $2 THEN $3
			ELSE rate_limit_counters.window_end
		END
	RETURNING count, window_end
`

// Hit counts one request for key at now and returns the count and the end
// of the window it fell into
func (s *Store) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	var (
		count int
		end   time.Time
	)
	err := s.db.QueryRow(ctx, hitQuery, key, now, now.Add(window)).Scan(&count, &end)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("count rate limit hit: %w", err)
	}
	return count, end, nil
}

// Count returns the hits of key in its live window; zero when there is none
func (s *Store) Count(ctx context.Context, key string, now time.Time) (int, error) {
	query := `
		SELECT count
		FROM rate_limit_counters
		WHERE key = $1 AND window_end > $2
	`

	var count int
	err := s.db.QueryRow(ctx, query, key, now).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read rate limit: %w", err)
	}
	return count, nil
}

// Reset drops the counter of key
func (s *Store) Reset(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rate_limit_counters WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

// CleanupExpired removes counters whose window ended before cutoff
func (s *Store) CleanupExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM rate_limit_counters WHERE window_end < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limits: %w", err)
	}
	return result.RowsAffected(), nil
}

// RunCleanup removes counters that expired more than keep ago, every
// interval, until ctx is done
func (s *Store) RunCleanup(ctx context.Context, clock clockwork.Clock, interval, keep time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := s.CleanupExpired(ctx, clock.Now().Add(-keep))
			if err != nil {
				s.logger.Error("failed to clean rate limit counters", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Debug("rate limit counters removed", slog.Int64("count", n))
			}
		}
	}
}
