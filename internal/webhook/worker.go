package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

const (
	DefaultPollInterval = 5 * time.Second
	batchSize           = 10
)

type Worker struct {
	db       repository.PgxPool
	service  *Service
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
}

func NewWorker(db repository.PgxPool, service *Service, clock clockwork.Clock, logger *slog.Logger) *Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		db:       db,
		service:  service,
		clock:    clock,
		interval: DefaultPollInterval,
		logger:   logger.With("component", "webhook_worker"),
		stopCh:   make(chan struct{}),
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("webhook worker started", slog.String("url", w.service.Endpoint().URL))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return
		case <-w.stopCh:
			w.logger.Info("webhook worker stopped")
			return
		case <-ticker.Chan():
			if _, err := w.ProcessQueue(ctx); err != nil {
				w.logger.Error("failed to process webhook queue", "error", err)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
}

// ProcessQueue delivers one batch of due jobs. The rows stay locked until
// the batch commits so that concurrent workers skip them.
func (w *Worker) ProcessQueue(ctx context.Context) (int, error) {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT id, event_type, payload, attempts, max_attempts
		FROM webhook_queue
		WHERE status = 'pending' AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, w.clock.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("query webhook queue: %w", err)
	}

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.EventType, &job.Payload, &job.Attempts, &job.MaxAttempts); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan webhook job: %w", err)
		}
		jobs = append(jobs, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate webhook queue: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]
		status, sendErr := w.deliver(ctx, job)
		if err := w.update(ctx, tx, job, status, sendErr); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(jobs), nil
}

func (w *Worker) deliver(ctx context.Context, job *Job) (string, error) {
	err := w.service.Send(ctx, job.EventType, job.Payload)
	if err == nil {
		return StatusDelivered, nil
	}

	if job.Attempts+1 >= job.MaxAttempts {
		return StatusFailed, err
	}
	return StatusPending, err
}

func (w *Worker) update(ctx context.Context, tx pgx.Tx, job *Job, status string, sendErr error) error {
	switch status {
	case StatusDelivered:
		query := `
			UPDATE webhook_queue
			SET status = 'delivered',
			    attempts = attempts + 1,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, query, job.ID); err != nil {
			return fmt.Errorf("mark delivered: %w", err)
		}
		w.logger.Info("webhook delivered", "job_id", job.ID, "event_type", job.EventType)

	case StatusFailed:
		query := `
			UPDATE webhook_queue
			SET status = 'failed',
			    attempts = attempts + 1,
			    last_error = $1,
			    updated_at = NOW()
			WHERE id = $2
		`
		if _, err := tx.Exec(ctx, query, sendErr.Error(), job.ID); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		w.logger.Warn("webhook job failed", "job_id", job.ID, "attempts", job.Attempts+1, "error", sendErr)

	default:
		nextRetry := w.clock.Now().Add(Backoff(job.Attempts))
		query := `
			UPDATE webhook_queue
			SET attempts = attempts + 1,
			    next_retry_at = $1,
			    last_error = $2,
			    updated_at = NOW()
			WHERE id = $3
		`
		if _, err := tx.Exec(ctx, query, nextRetry, sendErr.Error(), job.ID); err != nil {
			return fmt.Errorf("schedule retry: %w", err)
		}
		w.logger.Info("webhook job scheduled for retry",
			"job_id", job.ID,
			"attempts", job.Attempts+1,
			"next_retry", nextRetry,
		)
	}

	return nil
}

// Backoff doubles the wait after every failed attempt, capped at 5 minutes
func Backoff(attempts int) time.Duration {
	if attempts > 8 {
		return 5 * time.Minute
	}
	d := time.Duration(1<<attempts) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
