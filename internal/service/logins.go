package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// Journal receives accepted logins for the on-disk diary
type Journal interface {
	Record(record domain.LoginRecord) error
}

// LoginRecorder persists accepted session results. It is registered as a
// session result sink; non accepted results are ignored.
type LoginRecorder struct {
	logins  repository.LoginRepositoryInterface
	journal Journal
	logger  *slog.Logger
}

func NewLoginRecorder(logins repository.LoginRepositoryInterface, journal Journal, logger *slog.Logger) *LoginRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginRecorder{
		logins:  logins,
		journal: journal,
		logger:  logger.With("component", "login_recorder"),
	}
}

func (r *LoginRecorder) HandleResult(ctx context.Context, result domain.Result) error {
	if !result.Accepted() {
		return nil
	}

	record := LoginRecordFor(result)

	var errs []error
	if r.logins != nil {
		if err := r.logins.Create(ctx, &record); err != nil {
			errs = append(errs, fmt.Errorf("store login: %w", err))
		}
	}
	if r.journal != nil {
		if err := r.journal.Record(record); err != nil {
			errs = append(errs, fmt.Errorf("journal login: %w", err))
		}
	}

	if len(errs) == 0 {
		r.logger.Info("login recorded",
			slog.String("session_id", result.SessionID.String()),
			slog.String("external_id", result.Identity),
		)
	}

	return errors.Join(errs...)
}

// Recent returns the latest accepted logins, newest first
func (r *LoginRecorder) Recent(ctx context.Context, limit int) ([]domain.LoginRecord, error) {
	if r.logins == nil {
		return []domain.LoginRecord{}, nil
	}
	return r.logins.ListRecent(ctx, limit)
}

// LoginRecordFor converts an accepted result into a journal record
func LoginRecordFor(result domain.Result) domain.LoginRecord {
	record := domain.LoginRecord{
		SessionID:  result.SessionID,
		IdentityID: result.IdentityID,
		ExternalID: result.Identity,
		Name:       result.Name,
		CreatedAt:  result.DecidedAt,
	}
	if result.Confidence != nil {
		record.Confidence = *result.Confidence
	}
	if result.Distance != nil {
		record.Distance = *result.Distance
	}
	return record
}
