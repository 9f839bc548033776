package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

const (
	SignatureHeader = "X-Facegate-Signature"
	EventHeader     = "X-Facegate-Event"
)

// Service delivers events to the configured endpoint and keeps the
// undelivered ones in webhook_queue
type Service struct {
	db       repository.PgxPool
	endpoint Endpoint
	client   *http.Client
	logger   *slog.Logger
}

func NewService(db repository.PgxPool, endpoint Endpoint, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With("component", "webhook"),
	}
}

func (s *Service) Endpoint() Endpoint {
	return s.endpoint
}

// HandleResult turns accepted and timed out session results into queued
// events. Rejected sessions were cancelled by the caller and are not sent.
func (s *Service) HandleResult(ctx context.Context, result domain.Result) error {
	if !s.endpoint.Enabled() {
		return nil
	}

	var eventType string
	switch result.Outcome {
	case domain.OutcomeAccepted:
		eventType = EventLoginAccepted
	case domain.OutcomeTimedOut:
		eventType = EventLoginTimedOut
	default:
		return nil
	}

	return s.Enqueue(ctx, EventPayload{
		ID:   uuid.New(),
		Type: eventType,
		Data: LoginData{
			SessionID:  result.SessionID,
			Outcome:    string(result.Outcome),
			ExternalID: result.Identity,
			Name:       result.Name,
			Confidence: result.Confidence,
			DecidedAt:  result.DecidedAt,
		},
		Timestamp: result.DecidedAt,
	})
}

// Enqueue stores the event for the worker; delivery happens asynchronously
func (s *Service) Enqueue(ctx context.Context, event EventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	query := `
		INSERT INTO webhook_queue (id, event_type, payload)
		VALUES ($1, $2, $3)
	`

	if _, err := s.db.Exec(ctx, query, uuid.New(), event.Type, payload); err != nil {
		return fmt.Errorf("enqueue webhook: %w", err)
	}

	s.logger.Debug("webhook queued", slog.String("event_type", event.Type))
	return nil
}

// Send posts a raw event payload signed with the endpoint secret
func (s *Service) Send(ctx context.Context, eventType string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.endpoint.Secret, payload, time.Now()))
	req.Header.Set(EventHeader, eventType)
	req.Header.Set("User-Agent", "Facegate-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return nil
}
