// Package audit registra eventos de acesso biométrico (LGPD) e o diário
// de logins.
package audit

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionStarted   EventType = "SESSION_STARTED"
	EventFaceDetected     EventType = "FACE_DETECTED"
	EventLoginAccepted    EventType = "LOGIN_ACCEPTED"
	EventLoginRejected    EventType = "LOGIN_REJECTED"
	EventSessionTimedOut  EventType = "SESSION_TIMED_OUT"
	EventIdentityEnrolled EventType = "IDENTITY_ENROLLED"
	EventIdentityDeleted  EventType = "IDENTITY_DELETED"
)

// Event é um fato auditável. Campos vazios não aparecem no log.
type Event struct {
	ID         uuid.UUID
	Timestamp  time.Time
	SessionID  uuid.UUID
	EventType  EventType
	ExternalID string
	Provider   string
	Success    bool
	Error      string
	Metadata   map[string]string
}

// LogValue renders the event as a slog group
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", e.ID.String()),
		slog.String("type", string(e.EventType)),
		slog.Time("at", e.Timestamp),
		slog.Bool("success", e.Success),
	}
	if e.SessionID != uuid.Nil {
		attrs = append(attrs, slog.String("session_id", e.SessionID.String()))
	}
	if e.ExternalID != "" {
		attrs = append(attrs, slog.String("external_id", e.ExternalID))
	}
	if e.Provider != "" {
		attrs = append(attrs, slog.String("provider", e.Provider))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		meta := make([]any, 0, len(keys))
		for _, k := range keys {
			meta = append(meta, slog.String(k, e.Metadata[k]))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}
	return slog.GroupValue(attrs...)
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger writes one "audit_event" record per event
type SlogLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With(slog.String("component", "audit")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	level := slog.LevelInfo
	if !event.Success && event.Error != "" {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "audit_event", slog.Any("event", event))
	return nil
}

// NoOpLogger descarta tudo
type NoOpLogger struct{}

func (*NoOpLogger) Log(context.Context, Event) error { return nil }
