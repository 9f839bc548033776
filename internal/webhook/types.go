package webhook

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventLoginAccepted = "login.accepted"
	EventLoginTimedOut = "login.timed_out"
)

const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Endpoint is the receiver configured through WEBHOOK_URL/WEBHOOK_SECRET
type Endpoint struct {
	URL    string `json:"url"`
	Secret string `json:"-"`
}

func (e Endpoint) Enabled() bool {
	return e.URL != ""
}

type Job struct {
	ID          uuid.UUID  `json:"id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// LoginData is the body of login.* events
type LoginData struct {
	SessionID  uuid.UUID `json:"session_id"`
	Outcome    string    `json:"outcome"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}
