package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the position of an authentication session in its lifecycle
type State string

const (
	StateAwaitingFace State = "awaiting_face"
	StateDwelling     State = "dwelling"
	StateEvaluating   State = "evaluating"
	StateAccepted     State = "accepted"
	StateRejected     State = "rejected"
	StateTimedOut     State = "timed_out"
)

// IsTerminal reports whether no further transition can leave the state
func (s State) IsTerminal() bool {
	switch s {
	case StateAccepted, StateRejected, StateTimedOut:
		return true
	}
	return false
}

// Outcome is the final verdict of a session
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimedOut Outcome = "timed_out"
)

// OutcomeFor maps a terminal state to its outcome
func OutcomeFor(s State) (Outcome, bool) {
	switch s {
	case StateAccepted:
		return OutcomeAccepted, true
	case StateRejected:
		return OutcomeRejected, true
	case StateTimedOut:
		return OutcomeTimedOut, true
	}
	return "", false
}

// Result is the terminal result of a session. Identity and Confidence are
// only set for accepted sessions.
type Result struct {
	SessionID  uuid.UUID  `json:"session_id"`
	Outcome    Outcome    `json:"outcome"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Identity   string     `json:"identity,omitempty"`
	Name       string     `json:"name,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Distance   *float64   `json:"distance,omitempty"`
	DecidedAt  time.Time  `json:"decided_at"`
}

// Accepted reports whether the session authenticated someone
func (r Result) Accepted() bool {
	return r.Outcome == OutcomeAccepted
}

// Err returns the error a caller should surface for the outcome, if any
func (r Result) Err() error {
	if r.Outcome == OutcomeTimedOut {
		return ErrSessionTimedOut
	}
	return nil
}

// Status is a read-only snapshot of a running session plus telemetry
type Status struct {
	SessionID          uuid.UUID     `json:"session_id"`
	State              State         `json:"state"`
	StartedAt          time.Time     `json:"started_at"`
	LastPollAt         *time.Time    `json:"last_poll_at,omitempty"`
	PresenceSince      *time.Time    `json:"presence_since,omitempty"`
	Presence           time.Duration `json:"presence_ns"`
	Elapsed            time.Duration `json:"elapsed_ns"`
	Remaining          time.Duration `json:"remaining_ns"`
	Polls              int           `json:"polls"`
	Evaluations        int           `json:"evaluations"`
	ExtractionFailures int           `json:"extraction_failures"`
	CaptureFailures    int           `json:"capture_failures"`
	FramesRendered     uint64        `json:"frames_rendered"`
	LastDistance       *float64      `json:"last_distance,omitempty"`
	Face               *BoundingBox  `json:"face,omitempty"`
	Result             *Result       `json:"result,omitempty"`
}

// Terminal reports whether the session already has a result
func (s Status) Terminal() bool {
	return s.State.IsTerminal()
}
