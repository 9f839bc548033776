package ws

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionStatus  EventType = "session.status"
	EventSessionPreview EventType = "session.preview"
)

type Event struct {
	SessionID uuid.UUID   `json:"session_id"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// PreviewData carries one overlaid frame; JPEG is base64 in JSON
type PreviewData struct {
	Seq   uint64 `json:"seq"`
	State string `json:"state"`
	JPEG  []byte `json:"jpeg"`
}
