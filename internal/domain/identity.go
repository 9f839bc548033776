package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity representa uma pessoa cadastrada com uma ou mais amostras faciais
type Identity struct {
	ID         uuid.UUID           `json:"id"`
	ExternalID string              `json:"external_id"`
	Name       string              `json:"name"`
	BirthDate  *time.Time          `json:"birth_date,omitempty"`
	Embeddings []EnrolledEmbedding `json:"-"`
	EnrolledAt time.Time           `json:"enrolled_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// EnrolledEmbedding is one stored face signature. Position keeps the
// enrollment order within the identity.
type EnrolledEmbedding struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Position   int       `json:"position"`
	Vector     []float64 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoginRecord is one accepted authentication kept in the login journal
type LoginRecord struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	ExternalID string     `json:"external_id"`
	Name       string     `json:"name"`
	Confidence float64    `json:"confidence"`
	Distance   float64    `json:"distance"`
	CreatedAt  time.Time  `json:"created_at"`
}
