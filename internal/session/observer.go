package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Gallery returns every enrolled identity with its embeddings, in
// enrollment order
type Gallery interface {
	AllEmbeddings(ctx context.Context) ([]domain.Identity, error)
}

// Observer receives session events. Calls come from the session
// goroutines and must not block.
type Observer interface {
	// OnStatus is called after every published state change and with the
	// terminal status
	OnStatus(status domain.Status)
	// OnPreview is called with the overlaid JPEG of a rendered frame
	OnPreview(preview Preview)
}

// Preview is one rendered frame with the face box drawn on it
type Preview struct {
	SessionID uuid.UUID
	Seq       uint64
	State     domain.State
	JPEG      []byte
}

// ResultSink is handed every terminal result after the device was released
type ResultSink interface {
	HandleResult(ctx context.Context, result domain.Result) error
}

// ResultSinkFunc adapts a function to ResultSink
type ResultSinkFunc func(ctx context.Context, result domain.Result) error

func (f ResultSinkFunc) HandleResult(ctx context.Context, result domain.Result) error {
	return f(ctx, result)
}

type nopObserver struct{}

func (nopObserver) OnStatus(domain.Status) {}
func (nopObserver) OnPreview(Preview)      {}
