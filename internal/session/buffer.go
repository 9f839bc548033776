package session

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// FrameBuffer holds the single most recent frame. The renderer overwrites
// it and the worker copies it out; both copies happen under the lock so a
// reader never sees a torn frame and never aliases the writer's memory.
type FrameBuffer struct {
	mu     sync.Mutex
	frame  domain.Frame
	stored bool
}

// Store replaces the buffered frame with a copy of f
func (b *FrameBuffer) Store(f domain.Frame) {
	c := f.Clone()

	b.mu.Lock()
	b.frame = c
	b.stored = true
	b.mu.Unlock()
}

// Snapshot returns a copy of the latest frame, or false if none was stored yet
func (b *FrameBuffer) Snapshot() (domain.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.stored {
		return domain.Frame{}, false
	}
	return b.frame.Clone(), true
}
