// Package mock is a scripted frame source for tests and development
package mock

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrClosed is returned by reads after Close
var ErrClosed = errors.New("mock source closed")

// Source cycles through a fixed list of frames
type Source struct {
	mu      sync.Mutex
	frames  []domain.Frame
	next    int
	opened  bool
	openErr error
	readErr error
	held    bool
	gate    chan struct{}
	done    chan struct{}
	closeN  int
	reads   int
}

// New builds a source that replays frames in order, forever
func New(frames ...domain.Frame) *Source {
	return &Source{
		frames: frames,
		gate:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Synthetic builds a source replaying one generated JPEG frame of the given size
func Synthetic(width, height int) *Source {
	return New(GenerateFrame(width, height))
}

// GenerateFrame renders a deterministic gradient frame encoded as JPEG
func GenerateFrame(width, height int) domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	// jpeg.Encode on an in-memory RGBA never fails
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	return domain.Frame{Data: buf.Bytes(), Width: width, Height: height}
}

// FailOpen makes Open return err
func (s *Source) FailOpen(err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
	return s
}

// FailReads makes every read return err until cleared with nil
func (s *Source) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// Hold makes reads block until Release or Close
func (s *Source) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = true
}

// Release unblocks held reads
func (s *Source) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		s.held = false
		close(s.gate)
		s.gate = make(chan struct{})
	}
}

func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = true
	return nil
}

func (s *Source) ReadFrame(ctx context.Context) (domain.Frame, error) {
	s.mu.Lock()
	held, gate := s.held, s.gate
	s.mu.Unlock()

	if held {
		select {
		case <-gate:
		case <-s.done:
			return domain.Frame{}, ErrClosed
		case <-ctx.Done():
			return domain.Frame{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return domain.Frame{}, ErrClosed
	default:
	}

	s.reads++
	if s.readErr != nil {
		return domain.Frame{}, s.readErr
	}
	if len(s.frames) == 0 {
		return domain.Frame{}, nil
	}

	frame := s.frames[s.next%len(s.frames)].Clone()
	s.next++
	return frame, nil
}

// Close is idempotent and unblocks held reads
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeN++
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// Opened reports whether Open succeeded
func (s *Source) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// CloseCalls counts Close invocations
func (s *Source) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeN
}

// Reads counts completed reads
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
