// Package capture owns frame sources. A Device wraps a Source with the
// process-wide claim registry so a physical device is held by at most one
// session, and releases it exactly once.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Source produces encoded frames from a camera-like device
type Source interface {
	// Open acquires the underlying device
	Open(ctx context.Context) error
	// ReadFrame returns the next frame. Failures are transient.
	ReadFrame(ctx context.Context) (domain.Frame, error)
	// Close releases the device. It must unblock a pending ReadFrame.
	Close() error
}

var claims = struct {
	mu   sync.Mutex
	held map[string]struct{}
}{held: make(map[string]struct{})}

func claim(name string) bool {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	if _, ok := claims.held[name]; ok {
		return false
	}
	claims.held[name] = struct{}{}
	return true
}

func release(name string) {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	delete(claims.held, name)
}

// Held reports whether a device name is currently claimed
func Held(name string) bool {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	_, ok := claims.held[name]
	return ok
}

// Device is a claimed Source. Frames get a monotonically increasing
// sequence and a capture timestamp from the injected clock.
type Device struct {
	name    string
	src     Source
	clock   clockwork.Clock
	seq     atomic.Uint64
	claimed atomic.Bool
	closed  atomic.Bool

	once sync.Once
	// closeErr is written once inside once.Do
	closeErr error
}

// NewDevice wraps src under the given device name
func NewDevice(name string, src Source, clock clockwork.Clock) *Device {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Device{name: name, src: src, clock: clock}
}

// Name returns the claim key of the device
func (d *Device) Name() string {
	return d.name
}

// Open claims the device name and opens the source. A name already held
// by another Device fails with domain.ErrDeviceUnavailable.
func (d *Device) Open(ctx context.Context) error {
	if d.closed.Load() {
		return domain.ErrDeviceUnavailable.WithError(fmt.Errorf("device %s already released", d.name))
	}
	if !claim(d.name) {
		return domain.ErrDeviceUnavailable.WithError(fmt.Errorf("device %s is in use", d.name))
	}
	d.claimed.Store(true)

	if err := d.src.Open(ctx); err != nil {
		if d.claimed.CompareAndSwap(true, false) {
			release(d.name)
		}
		if errors.Is(err, domain.ErrDeviceUnavailable) {
			return err
		}
		return domain.ErrDeviceUnavailable.WithError(fmt.Errorf("open %s: %w", d.name, err))
	}
	return nil
}

// ReadFrame reads one frame. Every failure is reported as
// domain.ErrCaptureFailed so callers can retry on the next tick.
func (d *Device) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if d.closed.Load() {
		return domain.Frame{}, domain.ErrCaptureFailed.WithError(fmt.Errorf("device %s closed", d.name))
	}

	frame, err := d.src.ReadFrame(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCaptureFailed) {
			return domain.Frame{}, err
		}
		return domain.Frame{}, domain.ErrCaptureFailed.WithError(err)
	}
	if frame.Empty() {
		return domain.Frame{}, domain.ErrCaptureFailed.WithError(errors.New("empty frame"))
	}

	frame.Seq = d.seq.Add(1)
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = d.clock.Now()
	}
	return frame, nil
}

// Close releases the source and the claim. Only the first call has effect.
func (d *Device) Close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		d.closeErr = d.src.Close()
		if d.claimed.CompareAndSwap(true, false) {
			release(d.name)
		}
	})
	return d.closeErr
}

// Closed reports whether Close already ran
func (d *Device) Closed() bool {
	return d.closed.Load()
}
