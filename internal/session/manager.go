package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Manager starts sessions and keeps them addressable by ID until their
// result is consumed.
type Manager struct {
	cfg         Config
	deps        Deps
	open        capture.Opener
	auditLogger audit.Logger
	maxSessions int
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ctx      context.Context
	stop     context.CancelFunc

	// opening counts reserved slots whose device is still opening
	opening int
}

// ManagerOption defines optional configuration for Manager
type ManagerOption func(*Manager)

// WithAuditLogger records session lifecycle events
func WithAuditLogger(logger audit.Logger) ManagerOption {
	return func(m *Manager) {
		m.auditLogger = logger
	}
}

// WithMaxSessions caps the number of sessions running at once.
// Zero or less means one.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// NewManager creates a session manager. open builds the device of every
// new session.
func NewManager(open capture.Opener, cfg Config, deps Deps, opts ...ManagerOption) *Manager {
	deps = deps.withDefaults()
	ctx, stop := context.WithCancel(context.Background())

	m := &Manager{
		cfg:         cfg,
		deps:        deps,
		open:        open,
		auditLogger: &audit.NoOpLogger{},
		maxSessions: 1,
		logger:      deps.Logger.With("component", "session_manager"),
		sessions:    make(map[uuid.UUID]*Session),
		ctx:         ctx,
		stop:        stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxSessions <= 0 {
		m.maxSessions = 1
	}

	m.deps.Sinks = append([]ResultSink{ResultSinkFunc(m.auditResult)}, deps.Sinks...)
	return m
}

// StartSession opens a capture device and starts a new session on it.
// Device failures surface immediately as domain.ErrDeviceUnavailable.
// The device opens outside the manager lock; its slot is reserved first.
func (m *Manager) StartSession(ctx context.Context) (*Session, error) {
	if err := m.reserve(); err != nil {
		return nil, err
	}

	device, err := m.open()
	if err != nil {
		m.unreserve()
		return nil, domain.ErrDeviceUnavailable.WithError(err)
	}
	if err := device.Open(ctx); err != nil {
		_ = device.Close()
		m.unreserve()
		return nil, err
	}

	m.mu.Lock()
	m.opening--
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		_ = device.Close()
		return nil, fmt.Errorf("session manager stopped: %w", domain.ErrInternal)
	}
	s := newSession(uuid.New(), device, m.cfg, m.deps)
	m.sessions[s.id] = s
	s.start(m.ctx)
	m.mu.Unlock()

	m.logger.Info("session started",
		slog.String("session_id", s.id.String()),
		slog.String("device", device.Name()),
	)
	_ = m.auditLogger.Log(ctx, audit.Event{
		SessionID: s.id,
		EventType: audit.EventSessionStarted,
		Success:   true,
		Metadata:  map[string]string{"device": device.Name()},
	})
	return s, nil
}

// reserve claims a session slot for a device that is about to open
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return fmt.Errorf("session manager stopped: %w", domain.ErrInternal)
	}
	if m.running()+m.opening >= m.maxSessions {
		return domain.ErrTooManySessions
	}
	m.opening++
	return nil
}

func (m *Manager) unreserve() {
	m.mu.Lock()
	m.opening--
	m.mu.Unlock()
}

// Start is StartSession for callers that only need the first status
func (m *Manager) Start(ctx context.Context) (domain.Status, error) {
	s, err := m.StartSession(ctx)
	if err != nil {
		return domain.Status{}, err
	}
	return s.Status(), nil
}

// running counts sessions whose device is still held. Caller holds mu.
func (m *Manager) running() int {
	n := 0
	for _, s := range m.sessions {
		select {
		case <-s.done:
		default:
			n++
		}
	}
	return n
}

func (m *Manager) get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Status returns the current status of a session
func (m *Manager) Status(id uuid.UUID) (domain.Status, error) {
	s, err := m.get(id)
	if err != nil {
		return domain.Status{}, err
	}
	return s.Status(), nil
}

// Cancel cancels a session and returns its final status. Cancelling a
// finished session changes nothing.
func (m *Manager) Cancel(id uuid.UUID) (domain.Status, error) {
	s, err := m.get(id)
	if err != nil {
		return domain.Status{}, err
	}
	s.Cancel()
	return s.Status(), nil
}

// Result returns and consumes the result of a finished session.
// Running sessions answer domain.ErrSessionNotTerminal.
func (m *Manager) Result(id uuid.UUID) (domain.Result, error) {
	s, err := m.get(id)
	if err != nil {
		return domain.Result{}, err
	}

	result, err := s.Result()
	if err != nil {
		return domain.Result{}, err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	return result, nil
}

// Wait blocks until the session has a result or ctx is done. The result
// is not consumed.
func (m *Manager) Wait(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	s, err := m.get(id)
	if err != nil {
		return domain.Result{}, err
	}

	select {
	case <-s.stopped:
		return s.Result()
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

// Sessions returns the status of every tracked session
func (m *Manager) Sessions() []domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Status, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Status())
	}
	return out
}

// Shutdown cancels every running session and waits until all devices are
// released and results delivered, or ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, s := range m.sessions {
		s.cancelled.Store(true)
	}
	m.stop()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		select {
		case <-s.done:
		case <-ctx.Done():
			return fmt.Errorf("shutdown sessions: %w", ctx.Err())
		}
	}
	return nil
}

// Reap drops finished sessions whose result nobody consumed within ttl.
// Returns how many were dropped.
func (m *Manager) Reap(ttl time.Duration) int {
	now := m.deps.Clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for id, s := range m.sessions {
		select {
		case <-s.done:
		default:
			continue
		}
		result, err := s.Result()
		if err != nil || now.Sub(result.DecidedAt) < ttl {
			continue
		}
		delete(m.sessions, id)
		reaped++
	}
	return reaped
}

// RunJanitor calls Reap on every interval until ctx is done
func (m *Manager) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := m.deps.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := m.Reap(ttl); n > 0 {
				m.logger.Info("reaped unclaimed sessions", slog.Int("count", n))
			}
		}
	}
}

// auditResult records the terminal outcome of every session
func (m *Manager) auditResult(ctx context.Context, result domain.Result) error {
	event := audit.Event{
		SessionID:  result.SessionID,
		ExternalID: result.Identity,
		Timestamp:  result.DecidedAt,
		Metadata:   map[string]string{},
	}

	switch result.Outcome {
	case domain.OutcomeAccepted:
		event.EventType = audit.EventLoginAccepted
		event.Success = true
		if result.Confidence != nil {
			event.Metadata["confidence"] = strconv.FormatFloat(*result.Confidence, 'f', 2, 64)
		}
		if result.Distance != nil {
			event.Metadata["distance"] = strconv.FormatFloat(*result.Distance, 'f', 4, 64)
		}
	case domain.OutcomeTimedOut:
		event.EventType = audit.EventSessionTimedOut
		event.Error = domain.ErrSessionTimedOut.Error()
	default:
		event.EventType = audit.EventLoginRejected
	}

	return m.auditLogger.Log(ctx, event)
}
