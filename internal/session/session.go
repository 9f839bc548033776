// Package session runs the live authentication loop.
//
// Each session owns two goroutines. The renderer reads the capture device
// on a short interval, stores the latest frame in a FrameBuffer and emits
// overlay previews. The worker polls the buffer on a longer interval,
// feeds the PresenceTracker and, once a face has been present for the
// dwell duration, extracts an embedding and runs the matcher. The worker is
// the only goroutine that mutates session state; readers see the last
// published Status.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facegate/internal/matcher"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Config tunes the authentication loop
type Config struct {
	Dwell          time.Duration
	PollInterval   time.Duration
	RenderInterval time.Duration
	Timeout        time.Duration
	// Previews enables overlay rendering for observers
	Previews bool
}

// DefaultConfig returns the loop timings of the desktop kiosk
func DefaultConfig() Config {
	return Config{
		Dwell:          4 * time.Second,
		PollInterval:   time.Second,
		RenderInterval: 100 * time.Millisecond,
		Timeout:        30 * time.Second,
	}
}

// Deps are the collaborators shared by all sessions
type Deps struct {
	Locator   provider.FaceLocator
	Extractor provider.EmbeddingExtractor
	Gallery   Gallery
	Matcher   *matcher.Matcher
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Observer  Observer
	Sinks     []ResultSink
}

func (d Deps) withDefaults() Deps {
	if d.Matcher == nil {
		d.Matcher = matcher.New(matcher.DefaultThreshold, matcher.DefaultScale)
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	return d
}

// Session is one authentication attempt
type Session struct {
	id       uuid.UUID
	cfg      Config
	deps     Deps
	device   *capture.Device
	logger   *slog.Logger
	buffer   FrameBuffer
	deadline Deadline

	// owned by the worker goroutine
	presence PresenceTracker
	st       domain.Status

	published       atomic.Pointer[domain.Status]
	captureFailures atomic.Int64
	framesRendered  atomic.Uint64
	cancelled       atomic.Bool

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	done    chan struct{}
}

func newSession(id uuid.UUID, device *capture.Device, cfg Config, deps Deps) *Session {
	deps = deps.withDefaults()
	now := deps.Clock.Now()

	s := &Session{
		id:       id,
		cfg:      cfg,
		deps:     deps,
		device:   device,
		logger:   deps.Logger.With("component", "session", "session_id", id.String()),
		deadline: NewDeadline(now, cfg.Timeout),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.st = domain.Status{
		SessionID: id,
		State:     domain.StateAwaitingFace,
		StartedAt: now,
	}
	s.publish(now)
	return s
}

// ID returns the session identifier
func (s *Session) ID() uuid.UUID {
	return s.id
}

// step runs one worker poll at time now and reports whether the session
// reached a terminal state.
func (s *Session) step(ctx context.Context, now time.Time) bool {
	if s.st.State.IsTerminal() {
		return true
	}

	if s.deadline.Expired(now) {
		s.finish(domain.StateTimedOut, nil, now)
		return true
	}

	s.st.Polls++
	pollAt := now
	s.st.LastPollAt = &pollAt

	frame, box := s.locate(ctx)
	if ctx.Err() != nil {
		return false
	}

	presence := s.presence.Update(box != nil, now)
	s.st.Face = box
	s.st.Presence = presence
	s.st.PresenceSince = nil
	if since, ok := s.presence.Since(); ok {
		s.st.PresenceSince = &since
	}

	switch {
	case box == nil:
		s.st.State = domain.StateAwaitingFace
	case presence < s.cfg.Dwell:
		s.st.State = domain.StateDwelling
	default:
		s.st.State = domain.StateEvaluating
		s.publish(now)
		return s.evaluate(ctx, frame, *box, now)
	}

	s.publish(now)
	return false
}

// locate snapshots the buffer and returns the best face in it. Locator
// failures count as no face for this poll.
func (s *Session) locate(ctx context.Context) (domain.Frame, *domain.BoundingBox) {
	frame, ok := s.buffer.Snapshot()
	if !ok || frame.Empty() {
		return frame, nil
	}

	box, err := provider.LocateFace(ctx, s.deps.Locator, frame.Data)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("face locator failed", slog.String("error", err.Error()))
		}
		return frame, nil
	}
	return frame, box
}

// evaluate extracts the live embedding and applies the decision rule
func (s *Session) evaluate(ctx context.Context, frame domain.Frame, box domain.BoundingBox, now time.Time) bool {
	s.st.Evaluations++

	decision, err := s.match(ctx, frame, box)

	// Uma sessão cancelada nunca pode terminar aceita
	if ctx.Err() != nil || s.cancelled.Load() {
		return false
	}

	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			s.st.ExtractionFailures++
		}
		s.logger.Warn("evaluation failed",
			slog.String("error", err.Error()),
			slog.Int("extraction_failures", s.st.ExtractionFailures),
		)
		s.awaitAgain(now)
		return false
	}

	if !math.IsInf(decision.Nearest, 1) {
		nearest := decision.Nearest
		s.st.LastDistance = &nearest
	}

	if !decision.Matched {
		s.logger.Info("no identity under threshold",
			slog.Float64("nearest", decision.Nearest),
			slog.Int("compared", decision.Compared),
		)
		s.awaitAgain(now)
		return false
	}

	s.finish(domain.StateAccepted, &decision, now)
	return true
}

func (s *Session) match(ctx context.Context, frame domain.Frame, box domain.BoundingBox) (matcher.Decision, error) {
	face, err := imaging.PrepareFace(frame.Data, box)
	if err != nil {
		return matcher.Decision{}, domain.ErrExtractionFailed.WithError(fmt.Errorf("prepare face: %w", err))
	}

	live, err := s.deps.Extractor.ExtractEmbedding(ctx, face)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			return matcher.Decision{}, err
		}
		return matcher.Decision{}, domain.ErrExtractionFailed.WithError(err)
	}

	gallery, err := s.deps.Gallery.AllEmbeddings(ctx)
	if err != nil {
		return matcher.Decision{}, fmt.Errorf("load gallery: %w", err)
	}
	if len(gallery) == 0 {
		s.logger.Warn("matching against an empty gallery", slog.String("error", domain.ErrEmptyGallery.Error()))
	}

	return s.deps.Matcher.Decide(live, gallery), nil
}

// awaitAgain sends the session back to AwaitingFace after an inconclusive
// evaluation; a full dwell is required before the next attempt.
func (s *Session) awaitAgain(now time.Time) {
	s.presence.Reset()
	s.st.State = domain.StateAwaitingFace
	s.st.Presence = 0
	s.st.PresenceSince = nil
	s.publish(now)
}

// finish sets the result. It runs at most once per session.
func (s *Session) finish(state domain.State, decision *matcher.Decision, now time.Time) {
	if s.st.State.IsTerminal() {
		return
	}

	outcome, _ := domain.OutcomeFor(state)
	result := domain.Result{
		SessionID: s.id,
		Outcome:   outcome,
		DecidedAt: now,
	}
	if decision != nil && decision.Identity != nil {
		identityID := decision.Identity.ID
		confidence := decision.Confidence
		distance := decision.Distance
		result.IdentityID = &identityID
		result.Identity = decision.Identity.ExternalID
		result.Name = decision.Identity.Name
		result.Confidence = &confidence
		result.Distance = &distance
	}

	s.st.State = state
	s.st.Result = &result
	s.publish(now)

	s.logger.Info("session finished",
		slog.String("outcome", string(outcome)),
		slog.String("identity", result.Identity),
		slog.Int("polls", s.st.Polls),
		slog.Int("evaluations", s.st.Evaluations),
	)
}

// publish stores an immutable copy of the working status for readers
func (s *Session) publish(now time.Time) {
	st := s.st
	st.Elapsed = s.deadline.Elapsed(now)
	st.Remaining = s.deadline.Remaining(now)
	st.CaptureFailures = int(s.captureFailures.Load())
	st.FramesRendered = s.framesRendered.Load()

	s.published.Store(&st)
	s.deps.Observer.OnStatus(st)
}

// Status returns the latest published status with live timing
func (s *Session) Status() domain.Status {
	st := *s.published.Load()
	if !st.State.IsTerminal() {
		now := s.deps.Clock.Now()
		st.Elapsed = s.deadline.Elapsed(now)
		st.Remaining = s.deadline.Remaining(now)
	}
	st.CaptureFailures = int(s.captureFailures.Load())
	st.FramesRendered = s.framesRendered.Load()
	return st
}

// Result returns the terminal result or domain.ErrSessionNotTerminal
func (s *Session) Result() (domain.Result, error) {
	st := s.published.Load()
	if st.Result == nil {
		return domain.Result{}, domain.ErrSessionNotTerminal
	}
	return *st.Result, nil
}
