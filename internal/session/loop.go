package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/imaging"
)

// sinkTimeout bounds result delivery after a session ends
const sinkTimeout = 10 * time.Second

// start launches the renderer, the worker and the teardown goroutine
func (s *Session) start(parent context.Context) {
	s.ctx, s.cancel = context.WithCancel(parent)

	rendererDone := make(chan struct{})
	go func() {
		defer close(rendererDone)
		s.render(s.ctx)
	}()

	go func() {
		defer close(s.stopped)
		s.work(s.ctx)
	}()

	go s.teardown(rendererDone)
}

// work is the worker goroutine. It polls once right away and then on
// every PollInterval tick until the session is terminal or cancelled.
func (s *Session) work(ctx context.Context) {
	clock := s.deps.Clock
	ticker := clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	if s.step(ctx, clock.Now()) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.abort(clock.Now())
			return
		case <-ticker.Chan():
		}

		if ctx.Err() != nil {
			s.abort(clock.Now())
			return
		}
		if s.step(ctx, clock.Now()) {
			return
		}
	}
}

// abort records a cancellation as Rejected unless a result already exists
func (s *Session) abort(now time.Time) {
	s.finish(domain.StateRejected, nil, now)
}

// render is the renderer goroutine
func (s *Session) render(ctx context.Context) {
	ticker := s.deps.Clock.NewTicker(s.cfg.RenderInterval)
	defer ticker.Stop()

	for {
		s.renderFrame(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// renderFrame reads one frame into the buffer and emits the preview.
// Capture errors are counted and never end the session.
func (s *Session) renderFrame(ctx context.Context) {
	frame, err := s.device.ReadFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		failures := s.captureFailures.Add(1)
		s.logger.Debug("frame capture failed",
			slog.String("error", err.Error()),
			slog.Int64("capture_failures", failures),
		)
		return
	}

	s.buffer.Store(frame)
	s.framesRendered.Add(1)

	if !s.cfg.Previews {
		return
	}

	st := s.published.Load()
	jpeg, err := imaging.Overlay(frame.Data, st.Face, imaging.OverlayColor(st.State))
	if err != nil {
		s.logger.Debug("preview render failed", slog.String("error", err.Error()))
		return
	}

	s.deps.Observer.OnPreview(Preview{
		SessionID: s.id,
		Seq:       frame.Seq,
		State:     st.State,
		JPEG:      jpeg,
	})
}

// teardown waits for the worker, releases the device exactly once, waits
// for the renderer and hands the result to the sinks.
func (s *Session) teardown(rendererDone <-chan struct{}) {
	defer close(s.done)

	<-s.stopped
	s.cancel()

	if err := s.device.Close(); err != nil {
		s.logger.Warn("failed to release capture device", slog.String("error", err.Error()))
	}
	<-rendererDone

	result, err := s.Result()
	if err != nil {
		s.logger.Error("session stopped without a result")
		return
	}
	s.dispatch(result)
}

// dispatch delivers the result to every sink. Sink errors are logged and
// do not affect the result.
func (s *Session) dispatch(result domain.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	for _, sink := range s.deps.Sinks {
		if err := sink.HandleResult(ctx, result); err != nil {
			s.logger.Error("result sink failed",
				slog.String("outcome", string(result.Outcome)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Cancel stops the session and waits for the worker to exit. A session
// that already has a result keeps it.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	<-s.stopped
}

// Stopped is closed once the session has a result
func (s *Session) Stopped() <-chan struct{} {
	return s.stopped
}

// Done is closed once the device is released and all sinks ran
func (s *Session) Done() <-chan struct{} {
	return s.done
}
