// Package mjpeg reads frames from an IP camera snapshot endpoint
package mjpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/imaging"
)

// maxSnapshotSize guards against endpoints that stream instead of answering
const maxSnapshotSize = 8 * 1024 * 1024

// ErrClosed is returned by reads after Close
var ErrClosed = errors.New("snapshot source closed")

// Config configures the snapshot source
type Config struct {
	URL     string
	Timeout time.Duration
}

// Source GETs one JPEG per ReadFrame
type Source struct {
	config     Config
	httpClient *http.Client

	// closed by Close, aborts in-flight requests
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a snapshot source
func New(config Config) *Source {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Open fetches one snapshot to prove the camera answers
func (s *Source) Open(ctx context.Context) error {
	if s.config.URL == "" {
		return domain.ErrDeviceUnavailable.WithError(errors.New("camera url not configured"))
	}
	if _, err := s.ReadFrame(ctx); err != nil {
		return domain.ErrDeviceUnavailable.WithError(err)
	}
	return nil
}

// ReadFrame performs one snapshot request. Close aborts an in-flight request.
func (s *Source) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if s.ctx.Err() != nil {
		return domain.Frame{}, ErrClosed
	}

	reqCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-s.ctx.Done():
			stop()
		case <-reqCtx.Done():
		}
	}()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if s.ctx.Err() != nil {
			return domain.Frame{}, ErrClosed
		}
		return domain.Frame{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.Frame{}, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return domain.Frame{}, fmt.Errorf("read snapshot: %w", err)
	}

	width, height, err := imaging.Dimensions(data)
	if err != nil {
		return domain.Frame{}, err
	}

	return domain.Frame{Data: data, Width: width, Height: height}, nil
}

// Close cancels in-flight requests; it is idempotent
func (s *Source) Close() error {
	s.cancel()
	return nil
}
