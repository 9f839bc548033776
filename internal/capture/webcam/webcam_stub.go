//go:build !gocv

package webcam

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Source is unavailable without the gocv build tag
type Source struct{}

// New returns a source whose Open always fails; build with -tags gocv
func New(config Config) *Source {
	return &Source{}
}

func (s *Source) Open(ctx context.Context) error {
	return domain.ErrDeviceUnavailable.WithError(ErrUnavailable)
}

func (s *Source) ReadFrame(ctx context.Context) (domain.Frame, error) {
	return domain.Frame{}, ErrUnavailable
}

func (s *Source) Close() error { return nil }
