//go:build !gocv

package haar

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Locator is unavailable without the gocv build tag
type Locator struct{}

// New always fails; build with -tags gocv to enable OpenCV
func New(cascadePath string, params Params) (*Locator, error) {
	return nil, ErrUnavailable
}

func (l *Locator) DetectFaces(ctx context.Context, img []byte) ([]provider.DetectedFace, error) {
	return nil, ErrUnavailable
}

func (l *Locator) Close() error { return nil }

var _ provider.FaceLocator = (*Locator)(nil)
