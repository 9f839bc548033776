package capture

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/capture/mjpeg"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture/webcam"
)

const (
	KindMock   = "mock"
	KindMJPEG  = "mjpeg"
	KindWebcam = "gocv"
)

// Config selects and configures a frame source
type Config struct {
	Kind   string
	Device string
	URL    string
	Width  int
	Height int
}

// Opener builds a fresh, unopened Device for every session
type Opener func() (*Device, error)

// NewOpener validates cfg and returns the Opener for its kind
func NewOpener(cfg Config, clock clockwork.Clock) (Opener, error) {
	switch cfg.Kind {
	case KindMock:
		return func() (*Device, error) {
			return NewDevice("mock:"+cfg.Device, mock.Synthetic(cfg.Width, cfg.Height), clock), nil
		}, nil
	case KindMJPEG:
		if cfg.URL == "" {
			return nil, fmt.Errorf("camera %q requires CAMERA_URL", cfg.Kind)
		}
		return func() (*Device, error) {
			return NewDevice("mjpeg:"+cfg.URL, mjpeg.New(mjpeg.Config{URL: cfg.URL}), clock), nil
		}, nil
	case KindWebcam:
		return func() (*Device, error) {
			src := webcam.New(webcam.Config{Device: cfg.Device, Width: cfg.Width, Height: cfg.Height})
			return NewDevice("webcam:"+cfg.Device, src, clock), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown camera kind %q", cfg.Kind)
}
