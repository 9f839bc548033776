//go:build gocv

package webcam

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Source reads a local camera through OpenCV VideoCapture.
// VideoCapture is not safe for concurrent use; Close waits for a pending read.
type Source struct {
	config Config

	mu     sync.Mutex
	cam    *gocv.VideoCapture
	img    gocv.Mat
	closed bool
}

// New creates a webcam source
func New(config Config) *Source {
	return &Source{config: config.withDefaults()}
}

func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	cam, err := gocv.OpenVideoCapture(s.config.Device)
	if err != nil {
		return domain.ErrDeviceUnavailable.WithError(fmt.Errorf("open video capture %s: %w", s.config.Device, err))
	}
	if !cam.IsOpened() {
		_ = cam.Close()
		return domain.ErrDeviceUnavailable.WithError(fmt.Errorf("video capture %s did not open", s.config.Device))
	}

	cam.Set(gocv.VideoCaptureFrameWidth, float64(s.config.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(s.config.Height))

	s.cam = cam
	s.img = gocv.NewMat()
	return nil
}

func (s *Source) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.cam == nil {
		return domain.Frame{}, ErrClosed
	}

	if ok := s.cam.Read(&s.img); !ok || s.img.Empty() {
		return domain.Frame{}, errors.New("camera returned no frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.img)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return domain.Frame{Data: data, Width: s.img.Cols(), Height: s.img.Rows()}, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.cam == nil {
		return nil
	}
	_ = s.img.Close()
	return s.cam.Close()
}
