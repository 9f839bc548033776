// Package webcam is the local camera frame source backed by OpenCV. It is
// compiled only with the gocv build tag.
package webcam

import "errors"

var (
	ErrUnavailable = errors.New("webcam source requires the gocv build tag")
	ErrClosed      = errors.New("webcam source closed")
)

// Config selects the camera and its capture size
type Config struct {
	Device string
	Width  int
	Height int
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = "0"
	}
	if c.Width <= 0 {
		c.Width = 320
	}
	if c.Height <= 0 {
		c.Height = 240
	}
	return c
}
