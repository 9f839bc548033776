package domain

import (
	"image"
	"time"
)

// Frame is one encoded image captured from a device
type Frame struct {
	Data       []byte    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Seq        uint64    `json:"seq"`
	CapturedAt time.Time `json:"captured_at"`
}

// Clone returns a copy that shares no memory with f
func (f Frame) Clone() Frame {
	c := f
	if f.Data != nil {
		c.Data = make([]byte, len(f.Data))
		copy(c.Data, f.Data)
	}
	return c
}

// Empty reports whether the frame carries no image data
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// BoundingBox is a face region in pixel coordinates
type BoundingBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Rect converts the box to an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns the box area in pixels²
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}
