// Package imaging holds the pixel work around recognition: decoding frames,
// cropping and resizing faces for the extractor, and drawing the overlay.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	// FaceSize is the side of the square face image handed to extractors
	FaceSize = 224
	// DefaultPadding grows the crop around the detected box on each side
	DefaultPadding = 0.15
	// jpegQuality for re-encoded frames and crops
	jpegQuality = 90
)

var (
	// ColorSearching is drawn while no identity has been accepted
	ColorSearching = color.RGBA{R: 255, A: 255}
	// ColorAccepted is drawn once the session accepted someone
	ColorAccepted = color.RGBA{G: 255, A: 255}
)

// Decode decodes a JPEG, PNG or WebP image
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return img, nil
}

// Dimensions reads only the image header
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, domain.ErrInvalidImage.WithError(err)
	}
	return cfg.Width, cfg.Height, nil
}

// EncodeJPEG encodes img as JPEG
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// PadBox grows the box by padding (fraction of its size) on each side and
// clips it to bounds.
func PadBox(box domain.BoundingBox, padding float64, bounds image.Rectangle) image.Rectangle {
	padX := int(float64(box.Width) * padding)
	padY := int(float64(box.Height) * padding)
	r := image.Rect(box.X-padX, box.Y-padY, box.X+box.Width+padX, box.Y+box.Height+padY)
	return r.Intersect(bounds)
}

// Crop copies the region r of img into a new image
func Crop(img image.Image, r image.Rectangle) (*image.RGBA, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, domain.ErrNoFaceDetected.WithError(fmt.Errorf("crop region %v outside image %v", r, img.Bounds()))
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// Resize scales img to exactly width x height
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// PrepareFace crops the face out of an encoded frame, resizes it to
// FaceSize x FaceSize and returns it JPEG-encoded.
func PrepareFace(frame []byte, box domain.BoundingBox) ([]byte, error) {
	img, err := Decode(frame)
	if err != nil {
		return nil, err
	}

	face, err := Crop(img, PadBox(box, DefaultPadding, img.Bounds()))
	if err != nil {
		return nil, err
	}

	return EncodeJPEG(Resize(face, FaceSize, FaceSize))
}

// DrawBox draws a rectangle outline of the given thickness onto dst
func DrawBox(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() || thickness <= 0 {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// Overlay decodes the frame, draws the face box (if any) in c and returns
// the JPEG-encoded preview. Without a box the frame is re-encoded as is.
func Overlay(frame []byte, box *domain.BoundingBox, c color.Color) ([]byte, error) {
	img, err := Decode(frame)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)

	if box != nil {
		DrawBox(canvas, box.Rect(), c, 2)
	}

	return EncodeJPEG(canvas)
}

// OverlayColor picks the overlay colour for a session state
func OverlayColor(state domain.State) color.RGBA {
	if state == domain.StateAccepted {
		return ColorAccepted
	}
	return ColorSearching
}
