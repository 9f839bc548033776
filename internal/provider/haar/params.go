// Package haar is the OpenCV cascade face locator. It is compiled only with
// the gocv build tag; the default build carries a stub that reports
// ErrUnavailable.
package haar

import (
	"errors"
	"image"
	"sort"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

var (
	ErrUnavailable      = errors.New("haar locator requires the gocv build tag")
	ErrCascadeNotLoaded = errors.New("failed to load face cascade classifier")
)

// Params are the DetectMultiScale knobs
type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
	MaxSize      int
}

// DefaultParams matches a 320x240 webcam frame
func DefaultParams() Params {
	return Params{
		ScaleFactor:  1.1,
		MinNeighbors: 3,
		MinSize:      30,
		MaxSize:      300,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ScaleFactor <= 1 {
		p.ScaleFactor = d.ScaleFactor
	}
	if p.MinNeighbors <= 0 {
		p.MinNeighbors = d.MinNeighbors
	}
	if p.MinSize <= 0 {
		p.MinSize = d.MinSize
	}
	if p.MaxSize <= p.MinSize {
		p.MaxSize = d.MaxSize
	}
	return p
}

// toFaces converts cascade hits into detections. The cascade gives no
// score, so the share of the frame a box covers stands in for confidence
// and the largest face ranks first.
func toFaces(rects []image.Rectangle, frameArea int) []provider.DetectedFace {
	faces := make([]provider.DetectedFace, 0, len(rects))
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		confidence := 1.0
		if frameArea > 0 {
			confidence = float64(r.Dx()*r.Dy()) / float64(frameArea)
			if confidence > 1 {
				confidence = 1
			}
		}
		faces = append(faces, provider.DetectedFace{
			BoundingBox: domain.BoundingBox{
				X:      r.Min.X,
				Y:      r.Min.Y,
				Width:  r.Dx(),
				Height: r.Dy(),
			},
			Confidence:   confidence,
			QualityScore: confidence,
		})
	}
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Confidence > faces[j].Confidence
	})
	return faces
}
