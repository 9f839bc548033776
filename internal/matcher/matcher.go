// Package matcher implements the nearest-neighbor decision rule used to turn a
// live embedding into an accepted identity.
//
// Every enrolled embedding of every identity is compared independently. An
// identity is a candidate when any of its embeddings is closer than the
// threshold; the candidate with the smallest distance wins and ties go to the
// identity that appears first in the gallery (enrollment order).
package matcher

import (
	"errors"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrNonFinite is returned for vectors holding NaN or Inf components
var ErrNonFinite = errors.New("embedding is not finite")

const (
	DefaultThreshold = 0.6
	DefaultScale     = 1.0
)

// Decision is the outcome of comparing one live embedding with a gallery
type Decision struct {
	Matched    bool
	Identity   *domain.Identity
	Distance   float64
	Confidence float64

	// Nearest is the smallest distance seen across the gallery, matched or
	// not. It is +Inf when nothing could be compared.
	Nearest  float64
	Compared int
	Skipped  int
}

// Matcher applies the acceptance threshold and the confidence mapping
type Matcher struct {
	threshold float64
	scale     float64
}

// New creates a Matcher. Non-positive values fall back to the defaults.
func New(threshold, scale float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Matcher{threshold: threshold, scale: scale}
}

// Threshold returns the acceptance threshold
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Decide runs the decision rule. It is a pure function of its inputs.
// Embeddings whose dimension differs from live are skipped.
func (m *Matcher) Decide(live []float64, gallery []domain.Identity) Decision {
	decision := Decision{Nearest: math.Inf(1)}
	best := -1

	for i := range gallery {
		for _, enrolled := range gallery[i].Embeddings {
			d, err := Euclidean(live, enrolled.Vector)
			if err != nil {
				decision.Skipped++
				continue
			}
			decision.Compared++

			if d < decision.Nearest {
				decision.Nearest = d
			}

			// NaN nunca passa no limiar
			if !(d < m.threshold) {
				continue
			}

			// strict comparison keeps the earlier identity on ties
			if best == -1 || d < decision.Distance {
				best = i
				decision.Distance = d
			}
		}
	}

	if best == -1 {
		return decision
	}

	decision.Matched = true
	decision.Identity = &gallery[best]
	decision.Confidence = m.Confidence(decision.Distance)
	return decision
}

// Confidence maps a distance to a 0..100 score, decreasing with distance
func (m *Matcher) Confidence(distance float64) float64 {
	c := 100 * (1 - distance/m.scale)
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// Euclidean returns the L2 distance between two vectors of equal length.
// A NaN or infinite result is an error, never a distance.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("got %d and %d", len(a), len(b)))
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	d := math.Sqrt(sum)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrNonFinite
	}
	return d, nil
}
