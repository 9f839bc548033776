//go:build gocv

package haar

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Locator finds frontal faces with an OpenCV Haar cascade.
// CascadeClassifier is not safe for concurrent use, calls are serialized.
type Locator struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	params     Params
}

// New loads the cascade file
func New(cascadePath string, params Params) (*Locator, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		_ = classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeNotLoaded, cascadePath)
	}
	return &Locator{classifier: classifier, params: params.withDefaults()}, nil
}

// DetectFaces decodes the frame, equalizes it and runs the cascade
func (l *Locator) DetectFaces(ctx context.Context, img []byte) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, domain.ErrInvalidImage
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	l.mu.Lock()
	rects := l.classifier.DetectMultiScaleWithParams(
		equalized,
		l.params.ScaleFactor,
		l.params.MinNeighbors,
		0,
		image.Pt(l.params.MinSize, l.params.MinSize),
		image.Pt(l.params.MaxSize, l.params.MaxSize),
	)
	l.mu.Unlock()

	return toFaces(rects, mat.Cols()*mat.Rows()), nil
}

// Close releases the classifier
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classifier.Close()
}

var _ provider.FaceLocator = (*Locator)(nil)
