package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	capturemock "github.com/saturnino-fabrica-de-software/facegate/internal/capture/mock"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/matcher"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var testFace = domain.BoundingBox{X: 100, Y: 60, Width: 120, Height: 120}

// fakeLocator reports testFace while present is set
type fakeLocator struct {
	mu      sync.Mutex
	present bool
	err     error
	calls   int
}

func (f *fakeLocator) set(present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present = present
}

func (f *fakeLocator) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeLocator) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if !f.present {
		return []provider.DetectedFace{}, nil
	}
	return []provider.DetectedFace{{BoundingBox: testFace, Confidence: 0.95}}, nil
}

// fakeExtractor returns a fixed vector. When block is set, extraction
// waits on it (or on ctx) after signalling started.
type fakeExtractor struct {
	mu      sync.Mutex
	vector  []float64
	err     error
	calls   int
	started chan struct{}
	block   chan struct{}
	onCall  func()
}

func (f *fakeExtractor) ExtractEmbedding(ctx context.Context, faceImage []byte) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	vector, err, started, block, onCall := f.vector, f.err, f.started, f.block, f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, domain.ErrExtractionFailed.WithError(ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), vector...), nil
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGallery struct {
	identities []domain.Identity
	err        error
}

func (g *fakeGallery) AllEmbeddings(ctx context.Context) ([]domain.Identity, error) {
	return g.identities, g.err
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []domain.Status
	previews []Preview
}

func (o *recordingObserver) OnStatus(st domain.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, st)
}

func (o *recordingObserver) OnPreview(p Preview) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.previews = append(o.previews, p)
}

func (o *recordingObserver) states() []domain.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.State, 0, len(o.statuses))
	for _, st := range o.statuses {
		out = append(out, st.State)
	}
	return out
}

func (o *recordingObserver) previewCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.previews)
}

type recordingSink struct {
	mu      sync.Mutex
	results []domain.Result
	err     error
}

func (r *recordingSink) HandleResult(ctx context.Context, result domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

func (r *recordingSink) Results() []domain.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Result(nil), r.results...)
}

func enrolled(externalID string, vectors ...[]float64) domain.Identity {
	id := domain.Identity{ID: uuid.New(), ExternalID: externalID, Name: "Person " + externalID}
	for i, v := range vectors {
		id.Embeddings = append(id.Embeddings, domain.EnrolledEmbedding{IdentityID: id.ID, Position: i, Vector: v})
	}
	return id
}

type harness struct {
	session   *Session
	locator   *fakeLocator
	extractor *fakeExtractor
	gallery   *fakeGallery
	observer  *recordingObserver
	clock     clockwork.FakeClock
}

// newHarness builds an unstarted session at t0 with a frame already in its buffer
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		locator:   &fakeLocator{},
		extractor: &fakeExtractor{vector: []float64{0.3, 0}},
		gallery:   &fakeGallery{identities: []domain.Identity{enrolled("X", []float64{0, 0})}},
		observer:  &recordingObserver{},
		clock:     clockwork.NewFakeClockAt(t0),
	}

	name := "test:" + uuid.NewString()
	device := capture.NewDevice(name, capturemock.Synthetic(320, 240), h.clock)
	h.session = newSession(uuid.New(), device, cfg, Deps{
		Locator:   h.locator,
		Extractor: h.extractor,
		Gallery:   h.gallery,
		Matcher:   matcher.New(0.6, 1.0),
		Clock:     h.clock,
		Observer:  h.observer,
	})
	h.session.buffer.Store(capturemock.GenerateFrame(320, 240))
	return h
}

func (h *harness) poll(at time.Duration) bool {
	return h.session.step(context.Background(), t0.Add(at))
}

func (h *harness) state() domain.State {
	return h.session.Status().State
}

func testConfig() Config {
	return Config{
		Dwell:          4 * time.Second,
		PollInterval:   time.Second,
		RenderInterval: 100 * time.Millisecond,
		Timeout:        30 * time.Second,
	}
}
