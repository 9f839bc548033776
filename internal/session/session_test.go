package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func TestStep_NoFaceUntilTimeout(t *testing.T) {
	h := newHarness(t, testConfig())

	for sec := 0; sec <= 30; sec++ {
		terminal := h.poll(time.Duration(sec) * time.Second)
		require.False(t, terminal, "poll at %ds", sec)
		require.Equal(t, domain.StateAwaitingFace, h.state(), "poll at %ds", sec)
	}

	assert.True(t, h.poll(31*time.Second))

	st := h.session.Status()
	assert.Equal(t, domain.StateTimedOut, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, domain.OutcomeTimedOut, st.Result.Outcome)
	assert.Nil(t, st.Result.IdentityID)
	assert.ErrorIs(t, st.Result.Err(), domain.ErrSessionTimedOut)
	assert.Equal(t, 0, h.extractor.Calls())
	assert.Equal(t, 31, st.Polls)
}

func TestStep_EvaluatesOnlyWhenDwellIsFirstMet(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gallery.identities = nil
	h.locator.set(true)

	for sec := 0; sec < 4; sec++ {
		h.poll(time.Duration(sec) * time.Second)
		require.Equal(t, domain.StateDwelling, h.state(), "poll at %ds", sec)
		require.Equal(t, 0, h.extractor.Calls(), "poll at %ds", sec)
	}

	h.poll(4 * time.Second)
	assert.Equal(t, 1, h.extractor.Calls())
	assert.Contains(t, h.observer.states(), domain.StateEvaluating)
}

func TestStep_DwellMeasuredFromFirstDetection(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gallery.identities = nil

	h.poll(0)
	h.poll(time.Second)
	h.locator.set(true)
	h.poll(2 * time.Second)

	st := h.session.Status()
	require.NotNil(t, st.PresenceSince)
	assert.Equal(t, t0.Add(2*time.Second), *st.PresenceSince)

	h.poll(5 * time.Second)
	assert.Equal(t, domain.StateDwelling, h.state())
	assert.Equal(t, 3*time.Second, h.session.Status().Presence)

	h.poll(6 * time.Second)
	assert.Equal(t, 1, h.extractor.Calls())
}

func TestStep_AbsenceResetsPresence(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)

	h.poll(0)
	h.poll(time.Second)
	h.poll(2 * time.Second)
	require.Equal(t, domain.StateDwelling, h.state())

	h.locator.set(false)
	h.poll(3 * time.Second)
	assert.Equal(t, domain.StateAwaitingFace, h.state())
	assert.Zero(t, h.session.Status().Presence)
	assert.Nil(t, h.session.Status().PresenceSince)

	// dropping twice in a row changes nothing more
	h.poll(4 * time.Second)
	assert.Equal(t, domain.StateAwaitingFace, h.state())
	assert.Zero(t, h.session.Status().Presence)

	h.locator.set(true)
	for sec := 5; sec < 9; sec++ {
		h.poll(time.Duration(sec) * time.Second)
		require.Equal(t, domain.StateDwelling, h.state(), "poll at %ds", sec)
	}
	assert.Equal(t, 0, h.extractor.Calls())

	assert.True(t, h.poll(9*time.Second))
	assert.Equal(t, domain.StateAccepted, h.state())
}

func TestStep_AcceptsAtDwellWithConfidence(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)

	for sec := 0; sec < 4; sec++ {
		require.False(t, h.poll(time.Duration(sec)*time.Second))
	}
	require.True(t, h.poll(4*time.Second))

	st := h.session.Status()
	assert.Equal(t, domain.StateAccepted, st.State)
	require.NotNil(t, st.Result)

	result := *st.Result
	assert.Equal(t, domain.OutcomeAccepted, result.Outcome)
	assert.Equal(t, "X", result.Identity)
	assert.Equal(t, "Person X", result.Name)
	assert.Equal(t, h.gallery.identities[0].ID, *result.IdentityID)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 70.0, *result.Confidence, 0.01)
	require.NotNil(t, result.Distance)
	assert.InDelta(t, 0.3, *result.Distance, 1e-9)
	assert.Equal(t, t0.Add(4*time.Second), result.DecidedAt)
	assert.Equal(t, 4*time.Second, st.Elapsed)

	got, err := h.session.Result()
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestStep_BestDistanceWins(t *testing.T) {
	h := newHarness(t, testConfig())
	h.extractor.vector = []float64{0, 0}
	h.gallery.identities = []domain.Identity{
		enrolled("B", []float64{0.9, 0}),
		enrolled("A", []float64{5, 5}, []float64{0, 0}),
	}
	h.locator.set(true)

	h.poll(0)
	require.True(t, h.poll(4*time.Second))

	result, err := h.session.Result()
	require.NoError(t, err)
	assert.Equal(t, "A", result.Identity)
	assert.InDelta(t, 100.0, *result.Confidence, 1e-9)
}

func TestStep_TieGoesToEarlierEnrollment(t *testing.T) {
	h := newHarness(t, testConfig())
	h.extractor.vector = []float64{0, 0}
	h.gallery.identities = []domain.Identity{
		enrolled("first", []float64{0.2, 0}),
		enrolled("second", []float64{0, 0.2}),
	}
	h.locator.set(true)

	h.poll(0)
	require.True(t, h.poll(4*time.Second))

	result, err := h.session.Result()
	require.NoError(t, err)
	assert.Equal(t, "first", result.Identity)
}

func TestStep_NoMatchLoopsBackWithFullDwell(t *testing.T) {
	h := newHarness(t, testConfig())
	h.extractor.vector = []float64{0.9, 0}
	h.locator.set(true)

	h.poll(0)
	assert.False(t, h.poll(4*time.Second))

	st := h.session.Status()
	assert.Equal(t, domain.StateAwaitingFace, st.State)
	assert.Equal(t, 1, st.Evaluations)
	require.NotNil(t, st.LastDistance)
	assert.InDelta(t, 0.9, *st.LastDistance, 1e-9)

	// the face is still there, but a new dwell starts from this poll
	h.poll(5 * time.Second)
	assert.Equal(t, domain.StateDwelling, h.state())
	h.poll(8 * time.Second)
	assert.Equal(t, 1, h.extractor.Calls())

	h.poll(9 * time.Second)
	assert.Equal(t, 2, h.extractor.Calls())
	assert.Equal(t, domain.StateAwaitingFace, h.state())
}

func TestStep_ExtractionFailureIsNotTerminal(t *testing.T) {
	h := newHarness(t, testConfig())
	h.extractor.err = domain.ErrExtractionFailed.WithError(errors.New("model crashed"))
	h.locator.set(true)

	h.poll(0)
	assert.False(t, h.poll(4*time.Second))

	st := h.session.Status()
	assert.Equal(t, domain.StateAwaitingFace, st.State)
	assert.Equal(t, 1, st.ExtractionFailures)
	assert.Nil(t, st.Result)

	_, err := h.session.Result()
	assert.ErrorIs(t, err, domain.ErrSessionNotTerminal)

	h.extractor.err = nil
	h.poll(5 * time.Second)
	assert.True(t, h.poll(9*time.Second))
	assert.Equal(t, domain.StateAccepted, h.state())
}

func TestStep_UntaggedExtractorErrorCountsAsExtractionFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.extractor.err = errors.New("connection reset")
	h.locator.set(true)

	h.poll(0)
	h.poll(4 * time.Second)

	assert.Equal(t, 1, h.session.Status().ExtractionFailures)
}

func TestStep_GalleryErrorIsNotTerminal(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gallery.err = errors.New("database unreachable")
	h.locator.set(true)

	h.poll(0)
	assert.False(t, h.poll(4*time.Second))

	st := h.session.Status()
	assert.Equal(t, domain.StateAwaitingFace, st.State)
	assert.Zero(t, st.ExtractionFailures)
}

func TestStep_EmptyGalleryNeverAccepts(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gallery.identities = nil
	h.locator.set(true)

	for sec := 0; sec <= 30; sec++ {
		require.False(t, h.poll(time.Duration(sec)*time.Second), "poll at %ds", sec)
		require.NotEqual(t, domain.StateAccepted, h.state())
	}
	assert.True(t, h.poll(31*time.Second))

	assert.Equal(t, domain.StateTimedOut, h.state())
	assert.Nil(t, h.session.Status().LastDistance)
	assert.Greater(t, h.extractor.Calls(), 1)
}

func TestStep_LocatorErrorCountsAsNoFace(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)

	h.poll(0)
	h.poll(2 * time.Second)
	require.Equal(t, domain.StateDwelling, h.state())

	h.locator.fail(errors.New("detector timeout"))
	h.poll(3 * time.Second)
	assert.Equal(t, domain.StateAwaitingFace, h.state())
	assert.Zero(t, h.session.Status().Presence)
}

func TestStep_EmptyBufferCountsAsNoFace(t *testing.T) {
	h := newHarness(t, testConfig())
	h.session.buffer = FrameBuffer{}
	h.locator.set(true)

	h.poll(0)
	assert.Equal(t, domain.StateAwaitingFace, h.state())
	assert.Equal(t, 0, h.locator.calls)
}

func TestStep_TimeoutPreemptsDwelling(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)

	h.poll(28 * time.Second)
	require.Equal(t, domain.StateDwelling, h.state())

	assert.False(t, h.poll(30*time.Second), "the limit itself is not exceeded")
	assert.True(t, h.poll(31*time.Second))
	assert.Equal(t, domain.StateTimedOut, h.state())
	assert.Equal(t, 0, h.extractor.Calls())
}

func TestStep_TerminalStateIsAbsorbing(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)
	h.poll(0)
	require.True(t, h.poll(4*time.Second))

	before := h.session.Status()
	calls := h.extractor.Calls()

	assert.True(t, h.poll(5*time.Second))
	assert.True(t, h.poll(60*time.Second))
	h.session.finish(domain.StateRejected, nil, t0.Add(61*time.Second))

	after := h.session.Status()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Polls, after.Polls)
	assert.Equal(t, before.Result, after.Result)
	assert.Equal(t, calls, h.extractor.Calls())
}

func TestStep_CancelDuringEvaluationNeverAccepts(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)
	h.poll(0)

	ctx, cancel := context.WithCancel(context.Background())
	// the extraction succeeds, but the session is cancelled while it runs
	h.extractor.onCall = func() {
		h.session.cancelled.Store(true)
		cancel()
	}

	assert.False(t, h.session.step(ctx, t0.Add(4*time.Second)))
	assert.NotEqual(t, domain.StateAccepted, h.state())
	assert.Nil(t, h.session.Status().Result)

	h.session.abort(t0.Add(4 * time.Second))
	result, err := h.session.Result()
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, result.Outcome)
	assert.Nil(t, result.IdentityID)
}

func TestStep_RepeatedEvaluationIsDeterministic(t *testing.T) {
	run := func() domain.Result {
		h := newHarness(t, testConfig())
		h.locator.set(true)
		h.poll(0)
		require.True(t, h.poll(4*time.Second))
		result, err := h.session.Result()
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	assert.Equal(t, first.Identity, second.Identity)
	assert.Equal(t, *first.Confidence, *second.Confidence)
	assert.Equal(t, *first.Distance, *second.Distance)
}

func TestStep_PublishesTransitions(t *testing.T) {
	h := newHarness(t, testConfig())
	h.locator.set(true)

	h.poll(0)
	h.poll(4 * time.Second)

	assert.Equal(t, []domain.State{
		domain.StateAwaitingFace,
		domain.StateDwelling,
		domain.StateEvaluating,
		domain.StateAccepted,
	}, h.observer.states())
}

func TestStatus_LiveTiming(t *testing.T) {
	h := newHarness(t, testConfig())

	h.clock.Advance(12 * time.Second)
	st := h.session.Status()

	assert.Equal(t, 12*time.Second, st.Elapsed)
	assert.Equal(t, 18*time.Second, st.Remaining)
	assert.Equal(t, t0, st.StartedAt)
}
