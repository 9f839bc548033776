package main

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
)

// countdown draws the session timeout as a progress bar and describes it
// with the current state. It is the session observer of the CLI.
type countdown struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	max  int64
	last domain.State
	done bool
}

var _ session.Observer = (*countdown)(nil)

func newCountdown(timeout time.Duration, w io.Writer) *countdown {
	bar := progressbar.NewOptions64(timeout.Milliseconds(),
		progressbar.OptionSetDescription(describe(domain.StateAwaitingFace)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
	return &countdown{bar: bar, max: timeout.Milliseconds(), last: domain.StateAwaitingFace}
}

func (c *countdown) OnStatus(st domain.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}

	if st.State != c.last {
		c.bar.Describe(describe(st.State))
		c.last = st.State
	}
	// o timeout é estrito, então o elapsed passa do máximo por até um poll
	_ = c.bar.Set64(min(st.Elapsed.Milliseconds(), c.max))

	if st.State.IsTerminal() {
		_ = c.bar.Finish()
		c.done = true
	}
}

func (c *countdown) OnPreview(session.Preview) {}

// State returns the last state drawn
func (c *countdown) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Close finishes the bar if the session never reported a terminal state
func (c *countdown) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		_ = c.bar.Finish()
		c.done = true
	}
}

func describe(state domain.State) string {
	switch state {
	case domain.StateAwaitingFace:
		return "Look at the camera"
	case domain.StateDwelling:
		return "Hold still"
	case domain.StateEvaluating:
		return "Checking"
	}
	return strings.ReplaceAll(string(state), "_", " ")
}
