package session

import "time"

// PresenceTracker measures how long a face has been continuously visible.
// It is owned by the worker goroutine and is not safe for concurrent use.
type PresenceTracker struct {
	since *time.Time
}

// Update feeds one poll result and returns the continuous presence so far.
// A poll without a face clears the tracker and returns zero.
func (p *PresenceTracker) Update(detected bool, now time.Time) time.Duration {
	if !detected {
		p.since = nil
		return 0
	}
	if p.since == nil {
		t := now
		p.since = &t
	}
	return now.Sub(*p.since)
}

// Reset forgets the current presence run
func (p *PresenceTracker) Reset() {
	p.since = nil
}

// Since returns when the current presence run started
func (p *PresenceTracker) Since() (time.Time, bool) {
	if p.since == nil {
		return time.Time{}, false
	}
	return *p.since, true
}

// Deadline is the session-wide time limit
type Deadline struct {
	start time.Time
	limit time.Duration
}

// NewDeadline starts a deadline at start
func NewDeadline(start time.Time, limit time.Duration) Deadline {
	return Deadline{start: start, limit: limit}
}

// Start returns when the deadline started
func (d Deadline) Start() time.Time {
	return d.start
}

// Elapsed returns the time since start
func (d Deadline) Elapsed(now time.Time) time.Duration {
	return now.Sub(d.start)
}

// Expired reports whether more than the limit has elapsed
func (d Deadline) Expired(now time.Time) bool {
	return d.Elapsed(now) > d.limit
}

// Remaining returns the time left, never negative
func (d Deadline) Remaining(now time.Time) time.Duration {
	r := d.limit - d.Elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}
