package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// JournalConfig controls rotation of the login journal file
type JournalConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultJournalConfig keeps one file per day for a month
func DefaultJournalConfig(path string) JournalConfig {
	return JournalConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 31,
		MaxAgeDays: 31,
		Compress:   true,
	}
}

// journalLine é o formato de cada linha do diário de logins
type journalLine struct {
	Time       time.Time `json:"time"`
	SessionID  string    `json:"session_id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name,omitempty"`
	Confidence float64   `json:"confidence"`
	Distance   float64   `json:"distance"`
}

// FileJournal appends one JSON line per accepted login and rotates the
// underlying file when the calendar day changes.
type FileJournal struct {
	mu      sync.Mutex
	w       io.WriteCloser
	rotate  func() error
	now     func() time.Time
	lastDay string
}

// NewFileJournal opens a lumberjack-backed journal
func NewFileJournal(cfg JournalConfig) *FileJournal {
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return &FileJournal{
		w:      lj,
		rotate: lj.Rotate,
		now:    time.Now,
	}
}

// newJournalTo builds a journal over an arbitrary writer
func newJournalTo(w io.WriteCloser, now func() time.Time) *FileJournal {
	return &FileJournal{
		w:      w,
		rotate: func() error { return nil },
		now:    now,
	}
}

// Record writes the login record as a single line
func (j *FileJournal) Record(rec domain.LoginRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	at := rec.CreatedAt
	if at.IsZero() {
		at = j.now()
	}

	day := at.Format("2006-01-02")
	if j.lastDay != "" && day != j.lastDay {
		if err := j.rotate(); err != nil {
			return fmt.Errorf("rotate journal: %w", err)
		}
	}
	j.lastDay = day

	line, err := json.Marshal(journalLine{
		Time:       at,
		SessionID:  rec.SessionID.String(),
		ExternalID: rec.ExternalID,
		Name:       rec.Name,
		Confidence: rec.Confidence,
		Distance:   rec.Distance,
	})
	if err != nil {
		return fmt.Errorf("marshal journal line: %w", err)
	}

	if _, err := j.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal line: %w", err)
	}
	return nil
}

// Close releases the journal file
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Close()
}
