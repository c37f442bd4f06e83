package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joshharrison/loomcast/internal/engine"
)

const stateDir = ".loomcast"
const stateFile = "runs.json"

// Entry is one recorded forecast.
type Entry struct {
	RunID       string              `json:"run_id"`
	Source      string              `json:"source"`
	Mode        engine.Mode         `json:"mode"`
	RecordedAt  time.Time           `json:"recorded_at"`
	StartDate   time.Time           `json:"start_date"`
	Iterations  int                 `json:"iterations"`
	Seed        uint64              `json:"seed"`
	Backlog     int                 `json:"backlog,omitempty"`
	Percentiles []engine.Percentile `json:"percentiles"`
}

// Date returns the forecast date recorded for rank.
func (e Entry) Date(rank int) (time.Time, bool) {
	for _, p := range e.Percentiles {
		if p.Rank == rank {
			return p.Date, true
		}
	}
	return time.Time{}, false
}

// Log is the persistent list of past forecasts kept next to a project.
type Log struct {
	Entries []Entry `json:"entries"`

	mu   sync.Mutex
	path string
}

// Path returns the log file location under dir.
func Path(dir string) string {
	return filepath.Join(dir, stateDir, stateFile)
}

// Open reads the log under dir. A missing file yields an empty log.
func Open(dir string) (*Log, error) {
	path := Path(dir)
	l := &Log{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse run log: %w", err)
	}
	return l, nil
}

// Save persists the log to disk.
func (l *Log) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run log: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}

// Record appends the summary of report and saves. Raw samples are not kept.
func (l *Log) Record(report *engine.Report, at time.Time) (Entry, error) {
	e := Entry{
		RunID:       report.RunID,
		Source:      report.Source,
		Mode:        report.Mode,
		RecordedAt:  at.UTC(),
		StartDate:   report.StartDate,
		Iterations:  report.Iterations,
		Seed:        report.Seed,
		Backlog:     report.Backlog,
		Percentiles: append([]engine.Percentile(nil), report.Percentiles...),
	}

	l.mu.Lock()
	l.Entries = append(l.Entries, e)
	l.mu.Unlock()
	return e, l.Save()
}

// For returns the entries recorded for source, oldest first.
func (l *Log) For(source string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.Entries {
		if source == "" || e.Source == source {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

// Drift is the change in the forecast date at one rank between two runs.
type Drift struct {
	From, To engine.Percentile
	Days     int // positive when the forecast slipped
}

// Compare returns the per rank drift from prev to next for ranks both share.
func Compare(prev, next Entry) []Drift {
	var out []Drift
	for _, p := range next.Percentiles {
		for _, q := range prev.Percentiles {
			if q.Rank != p.Rank {
				continue
			}
			out = append(out, Drift{From: q, To: p, Days: int(p.Date.Sub(q.Date).Hours() / 24)})
			break
		}
	}
	return out
}

// Clean removes the state directory under dir.
func Clean(dir string) error {
	return os.RemoveAll(filepath.Join(dir, stateDir))
}
