// Package logging persists a record of every assignment pass.
package logging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/fleetplan/core/model"
)

// PassRecord captures the outcome of one assignment pass.
type PassRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	// DurationMS is the wall time spent computing the pass.
	DurationMS  float64             `json:"duration_ms"`
	Missions    int                 `json:"missions"`
	Assigned    map[string]string   `json:"assigned"`
	Segments    []model.AutoSegment `json:"segments"`
	Diagnostics []string            `json:"diagnostics"`
	Aborted     bool                `json:"aborted"`
	FerryHours  float64             `json:"ferry_hours"`
}

// Involves reports whether the aircraft took part in the pass.
func (r PassRecord) Involves(registration string) bool {
	for _, reg := range r.Assigned {
		if reg == registration {
			return true
		}
	}
	for _, s := range r.Segments {
		if s.Registration == registration {
			return true
		}
	}
	return false
}

// PassQuery defines filters for retrieving records.
type PassQuery struct {
	Start        time.Time
	End          time.Time
	Registration string
}

// Match applies q to r.
func (q PassQuery) Match(r PassRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Registration != "" && !r.Involves(q.Registration) {
		return false
	}
	return true
}

// PassStore persists PassRecords and supports querying.
type PassStore interface {
	Append(ctx context.Context, rec PassRecord) error
	Query(ctx context.Context, q PassQuery) ([]PassRecord, error)
	Close() error
}

// Config selects and tunes the pass log backend.
type Config struct {
	// Backend is one of "memory", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the log store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the jsonl file exceeds this size.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
	// MaxRecords bounds the memory backend; the oldest records are dropped
	// once it is reached.
	MaxRecords int `json:"max_records"`
}

// DefaultMaxRecords is the memory backend capacity when none is configured.
const DefaultMaxRecords = 1000

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "passes.jsonl"
		case "sqlite":
			c.Path = "passes.db"
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = DefaultMaxRecords
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.MaxRecords < 0 {
		return fmt.Errorf("passlog: max_records must not be negative")
	}
	switch c.Backend {
	case "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("passlog: path is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("passlog: unknown backend %s", c.Backend)
	}
}

// NewStore opens the store described by cfg.
func NewStore(cfg Config) (PassStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxRecords), nil
	case "jsonl":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("passlog: unknown backend %s", cfg.Backend)
	}
}

// MemoryStore keeps the most recent records in memory. It is the default
// backend.
type MemoryStore struct {
	mu   sync.RWMutex
	max  int
	recs []PassRecord
}

// NewMemoryStore returns an empty MemoryStore holding at most maxRecords
// records. A non-positive maxRecords selects DefaultMaxRecords.
func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &MemoryStore{max: maxRecords}
}

func (m *MemoryStore) Append(_ context.Context, r PassRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recs) >= m.max {
		n := copy(m.recs, m.recs[len(m.recs)-m.max+1:])
		m.recs = m.recs[:n]
	}
	m.recs = append(m.recs, r)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q PassQuery) ([]PassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []PassRecord
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *MemoryStore) Close() error { return nil }
