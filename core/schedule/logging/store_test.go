package logging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetplan/core/model"
)

func sampleRecords(base time.Time) []PassRecord {
	return []PassRecord{
		{ID: "a", Timestamp: base, Reason: "init", Assigned: map[string]string{}},
		{ID: "b", Timestamp: base.Add(time.Minute), Reason: "mission 1 created", Missions: 1,
			Assigned: map[string]string{"1": "N1"}},
		{ID: "c", Timestamp: base.Add(2 * time.Minute), Reason: "mission 2 created", Missions: 2,
			Assigned: map[string]string{"1": "N1"},
			Segments: []model.AutoSegment{{ID: "auto-1", Registration: "N2"}}},
	}
}

func TestPassQueryMatch(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	recs := sampleRecords(base)

	assert.True(t, PassQuery{}.Match(recs[0]))
	assert.False(t, PassQuery{Start: base.Add(30 * time.Second)}.Match(recs[0]))
	assert.False(t, PassQuery{End: base.Add(90 * time.Second)}.Match(recs[2]))
	assert.True(t, PassQuery{Registration: "N1"}.Match(recs[1]))
	assert.True(t, PassQuery{Registration: "N2"}.Match(recs[2]))
	assert.False(t, PassQuery{Registration: "N2"}.Match(recs[1]))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0)
	for _, r := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, r))
	}
	out, err := s.Query(ctx, PassQuery{Registration: "N1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	require.NoError(t, s.Close())
}

func TestMemoryStoreDropsOldest(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(3)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(ctx, PassRecord{ID: fmt.Sprint(i), Timestamp: base.Add(time.Duration(i) * time.Minute)}))
	}
	out, err := s.Query(ctx, PassQuery{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "7", out[0].ID)
	assert.Equal(t, "9", out[2].ID)
	assert.LessOrEqual(t, cap(s.recs), 4)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "memory", c.Backend)
	assert.Equal(t, DefaultMaxRecords, c.MaxRecords)
	require.NoError(t, c.Validate())
	assert.Error(t, Config{Backend: "memory", MaxRecords: -1}.Validate())

	c = Config{Backend: "sqlite"}
	c.SetDefaults()
	assert.Equal(t, "passes.db", c.Path)
	require.NoError(t, c.Validate())

	assert.Error(t, Config{Backend: "jsonl"}.Validate())
	assert.Error(t, Config{Backend: "influx", Path: "x"}.Validate())
}

func TestNewStoreBackends(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{Backend: "jsonl", Path: dir + "/passes.jsonl", MaxSizeMB: 1})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(Config{Backend: "bogus"})
	assert.Error(t, err)
}
