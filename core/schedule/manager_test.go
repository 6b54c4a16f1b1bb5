package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetplan/core/assign"
	"github.com/kilianp07/fleetplan/core/fleet"
	"github.com/kilianp07/fleetplan/core/geo"
	"github.com/kilianp07/fleetplan/core/mission"
	"github.com/kilianp07/fleetplan/core/schedule/logging"
	"github.com/kilianp07/fleetplan/infra/airports"
	"github.com/kilianp07/fleetplan/infra/logger"
	"github.com/kilianp07/fleetplan/internal/eventbus"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	t.Cleanup(func() { ResetMetrics(nil) })
	return NewManager(testTypes(t), testAirports, logger.NopLogger{})
}

func input(dep, arr, when, typ, cat string) mission.Input {
	return mission.Input{DepartureAirport: dep, ArrivalAirport: arr, DepartureTime: when, AircraftType: typ, MissionCategory: cat}
}

func scheduleIDs(s Snapshot) []string {
	ids := make([]string, 0, len(s.Schedule))
	for _, v := range s.Schedule {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestManagerInitialState(t *testing.T) {
	m := newTestManager(t)
	s := m.State()
	assert.Empty(t, s.Fleet)
	assert.Empty(t, s.Schedule)
	assert.Empty(t, s.Errors)
}

func TestManagerAssignsWithFerry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.AddAircraft(ctx, "n1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "2 pax"))
	require.NoError(t, err)
	snap, err := m.CreateMission(ctx, input("KHPN", "KTEB", "2024-05-01T14:00", "C56X", "Ferry"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "auto-1", "2"}, scheduleIDs(snap))
	for _, v := range snap.Schedule {
		assert.Equal(t, "N1", v.AssignedRegistration, v.ID)
	}
	assert.Equal(t, "KBOS", snap.Schedule[1].DepartureAirport)
	assert.Equal(t, "KHPN", snap.Schedule[1].ArrivalAirport)
	assert.Equal(t, snap, m.State())
	assert.Greater(t, snap.Ferry.TotalHours, 0.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(autoSegments))
	assert.Equal(t, 0.0, testutil.ToFloat64(unassignedMissions))
}

func TestManagerRecomputeIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddAircraft(ctx, "N1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.AddAircraft(ctx, "N2", "C56X", 7)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "2 pax"))
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KHPN", "KBOS", "2024-05-01T09:30", "C56X", "3 pax"))
	require.NoError(t, err)

	first := m.State()
	second := m.Recompute(ctx)
	assert.Equal(t, first, second)
}

func TestManagerRejectedMutationsLeaveStateUnchanged(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddAircraft(ctx, "N1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "2 pax"))
	require.NoError(t, err)
	before := m.State()

	_, err = m.AddAircraft(ctx, "N1", "C56X", 7)
	assert.ErrorIs(t, err, fleet.ErrDuplicateRegistration)
	_, err = m.AddAircraft(ctx, "N9", "B738", 7)
	assert.ErrorIs(t, err, fleet.ErrUnknownType)
	_, err = m.AddAircraft(ctx, "N9", "C56X", 0)
	assert.ErrorIs(t, err, fleet.ErrInvalidCapacity)

	_, err = m.CreateMission(ctx, input("KTEB", "", "2024-05-01T09:00", "C56X", "2 pax"))
	assert.ErrorIs(t, err, mission.ErrMissingField)
	_, err = m.CreateMission(ctx, input("KTEB", "LFPG", "2024-05-01T09:00", "C56X", "2 pax"))
	assert.ErrorIs(t, err, geo.ErrUnknownAirport)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "B738", "2 pax"))
	assert.ErrorIs(t, err, fleet.ErrUnknownType)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "tomorrow", "C56X", "2 pax"))
	assert.ErrorIs(t, err, mission.ErrInvalidTime)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "lots"))
	assert.ErrorIs(t, err, mission.ErrInvalidCategory)

	bad := "LFPG"
	_, err = m.UpdateMission(ctx, 1, mission.Patch{ArrivalAirport: &bad})
	assert.ErrorIs(t, err, geo.ErrUnknownAirport)
	_, err = m.UpdateMission(ctx, 42, mission.Patch{})
	assert.ErrorIs(t, err, mission.ErrNotFound)

	assert.Equal(t, before, m.State())
}

func TestManagerUpdateAndDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddAircraft(ctx, "N1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "2 pax"))
	require.NoError(t, err)

	pic := "Jones"
	snap, err := m.UpdateMission(ctx, 1, mission.Patch{PIC: &pic})
	require.NoError(t, err)
	require.Len(t, snap.Schedule, 1)
	assert.Equal(t, "Jones", snap.Schedule[0].PIC)
	assert.Equal(t, "KBOS", snap.Schedule[0].ArrivalAirport)

	snap = m.DeleteMission(ctx, 99)
	assert.Len(t, snap.Schedule, 1)
	snap = m.DeleteMission(ctx, 1)
	assert.Empty(t, snap.Schedule)

	snap = m.RemoveAircraft(ctx, "N1")
	assert.Empty(t, snap.Fleet)
	snap = m.RemoveAircraft(ctx, "N1")
	assert.Empty(t, snap.Fleet)
}

func TestManagerLocatorReloadAbortsPass(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddAircraft(ctx, "N1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "C56X", "2 pax"))
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KHPN", "2024-05-01T15:00", "C56X", "2 pax"))
	require.NoError(t, err)

	shrunk := airports.NewTable([]geo.Airport{
		{Code: "KTEB", Lat: 40.8501, Lon: -74.0608},
		{Code: "KHPN", Lat: 41.0670, Lon: -73.7076},
	})
	snap := m.Reconfigure(ctx, testTypes(t), shrunk)
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, assign.KindMetricsError, snap.Diagnostics[0].Kind)
	for _, v := range snap.Schedule {
		assert.Empty(t, v.AssignedRegistration, v.ID)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(unassignedMissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(passesTotal.WithLabelValues("aborted")))

	snap = m.Reconfigure(ctx, testTypes(t), testAirports)
	assert.Empty(t, snap.Errors)
}

func TestManagerCatalogReloadAbortsPass(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddAircraft(ctx, "N1", "PC12", 8)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "PC12", "2 pax"))
	require.NoError(t, err)

	reduced := testTypes(t)
	delete(reduced, "PC12")
	snap := m.Reconfigure(ctx, reduced, testAirports)
	require.NotEmpty(t, snap.Diagnostics)
	assert.Equal(t, assign.KindMetricsError, snap.Diagnostics[0].Kind)
	assert.Len(t, m.Types(), 1)
}

func TestManagerPublishesPassEvents(t *testing.T) {
	m := newTestManager(t)
	bus := eventbus.NewTyped[PassEvent]()
	defer bus.Close()
	ch := bus.Subscribe()
	m.SetEventBus(bus)

	_, err := m.AddAircraft(context.Background(), "N1", "C56X", 7)
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, "aircraft added N1", ev.Reason)
		assert.NotEmpty(t, ev.ID)
		require.Len(t, ev.Snapshot.Fleet, 1)
	case <-time.After(time.Second):
		t.Fatal("no pass event")
	}
}

func TestManagerAppendsPassRecords(t *testing.T) {
	m := newTestManager(t)
	store := logging.NewMemoryStore(0)
	m.SetPassStore(store)
	ctx := context.Background()

	_, err := m.AddAircraft(ctx, "N1", "C56X", 7)
	require.NoError(t, err)
	_, err = m.AddAircraft(ctx, "N2", "PC12", 8)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "PC12", "4 pax"))
	require.NoError(t, err)

	all, err := store.Query(ctx, logging.PassQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "mission 1 created", all[2].Reason)
	assert.Equal(t, map[string]string{"1": "N2"}, all[2].Assigned)

	n2, err := store.Query(ctx, logging.PassQuery{Registration: "N2"})
	require.NoError(t, err)
	assert.Len(t, n2, 1)
}

func TestManagerStoresCanonicalAirports(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	t.Cleanup(func() { ResetMetrics(nil) })
	tbl, err := airports.ReadCSV(strings.NewReader(`ident,type,name,latitude_deg,longitude_deg,iata_code
LDZA,large_airport,Zagreb,45.7429,16.0688,ZAG
LDSP,large_airport,Split,43.5389,16.298,SPU
`))
	require.NoError(t, err)
	m := NewManager(testTypes(t), tbl, logger.NopLogger{})
	ctx := context.Background()

	_, err = m.AddAircraft(ctx, "9A-ABC", "C56X", 8)
	require.NoError(t, err)
	_, err = m.CreateMission(ctx, input("spu", "LDZA", "2024-05-01T08:00", "C56X", "2 pax"))
	require.NoError(t, err)
	snap, err := m.CreateMission(ctx, input("ZAG", "LDSP", "2024-05-01T14:00", "C56X", "2 pax"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, scheduleIDs(snap), "no ferry leg between aliases")
	assert.Equal(t, "LDSP", snap.Schedule[0].DepartureAirport)
	assert.Equal(t, "LDZA", snap.Schedule[1].DepartureAirport)
	assert.Equal(t, "9A-ABC", snap.Schedule[1].AssignedRegistration)
	assert.Zero(t, snap.Ferry.TotalHours)
}

func TestManagerReconfigureRunsOnePass(t *testing.T) {
	m := newTestManager(t)
	store := logging.NewMemoryStore(0)
	m.SetPassStore(store)
	ctx := context.Background()
	_, err := m.CreateMission(ctx, input("KTEB", "KBOS", "2024-05-01T09:00", "PC12", "2 pax"))
	require.NoError(t, err)

	reduced := testTypes(t)
	delete(reduced, "PC12")
	shrunk := airports.NewTable([]geo.Airport{{Code: "KTEB", Lat: 40.8501, Lon: -74.0608}})
	snap := m.Reconfigure(ctx, reduced, shrunk)
	assert.Len(t, snap.Diagnostics, 1)

	all, err := store.Query(ctx, logging.PassQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "configuration reload", all[1].Reason)
	assert.True(t, all[1].Aborted)
	assert.Len(t, m.Types(), 1)
	_, ok := m.Locator().Lookup("KBOS")
	assert.False(t, ok)
}

func TestManagerConcurrentMutations(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	const workers, perWorker = 8, 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_, err := m.AddAircraft(ctx, fmt.Sprintf("N%d", w), "C56X", 8)
			assert.NoError(t, err)
			for i := 0; i < perWorker; i++ {
				when := fmt.Sprintf("2024-05-01T%02d:%02d", 6+i*3, w*5)
				_, err := m.CreateMission(ctx, input("KTEB", "KBOS", when, "C56X", "2 pax"))
				assert.NoError(t, err)
				_ = m.State()
			}
		}(w)
	}
	wg.Wait()

	snap := m.State()
	assert.Len(t, snap.Fleet, workers)
	ids := map[string]bool{}
	for _, v := range snap.Schedule {
		if !v.IsAutoGenerated {
			ids[v.ID] = true
		}
	}
	require.Len(t, ids, workers*perWorker)
	for id := 1; id <= workers*perWorker; id++ {
		assert.True(t, ids[strconv.Itoa(id)], "mission %d missing", id)
	}
	assert.Equal(t, snap, m.Recompute(ctx), "published snapshot matches a fresh pass")
}
