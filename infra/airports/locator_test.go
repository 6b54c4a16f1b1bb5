package airports

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetplan/core/geo"
)

const sampleCSV = `id,ident,type,name,latitude_deg,longitude_deg,iso_country,iata_code
1,KTEB,medium_airport,Teterboro Airport,40.850101,-74.060799,US,TEB
2,KBOS,large_airport,General Edward Lawrence Logan International Airport,42.3643,-71.005203,US,BOS
3,XCLD,closed,Closed Field,10,10,US,
4,KPBI,large_airport,Palm Beach International Airport,26.6832,-80.095596,US,PBI
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	ap, ok := tbl.Lookup("kteb")
	require.True(t, ok)
	assert.Equal(t, "Teterboro Airport", ap.Name)

	alias, ok := tbl.Lookup("teb")
	assert.True(t, ok, "iata alias should resolve")
	assert.Equal(t, "KTEB", alias.Code, "alias resolves to the ident")
	assert.Equal(t, 3, tbl.Len(), "aliases are not counted")

	_, ok = tbl.Lookup("XCLD")
	assert.False(t, ok, "closed airports are skipped")

	d, err := tbl.DistanceNM("KTEB", "KBOS")
	require.NoError(t, err)
	assert.InDelta(t, 163, d, 8)

	same, err := tbl.DistanceNM("KTEB", "TEB")
	require.NoError(t, err)
	assert.InDelta(t, 0, same, 1e-6)
}

func TestDistanceUnknownAirport(t *testing.T) {
	tbl := NewTable([]geo.Airport{{Code: "KTEB", Lat: 40.85, Lon: -74.06}})
	_, err := tbl.DistanceNM("KTEB", "ZZZZ")
	assert.True(t, errors.Is(err, geo.ErrUnknownAirport))
}

func TestReadCSVMissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("ident,name\nKTEB,Teterboro\n"))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	tbl := Builtin()
	_, ok := tbl.Lookup("KSFO")
	assert.True(t, ok)
	assert.Greater(t, tbl.Len(), 0)
}

func TestAliasNeverShadowsIdent(t *testing.T) {
	csv := `ident,type,name,latitude_deg,longitude_deg,iata_code
AAAA,small_airport,First,1,1,BBBB
BBBB,small_airport,Second,2,2,
`
	tbl, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	ap, ok := tbl.Lookup("BBBB")
	require.True(t, ok)
	assert.Equal(t, "Second", ap.Name)
}

func TestLabel(t *testing.T) {
	tbl := NewTable([]geo.Airport{{Code: "KTEB", Name: "Teterboro"}})
	assert.Equal(t, "KTEB - Teterboro", geo.Label(tbl, "KTEB"))
	assert.Equal(t, "ZZZZ", geo.Label(tbl, "ZZZZ"))
}
