// Package airports provides geo.Locator implementations backed by static
// coordinate tables.
package airports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	skygeo "github.com/skypies/geo"
	"github.com/skypies/geo/sfo"

	"github.com/kilianp07/fleetplan/core/geo"
)

// Table is an in-memory airport table. It is safe for concurrent reads.
// Every key, including aliases, resolves to an Airport carrying the
// canonical code.
type Table struct {
	byCode map[string]geo.Airport
	count  int
}

// NewTable indexes the given airports by upper-cased code.
func NewTable(list []geo.Airport) *Table {
	t := &Table{byCode: make(map[string]geo.Airport, len(list))}
	for _, ap := range list {
		ap.Code = strings.ToUpper(strings.TrimSpace(ap.Code))
		if ap.Code == "" {
			continue
		}
		if _, dup := t.byCode[ap.Code]; !dup {
			t.count++
		}
		t.byCode[ap.Code] = ap
	}
	return t
}

// alias makes code resolve to the airport registered under canonical. An
// alias never shadows a canonical code.
func (t *Table) alias(code, canonical string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	ap, ok := t.byCode[strings.ToUpper(canonical)]
	if !ok || code == "" {
		return
	}
	if _, taken := t.byCode[code]; taken {
		return
	}
	t.byCode[code] = ap
}

// Builtin returns the table shipped with github.com/skypies/geo/sfo. It is
// used when no airport file is configured.
func Builtin() *Table {
	list := make([]geo.Airport, 0, len(sfo.KAirports))
	for code, ll := range sfo.KAirports {
		list = append(list, geo.Airport{Code: code, Lat: ll.Lat, Lon: ll.Long})
	}
	return NewTable(list)
}

// Lookup implements geo.Locator. The returned Airport carries the canonical
// code even when code is an alias.
func (t *Table) Lookup(code string) (geo.Airport, bool) {
	ap, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return ap, ok
}

// DistanceNM implements geo.Locator using the great-circle distance.
func (t *Table) DistanceNM(from, to string) (float64, error) {
	a, ok := t.Lookup(from)
	if !ok {
		return 0, geo.UnknownAirportError(from)
	}
	b, ok := t.Lookup(to)
	if !ok {
		return 0, geo.UnknownAirportError(to)
	}
	return latlong(a).DistNM(latlong(b)), nil
}

// Len returns the number of airports in the table, aliases excluded.
func (t *Table) Len() int { return t.count }

func latlong(ap geo.Airport) skygeo.Latlong {
	return skygeo.Latlong{Lat: ap.Lat, Long: ap.Lon}
}

// LoadCSV reads an OurAirports style CSV file. Rows are indexed by ident and,
// when present, by IATA code as an alias of the ident. Closed airports, heliports and seaplane bases
// are skipped.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// ReadCSV parses airports from r. See LoadCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := func(name string) int {
		for i, h := range headers {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}
	identIdx := idx("ident")
	latIdx := idx("latitude_deg")
	lonIdx := idx("longitude_deg")
	if identIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("airport csv requires ident, latitude_deg and longitude_deg columns")
	}
	nameIdx := idx("name")
	typeIdx := idx("type")
	iataIdx := idx("iata_code")

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		list    []geo.Airport
		aliases [][2]string
	)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		switch field(rec, typeIdx) {
		case "closed", "heliport", "seaplane_base":
			continue
		}
		lat, err := strconv.ParseFloat(field(rec, latIdx), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(field(rec, lonIdx), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		ap := geo.Airport{Code: field(rec, identIdx), Name: field(rec, nameIdx), Lat: lat, Lon: lon}
		list = append(list, ap)
		if iata := field(rec, iataIdx); iata != "" && iata != ap.Code {
			aliases = append(aliases, [2]string{iata, ap.Code})
		}
	}
	t := NewTable(list)
	for _, a := range aliases {
		t.alias(a[0], a[1])
	}
	return t, nil
}
