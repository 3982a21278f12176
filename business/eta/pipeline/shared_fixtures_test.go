package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// fixtures shared by the pipeline tests: corridor 4B with two opposing trips
// along the equator. Trip one runs east along lat 0 with stops on vertices
// 0, 3, 5, 8 and 10; trip two runs west 22 m further north.

func fixtureTripOne() geometry.TripInput {
	shape := make([]geometry.Coord, 11)
	marks := make([]string, 11)
	for i := range shape {
		shape[i] = geometry.Coord{Lat: 0, Lon: float64(i) * 0.01}
		marks[i] = "."
	}
	marks[0] = "S1"
	marks[3] = "S2"
	marks[5] = "S3"
	marks[8] = "S4"
	marks[10] = "S5"
	return geometry.TripInput{
		TripID:     "4B-R01_shp",
		CorridorID: "4B",
		PairTripID: "4B-R02_shp",
		Shape:      shape,
		StopMarks:  marks,
	}
}

func fixtureTripTwo() geometry.TripInput {
	shape := make([]geometry.Coord, 11)
	marks := make([]string, 11)
	for i := range shape {
		shape[i] = geometry.Coord{Lat: 0.0002, Lon: float64(10-i) * 0.01}
		marks[i] = "."
	}
	marks[0] = "T1"
	marks[2] = "T2"
	marks[5] = "T3"
	marks[7] = "T4"
	marks[10] = "T5"
	return geometry.TripInput{
		TripID:     "4B-R02_shp",
		CorridorID: "4B",
		PairTripID: "4B-R01_shp",
		Shape:      shape,
		StopMarks:  marks,
	}
}

// fixturePairRows synthesizes one stop-pair row per shape vertex
func fixturePairRows(input geometry.TripInput) []geometry.PairRow {
	type stopAt struct {
		id     string
		vertex int
		seq    int
	}
	stops := make([]stopAt, 0)
	for i, mark := range input.StopMarks {
		if mark != "." {
			stops = append(stops, stopAt{id: mark, vertex: i, seq: len(stops)})
		}
	}
	rows := make([]geometry.PairRow, 0, len(input.Shape))
	for v, c := range input.Shape {
		prev := stops[0]
		next := stops[1]
		for s := 0; s+1 < len(stops); s++ {
			if stops[s].vertex <= v {
				prev = stops[s]
				next = stops[s+1]
			}
		}
		rows = append(rows, geometry.PairRow{
			Lat:         c.Lat,
			Lon:         c.Lon,
			TripID:      input.TripID,
			NextStop:    next.id,
			PrevStop:    prev.id,
			NextStopSeq: next.seq,
			PrevStopSeq: prev.seq,
		})
	}
	return rows
}

func fixtureIndex(t *testing.T) *geometry.Index {
	t.Helper()
	one := fixtureTripOne()
	two := fixtureTripTwo()
	rows := append(fixturePairRows(one), fixturePairRows(two)...)
	idx, err := geometry.BuildIndex([]geometry.TripInput{one, two}, rows)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	return idx
}

// buildSingleTripIndex builds an index holding just one trip
func buildSingleTripIndex(input geometry.TripInput) (*geometry.Index, error) {
	return geometry.BuildIndex([]geometry.TripInput{input}, fixturePairRows(input))
}

// fixtureBinning gives stop sequence indices 0 to 4 increasing mean ETAs, so
// each index lands in its own congestion bin
func fixtureBinning() StopBinning {
	return MakeStopBinning(map[int]float64{0: 100, 1: 200, 2: 300, 3: 400, 4: 500}, 8)
}

// a monday morning in jakarta time
var fixtureStart = time.Date(2026, 7, 27, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))

// fixtureFix builds an on-route fix on trip one at the given longitude,
// secondsAfter the fixture start time
func fixtureFix(lon float64, secondsAfter int) GpsFix {
	return GpsFix{
		BusCode:      "BUS-001",
		CorridorID:   "4B",
		VendorTripID: "unknown-trip",
		Time:         fixtureStart.Add(time.Duration(secondsAfter) * time.Second),
		Lat:          -0.0001,
		Lon:          lon,
		Heading:      90,
		Speed:        30,
		IsNew:        true,
	}
}

// stubPredictor returns scripted per-call segment seconds and records how it
// was called. Safe for concurrent use.
type stubPredictor struct {
	mu sync.Mutex
	// secondsPerSegment is returned for every row unless perCallSeconds is set
	secondsPerSegment float64
	// perCallSeconds overrides secondsPerSegment per invocation, in order
	perCallSeconds []float64
	calls          int
	rowCounts      []int
}

func (s *stubPredictor) PredictSegmentSeconds(_ context.Context, features [][]float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seconds := s.secondsPerSegment
	if s.calls < len(s.perCallSeconds) {
		seconds = s.perCallSeconds[s.calls]
	}
	s.calls++
	s.rowCounts = append(s.rowCounts, len(features))
	result := make([]float64, len(features))
	for i := range result {
		result[i] = seconds
	}
	return result, nil
}
