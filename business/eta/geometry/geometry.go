// Package geometry builds the immutable spatial indexes the ETA pipeline runs
// against: corridor polylines, directional trip shapes with their stop
// sequences and cumulative stop distances, and k-d trees for nearest stop-pair
// and nearest shape-vertex lookups. Everything here is built once at startup
// and is read-only afterwards, so an Index may be shared freely between
// goroutines.
package geometry

import (
	"fmt"
	"math"

	"github.com/kyroy/kdtree"
)

// ConfigurationError indicates static schedule data is missing or malformed.
// It is fatal at startup; at runtime it surfaces lookups with unknown
// identifiers.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

func configErrorf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// StopVertex locates one stop on a trip shape
type StopVertex struct {
	StopID      string
	VertexIndex int
}

// PairRow is one row of the stop-pair index: for a vertex on one of a
// corridor's trip shapes, the stop immediately ahead and behind it along with
// their sequence indices on the trip
type PairRow struct {
	Lat         float64
	Lon         float64
	TripID      string
	NextStop    string
	PrevStop    string
	NextStopSeq int
	PrevStopSeq int
}

// Dimensions implements kdtree.Point
func (r *PairRow) Dimensions() int {
	return 2
}

// Dimension implements kdtree.Point
func (r *PairRow) Dimension(i int) float64 {
	if i == 0 {
		return r.Lat
	}
	return r.Lon
}

// TripInput is the loader-facing description of one directional trip used to
// build an Index.
// StopMarks carries one entry per shape vertex: the stop identifier where a
// vertex is a stop boundary, "." otherwise.
// NextStopKm may be nil, in which case cumulative stop distances are derived
// from the shape.
type TripInput struct {
	TripID     string
	CorridorID string
	PairTripID string
	Shape      []Coord
	StopMarks  []string
	NextStopKm map[string]float64
}

// TripShape is one directional trip with its derived lookup tables
type TripShape struct {
	TripID     string
	CorridorID string
	PairTripID string
	Shape      []Coord
	StopMarks  []string
	// StopSeq is the ordered stop sequence along the shape
	StopSeq []StopVertex
	// NextStopKm maps each stop except the last to the along-shape distance in
	// km from that stop to the next stop on the trip
	NextStopKm map[string]float64

	vertexTree *kdtree.KDTree
}

// Corridor is a route corridor with its union polyline and member trips
type Corridor struct {
	ID string
	// Polyline is the concatenation of the member trip shapes in load order
	Polyline []Coord
	// TripIDs lists the corridor's directional trips in load order
	TripIDs []string
}

// Index holds all static geometry for the configured corridors
type Index struct {
	corridors map[string]*Corridor
	trips     map[string]*TripShape
	// pairTrees holds one k-d tree per directional trip per corridor over the
	// corridor's PairRows
	pairTrees map[string]map[string]*kdtree.KDTree
}

// BuildIndex validates trips and pairRows and assembles an Index.
// Degenerate shapes (fewer than two vertices, zero-length segments) and
// inconsistent corridor pairings are rejected here rather than surfacing as
// bad math at runtime.
func BuildIndex(trips []TripInput, pairRows []PairRow) (*Index, error) {
	idx := Index{
		corridors: make(map[string]*Corridor),
		trips:     make(map[string]*TripShape),
		pairTrees: make(map[string]map[string]*kdtree.KDTree),
	}

	for _, input := range trips {
		trip, err := buildTripShape(input)
		if err != nil {
			return nil, err
		}
		if _, present := idx.trips[trip.TripID]; present {
			return nil, configErrorf("duplicate trip %s", trip.TripID)
		}
		idx.trips[trip.TripID] = trip

		corridor, present := idx.corridors[trip.CorridorID]
		if !present {
			corridor = &Corridor{ID: trip.CorridorID}
			idx.corridors[trip.CorridorID] = corridor
		}
		corridor.TripIDs = append(corridor.TripIDs, trip.TripID)
		corridor.Polyline = append(corridor.Polyline, trip.Shape...)
	}

	for _, corridor := range idx.corridors {
		if err := validateCorridorPairing(&idx, corridor); err != nil {
			return nil, err
		}
	}

	if err := buildPairTrees(&idx, pairRows); err != nil {
		return nil, err
	}
	return &idx, nil
}

// buildTripShape validates one TripInput and derives its stop sequence and
// cumulative stop distances
func buildTripShape(input TripInput) (*TripShape, error) {
	if len(input.Shape) < 2 {
		return nil, configErrorf("trip %s shape has %d vertices, need at least 2",
			input.TripID, len(input.Shape))
	}
	if len(input.StopMarks) != len(input.Shape) {
		return nil, configErrorf("trip %s has %d stop marks for %d shape vertices",
			input.TripID, len(input.StopMarks), len(input.Shape))
	}
	for i := 0; i+1 < len(input.Shape); i++ {
		if input.Shape[i] == input.Shape[i+1] {
			return nil, configErrorf("trip %s has zero-length segment at vertex %d",
				input.TripID, i)
		}
	}

	stopSeq := make([]StopVertex, 0)
	seen := make(map[string]bool)
	for i, mark := range input.StopMarks {
		if mark == "." || mark == "" {
			continue
		}
		if seen[mark] {
			return nil, configErrorf("trip %s stop %s appears twice in stop sequence",
				input.TripID, mark)
		}
		seen[mark] = true
		stopSeq = append(stopSeq, StopVertex{StopID: mark, VertexIndex: i})
	}
	if len(stopSeq) < 2 {
		return nil, configErrorf("trip %s has %d stops, need at least 2",
			input.TripID, len(stopSeq))
	}

	nextStopKm := input.NextStopKm
	if nextStopKm == nil {
		nextStopKm = cumulativeNextStopKm(input.Shape, stopSeq)
	}
	for i := 0; i+1 < len(stopSeq); i++ {
		km, present := nextStopKm[stopSeq[i].StopID]
		if !present || math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
			return nil, configErrorf("trip %s stop %s has no usable next-stop distance",
				input.TripID, stopSeq[i].StopID)
		}
	}

	return &TripShape{
		TripID:     input.TripID,
		CorridorID: input.CorridorID,
		PairTripID: input.PairTripID,
		Shape:      input.Shape,
		StopMarks:  input.StopMarks,
		StopSeq:    stopSeq,
		NextStopKm: nextStopKm,
		vertexTree: newVertexTree(input.Shape),
	}, nil
}

// cumulativeNextStopKm sums shape segment lengths between consecutive stops
func cumulativeNextStopKm(shape []Coord, stopSeq []StopVertex) map[string]float64 {
	result := make(map[string]float64, len(stopSeq))
	for i := 0; i+1 < len(stopSeq); i++ {
		total := 0.0
		for v := stopSeq[i].VertexIndex; v < stopSeq[i+1].VertexIndex; v++ {
			total += DistanceKm(shape[v], shape[v+1])
		}
		result[stopSeq[i].StopID] = total
	}
	return result
}

// validateCorridorPairing enforces that a corridor has either one directional
// trip or exactly two mutually paired trips
func validateCorridorPairing(idx *Index, corridor *Corridor) error {
	switch len(corridor.TripIDs) {
	case 1:
		return nil
	case 2:
		first := idx.trips[corridor.TripIDs[0]]
		second := idx.trips[corridor.TripIDs[1]]
		if first.PairTripID != second.TripID || second.PairTripID != first.TripID {
			return configErrorf("corridor %s trips %s and %s are not mutually paired",
				corridor.ID, first.TripID, second.TripID)
		}
		return nil
	default:
		return configErrorf("corridor %s has %d trips, want 1 or 2",
			corridor.ID, len(corridor.TripIDs))
	}
}

// buildPairTrees groups pairRows by corridor and trip and builds a k-d tree
// for each trip's rows
func buildPairTrees(idx *Index, pairRows []PairRow) error {
	grouped := make(map[string]map[string][]kdtree.Point)
	for i := range pairRows {
		row := pairRows[i]
		trip, present := idx.trips[row.TripID]
		if !present {
			return configErrorf("stop-pair row references unknown trip %s", row.TripID)
		}
		byTrip, present := grouped[trip.CorridorID]
		if !present {
			byTrip = make(map[string][]kdtree.Point)
			grouped[trip.CorridorID] = byTrip
		}
		byTrip[row.TripID] = append(byTrip[row.TripID], &pairRows[i])
	}

	for corridorID, corridor := range idx.corridors {
		byTrip, present := grouped[corridorID]
		if !present {
			return configErrorf("corridor %s has no stop-pair rows", corridorID)
		}
		trees := make(map[string]*kdtree.KDTree, len(byTrip))
		for _, tripID := range corridor.TripIDs {
			points, present := byTrip[tripID]
			if !present {
				return configErrorf("trip %s has no stop-pair rows", tripID)
			}
			trees[tripID] = kdtree.New(points)
		}
		idx.pairTrees[corridorID] = trees
	}
	return nil
}

// Corridor returns the corridor with corridorID
func (x *Index) Corridor(corridorID string) (*Corridor, error) {
	corridor, present := x.corridors[corridorID]
	if !present {
		return nil, configErrorf("unknown corridor %s", corridorID)
	}
	return corridor, nil
}

// CorridorPolyline returns the union polyline of corridorID's trip shapes
func (x *Index) CorridorPolyline(corridorID string) ([]Coord, error) {
	corridor, err := x.Corridor(corridorID)
	if err != nil {
		return nil, err
	}
	return corridor.Polyline, nil
}

// Trip returns the trip with tripID
func (x *Index) Trip(tripID string) (*TripShape, error) {
	trip, present := x.trips[tripID]
	if !present {
		return nil, configErrorf("unknown trip %s", tripID)
	}
	return trip, nil
}

// TripShapeCoords returns the ordered shape coordinates of tripID
func (x *Index) TripShapeCoords(tripID string) ([]Coord, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return nil, err
	}
	return trip.Shape, nil
}

// TripStopSequence returns tripID's ordered stop sequence with shape vertex
// indices
func (x *Index) TripStopSequence(tripID string) ([]StopVertex, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return nil, err
	}
	return trip.StopSeq, nil
}

// NextStopCumDistance returns the along-shape distance in km from fromStopID
// to the next stop on tripID
func (x *Index) NextStopCumDistance(tripID string, fromStopID string) (float64, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return 0, err
	}
	km, present := trip.NextStopKm[fromStopID]
	if !present {
		return 0, configErrorf("trip %s has no next-stop distance for stop %s", tripID, fromStopID)
	}
	return km, nil
}

// DistanceToCorridorMeters returns the ground distance in meters from c to
// the nearest point on corridorID's union polyline
func (x *Index) DistanceToCorridorMeters(corridorID string, c Coord) (float64, error) {
	line, err := x.CorridorPolyline(corridorID)
	if err != nil {
		return 0, err
	}
	return DistanceToPolylineMeters(line, c), nil
}

// DistanceToTripMeters returns the ground distance in meters from c to the
// nearest point on tripID's shape
func (x *Index) DistanceToTripMeters(tripID string, c Coord) (float64, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return 0, err
	}
	return DistanceToPolylineMeters(trip.Shape, c), nil
}

// NearestShapeVertex projects c onto tripID's shape and returns the index of
// the shape vertex nearest to the projection
func (x *Index) NearestShapeVertex(tripID string, c Coord) (int, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return 0, err
	}
	projected, _ := NearestOnPolyline(trip.Shape, c)
	return nearestVertexIndex(trip.vertexTree, projected), nil
}

// NearestPairRow returns the stop-pair row nearest to c among tripID's rows
// in corridorID's stop-pair index
func (x *Index) NearestPairRow(corridorID string, tripID string, c Coord) (*PairRow, error) {
	trees, present := x.pairTrees[corridorID]
	if !present {
		return nil, configErrorf("unknown corridor %s", corridorID)
	}
	tree, present := trees[tripID]
	if !present {
		return nil, configErrorf("corridor %s has no stop-pair rows for trip %s", corridorID, tripID)
	}
	nn := tree.KNN(&PairRow{Lat: c.Lat, Lon: c.Lon}, 1)
	if len(nn) == 0 {
		return nil, configErrorf("empty stop-pair index for trip %s", tripID)
	}
	return nn[0].(*PairRow), nil
}

// AlongShapeDistance computes the along-shape distance in km from anchor to
// toStopID on tripID, where anchor lies between fromStopID and toStopID.
// The anchor is conceptually inserted into the shape after the lower-indexed
// of the two shape vertices nearest to its projection; the shape itself is
// never modified.
func (x *Index) AlongShapeDistance(tripID string, fromStopID string, toStopID string, anchor Coord) (float64, error) {
	trip, err := x.Trip(tripID)
	if err != nil {
		return 0, err
	}
	startIdx, err := trip.stopVertexIndex(fromStopID)
	if err != nil {
		return 0, err
	}
	endIdx, err := trip.stopVertexIndex(toStopID)
	if err != nil {
		return 0, err
	}
	if endIdx <= startIdx {
		return 0, configErrorf("trip %s stop %s is not ahead of stop %s", tripID, toStopID, fromStopID)
	}

	segment := trip.Shape[startIdx : endIdx+1]
	projected, _ := NearestOnPolyline(segment, anchor)
	segmentTree := newVertexTree(segment)
	lower, _ := twoNearestVertexIndices(segmentTree, projected)
	insertIdx := startIdx + lower + 1

	total := 0.0
	previous := anchor
	for i := insertIdx; i <= endIdx; i++ {
		total += DistanceKm(previous, trip.Shape[i])
		previous = trip.Shape[i]
	}
	return total, nil
}

// stopVertexIndex returns the shape vertex index of stopID on the trip
func (t *TripShape) stopVertexIndex(stopID string) (int, error) {
	for _, sv := range t.StopSeq {
		if sv.StopID == stopID {
			return sv.VertexIndex, nil
		}
	}
	return 0, configErrorf("trip %s has no stop %s", t.TripID, stopID)
}
