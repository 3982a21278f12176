package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/TransJakartaLabs/etacast/business/data/mlmodels"
	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// Predictor produces one segment travel time in seconds per feature row. It
// must be safe to call concurrently for different vehicles.
type Predictor interface {
	PredictSegmentSeconds(ctx context.Context, features [][]float64) ([]float64, error)
}

// maxTripHops bounds how many directional trips one fix can project across:
// the current trip, its paired return trip, and the pair of the pair
const maxTripHops = 3

// ProjectHorizon turns a window of fixes into per-stop ETAs. For every fix it
// synthesizes a virtual fix at each downstream stop, asks the predictor for
// the per-segment travel times in one call, and accumulates the cumulative
// arrival times per stop. Stops that are not reachable from every fix in the
// window are discarded; the published value per surviving stop is the
// configured percentile of its accumulated arrival times.
func ProjectHorizon(ctx context.Context,
	idx *geometry.Index,
	predictor Predictor,
	window []ContextFix,
	percentile float64) (map[string]float64, error) {

	if len(window) == 0 {
		return map[string]float64{}, nil
	}
	// lap closure anchors on the earliest fix's previous stop
	anchorStop := window[0].PrevStop

	accumulated := make(map[string][]float64)
	for _, fix := range window {
		rows, err := virtualRows(idx, fix, anchorStop)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		features, err := featureMatrix(rows)
		if err != nil {
			return nil, err
		}
		predictions, err := predictor.PredictSegmentSeconds(ctx, features)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPredictor, err)
		}
		if len(predictions) != len(rows) {
			return nil, fmt.Errorf("%w: got %d predictions for %d rows",
				ErrPredictor, len(predictions), len(rows))
		}
		cumulative := 0.0
		for i, row := range rows {
			cumulative += predictions[i]
			accumulated[row.NextStop] = append(accumulated[row.NextStop], cumulative)
		}
	}

	result := make(map[string]float64)
	for stop, arrivals := range accumulated {
		if len(arrivals) != len(window) {
			continue
		}
		result[stop] = quantile(arrivals, percentile)
	}
	return result, nil
}

// virtualRows synthesizes the prediction rows for one fix: the fix itself,
// then one row per downstream stop on the current trip, continuing onto the
// paired return trip (and its pair) until the sequence wraps back to
// anchorStop or runs out of trips.
func virtualRows(idx *geometry.Index, fix ContextFix, anchorStop string) ([]ContextFix, error) {
	rows := make([]ContextFix, 0)
	tripID := fix.TripID

	for hop := 0; hop < maxTripHops; hop++ {
		trip, err := idx.Trip(tripID)
		if err != nil {
			return nil, err
		}
		stops := trip.StopSeq

		start := 1
		if hop == 0 {
			start = stopSeqIndex(stops, fix.NextStop)
			if start < 0 {
				return nil, fmt.Errorf("trip %s stop sequence is missing next stop %s", tripID, fix.NextStop)
			}
		}

		for i := start; i < len(stops); i++ {
			if hop == 0 && i == start {
				rows = append(rows, fix)
				continue
			}
			cur := stops[i-1]
			next := stops[i]
			if next.StopID == anchorStop {
				return rows, nil
			}
			virtual := fix
			virtual.TripID = tripID
			virtual.PrevStop = cur.StopID
			virtual.NextStop = next.StopID
			virtual.Lat = trip.Shape[cur.VertexIndex].Lat
			virtual.Lon = trip.Shape[cur.VertexIndex].Lon
			virtual.NextStopKm = trip.NextStopKm[cur.StopID]
			rows = append(rows, virtual)
		}

		if trip.PairTripID == "" {
			break
		}
		tripID = trip.PairTripID
	}
	return rows, nil
}

// stopSeqIndex returns the position of stopID in stops, or -1
func stopSeqIndex(stops []geometry.StopVertex, stopID string) int {
	for i, sv := range stops {
		if sv.StopID == stopID {
			return i
		}
	}
	return -1
}

// featureMatrix builds the model's numeric feature rows in the order fixed by
// the trained artifact
func featureMatrix(rows []ContextFix) ([][]float64, error) {
	features := make([][]float64, 0, len(rows))
	for _, row := range rows {
		corridorIdx, present := mlmodels.CorridorFeatureIndex[row.CorridorID]
		if !present {
			return nil, fmt.Errorf("corridor %s has no feature encoding", row.CorridorID)
		}
		features = append(features, []float64{
			float64(corridorIdx),
			float64(row.Day),
			float64(row.Hour),
			row.Heading,
			row.Speed,
			float64(row.CongestionBin),
			row.NextStopKm,
			row.Lat,
			row.Lon,
		})
	}
	return features, nil
}

// quantile returns the pct-th percentile of values using linear
// interpolation between closest ranks
func quantile(values []float64, pct float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	fraction := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*fraction
}
