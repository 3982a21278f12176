package schedule

import (
	"fmt"

	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// AssembleTripInputs turns the raw schedule rows into geometry.TripInput
// values: one per directional trip, with the trip's ordered shape and a
// stop-mark slice locating each scheduled stop on its nearest shape vertex.
// Stops are matched to vertices strictly in shape order so the derived stop
// sequence can never double back.
func AssembleTripInputs(trips []Trip,
	shapePoints []ShapePoint,
	stops []Stop,
	stopTimes []StopTime) ([]geometry.TripInput, error) {

	shapes := groupShapePoints(shapePoints)
	stopCoords := make(map[string]geometry.Coord, len(stops))
	for _, stop := range stops {
		stopCoords[stop.StopId] = geometry.Coord{Lat: stop.StopLat, Lon: stop.StopLon}
	}
	stopsByTrip := groupStopTimes(stopTimes)

	results := make([]geometry.TripInput, 0, len(trips))
	for _, trip := range trips {
		shape, present := shapes[trip.ShapeId]
		if !present {
			return nil, fmt.Errorf("trip %s references unknown shape %s", trip.TripId, trip.ShapeId)
		}
		orderedStops, present := stopsByTrip[trip.TripId]
		if !present {
			return nil, fmt.Errorf("trip %s has no stop times", trip.TripId)
		}

		marks, err := markStopVertices(trip.TripId, shape, orderedStops, stopCoords)
		if err != nil {
			return nil, err
		}

		pairShapeID := ""
		if trip.PairShapeId != nil {
			pairShapeID = *trip.PairShapeId
		}
		results = append(results, geometry.TripInput{
			TripID:     trip.ShapeId,
			CorridorID: trip.RouteId,
			PairTripID: pairShapeID,
			Shape:      shape,
			StopMarks:  marks,
		})
	}
	return results, nil
}

// groupShapePoints collects shape vertices by shape id, relying on the
// loader's shape_pt_sequence ordering
func groupShapePoints(points []ShapePoint) map[string][]geometry.Coord {
	shapes := make(map[string][]geometry.Coord)
	for _, point := range points {
		shapes[point.ShapeId] = append(shapes[point.ShapeId],
			geometry.Coord{Lat: point.ShapePtLat, Lon: point.ShapePtLng})
	}
	return shapes
}

// groupStopTimes collects stop ids by trip id, relying on the loader's
// stop_sequence ordering
func groupStopTimes(stopTimes []StopTime) map[string][]string {
	byTrip := make(map[string][]string)
	for _, stopTime := range stopTimes {
		byTrip[stopTime.TripId] = append(byTrip[stopTime.TripId], stopTime.StopId)
	}
	return byTrip
}

// markStopVertices builds the stop-mark slice for one trip: "." everywhere
// except the vertex nearest each scheduled stop. The search for each stop is
// restricted to vertices past the previous stop's vertex.
func markStopVertices(tripID string,
	shape []geometry.Coord,
	orderedStops []string,
	stopCoords map[string]geometry.Coord) ([]string, error) {

	marks := make([]string, len(shape))
	for i := range marks {
		marks[i] = "."
	}

	previousVertex := -1
	for _, stopID := range orderedStops {
		coord, present := stopCoords[stopID]
		if !present {
			return nil, fmt.Errorf("trip %s stop time references unknown stop %s", tripID, stopID)
		}
		vertex := nearestVertexAfter(shape, coord, previousVertex)
		if vertex < 0 {
			return nil, fmt.Errorf("trip %s stop %s cannot be placed on the shape in sequence order",
				tripID, stopID)
		}
		marks[vertex] = stopID
		previousVertex = vertex
	}
	return marks, nil
}

// nearestVertexAfter returns the index of the shape vertex nearest to c with
// index greater than after, or -1 when no such vertex exists
func nearestVertexAfter(shape []geometry.Coord, c geometry.Coord, after int) int {
	best := -1
	bestKm := 0.0
	for i := after + 1; i < len(shape); i++ {
		km := geometry.DistanceKm(shape[i], c)
		if best < 0 || km < bestKm {
			best = i
			bestKm = km
		}
	}
	return best
}
