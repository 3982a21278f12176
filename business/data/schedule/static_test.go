package schedule

import (
	"testing"

	"github.com/matryer/is"
)

func testScheduleRows() ([]Trip, []ShapePoint, []Stop, []StopTime) {
	pair := "4B-R02_shp"
	trips := []Trip{
		{TripId: "4B-R01", RouteId: "4B", DirectionId: 0, ShapeId: "4B-R01_shp", PairShapeId: &pair},
	}
	shapePoints := []ShapePoint{
		{ShapeId: "4B-R01_shp", ShapePtSequence: 0, ShapePtLat: 0, ShapePtLng: 0},
		{ShapeId: "4B-R01_shp", ShapePtSequence: 1, ShapePtLat: 0, ShapePtLng: 0.01},
		{ShapeId: "4B-R01_shp", ShapePtSequence: 2, ShapePtLat: 0, ShapePtLng: 0.02},
		{ShapeId: "4B-R01_shp", ShapePtSequence: 3, ShapePtLat: 0, ShapePtLng: 0.03},
	}
	stops := []Stop{
		{StopId: "S1", StopName: "Terminal Barat", StopLat: 0.0001, StopLon: 0},
		{StopId: "S2", StopName: "Tengah", StopLat: -0.0001, StopLon: 0.019},
		{StopId: "S3", StopName: "Terminal Timur", StopLat: 0, StopLon: 0.03},
	}
	stopTimes := []StopTime{
		{TripId: "4B-R01", StopId: "S1", StopSequence: 1},
		{TripId: "4B-R01", StopId: "S2", StopSequence: 2},
		{TripId: "4B-R01", StopId: "S3", StopSequence: 3},
	}
	return trips, shapePoints, stops, stopTimes
}

func Test_AssembleTripInputs(t *testing.T) {
	is := is.New(t)
	trips, shapePoints, stops, stopTimes := testScheduleRows()

	inputs, err := AssembleTripInputs(trips, shapePoints, stops, stopTimes)
	is.NoErr(err)
	is.Equal(len(inputs), 1)

	input := inputs[0]
	is.Equal(input.TripID, "4B-R01_shp") // shape id doubles as the directional trip id
	is.Equal(input.CorridorID, "4B")
	is.Equal(input.PairTripID, "4B-R02_shp")
	is.Equal(len(input.Shape), 4)
	is.Equal(input.StopMarks, []string{"S1", ".", "S2", "S3"})
}

func Test_AssembleTripInputs_missingReferences(t *testing.T) {
	trips, shapePoints, stops, stopTimes := testScheduleRows()

	t.Run("unknown shape", func(t *testing.T) {
		bad := make([]Trip, len(trips))
		copy(bad, trips)
		bad[0].ShapeId = "nope_shp"
		if _, err := AssembleTripInputs(bad, shapePoints, stops, stopTimes); err == nil {
			t.Errorf("AssembleTripInputs() accepted a trip with no shape")
		}
	})
	t.Run("unknown stop", func(t *testing.T) {
		bad := make([]StopTime, len(stopTimes))
		copy(bad, stopTimes)
		bad[1].StopId = "S9"
		if _, err := AssembleTripInputs(trips, shapePoints, stops, bad); err == nil {
			t.Errorf("AssembleTripInputs() accepted a stop time with no stop")
		}
	})
	t.Run("no stop times", func(t *testing.T) {
		if _, err := AssembleTripInputs(trips, shapePoints, stops, nil); err == nil {
			t.Errorf("AssembleTripInputs() accepted a trip with no stop times")
		}
	})
}
