// Package schedule provides read access to the static transit schedule tables
// the ETA service is built on: routes, trips, stops, stop times, shapes, the
// precomputed per-vertex stop-pair rows, and the precomputed per-stop mean
// scheduled ETAs. The tables are loaded once at startup into an immutable
// StaticData bundle; nothing in this package is queried after initialization.
package schedule

import (
	"fmt"

	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
	"github.com/jmoiron/sqlx"
)

// StaticData is the immutable bundle of schedule data the service runs on
type StaticData struct {
	Routes       []Route
	Trips        []Trip
	Stops        []Stop
	TripInputs   []geometry.TripInput
	PairRows     []geometry.PairRow
	StopMeanEtas map[int]float64
}

// LoadStaticData loads and assembles all static schedule data for the
// corridors in corridorIDs. Any missing or malformed table is fatal.
func LoadStaticData(db *sqlx.DB, corridorIDs []string) (*StaticData, error) {
	routes, err := GetRoutes(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading routes: %w", err)
	}
	trips, err := GetTrips(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading trips: %w", err)
	}
	stops, err := GetStops(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading stops: %w", err)
	}
	stopTimes, err := GetStopTimes(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading stop times: %w", err)
	}
	shapePoints, err := GetShapePoints(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading shape points: %w", err)
	}
	pairRows, err := GetNextPrevRows(db, corridorIDs)
	if err != nil {
		return nil, fmt.Errorf("loading stop-pair rows: %w", err)
	}
	meanEtas, err := GetStopMeanEtas(db)
	if err != nil {
		return nil, fmt.Errorf("loading stop mean etas: %w", err)
	}

	tripInputs, err := AssembleTripInputs(trips, shapePoints, stops, stopTimes)
	if err != nil {
		return nil, fmt.Errorf("assembling trip shapes: %w", err)
	}

	return &StaticData{
		Routes:       routes,
		Trips:        trips,
		Stops:        stops,
		TripInputs:   tripInputs,
		PairRows:     pairRows,
		StopMeanEtas: meanEtas,
	}, nil
}
