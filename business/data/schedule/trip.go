package schedule

import (
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Trip contains one directional trip definition. ShapeId doubles as the
// directional trip identifier used throughout the ETA pipeline; PairShapeId
// is set when the trip has an opposing return trip on the same corridor.
type Trip struct {
	TripId       string  `db:"trip_id" json:"trip_id"`
	RouteId      string  `db:"route_id" json:"route_id"`
	TripHeadsign *string `db:"trip_headsign" json:"trip_headsign"`
	DirectionId  int     `db:"direction_id" json:"direction_id"`
	ShapeId      string  `db:"shape_id" json:"shape_id"`
	PairShapeId  *string `db:"pair_shape_id" json:"pair_shape_id"`
}

// GetTrips retrieves the trips on the corridors in corridorIDs
func GetTrips(db *sqlx.DB, corridorIDs []string) ([]Trip, error) {
	statementString := "select trip_id, route_id, trip_headsign, direction_id, shape_id, pair_shape_id " +
		"from trip where route_id in (:corridor_ids) order by route_id, direction_id"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []Trip
	for rows.Next() {
		var trip Trip
		if err = rows.StructScan(&trip); err != nil {
			return nil, err
		}
		results = append(results, trip)
	}
	return results, rows.Err()
}
