package schedule

import (
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Stop contains one stop definition
type Stop struct {
	StopId   string  `db:"stop_id" json:"stop_id"`
	StopName string  `db:"stop_name" json:"stop_name"`
	StopLat  float64 `db:"stop_lat" json:"stop_lat"`
	StopLon  float64 `db:"stop_lon" json:"stop_lon"`
}

// GetStops retrieves stops served by the corridors in corridorIDs
func GetStops(db *sqlx.DB, corridorIDs []string) ([]Stop, error) {
	statementString := "select distinct s.stop_id, s.stop_name, s.stop_lat, s.stop_lon " +
		"from stop s " +
		"join stop_time st on st.stop_id = s.stop_id " +
		"join trip t on t.trip_id = st.trip_id " +
		"where t.route_id in (:corridor_ids)"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []Stop
	for rows.Next() {
		var stop Stop
		if err = rows.StructScan(&stop); err != nil {
			return nil, err
		}
		results = append(results, stop)
	}
	return results, rows.Err()
}
