package schedule

import (
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// StopTime contains one stop visit on a trip
type StopTime struct {
	TripId       string `db:"trip_id" json:"trip_id"`
	StopId       string `db:"stop_id" json:"stop_id"`
	StopSequence int    `db:"stop_sequence" json:"stop_sequence"`
}

// GetStopTimes retrieves the ordered stop times for trips on the corridors in
// corridorIDs
func GetStopTimes(db *sqlx.DB, corridorIDs []string) ([]StopTime, error) {
	statementString := "select st.trip_id, st.stop_id, st.stop_sequence " +
		"from stop_time st " +
		"join trip t on t.trip_id = st.trip_id " +
		"where t.route_id in (:corridor_ids) " +
		"order by st.trip_id, st.stop_sequence"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []StopTime
	for rows.Next() {
		var stopTime StopTime
		if err = rows.StructScan(&stopTime); err != nil {
			return nil, err
		}
		results = append(results, stopTime)
	}
	return results, rows.Err()
}
