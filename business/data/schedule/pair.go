package schedule

import (
	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// nextPrevRow is one precomputed stop-pair row: for a vertex on a corridor
// trip shape, the stop immediately ahead and behind it
type nextPrevRow struct {
	RouteId     string  `db:"route_id"`
	ShapeId     string  `db:"shape_id"`
	ShapePtLat  float64 `db:"shape_pt_lat"`
	ShapePtLng  float64 `db:"shape_pt_lon"`
	NextStop    string  `db:"next_stop"`
	PrevStop    string  `db:"prev_stop"`
	NextStopSeq int     `db:"next_stop_seq"`
	PrevStopSeq int     `db:"prev_stop_seq"`
}

// GetNextPrevRows retrieves the precomputed stop-pair rows for the corridors
// in corridorIDs as geometry.PairRow values
func GetNextPrevRows(db *sqlx.DB, corridorIDs []string) ([]geometry.PairRow, error) {
	statementString := "select route_id, shape_id, shape_pt_lat, shape_pt_lon, " +
		"next_stop, prev_stop, next_stop_seq, prev_stop_seq " +
		"from next_prev where route_id in (:corridor_ids) " +
		"order by shape_id, next_stop_seq"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []geometry.PairRow
	for rows.Next() {
		var row nextPrevRow
		if err = rows.StructScan(&row); err != nil {
			return nil, err
		}
		results = append(results, geometry.PairRow{
			Lat:         row.ShapePtLat,
			Lon:         row.ShapePtLng,
			TripID:      row.ShapeId,
			NextStop:    row.NextStop,
			PrevStop:    row.PrevStop,
			NextStopSeq: row.NextStopSeq,
			PrevStopSeq: row.PrevStopSeq,
		})
	}
	return results, rows.Err()
}
