package schedule

import (
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// ShapePoint contains one vertex of a trip shape
type ShapePoint struct {
	ShapeId         string  `db:"shape_id" json:"shape_id"`
	ShapePtSequence int     `db:"shape_pt_sequence" json:"shape_pt_sequence"`
	ShapePtLat      float64 `db:"shape_pt_lat" json:"shape_pt_lat"`
	ShapePtLng      float64 `db:"shape_pt_lon" json:"shape_pt_lon"`
}

// GetShapePoints retrieves the ordered shape vertices for trips on the
// corridors in corridorIDs
func GetShapePoints(db *sqlx.DB, corridorIDs []string) ([]ShapePoint, error) {
	statementString := "select distinct sh.shape_id, sh.shape_pt_sequence, sh.shape_pt_lat, sh.shape_pt_lon " +
		"from shape sh " +
		"join trip t on t.shape_id = sh.shape_id " +
		"where t.route_id in (:corridor_ids) " +
		"order by sh.shape_id, sh.shape_pt_sequence"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []ShapePoint
	for rows.Next() {
		var point ShapePoint
		if err = rows.StructScan(&point); err != nil {
			return nil, err
		}
		results = append(results, point)
	}
	return results, rows.Err()
}
