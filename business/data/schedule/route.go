package schedule

import (
	"github.com/TransJakartaLabs/etacast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Route contains one route corridor definition
type Route struct {
	RouteId    string `db:"route_id" json:"route_id"`
	RouteColor string `db:"route_color" json:"route_color"`
}

// GetRoutes retrieves the routes with ids in corridorIDs
func GetRoutes(db *sqlx.DB, corridorIDs []string) ([]Route, error) {
	statementString := "select route_id, route_color from route " +
		"where route_id in (:corridor_ids) order by route_id"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db,
		map[string]interface{}{"corridor_ids": corridorIDs})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var results []Route
	for rows.Next() {
		var route Route
		if err = rows.StructScan(&route); err != nil {
			return nil, err
		}
		results = append(results, route)
	}
	return results, rows.Err()
}
