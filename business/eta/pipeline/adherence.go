package pipeline

import (
	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// Adhere computes each fix's perpendicular distance to its corridor's union
// polyline and tags it on-route when the distance is within
// thresholdMeters. The distance depends only on the fix and its corridor, so
// batch ordering is irrelevant.
func Adhere(idx *geometry.Index, batch []GpsFix, thresholdMeters float64) ([]AdheredFix, error) {
	result := make([]AdheredFix, 0, len(batch))
	for _, fix := range batch {
		meters, err := idx.DistanceToCorridorMeters(fix.CorridorID, geometry.Coord{Lat: fix.Lat, Lon: fix.Lon})
		if err != nil {
			return nil, err
		}
		result = append(result, AdheredFix{
			GpsFix:              fix,
			RouteDistanceMeters: meters,
			OnRoute:             meters <= thresholdMeters,
		})
	}
	return result, nil
}
