package pipeline

import (
	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// ResolveStopContext assigns each fix its previous and next stop by nearest
// stop-pair lookup on the resolved trip, then computes the along-shape
// distance from the fix to its next stop.
func ResolveStopContext(idx *geometry.Index, batch []DirectedFix) ([]ContextFix, error) {
	result := make([]ContextFix, 0, len(batch))
	for _, fix := range batch {
		point := geometry.Coord{Lat: fix.Lat, Lon: fix.Lon}
		row, err := idx.NearestPairRow(fix.CorridorID, fix.TripID, point)
		if err != nil {
			return nil, err
		}
		nextStopKm, err := idx.AlongShapeDistance(fix.TripID, row.PrevStop, row.NextStop, point)
		if err != nil {
			return nil, err
		}
		result = append(result, ContextFix{
			DirectedFix: fix,
			NextStop:    row.NextStop,
			PrevStop:    row.PrevStop,
			NextStopSeq: row.NextStopSeq,
			PrevStopSeq: row.PrevStopSeq,
			NextStopKm:  nextStopKm,
		})
	}
	return result, nil
}
