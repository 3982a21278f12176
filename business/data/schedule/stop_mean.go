package schedule

import "github.com/jmoiron/sqlx"

// stopMeanEta is one precomputed mean scheduled ETA, keyed by the stop's
// sequence index on its trip
type stopMeanEta struct {
	StopSeq    int     `db:"stop_seq"`
	EtaSeconds float64 `db:"eta_seconds"`
}

// GetStopMeanEtas retrieves the precomputed mean scheduled ETA table used for
// congestion binning
func GetStopMeanEtas(db *sqlx.DB) (map[int]float64, error) {
	query := "select stop_seq, eta_seconds from stop_mean_eta"
	var rows []stopMeanEta
	err := db.Select(&rows, query)
	if err != nil {
		return nil, err
	}
	results := make(map[int]float64, len(rows))
	for _, row := range rows {
		results[row.StopSeq] = row.EtaSeconds
	}
	return results, nil
}
