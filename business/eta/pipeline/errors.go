package pipeline

import "errors"

// Per-vehicle failure kinds. All of them collapse the vehicle's result for
// the tick to nothing; none of them are fatal to the service.
var (
	// ErrOffRoute indicates the most recent fix is farther from its corridor
	// than the on-route threshold
	ErrOffRoute = errors.New("most recent fix is off-route")
	// ErrNoFreshData indicates no fix in the window arrived this tick
	ErrNoFreshData = errors.New("no incoming gps data")
	// ErrInsufficientHistory indicates the vehicle has fewer fixes than the
	// minimum prediction window
	ErrInsufficientHistory = errors.New("insufficient fix history")
	// ErrDirectionUnresolved indicates the direction voter produced no commit
	ErrDirectionUnresolved = errors.New("trip direction unresolved")
	// ErrPredictor indicates the regression model invocation failed
	ErrPredictor = errors.New("segment time predictor failed")
)
