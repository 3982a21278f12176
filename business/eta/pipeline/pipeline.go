package pipeline

import (
	"context"

	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// Config holds the tunable thresholds of the per-vehicle pipeline
type Config struct {
	OnRouteThresholdMeters      float64
	SkipFixThresholdMeters      float64
	DirectionTieThresholdMeters float64
	WindowK                     int
	MinWindow                   int
	HistoryCap                  int
	CongestionBins              int
	Percentile                  float64
	Corridors                   []string
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		OnRouteThresholdMeters:      100,
		SkipFixThresholdMeters:      15,
		DirectionTieThresholdMeters: 20,
		WindowK:                     5,
		MinWindow:                   10,
		HistoryCap:                  20,
		CongestionBins:              8,
		Percentile:                  25,
		Corridors:                   []string{"4B", "D21", "9H"},
	}
}

// Pipeline runs the five-stage ETA pipeline for one vehicle's fix window.
// All referenced state is immutable after construction, so a single Pipeline
// serves concurrent per-vehicle runs.
type Pipeline struct {
	deps Deps
	cfg  Config
}

// Deps collects the shared immutable collaborators of a Pipeline
type Deps struct {
	Index     *geometry.Index
	Binning   StopBinning
	Predictor Predictor
	// VendorTripOverrides maps vendor trip ids straight to directional trips
	VendorTripOverrides map[string]string
}

// NewPipeline builds a Pipeline
func NewPipeline(deps Deps, cfg Config) *Pipeline {
	if deps.VendorTripOverrides == nil {
		deps.VendorTripOverrides = DefaultVendorTripOverrides
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Result is one vehicle's pipeline output for a tick
type Result struct {
	// TripID is the directional trip committed for the most recent fix
	TripID string
	// StopEtas maps each reachable downstream stop to its ETA in seconds
	StopEtas map[string]float64
}

// Run executes the pipeline over one vehicle's fix window and returns the
// seconds-from-now ETA per downstream stop. The per-vehicle failure kinds in
// errors.go cover the expected ways a window produces no result; lookups
// against the geometry index can also fail with a ConfigurationError.
func (p *Pipeline) Run(ctx context.Context, window []GpsFix) (*Result, error) {
	if !anyNew(window) {
		return nil, ErrNoFreshData
	}
	if len(window) < p.cfg.MinWindow {
		return nil, ErrInsufficientHistory
	}

	batch := Preprocess(window)

	adhered, err := Adhere(p.deps.Index, batch, p.cfg.OnRouteThresholdMeters)
	if err != nil {
		return nil, err
	}
	if !adhered[len(adhered)-1].OnRoute {
		return nil, ErrOffRoute
	}

	directed, _, err := ResolveDirections(p.deps.Index, p.deps.VendorTripOverrides, adhered, p.cfg)
	if err != nil {
		return nil, err
	}

	contextual, err := ResolveStopContext(p.deps.Index, directed)
	if err != nil {
		return nil, err
	}
	contextual = BinNextStopCongestion(contextual, p.deps.Binning)

	stopEtas, err := ProjectHorizon(ctx, p.deps.Index, p.deps.Predictor, contextual, p.cfg.Percentile)
	if err != nil {
		return nil, err
	}
	return &Result{
		TripID:   directed[len(directed)-1].TripID,
		StopEtas: stopEtas,
	}, nil
}

// anyNew returns true if any fix in the window arrived this tick
func anyNew(window []GpsFix) bool {
	for _, fix := range window {
		if fix.IsNew {
			return true
		}
	}
	return false
}
