package pipeline

import (
	"context"
	"errors"
	"testing"
)

func fixturePipeline(t *testing.T, predictor Predictor) *Pipeline {
	t.Helper()
	return NewPipeline(Deps{
		Index:     fixtureIndex(t),
		Binning:   fixtureBinning(),
		Predictor: predictor,
	}, DefaultConfig())
}

// fixtureWindow builds n on-route fixes moving east on trip one, the last
// one marked new
func fixtureWindow(n int) []GpsFix {
	window := make([]GpsFix, 0, n)
	for i := 0; i < n; i++ {
		fix := fixtureFix(0.03+float64(i)*0.002, i*20)
		fix.IsNew = i == n-1
		window = append(window, fix)
	}
	return window
}

func Test_Run_producesEtas(t *testing.T) {
	predictor := &stubPredictor{secondsPerSegment: 60}
	pipe := fixturePipeline(t, predictor)

	result, err := pipe.Run(context.Background(), fixtureWindow(12))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TripID != "4B-R01_shp" {
		t.Errorf("Run() trip = %s, want 4B-R01_shp", result.TripID)
	}
	if len(result.StopEtas) == 0 {
		t.Errorf("Run() produced no stop etas")
	}
	if predictor.calls != 12 {
		t.Errorf("predictor called %d times, want one call per fix", predictor.calls)
	}
}

func Test_Run_insufficientHistory(t *testing.T) {
	pipe := fixturePipeline(t, &stubPredictor{secondsPerSegment: 60})

	// eight fixes of history plus one new fix, nine in all, stays under the
	// minimum window of ten
	_, err := pipe.Run(context.Background(), fixtureWindow(9))
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("Run() error = %v, want ErrInsufficientHistory", err)
	}
}

func Test_Run_noFreshData(t *testing.T) {
	pipe := fixturePipeline(t, &stubPredictor{secondsPerSegment: 60})

	window := fixtureWindow(12)
	for i := range window {
		window[i].IsNew = false
	}
	_, err := pipe.Run(context.Background(), window)
	if !errors.Is(err, ErrNoFreshData) {
		t.Errorf("Run() error = %v, want ErrNoFreshData", err)
	}
}

func Test_Run_offRouteLastFix(t *testing.T) {
	pipe := fixturePipeline(t, &stubPredictor{secondsPerSegment: 60})

	window := fixtureWindow(12)
	// park the newest fix at the origin of nowhere
	window[len(window)-1].Lat = 1
	window[len(window)-1].Lon = 1
	_, err := pipe.Run(context.Background(), window)
	if !errors.Is(err, ErrOffRoute) {
		t.Errorf("Run() error = %v, want ErrOffRoute", err)
	}
}

func Test_Run_offRouteOlderFixIsTolerated(t *testing.T) {
	pipe := fixturePipeline(t, &stubPredictor{secondsPerSegment: 60})

	window := fixtureWindow(12)
	window[2].Lat = 1
	window[2].Lon = 1
	_, err := pipe.Run(context.Background(), window)
	if err != nil {
		t.Errorf("Run() error = %v, only the most recent fix gates on-route", err)
	}
}

func Test_Run_staticIdleVehicle(t *testing.T) {
	predictor := &stubPredictor{secondsPerSegment: 60}
	pipe := fixturePipeline(t, predictor)

	// twelve fixes within five meters of each other: the direction commits
	// from the first fix, every later fix skips
	window := make([]GpsFix, 0, 12)
	for i := 0; i < 12; i++ {
		fix := fixtureFix(0.045+float64(i)*0.000004, i*20)
		fix.IsNew = i == 11
		window = append(window, fix)
	}

	result, err := pipe.Run(context.Background(), window)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TripID != "4B-R01_shp" {
		t.Errorf("Run() trip = %s, want 4B-R01_shp", result.TripID)
	}
	if len(result.StopEtas) == 0 {
		t.Errorf("Run() produced no stop etas for a static vehicle")
	}
}

func Test_Run_vendorOverride(t *testing.T) {
	pipe := fixturePipeline(t, &stubPredictor{secondsPerSegment: 60})

	window := fixtureWindow(12)
	for i := range window {
		window[i].VendorTripID = "4.B001"
	}
	result, err := pipe.Run(context.Background(), window)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.TripID != "4B-R01_shp" {
		t.Errorf("Run() trip = %s, want the override target 4B-R01_shp", result.TripID)
	}
}

func Test_Run_predictorFailureIsSurfaced(t *testing.T) {
	pipe := fixturePipeline(t, &failingPredictor{})

	_, err := pipe.Run(context.Background(), fixtureWindow(12))
	if !errors.Is(err, ErrPredictor) {
		t.Errorf("Run() error = %v, want ErrPredictor", err)
	}
}
