package pipeline

import (
	"testing"
)

// adheredAt wraps fixture fixes in AdheredFix at the given coordinates
func adheredAt(t *testing.T, coords [][2]float64) []AdheredFix {
	t.Helper()
	result := make([]AdheredFix, 0, len(coords))
	for i, c := range coords {
		fix := fixtureFix(c[1], i*20)
		fix.Lat = c[0]
		result = append(result, AdheredFix{GpsFix: fix, OnRoute: true})
	}
	return result
}

func Test_ResolveDirections_overrideBypassesVoter(t *testing.T) {
	idx := fixtureIndex(t)
	batch := adheredAt(t, [][2]float64{{-0.0001, 0.03}, {-0.0001, 0.04}})
	for i := range batch {
		batch[i].VendorTripID = "4.B001"
	}

	directed, methods, err := ResolveDirections(idx, DefaultVendorTripOverrides, batch, DefaultConfig())
	if err != nil {
		t.Fatalf("ResolveDirections() error = %v", err)
	}
	if methods != nil {
		t.Errorf("override path ran the voter, methods = %v", methods)
	}
	for i, fix := range directed {
		if fix.TripID != "4B-R01_shp" {
			t.Errorf("fix %d trip = %s, want 4B-R01_shp", i, fix.TripID)
		}
	}
}

func Test_ResolveDirections_methodSelection(t *testing.T) {
	idx := fixtureIndex(t)

	tests := []struct {
		name        string
		coords      [][2]float64
		wantMethods []VoterMethod
		wantTrips   []string
	}{
		{
			name: "clearly nearer first fix then moving east mid corridor",
			// 11 m from trip one, 33 m from trip two: difference beyond the tie threshold
			coords:      [][2]float64{{-0.0001, 0.04}, {-0.0001, 0.05}, {-0.0001, 0.06}},
			wantMethods: []VoterMethod{MethodFirstFix, MethodFirstPassed, MethodFirstPassed},
			wantTrips:   []string{"4B-R01_shp", "4B-R01_shp", "4B-R01_shp"},
		},
		{
			name: "tied first fix picks by distance",
			// equidistant between the two shapes
			coords:      [][2]float64{{0.0001, 0.04}},
			wantMethods: []VoterMethod{MethodNearestTie},
			wantTrips:   []string{"4B-R01_shp"},
		},
		{
			name: "static vehicle skips after the first fix",
			// 5 m hops are under the skip threshold
			coords:      [][2]float64{{-0.0001, 0.04}, {-0.0001, 0.04004}, {-0.0001, 0.04008}},
			wantMethods: []VoterMethod{MethodFirstFix, MethodSkip, MethodSkip},
			wantTrips:   []string{"4B-R01_shp", "4B-R01_shp", "4B-R01_shp"},
		},
		{
			name: "departure from the eastern terminal votes for the return trip, window keeps trip one",
			// both fixes project onto trip one's final vertices
			coords:      [][2]float64{{0.0001, 0.098}, {0.0001, 0.092}},
			wantMethods: []VoterMethod{MethodNearestTie, MethodTripTwoTerminal},
			wantTrips:   []string{"4B-R01_shp", "4B-R01_shp"},
		},
		{
			name: "departure from the western terminal picks trip one",
			coords:      [][2]float64{{0.0001, 0.002}, {0.0001, 0.008}},
			wantMethods: []VoterMethod{MethodNearestTie, MethodTripOneTerminal},
			wantTrips:   []string{"4B-R01_shp", "4B-R01_shp"},
		},
		{
			name: "westbound movement mid corridor picks the return trip",
			coords:      [][2]float64{{0.0003, 0.06}, {0.0003, 0.05}, {0.0003, 0.04}},
			wantMethods: []VoterMethod{MethodFirstFix, MethodFirstPassed, MethodFirstPassed},
			wantTrips:   []string{"4B-R02_shp", "4B-R02_shp", "4B-R02_shp"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := adheredAt(t, tt.coords)
			directed, methods, err := ResolveDirections(idx, DefaultVendorTripOverrides, batch, DefaultConfig())
			if err != nil {
				t.Fatalf("ResolveDirections() error = %v", err)
			}
			for i := range tt.wantMethods {
				if methods[i] != tt.wantMethods[i] {
					t.Errorf("fix %d method = %v, want %v", i, methods[i], tt.wantMethods[i])
				}
				if directed[i].TripID != tt.wantTrips[i] {
					t.Errorf("fix %d trip = %s, want %s", i, directed[i].TripID, tt.wantTrips[i])
				}
			}
		})
	}
}

func Test_ResolveDirections_voterStability(t *testing.T) {
	idx := fixtureIndex(t)

	// a long eastbound run on trip one, every hop beyond the skip threshold
	coords := make([][2]float64, 0)
	for lon := 0.03; lon <= 0.081; lon += 0.005 {
		coords = append(coords, [2]float64{-0.0001, lon})
	}
	batch := adheredAt(t, coords)

	directed, _, err := ResolveDirections(idx, DefaultVendorTripOverrides, batch, DefaultConfig())
	if err != nil {
		t.Fatalf("ResolveDirections() error = %v", err)
	}
	for i, fix := range directed {
		if fix.TripID != "4B-R01_shp" {
			t.Errorf("fix %d committed %s, want 4B-R01_shp", i, fix.TripID)
		}
	}
}

func Test_ResolveDirections_windowSmoothsOneBadFix(t *testing.T) {
	idx := fixtureIndex(t)

	// a single northern outlier mid run must not flip the committed trip
	coords := [][2]float64{
		{-0.0001, 0.03},
		{-0.0001, 0.035},
		{-0.0001, 0.04},
		{0.00035, 0.045},
		{-0.0001, 0.05},
	}
	batch := adheredAt(t, coords)

	directed, _, err := ResolveDirections(idx, DefaultVendorTripOverrides, batch, DefaultConfig())
	if err != nil {
		t.Fatalf("ResolveDirections() error = %v", err)
	}
	for i, fix := range directed {
		if fix.TripID != "4B-R01_shp" {
			t.Errorf("fix %d committed %s, want 4B-R01_shp", i, fix.TripID)
		}
	}
}

func Test_ResolveDirections_unknownCorridor(t *testing.T) {
	idx := fixtureIndex(t)
	batch := adheredAt(t, [][2]float64{{-0.0001, 0.04}})
	batch[0].CorridorID = "D21"

	_, _, err := ResolveDirections(idx, DefaultVendorTripOverrides, batch, DefaultConfig())
	if err == nil {
		t.Errorf("ResolveDirections() accepted corridor with no shapes")
	}
}

func Test_ResolveDirections_emptyBatch(t *testing.T) {
	idx := fixtureIndex(t)
	directed, methods, err := ResolveDirections(idx, DefaultVendorTripOverrides, nil, DefaultConfig())
	if err != nil || directed != nil || methods != nil {
		t.Errorf("ResolveDirections(nil) = %v, %v, %v, want all nil", directed, methods, err)
	}
}

func Test_NormalizeVendorTripID(t *testing.T) {
	if got := NormalizeVendorTripID("D21-L01"); got != "D21-R01" {
		t.Errorf("NormalizeVendorTripID(D21-L01) = %s, want D21-R01", got)
	}
	if got := NormalizeVendorTripID("4.B001"); got != "4.B001" {
		t.Errorf("NormalizeVendorTripID(4.B001) = %s, want unchanged", got)
	}
}

func Test_windowMode(t *testing.T) {
	tests := []struct {
		name   string
		window []string
		want   string
	}{
		{name: "clear majority", window: []string{"a", "b", "a"}, want: "a"},
		{name: "tie goes to first seen", window: []string{"b", "a", "a", "b"}, want: "b"},
		{name: "single entry", window: []string{"a"}, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := windowMode(tt.window); got != tt.want {
				t.Errorf("windowMode(%v) = %s, want %s", tt.window, got, tt.want)
			}
		})
	}
}
