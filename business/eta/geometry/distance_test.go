package geometry

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func Test_DistanceKm(t *testing.T) {
	tests := []struct {
		name   string
		a      Coord
		b      Coord
		wantKm float64
		// toleranceKm allows for the flat-earth approximation error
		toleranceKm float64
	}{
		{
			name:        "same point",
			a:           Coord{Lat: -6.2, Lon: 106.8},
			b:           Coord{Lat: -6.2, Lon: 106.8},
			wantKm:      0,
			toleranceKm: 0,
		},
		{
			name:        "one degree of latitude",
			a:           Coord{Lat: 0, Lon: 106.8},
			b:           Coord{Lat: 1, Lon: 106.8},
			wantKm:      111.19,
			toleranceKm: 0.05,
		},
		{
			name:        "one hundredth degree of longitude at the equator",
			a:           Coord{Lat: 0, Lon: 106.80},
			b:           Coord{Lat: 0, Lon: 106.81},
			wantKm:      1.1119,
			toleranceKm: 0.001,
		},
		{
			name:        "short hop in jakarta",
			a:           Coord{Lat: -6.1753, Lon: 106.8271},
			b:           Coord{Lat: -6.1754, Lon: 106.8272},
			wantKm:      0.0157,
			toleranceKm: 0.001,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.toleranceKm {
				t.Errorf("DistanceKm() = %v, want %v within %v", got, tt.wantKm, tt.toleranceKm)
			}
		})
	}
}

func Test_DistanceSymmetry(t *testing.T) {
	is := is.New(t)
	a := Coord{Lat: -6.1753, Lon: 106.8271}
	b := Coord{Lat: -6.1821, Lon: 106.8330}
	is.Equal(DistanceKm(a, b), DistanceKm(b, a)) // distance must not depend on argument order
}

func Test_NearestOnPolyline(t *testing.T) {
	line := []Coord{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
		{Lat: 0.01, Lon: 0.01},
	}

	tests := []struct {
		name        string
		p           Coord
		want        Coord
		wantSegment int
	}{
		{
			name:        "projects onto first segment",
			p:           Coord{Lat: 0.001, Lon: 0.005},
			want:        Coord{Lat: 0, Lon: 0.005},
			wantSegment: 0,
		},
		{
			name:        "projects onto second segment",
			p:           Coord{Lat: 0.005, Lon: 0.012},
			want:        Coord{Lat: 0.005, Lon: 0.01},
			wantSegment: 1,
		},
		{
			name:        "clamps to the start vertex",
			p:           Coord{Lat: -0.001, Lon: -0.005},
			want:        Coord{Lat: 0, Lon: 0},
			wantSegment: 0,
		},
		{
			name:        "clamps to the final vertex",
			p:           Coord{Lat: 0.02, Lon: 0.01},
			want:        Coord{Lat: 0.01, Lon: 0.01},
			wantSegment: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, segment := NearestOnPolyline(line, tt.p)
			if got != tt.want {
				t.Errorf("NearestOnPolyline() point = %v, want %v", got, tt.want)
			}
			if segment != tt.wantSegment {
				t.Errorf("NearestOnPolyline() segment = %d, want %d", segment, tt.wantSegment)
			}
		})
	}
}
