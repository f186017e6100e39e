package coordinates

import (
	"math"
	"strconv"
	"testing"
)

func TestToDegrees(t *testing.T) {
	tests := []struct {
		in   int32
		want float64
	}{
		{0, 0},
		{527803197, 52.7803197},
		{-14814340, -1.481434},
		{900000000, 90},
		{-1800000000, -180},
	}
	for _, tt := range tests {
		if got := ToDegrees(tt.in); got != tt.want {
			t.Errorf("ToDegrees(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToFixedPointRounds(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{52.78031970, 527803197},
		{0.00000004, 0},
		{0.00000006, 1},
		{-0.00000006, -1},
		{53.3816551, 533816551},
		{1000, math.MaxInt32},
		{-1000, math.MinInt32},
	}
	for _, tt := range tests {
		if got := ToFixedPoint(tt.in); got != tt.want {
			t.Errorf("ToFixedPoint(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTripFromDegrees(t *testing.T) {
	// every value with at most 7 decimals must survive degrees -> fixed -> degrees
	for _, s := range []string{"52.7803197", "-1.4814340", "53.381655", "0.0000001", "-89.9999999", "179.9999999", "12.3456789", "-33.8688197"} {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatal(err)
		}
		if got := ToDegrees(ToFixedPoint(d)); got != d {
			t.Errorf("round trip of %s gave %v", s, got)
		}
	}
}

func TestRoundTripFromFixedPoint(t *testing.T) {
	for x := int32(-1800000000); x <= 1800000000; x += 7777777 {
		if got := ToFixedPoint(ToDegrees(x)); got != x {
			t.Fatalf("round trip of %d gave %d", x, got)
		}
	}
}

func TestFormat(t *testing.T) {
	p := LatLng{Lat: 52.7803197, Lng: -0.7063922}
	if got := p.Format(); got != "52.7803197, -0.7063922" {
		t.Errorf("Format() = %q", got)
	}
}

func TestSquaredDistance(t *testing.T) {
	if got := SquaredDistance(LatLng{1, 1}, LatLng{4, 5}); got != 25 {
		t.Errorf("SquaredDistance = %v, want 25", got)
	}
}
