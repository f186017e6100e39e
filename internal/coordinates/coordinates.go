package coordinates

import (
	"fmt"
	"math"
)

// Backend coordinates are degrees scaled by 1e7 and carried as int32
const scale float64 = 1e7

// FractionDigits is the display precision of a coordinate in degrees
const FractionDigits = 7

// LatLng is a position in floating-point degrees
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToDegrees converts a fixed-point coordinate into degrees
func ToDegrees(v int32) float64 {
	return float64(v) / scale
}

// ToFixedPoint converts degrees into the fixed-point wire form, rounding to the nearest integer.
// Values outside the int32 range are clamped.
func ToFixedPoint(d float64) int32 {
	v := math.Round(d * scale)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// Format renders "lat, lng" with FractionDigits decimals
func (p LatLng) Format() string {
	return fmt.Sprintf("%.*f, %.*f", FractionDigits, p.Lat, FractionDigits, p.Lng)
}

// SquaredDistance is the flat-earth squared distance between two points in degree space.
// Good enough for picking the nearest marker at map scale.
func SquaredDistance(from LatLng, to LatLng) float64 {
	dLat := from.Lat - to.Lat
	dLng := from.Lng - to.Lng
	return dLat*dLat + dLng*dLng
}
