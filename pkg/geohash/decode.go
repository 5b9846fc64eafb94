package geohash

import (
	"fmt"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

// Decode returns the rectangular cell a geohash string denotes.
func Decode(hash string) (types.SpatialRange, error) {
	bits, err := toBits(hash)
	if err != nil {
		return types.SpatialRange{}, err
	}
	lonLo, lonHi := decodeAxis(bits, 0)
	latLo, latHi := decodeAxis(bits, 1)
	return types.SpatialRange{LatLo: latLo, LatHi: latHi, LonLo: lonLo, LonHi: lonHi}, nil
}

// decodeAxis replays the bisection encode performed, reading every other
// bit starting at axis (0 for longitude, 1 for latitude).
func decodeAxis(bits []bool, axis int) (lo, hi float64) {
	if axis == 1 {
		lo, hi = -LatitudeRange, LatitudeRange
	} else {
		lo, hi = -LongitudeRange, LongitudeRange
	}
	for i := axis; i < len(bits); i += 2 {
		middle := (hi + lo) / 2
		if bits[i] {
			lo = middle
		} else {
			hi = middle
		}
	}
	return lo, hi
}

// toBits expands a base32 geohash string into its MSB-first bitstream.
func toBits(hash string) ([]bool, error) {
	bits := make([]bool, 0, len(hash)*BitsPerChar)
	for i := 0; i < len(hash); i++ {
		idx := charIndex[lowerByte(hash[i])]
		if idx < 0 {
			return nil, fmt.Errorf("geohash: invalid character %q: %w", hash[i], errs.ErrValidation)
		}
		for b := BitsPerChar - 1; b >= 0; b-- {
			bits = append(bits, (idx>>uint(b))&1 == 1)
		}
	}
	return bits, nil
}
