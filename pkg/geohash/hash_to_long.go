package geohash

import (
	"fmt"

	"geofabric/pkg/errs"
)

// HashToLong packs the leading min(len(hash), MaxPrecision) characters of a
// geohash into a uint64, five bits per character, MSB-first. The result is
// order-preserving for hashes of equal length (up to 12 characters): two
// such hashes compare the same way as their HashToLong values.
func HashToLong(hash string) (uint64, error) {
	if len(hash) > MaxPrecision {
		hash = hash[:MaxPrecision]
	}
	var v uint64
	for i := 0; i < len(hash); i++ {
		idx := charIndex[lowerByte(hash[i])]
		if idx < 0 {
			return 0, fmt.Errorf("geohash: invalid character %q: %w", hash[i], errs.ErrValidation)
		}
		v = v<<BitsPerChar | uint64(idx)
	}
	return v, nil
}
