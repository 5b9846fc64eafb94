package geohash

import (
	"fmt"
	"sort"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

func projectPolygon(polygon types.Polygon) []GridPoint {
	out := make([]GridPoint, len(polygon))
	for i, c := range polygon {
		out[i] = ToGrid(c)
	}
	return out
}

func validateCoverArgs(polygon types.Polygon, precision int) error {
	if len(polygon) == 0 {
		return fmt.Errorf("geohash: empty polygon: %w", errs.ErrValidation)
	}
	if precision < 1 || precision > MaxPrecision {
		return fmt.Errorf("geohash: precision %d out of range [1,%d]: %w", precision, MaxPrecision, errs.ErrValidation)
	}
	return nil
}

// CoverPolygonFloodFill covers polygon with length-precision geohashes by
// breadth-first expansion from the cell containing polygon's first vertex:
// a cell is accepted when its rectangle intersects the polygon, and its
// unvisited neighbors are queued in turn. If the starting cell alone
// encloses the polygon's bounding box, it is returned on its own.
func CoverPolygonFloodFill(polygon types.Polygon, precision int) ([]string, error) {
	if err := validateCoverArgs(polygon, precision); err != nil {
		return nil, err
	}

	gridPoly := projectPolygon(polygon)
	bbox := RangeToGridRect(polygon.BoundingBox())
	start := Encode(polygon[0].Lat, polygon[0].Lon, precision)

	result := make(map[string]struct{})
	visited := make(map[string]struct{})
	enqueued := map[string]struct{}{start: {}}
	queue := []string{start}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, done := visited[h]; done {
			continue
		}
		visited[h] = struct{}{}

		box, err := Decode(h)
		if err != nil {
			return nil, err
		}
		rect := RangeToGridRect(box)

		if h == start && rect.Contains(bbox) {
			return []string{h}, nil
		}

		if !polygonIntersectsRect(gridPoly, rect) {
			continue
		}
		result[h] = struct{}{}

		neighbors, err := Neighbors(h)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if _, seen := visited[nb]; seen {
				continue
			}
			if _, pending := enqueued[nb]; pending {
				continue
			}
			enqueued[nb] = struct{}{}
			queue = append(queue, nb)
		}
	}

	out := make([]string, 0, len(result))
	for h := range result {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// BinaryHash is a raw geohash bitstring ('0'/'1' characters, MSB-first),
// not necessarily aligned to a 5-bit character boundary. Prefix refinement
// produces these directly; pad them to a character boundary with
// padToPrecision before treating them as base32 geohashes.
type BinaryHash string

// Range decodes the rectangle a bit prefix denotes; the empty prefix
// denotes the whole coordinate space.
func (b BinaryHash) Range() (types.SpatialRange, error) {
	bits := make([]bool, len(b))
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '0':
			bits[i] = false
		case '1':
			bits[i] = true
		default:
			return types.SpatialRange{}, fmt.Errorf("geohash: invalid bit %q: %w", b[i], errs.ErrValidation)
		}
	}
	lonLo, lonHi := decodeAxis(bits, 0)
	latLo, latHi := decodeAxis(bits, 1)
	return types.SpatialRange{LatLo: latLo, LatHi: latHi, LonLo: lonLo, LonHi: lonHi}, nil
}

// padToPrecision right-pads a bit prefix with zero bits to the next
// 5-bit boundary and renders it as a base32 geohash string, mirroring how
// the reference implementation derives a single representative hash from a
// coarser prefix cell (its "begin" hash, biased to the cell's low corner).
func padToPrecision(b BinaryHash) string {
	rem := len(b) % BitsPerChar
	padded := []byte(b)
	if rem != 0 {
		for i := 0; i < BitsPerChar-rem; i++ {
			padded = append(padded, '0')
		}
	}
	buf := make([]byte, len(padded)/BitsPerChar)
	for c := range buf {
		var v uint8
		for bit := 0; bit < BitsPerChar; bit++ {
			v <<= 1
			if padded[c*BitsPerChar+bit] == '1' {
				v |= 1
			}
		}
		buf[c] = alphabet[v]
	}
	return string(buf)
}

// CoverPolygonPrefix covers polygon by recursive bit-prefix refinement: a
// prefix is accepted once its cell is fully contained by the polygon, or
// once it reaches precision*BitsPerChar bits; otherwise it is split into
// its '0' and '1' children and each child that still intersects the
// polygon is refined further. This produces variable-length prefixes and
// typically far fewer cells than flood-fill for sparse or very large
// polygons, at the cost of a geohash string that is not always full
// precision.
func CoverPolygonPrefix(polygon types.Polygon, precision int) ([]BinaryHash, error) {
	if err := validateCoverArgs(polygon, precision); err != nil {
		return nil, err
	}

	gridPoly := projectPolygon(polygon)
	maxBits := precision * BitsPerChar

	var out []BinaryHash
	var recurse func(prefix BinaryHash) error
	recurse = func(prefix BinaryHash) error {
		box, err := prefix.Range()
		if err != nil {
			return err
		}
		rect := RangeToGridRect(box)

		if len(prefix) >= maxBits || polygonContainsRect(gridPoly, rect) {
			out = append(out, prefix)
			return nil
		}

		for _, bit := range [2]byte{'0', '1'} {
			child := prefix + BinaryHash(bit)
			childBox, err := child.Range()
			if err != nil {
				return err
			}
			if polygonIntersectsRect(gridPoly, RangeToGridRect(childBox)) {
				if err := recurse(child); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := recurse(""); err != nil {
		return nil, err
	}
	return out, nil
}

// floodFillAreaThreshold bounds the projected-grid area (in GridWidth^2
// units) above which CoverPolygon prefers prefix refinement: large or
// sparse polygons would otherwise enqueue and test a very large number of
// fixed-precision cells one at a time.
const floodFillAreaThreshold = int64(GridWidth) * int64(GridWidth) / 64

// CoverPolygon covers polygon with length-precision geohashes, choosing
// flood-fill for small-to-moderate polygons and prefix refinement (each
// result expanded out to full precision) once the polygon's bounding box
// exceeds floodFillAreaThreshold, per the resolution of the spec's
// algorithm-choice question.
func CoverPolygon(polygon types.Polygon, precision int) ([]string, error) {
	if err := validateCoverArgs(polygon, precision); err != nil {
		return nil, err
	}

	bbox := RangeToGridRect(polygon.BoundingBox())
	area := (bbox.XHi - bbox.XLo) * (bbox.YHi - bbox.YLo)
	if area <= floodFillAreaThreshold {
		return CoverPolygonFloodFill(polygon, precision)
	}

	prefixes, err := CoverPolygonPrefix(polygon, precision)
	if err != nil {
		return nil, err
	}

	maxBits := precision * BitsPerChar
	result := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		for _, h := range expandPrefix(p, maxBits) {
			result[h] = struct{}{}
		}
	}
	out := make([]string, 0, len(result))
	for h := range result {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// expandPrefix enumerates every length-targetBits descendant of prefix and
// renders each as a base32 geohash.
func expandPrefix(prefix BinaryHash, targetBits int) []string {
	remaining := targetBits - len(prefix)
	if remaining <= 0 {
		return []string{padToPrecision(prefix)}
	}
	leaves := []BinaryHash{prefix}
	for i := 0; i < remaining; i++ {
		next := make([]BinaryHash, 0, len(leaves)*2)
		for _, l := range leaves {
			next = append(next, l+"0", l+"1")
		}
		leaves = next
	}
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = padToPrecision(l)
	}
	return out
}
