package geohash

import "geofabric/pkg/types"

// Direction names one of the eight cells surrounding a geohash cell.
// Constants are ordered so that Opposite is a simple reflection: NW/SE,
// N/S, NE/SW, W/E each sum to 7.
type Direction int

const (
	NW Direction = iota
	N
	NE
	W
	E
	SW
	S
	SE
)

// Opposite returns the direction that undoes d: Neighbor(Neighbor(h, d),
// d.Opposite()) reproduces h.
func (d Direction) Opposite() Direction { return 7 - d }

func (d Direction) String() string {
	switch d {
	case NW:
		return "NW"
	case N:
		return "N"
	case NE:
		return "NE"
	case W:
		return "W"
	case E:
		return "E"
	case SW:
		return "SW"
	case S:
		return "S"
	case SE:
		return "SE"
	default:
		return "?"
	}
}

// neighborPoint returns a coordinate guaranteed to fall in the cell adjacent
// to box in direction dir: the cell's own center, shifted by one full
// cell-width/height in the bisection that changed.
func neighborPoint(box types.SpatialRange, dir Direction) (lat, lon float64) {
	center := box.Center()
	widthDiff := box.LonHi - center.Lon
	heightDiff := box.LatHi - center.Lat

	switch dir {
	case NW:
		return box.LatHi + heightDiff, box.LonLo - widthDiff
	case N:
		return box.LatHi + heightDiff, center.Lon
	case NE:
		return box.LatHi + heightDiff, box.LonHi + widthDiff
	case W:
		return center.Lat, box.LonLo - widthDiff
	case E:
		return center.Lat, box.LonHi + widthDiff
	case SW:
		return box.LatLo - heightDiff, box.LonLo - widthDiff
	case S:
		return box.LatLo - heightDiff, center.Lon
	case SE:
		return box.LatLo - heightDiff, box.LonHi + widthDiff
	default:
		return center.Lat, center.Lon
	}
}

// Neighbor returns the geohash, at the same precision as hash, of the cell
// adjacent to hash in direction dir.
func Neighbor(hash string, dir Direction) (string, error) {
	box, err := Decode(hash)
	if err != nil {
		return "", err
	}
	lat, lon := neighborPoint(box, dir)
	return Encode(lat, lon, len(hash)), nil
}

// Neighbors returns all eight adjacent cells, indexed by Direction.
func Neighbors(hash string) ([8]string, error) {
	var out [8]string
	box, err := Decode(hash)
	if err != nil {
		return out, err
	}
	for d := Direction(0); d < 8; d++ {
		lat, lon := neighborPoint(box, d)
		out[d] = Encode(lat, lon, len(hash))
	}
	return out, nil
}
