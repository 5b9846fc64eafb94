package geohash

import "geofabric/pkg/types"

// GridWidth is the side length of the integer projection plane used for
// floating-point-free polygon/rectangle intersection tests.
const GridWidth = 1 << 30

// GridPoint is a coordinate projected onto the integer plane.
type GridPoint struct {
	X, Y int64
}

// ToGrid projects a coordinate onto the integer plane: x runs west to east
// over [0, GridWidth], y runs north to south over [0, GridWidth].
func ToGrid(c types.Coordinates) GridPoint {
	x := int64((c.Lon + 180) * GridWidth / 360)
	y := int64((90 - c.Lat) * GridWidth / 180)
	return GridPoint{X: x, Y: y}
}

// GridRect is an axis-aligned rectangle on the integer plane.
type GridRect struct {
	XLo, XHi, YLo, YHi int64
}

// RangeToGridRect projects a SpatialRange onto the integer plane.
func RangeToGridRect(r types.SpatialRange) GridRect {
	upperLeft := ToGrid(types.Coordinates{Lat: r.LatHi, Lon: r.LonLo})
	lowerRight := ToGrid(types.Coordinates{Lat: r.LatLo, Lon: r.LonHi})
	return GridRect{XLo: upperLeft.X, XHi: lowerRight.X, YLo: upperLeft.Y, YHi: lowerRight.Y}
}

// Intersects reports whether r and o overlap, including touching edges.
func (r GridRect) Intersects(o GridRect) bool {
	if r.XHi < o.XLo || r.XLo > o.XHi {
		return false
	}
	if r.YHi < o.YLo || r.YLo > o.YHi {
		return false
	}
	return true
}

// Contains reports whether r fully encloses o.
func (r GridRect) Contains(o GridRect) bool {
	return o.XLo >= r.XLo && o.XHi <= r.XHi && o.YLo >= r.YLo && o.YHi <= r.YHi
}

func (r GridRect) corners() [4]GridPoint {
	return [4]GridPoint{
		{r.XLo, r.YLo},
		{r.XHi, r.YLo},
		{r.XHi, r.YHi},
		{r.XLo, r.YHi},
	}
}

func (r GridRect) edges() [4][2]GridPoint {
	c := r.corners()
	return [4][2]GridPoint{
		{c[0], c[1]},
		{c[1], c[2]},
		{c[2], c[3]},
		{c[3], c[0]},
	}
}
