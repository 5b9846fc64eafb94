package geohash

// pointInPolygon is the standard ray-casting test, done in integer grid
// coordinates so no epsilon is needed.
func pointInPolygon(p GridPoint, poly []GridPoint) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func sign(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func cross(o, a, b GridPoint) int64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(a, b, p GridPoint) bool {
	return min64(a.X, b.X) <= p.X && p.X <= max64(a.X, b.X) &&
		min64(a.Y, b.Y) <= p.Y && p.Y <= max64(a.Y, b.Y)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// segmentsIntersect is the standard orientation-based test, including the
// collinear-overlap special cases.
func segmentsIntersect(a1, a2, b1, b2 GridPoint) bool {
	d1 := sign(cross(b1, b2, a1))
	d2 := sign(cross(b1, b2, a2))
	d3 := sign(cross(a1, a2, b1))
	d4 := sign(cross(a1, a2, b2))

	if d1 != d2 && d3 != d4 {
		return true
	}
	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	return false
}

// polygonIntersectsRect reports whether poly and rect share any area or
// boundary: a polygon vertex falls inside rect, a rect corner falls inside
// poly, or an edge of one crosses an edge of the other.
func polygonIntersectsRect(poly []GridPoint, rect GridRect) bool {
	for _, p := range poly {
		if p.X >= rect.XLo && p.X <= rect.XHi && p.Y >= rect.YLo && p.Y <= rect.YHi {
			return true
		}
	}
	corners := rect.corners()
	for _, c := range corners {
		if pointInPolygon(c, poly) {
			return true
		}
	}
	edges := rect.edges()
	n := len(poly)
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		for _, re := range edges {
			if segmentsIntersect(a, b, re[0], re[1]) {
				return true
			}
		}
	}
	return false
}

// polygonContainsRect reports whether rect lies entirely within poly: every
// corner is interior and no polygon edge crosses into the rectangle.
func polygonContainsRect(poly []GridPoint, rect GridRect) bool {
	for _, c := range rect.corners() {
		if !pointInPolygon(c, poly) {
			return false
		}
	}
	edges := rect.edges()
	n := len(poly)
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		for _, re := range edges {
			if segmentsIntersect(a, b, re[0], re[1]) {
				return false
			}
		}
	}
	return true
}
