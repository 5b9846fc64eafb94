package geohash

import (
	"testing"

	"geofabric/pkg/types"
)

func TestEncodeVector(t *testing.T) {
	got := Encode(40.7128, -74.0060, 8)
	want := "dr5regw3"
	if got != want {
		t.Fatalf("Encode(40.7128,-74.0060,8) = %q, want %q", got, want)
	}
}

func TestDecodeVector(t *testing.T) {
	box, err := Decode("9q")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	const eps = 1e-6
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"LatLo", box.LatLo, 33.75},
		{"LatHi", box.LatHi, 39.375},
		{"LonLo", box.LonLo, -123.75},
		{"LonHi", box.LonHi, -112.5},
	}
	for _, c := range checks {
		if diff := c.got - c.want; diff < -eps || diff > eps {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNeighborsVector(t *testing.T) {
	n, err := Neighbors("dr5r")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if n[E] != "dr5x" {
		t.Errorf("east neighbor of dr5r = %q, want dr5x", n[E])
	}
	if n[S] != "dr5q" {
		t.Errorf("south neighbor of dr5r = %q, want dr5q", n[S])
	}
}

func TestEncodeRoundTripContainment(t *testing.T) {
	points := []types.Coordinates{
		{Lat: 40.7486, Lon: -73.9864},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 0, Lon: 0},
		{Lat: 89.9, Lon: 179.9},
		{Lat: -89.9, Lon: -179.9},
	}
	for _, p := range points {
		for precision := 1; precision <= MaxPrecision; precision++ {
			h := Encode(p.Lat, p.Lon, precision)
			box, err := Decode(h)
			if err != nil {
				t.Fatalf("Decode(%q): %v", h, err)
			}
			if !box.Contains(p) {
				t.Errorf("precision %d: decoded box %+v does not contain %+v (hash %q)", precision, box, p, h)
			}
		}
	}
}

func TestHashToLongOrderPreserving(t *testing.T) {
	hashes := []string{"0", "7", "b", "h", "z", "dr5regw3", "dr5regw3xy"}
	longs := make([]uint64, len(hashes))
	for i, h := range hashes {
		v, err := HashToLong(h)
		if err != nil {
			t.Fatalf("HashToLong(%q): %v", h, err)
		}
		longs[i] = v
	}
	for i := 1; i < len(hashes); i++ {
		if longs[i] <= longs[i-1] {
			t.Errorf("HashToLong not increasing: %q=%d, %q=%d", hashes[i-1], longs[i-1], hashes[i], longs[i])
		}
	}

	long, err := HashToLong("dr5regw3xyzzz")
	if err != nil {
		t.Fatalf("HashToLong: %v", err)
	}
	truncated, err := HashToLong("dr5regw3xyzz")
	if err != nil {
		t.Fatalf("HashToLong: %v", err)
	}
	if long != truncated {
		t.Errorf("HashToLong should truncate beyond MaxPrecision: got %d, want %d", long, truncated)
	}
}

func TestNeighborOppositeInvolution(t *testing.T) {
	start := Encode(40.7486, -73.9864, 6)
	for d := Direction(0); d < 8; d++ {
		moved, err := Neighbor(start, d)
		if err != nil {
			t.Fatalf("Neighbor: %v", err)
		}
		back, err := Neighbor(moved, d.Opposite())
		if err != nil {
			t.Fatalf("Neighbor: %v", err)
		}
		if back != start {
			t.Errorf("direction %v: Neighbor(Neighbor(h,d),d.Opposite()) = %q, want %q", d, back, start)
		}
	}
}

func TestCoverPolygonFloodFillCoversAndIntersects(t *testing.T) {
	polygon := types.Polygon{
		{Lat: 40.70, Lon: -74.02},
		{Lat: 40.70, Lon: -73.95},
		{Lat: 40.76, Lon: -73.95},
		{Lat: 40.76, Lon: -74.02},
	}
	hashes, err := CoverPolygonFloodFill(polygon, 6)
	if err != nil {
		t.Fatalf("CoverPolygonFloodFill: %v", err)
	}
	if len(hashes) == 0 {
		t.Fatal("CoverPolygonFloodFill returned no cells")
	}
	gridPoly := projectPolygon(polygon)
	for _, h := range hashes {
		if len(h) != 6 {
			t.Errorf("hash %q has length %d, want 6", h, len(h))
		}
		box, err := Decode(h)
		if err != nil {
			t.Fatalf("Decode(%q): %v", h, err)
		}
		if !polygonIntersectsRect(gridPoly, RangeToGridRect(box)) {
			t.Errorf("hash %q does not intersect the polygon", h)
		}
	}
}

func TestCoverPolygonPrefixContainment(t *testing.T) {
	polygon := types.Polygon{
		{Lat: 40.70, Lon: -74.02},
		{Lat: 40.70, Lon: -73.95},
		{Lat: 40.76, Lon: -73.95},
		{Lat: 40.76, Lon: -74.02},
	}
	prefixes, err := CoverPolygonPrefix(polygon, 6)
	if err != nil {
		t.Fatalf("CoverPolygonPrefix: %v", err)
	}
	if len(prefixes) == 0 {
		t.Fatal("CoverPolygonPrefix returned no prefixes")
	}
	gridPoly := projectPolygon(polygon)
	for _, p := range prefixes {
		if len(p) > 6*BitsPerChar {
			t.Errorf("prefix %q exceeds max bit length", p)
		}
		box, err := p.Range()
		if err != nil {
			t.Fatalf("Range(%q): %v", p, err)
		}
		if !polygonIntersectsRect(gridPoly, RangeToGridRect(box)) {
			t.Errorf("prefix %q does not intersect the polygon", p)
		}
	}
}
