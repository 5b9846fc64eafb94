// Package types holds the data model shared by every component of the
// fabric: coordinates, geohash-adjacent ranges, the typed feature variant,
// and the block/metadata/filesystem shapes that flow between them.
package types

import "time"

// TimestampMs is a millisecond-precision UTC epoch timestamp.
type TimestampMs int64

// Time converts a TimestampMs to a time.Time in UTC.
func (t TimestampMs) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Coordinates is a (latitude, longitude) pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SpatialRange is a rectangular region: latLo/latHi, lonLo/lonHi.
type SpatialRange struct {
	LatLo float64
	LatHi float64
	LonLo float64
	LonHi float64
}

// Center returns the midpoint of the range.
func (r SpatialRange) Center() Coordinates {
	return Coordinates{
		Lat: (r.LatLo + r.LatHi) / 2,
		Lon: (r.LonLo + r.LonHi) / 2,
	}
}

// Contains reports whether c falls within the range, inclusive of bounds.
func (r SpatialRange) Contains(c Coordinates) bool {
	return c.Lat >= r.LatLo && c.Lat <= r.LatHi && c.Lon >= r.LonLo && c.Lon <= r.LonHi
}

// ContainsRange reports whether r fully encloses other.
func (r SpatialRange) ContainsRange(other SpatialRange) bool {
	return other.LatLo >= r.LatLo && other.LatHi <= r.LatHi &&
		other.LonLo >= r.LonLo && other.LonHi <= r.LonHi
}

// Intersects reports whether the two rectangles overlap.
func (r SpatialRange) Intersects(other SpatialRange) bool {
	if r.LatHi < other.LatLo || r.LatLo > other.LatHi {
		return false
	}
	if r.LonHi < other.LonLo || r.LonLo > other.LonHi {
		return false
	}
	return true
}

// BoundingBox returns r unchanged, so a range can be used wherever a
// bounding box is expected.
func (r SpatialRange) BoundingBox() SpatialRange { return r }

// Polygon is an ordered list of vertices; the last vertex implicitly
// connects back to the first.
type Polygon []Coordinates

// BoundingBox returns the axis-aligned rectangle enclosing the polygon.
func (p Polygon) BoundingBox() SpatialRange {
	if len(p) == 0 {
		return SpatialRange{}
	}
	box := SpatialRange{LatLo: p[0].Lat, LatHi: p[0].Lat, LonLo: p[0].Lon, LonHi: p[0].Lon}
	for _, c := range p[1:] {
		if c.Lat < box.LatLo {
			box.LatLo = c.Lat
		}
		if c.Lat > box.LatHi {
			box.LatHi = c.Lat
		}
		if c.Lon < box.LonLo {
			box.LonLo = c.Lon
		}
		if c.Lon > box.LonHi {
			box.LonHi = c.Lon
		}
	}
	return box
}

// TemporalType is the granularity a filesystem buckets records by.
type TemporalType int

const (
	Hour TemporalType = iota
	Day
	Month
	Year
)

func (t TemporalType) String() string {
	switch t {
	case Hour:
		return "HOUR"
	case Day:
		return "DAY"
	case Month:
		return "MONTH"
	case Year:
		return "YEAR"
	default:
		return "UNKNOWN"
	}
}

// Truncate zeroes out the components finer than t, in UTC, per spec:
// second/minute/hour -> 0 for DAY; additionally day -> 1 for MONTH;
// additionally month -> January for YEAR.
func (t TemporalType) Truncate(ts time.Time) time.Time {
	ts = ts.UTC()
	switch t {
	case Hour:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
	case Day:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(ts.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return ts
	}
}

// FeatureKind tags the dynamic type carried by a FeatureValue.
type FeatureKind uint8

const (
	KindInt FeatureKind = iota
	KindLong
	KindFloat
	KindDouble
	KindString
	KindBytes
)

// NodeInfo identifies one storage node by hostname and port.
type NodeInfo struct {
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
}

// Addr renders the node as a dial-able "host:port" string.
func (n NodeInfo) Addr() string {
	return n.Hostname + ":" + itoa(n.Port)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// FeatureSpec names and types one column of a filesystem's feature schema.
type FeatureSpec struct {
	Name string      `json:"name"`
	Type FeatureKind `json:"type"`
}

// SpatialHint names the feature columns a filesystem treats as lat/lon when
// records carry spatial data out-of-band from the dedicated Spatial field.
type SpatialHint struct {
	LatName string `json:"lat_name"`
	LonName string `json:"lon_name"`
}

// FilesystemDescriptor is the persisted configuration of one named logical
// filesystem.
type FilesystemDescriptor struct {
	Name             string        `json:"name"`
	SpatialPrecision int           `json:"spatial_precision"`
	TemporalType     TemporalType  `json:"temporal_type"`
	NodesPerGroup    int           `json:"nodes_per_group"`
	FeatureSchema    []FeatureSpec `json:"feature_schema,omitempty"`
	SpatialHint      SpatialHint   `json:"spatial_hint"`
}

// Feature is one named, typed value attached to a record.
type Feature struct {
	Name  string       `json:"name"`
	Value FeatureValue `json:"value"`
}

// Metadata describes one record: when and where it happened, and what
// feature values it carries. Spatial may be a point (wrapped in a
// single-vertex Polygon) or an arbitrary polygon; either may be nil for a
// purely temporal or purely feature-based query.
type Metadata struct {
	HasTimestamp bool        `json:"has_timestamp"`
	Timestamp    TimestampMs `json:"timestamp,omitempty"`

	HasSpatial bool    `json:"has_spatial"`
	Spatial    Polygon `json:"spatial,omitempty"`

	Features []Feature `json:"features,omitempty"`
}

// Point returns the metadata's spatial field as a single coordinate when it
// denotes a point (a one-vertex polygon), and false otherwise.
func (m Metadata) Point() (Coordinates, bool) {
	if !m.HasSpatial || len(m.Spatial) != 1 {
		return Coordinates{}, false
	}
	return m.Spatial[0], true
}

// Block is one unit of ingestion: a named filesystem, its metadata, and an
// opaque payload the core never interprets.
type Block struct {
	Filesystem string   `json:"filesystem"`
	Metadata   Metadata `json:"metadata"`
	Payload    []byte   `json:"payload,omitempty"`
}
