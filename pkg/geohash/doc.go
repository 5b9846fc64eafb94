// Package geohash implements the bit-level geohash algorithm this fabric
// indexes and partitions by: encode/decode, hashToLong, the eight-direction
// neighbor lookup, and two polygon cover algorithms (fixed-precision
// flood-fill and variable-length prefix refinement). Bit semantics are
// ported from the reference GeoHash implementation this system's spec was
// distilled from, including its tie-break rule: bisection uses strict '>'
// for the high branch, so a point exactly on a cell boundary belongs to the
// cell to the south/west.
package geohash
