// Package blockstore is the default registry.Handle: an append-only store
// that fans blocks out across one JSON-lines file per coarse geohash
// bucket, so a query only has to scan the buckets its region touches
// instead of the whole filesystem. Append/flush/sync shape is grounded on
// pkg/wal.WAL; each bucket file plays the role wal.log plays there.
package blockstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"geofabric/pkg/errs"
	"geofabric/pkg/geohash"
	"geofabric/pkg/registry"
	"geofabric/pkg/types"
)

// bucketPrecision is the geohash character length files are named by. It
// is independent of a filesystem's own spatial precision: a handful of
// coarse buckets is enough to narrow a query down before the exact
// polygon/temporal filter runs in memory.
const bucketPrecision = 4

// Store is a registry.Handle backed by one append-only file per bucket.
type Store struct {
	dir        string
	descriptor types.FilesystemDescriptor

	mu      sync.Mutex
	writers map[string]*bufio.Writer
	files   map[string]*os.File
}

// Open is a Factory suitable for registry.New: each call opens (or
// creates) a Store rooted at dir.
func Open(dir string, descriptor types.FilesystemDescriptor) (registry.Handle, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("blockstore: create dir %s: %w", dir, errs.ErrIO)
	}
	return &Store{
		dir:        dir,
		descriptor: descriptor,
		writers:    make(map[string]*bufio.Writer),
		files:      make(map[string]*os.File),
	}, nil
}

func bucketOf(spatial types.Polygon, precision int) (string, error) {
	center := spatial.BoundingBox().Center()
	hash := geohash.Encode(center.Lat, center.Lon, precision)
	return hash, nil
}

func (s *Store) bucketPath(bucket string) string {
	return filepath.Join(s.dir, bucket+".jsonl")
}

func (s *Store) writerFor(bucket string) (*bufio.Writer, error) {
	if w, ok := s.writers[bucket]; ok {
		return w, nil
	}
	f, err := os.OpenFile(s.bucketPath(bucket), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open bucket %s: %w", bucket, errs.ErrIO)
	}
	w := bufio.NewWriter(f)
	s.files[bucket] = f
	s.writers[bucket] = w
	return w, nil
}

// Append writes block to the bucket file its spatial center falls into.
func (s *Store) Append(block types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := defaultBucketHash
	if block.Metadata.HasSpatial && len(block.Metadata.Spatial) > 0 {
		b, err := bucketOf(block.Metadata.Spatial, bucketPrecision)
		if err != nil {
			return fmt.Errorf("blockstore: %w", err)
		}
		bucket = b
	}

	w, err := s.writerFor(bucket)
	if err != nil {
		return err
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("blockstore: marshal block: %w", errs.ErrSerialization)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("blockstore: write block: %w", errs.ErrIO)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("blockstore: write block: %w", errs.ErrIO)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("blockstore: flush bucket %s: %w", bucket, errs.ErrIO)
	}
	return s.files[bucket].Sync()
}

// defaultBucketHash is the file a block with no spatial component lands
// in: temporal- or feature-only filesystems still need somewhere to live.
const defaultBucketHash = "_"

// Query scans every bucket that could hold a match for region/temporal and
// returns the blocks that actually satisfy both filters. A nil region
// matches every bucket; a nil temporal skips the timestamp filter.
func (s *Store) Query(region types.Polygon, temporal *types.TimestampMs) ([]types.Block, error) {
	s.mu.Lock()
	for bucket, w := range s.writers {
		if err := w.Flush(); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("blockstore: flush bucket %s before query: %w", bucket, errs.ErrIO)
		}
	}
	s.mu.Unlock()

	buckets, err := s.candidateBuckets(region)
	if err != nil {
		return nil, err
	}

	var out []types.Block
	for _, bucket := range buckets {
		blocks, err := s.scanBucket(bucket)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			if !matches(b, region, temporal, s.descriptor.TemporalType) {
				continue
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) candidateBuckets(region types.Polygon) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("blockstore: list buckets: %w", errs.ErrIO)
	}
	var buckets []string
	for _, e := range entries {
		name := e.Name()
		const suffix = ".jsonl"
		if e.IsDir() || len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		buckets = append(buckets, name[:len(name)-len(suffix)])
	}
	if region == nil {
		return buckets, nil
	}

	hashes, err := geohash.CoverPolygon(region, bucketPrecision)
	if err != nil {
		return buckets, nil // fall back to a full scan if the region can't be covered
	}
	wanted := make(map[string]struct{}, len(hashes)+1)
	for _, h := range hashes {
		wanted[h] = struct{}{}
	}
	wanted[defaultBucketHash] = struct{}{}

	filtered := buckets[:0]
	for _, b := range buckets {
		if _, ok := wanted[b]; ok {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

func (s *Store) scanBucket(bucket string) ([]types.Block, error) {
	f, err := os.Open(s.bucketPath(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("blockstore: open bucket %s: %w", bucket, errs.ErrIO)
	}
	defer f.Close()

	var out []types.Block
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var b types.Block
		if err := json.Unmarshal(scanner.Bytes(), &b); err != nil {
			return nil, fmt.Errorf("blockstore: parse bucket %s: %w", bucket, errs.ErrSerialization)
		}
		out = append(out, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("blockstore: read bucket %s: %w", bucket, errs.ErrIO)
	}
	return out, nil
}

// matches reports whether b falls in region and shares temporal's bucket at
// granularity gran. Two timestamps match if truncating both to the
// filesystem's TemporalType lands on the same instant — a block stored at
// 14:07 on an HOUR filesystem matches a query for any other timestamp
// within that same hour, not only an exact millisecond match.
func matches(b types.Block, region types.Polygon, temporal *types.TimestampMs, gran types.TemporalType) bool {
	if region != nil {
		if !b.Metadata.HasSpatial {
			return false
		}
		bbox := b.Metadata.Spatial.BoundingBox()
		if !bbox.Intersects(region.BoundingBox()) {
			return false
		}
	}
	if temporal != nil {
		if !b.Metadata.HasTimestamp {
			return false
		}
		if !gran.Truncate(b.Metadata.Timestamp.Time()).Equal(gran.Truncate(temporal.Time())) {
			return false
		}
	}
	return true
}

// Close flushes and closes every open bucket file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for bucket, w := range s.writers {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("blockstore: flush bucket %s on close: %w", bucket, errs.ErrIO)
		}
		if err := s.files[bucket].Close(); err != nil {
			return fmt.Errorf("blockstore: close bucket %s: %w", bucket, errs.ErrIO)
		}
	}
	return nil
}
