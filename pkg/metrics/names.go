package metrics

// Metric names emitted by a storage node. Kept centralized so handlers and
// tests agree on spelling.
const (
	RequestsTotal        = "geofabric_requests_total"       // labels: kind
	QueryFanoutSeconds   = "geofabric_query_fanout_seconds"  // labels: kind
	CoordinatorsInFlight = "geofabric_coordinators_in_flight"
	BlocksAppendedTotal  = "geofabric_blocks_appended_total" // labels: filesystem
	BlocksScannedTotal   = "geofabric_blocks_scanned_total"  // labels: filesystem
)

// NoopCollector discards every observation. Useful where a Collector is
// required but metrics are not under test.
type NoopCollector struct{}

func (NoopCollector) IncCounter(name string, labels map[string]string, delta float64)        {}
func (NoopCollector) SetGauge(name string, labels map[string]string, value float64)          {}
func (NoopCollector) ObserveHistogram(name string, labels map[string]string, value float64) {}
