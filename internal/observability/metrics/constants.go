// Package metrics provides the Prometheus collectors for the survey service.
package metrics

// Histogram bucket layouts shared across collectors.
const (
	// BucketStart1ms is the first bucket for latency histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount15 covers 1ms to ~16s.
	BucketCount15 = 15
	// BucketCount10 covers 1ms to ~0.5s.
	BucketCount10 = 10
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Import operation names.
const (
	OpImportBatch = "import_batch"
	OpImportRow   = "import_row"
	OpImportFetch = "import_fetch"
)

// Report client operation names.
const (
	OpFetchPage      = "fetch_page"
	OpFetchLocations = "fetch_locations"
)
