// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation constants recorded by the provider clients and the resolution service.
const (
	// OpTaxaSearch is a name search against the taxonomy provider.
	OpTaxaSearch = "taxa_search"
	// OpTaxaGet is a taxon lookup by external id.
	OpTaxaGet = "taxa_get"
	// OpScoreImage is a computer-vision scoring request.
	OpScoreImage = "score_image"
	// OpCacheGet represents cache get operations.
	OpCacheGet = "cache_get"
	// OpFind is a combined local and external species find.
	OpFind = "find"
	// OpImport is a species import by external taxon id.
	OpImport = "import"
	// OpIdentify is an end-to-end photo identification.
	OpIdentify = "identify"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusHit      = "hit"
	StatusMiss     = "miss"

	// Find result sources
	SourceLocal    = "local"
	SourceExternal = "external"

	// Import outcomes
	ImportExisting = "existing"
	ImportCreated  = "imported"
	ImportRaced    = "raced"

	// Identification failure stages
	IdentifyRejected = "rejected"
	IdentifyFailed   = "failed"
)

// Provider label values.
const (
	ProviderINaturalist = "inaturalist"
	ProviderVision      = "vision"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
