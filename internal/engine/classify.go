package engine

import (
	"github.com/opsleuth/opsleuth/internal/evidence"
	"github.com/opsleuth/opsleuth/internal/retrieval"
)

// Classification buckets the combined retrieval outcome into the small
// taxonomy that drives the correlation engine's decision table.
type Classification string

const (
	// ClassBackendUnsupported: both capabilities failed with the
	// unsupported-resource signal; the backend cannot serve this system.
	ClassBackendUnsupported Classification = "backend_unsupported"
	// ClassPartialUnsupported: nothing came back and at least one failure
	// carried the unsupported-resource signal.
	ClassPartialUnsupported Classification = "partial_unsupported"
	// ClassNoData: both capabilities produced no results with no
	// unsupported-resource signal.
	ClassNoData Classification = "no_data"
	// ClassHasData: at least one capability returned non-empty results.
	ClassHasData Classification = "has_data"
)

// Classify assigns a failure classification from the collected outcomes.
// The rules are evaluated in priority order: backend-unsupported fires only
// when both retrieval paths are equally degraded, so a restricted analytical
// path alone never reads as a fully unusable backend.
func Classify(col *evidence.Collection) Classification {
	searchUnsupported := retrieval.IsUnsupportedResource(col.SearchErr)
	aggUnsupported := retrieval.IsUnsupportedResource(col.AggregationErr)

	noSearch := col.SearchAbsent() || col.Search.Empty()
	noAgg := col.AggregationAbsent() || col.Aggregation.Empty()

	switch {
	case searchUnsupported && aggUnsupported:
		return ClassBackendUnsupported
	case noSearch && noAgg && (searchUnsupported || aggUnsupported):
		return ClassPartialUnsupported
	case noSearch && noAgg:
		return ClassNoData
	default:
		return ClassHasData
	}
}
