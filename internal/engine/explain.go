package engine

import (
	"fmt"
	"strings"

	"github.com/opsleuth/opsleuth/internal/evidence"
)

// Explain builds the human-readable account of what the pipeline did,
// independent of the correlation verdict text: the window analyzed, both
// capability invocations, and per-capability result counts. Pure function.
func Explain(cls Classification, col *evidence.Collection, timeRangeMinutes int) string {
	parts := []string{
		fmt.Sprintf("Analyzed the query over the last %d minutes.", timeRangeMinutes),
		"Searched the log indices for relevant events.",
		"Ran the error-count-by-host aggregation over the same indices.",
	}

	if !col.SearchAbsent() {
		parts = append(parts, fmt.Sprintf("Search retrieved %d documents; citations are included.", col.Search.Total))
	}
	if !col.AggregationAbsent() {
		parts = append(parts, fmt.Sprintf("The aggregation returned %d rows.", len(col.Aggregation.Rows)))
	}

	switch cls {
	case ClassBackendUnsupported:
		parts = append(parts, backendUnsupportedGuidance)
	case ClassPartialUnsupported:
		parts = append(parts, partialUnsupportedGuidance)
	default:
		parts = append(parts, "Correlation and root-cause hypothesis are based on these results.")
	}

	return strings.Join(parts, " ")
}
