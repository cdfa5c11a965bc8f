package engine

import (
	"fmt"
	"strings"

	"github.com/opsleuth/opsleuth/internal/evidence"
	"github.com/opsleuth/opsleuth/internal/models"
)

const (
	// rootCausePrefix opens every data-backed root-cause statement.
	rootCausePrefix = "Based on search and analytical results: "
	// rootCauseLimit truncates the root-cause statement.
	rootCauseLimit = 300
)

// Remediation guidance shared between the correlation verdicts and the
// explanation builder.
const (
	backendUnsupportedGuidance = "This deployment or API does not support the operations the analysis needs. Use a classic Elasticsearch deployment or local Docker with full Search and ES|QL support."
	partialUnsupportedGuidance = "Verify the log index pattern and time range match your data. For full search and analytical support, use a classic Elasticsearch deployment rather than serverless."
)

// Verdict is the correlation engine's output: the hypothesis text and its
// confidence level.
type Verdict struct {
	Summary    string
	RootCause  string
	Confidence models.Confidence
}

// Correlate derives the incident hypothesis from the collected outcomes and
// their classification. It is a pure function: same inputs, byte-identical
// output, no collaborator calls, and it never emits a high confidence.
func Correlate(cls Classification, col *evidence.Collection, timeRangeMinutes int) Verdict {
	switch cls {
	case ClassBackendUnsupported:
		return Verdict{
			Summary:    "Elasticsearch returned an unsupported-resource error. No data was retrieved.",
			RootCause:  backendUnsupportedGuidance,
			Confidence: models.ConfidenceLow,
		}
	case ClassPartialUnsupported:
		return Verdict{
			Summary:    "No data found for the given time range. The analytical capability is not available on this deployment.",
			RootCause:  partialUnsupportedGuidance,
			Confidence: models.ConfidenceLow,
		}
	case ClassNoData:
		return Verdict{
			Summary:    "No data found for the given time range.",
			RootCause:  "Unable to determine root cause: no log or metric data matched the query. Verify the log index pattern and time range cover your data.",
			Confidence: models.ConfidenceLow,
		}
	default:
		summary := dataSummary(col, timeRangeMinutes)
		return Verdict{
			Summary:    summary,
			RootCause:  rootCausePrefix + truncateEllipsis(summary, rootCauseLimit),
			Confidence: dataConfidence(col),
		}
	}
}

// dataSummary concatenates the fixed summary parts in order: hit count and
// window, error presence, first-hit service, and the top host/count when the
// aggregation carries host.name and count columns.
func dataSummary(col *evidence.Collection, timeRangeMinutes int) string {
	parts := make([]string, 0, 4)

	if col.SearchHasData() {
		parts = append(parts, fmt.Sprintf("Found %d log events in the last %d minutes.", col.Search.Total, timeRangeMinutes))
		first := col.Search.Hits[0].Source
		if level, _ := first["log.level"].(string); level == "error" {
			parts = append(parts, "Errors are present in the logs.")
		}
		if svc := serviceName(first); svc != "" {
			parts = append(parts, fmt.Sprintf("Service '%s' appears in the result set.", svc))
		}
	} else {
		parts = append(parts, "No matching log events in the given time range.")
	}

	if col.AggregationHasData() {
		if host, count, ok := topHostCount(col); ok {
			parts = append(parts, fmt.Sprintf("Aggregation: highest error count by host is %v on '%v'.", count, host))
		}
	}

	return strings.Join(parts, " ")
}

func dataConfidence(col *evidence.Collection) models.Confidence {
	if col.SearchHasData() || col.AggregationHasData() {
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

// serviceName reads the first hit's service name from either the nested ECS
// form (service.name as an object) or the flattened key.
func serviceName(source map[string]any) string {
	if svc, ok := source["service"].(map[string]any); ok {
		if name, ok := svc["name"].(string); ok {
			return name
		}
	}
	if name, ok := source["service.name"].(string); ok {
		return name
	}
	return ""
}

// topHostCount returns the top row's host and count when the aggregation
// columns include host.name and count.
func topHostCount(col *evidence.Collection) (any, any, bool) {
	hostIdx, countIdx := -1, -1
	for i, name := range col.Aggregation.Columns {
		switch name {
		case "host.name":
			hostIdx = i
		case "count":
			countIdx = i
		}
	}
	if hostIdx < 0 || countIdx < 0 {
		return nil, nil, false
	}
	top := col.Aggregation.Rows[0]
	if hostIdx >= len(top) || countIdx >= len(top) {
		return nil, nil, false
	}
	return top[hostIdx], top[countIdx], true
}

// truncateEllipsis bounds s to limit characters, never splitting a rune.
func truncateEllipsis(s string, limit int) string {
	runes := []rune(s)
	if len(runes) < limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
