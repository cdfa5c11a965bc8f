package retrieval

import (
	"context"
	"errors"
)

// ErrUnsupportedResource signals that the backend rejected the operation class
// entirely (for example a serverless deployment answering 404 for ES|QL), as
// opposed to finding no matching data or failing at the transport layer.
// Both Client implementations wrap their detection into this sentinel so the
// failure classifier never has to inspect error text.
var ErrUnsupportedResource = errors.New("backend does not support the requested resource")

// IsUnsupportedResource reports whether err carries the unsupported-resource signal.
func IsUnsupportedResource(err error) bool {
	return errors.Is(err, ErrUnsupportedResource)
}

// SearchParams describes a full-text/structured search over log indices.
type SearchParams struct {
	QueryText        string
	Service          string
	Severity         string
	TimeRangeMinutes int
	Size             int
}

// Hit is one ranked search result.
type Hit struct {
	Index  string
	ID     string
	Source map[string]any
}

// SearchResult holds ranked hits plus the backend-reported total.
type SearchResult struct {
	Hits  []Hit
	Total int
}

// Empty reports whether the search produced no usable hits. The reported
// total is deliberately ignored: a backend may count matches it does not
// return, and everything downstream works off the hits list.
func (r *SearchResult) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

// AggregationParams describes the analytical error-count-by-host query.
type AggregationParams struct {
	TimeRangeMinutes int
	Severity         string
}

// AggregationResult is a tabular result: named columns with positionally
// aligned rows.
type AggregationResult struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the aggregation succeeded but produced no rows.
func (r *AggregationResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Client is the retrieval port: two independent, individually failable query
// capabilities against the observability backend. The pipeline depends only
// on this interface; direct and remote implementations differ solely in how
// they extract error detail.
type Client interface {
	SearchLogs(ctx context.Context, params SearchParams) (*SearchResult, error)
	ErrorCountByHost(ctx context.Context, params AggregationParams) (*AggregationResult, error)
}
