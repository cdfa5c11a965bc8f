package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/opsleuth/opsleuth/internal/evidence"
	"github.com/opsleuth/opsleuth/internal/retrieval"
)

func unsupportedErr(op string) error {
	return fmt.Errorf("%s returned 404: %w", op, retrieval.ErrUnsupportedResource)
}

func TestClassifyPriorities(t *testing.T) {
	transportErr := errors.New("connection refused")
	hits := &retrieval.SearchResult{
		Hits:  []retrieval.Hit{{Index: "logs-1", ID: "a", Source: map[string]any{"message": "boom"}}},
		Total: 1,
	}
	rows := &retrieval.AggregationResult{
		Columns: []string{"count", "host.name"},
		Rows:    [][]any{{3, "host-1"}},
	}

	cases := []struct {
		name string
		col  *evidence.Collection
		want Classification
	}{
		{
			name: "both unsupported",
			col:  &evidence.Collection{SearchErr: unsupportedErr("search"), AggregationErr: unsupportedErr("esql")},
			want: ClassBackendUnsupported,
		},
		{
			name: "one unsupported one empty",
			col:  &evidence.Collection{Search: &retrieval.SearchResult{}, AggregationErr: unsupportedErr("esql")},
			want: ClassPartialUnsupported,
		},
		{
			name: "one unsupported one transport failure",
			col:  &evidence.Collection{SearchErr: transportErr, AggregationErr: unsupportedErr("esql")},
			want: ClassPartialUnsupported,
		},
		{
			name: "both empty",
			col:  &evidence.Collection{Search: &retrieval.SearchResult{}, Aggregation: &retrieval.AggregationResult{}},
			want: ClassNoData,
		},
		{
			name: "reported total without hits counts as empty",
			col:  &evidence.Collection{Search: &retrieval.SearchResult{Total: 12}, Aggregation: &retrieval.AggregationResult{}},
			want: ClassNoData,
		},
		{
			name: "both transport failures",
			col:  &evidence.Collection{SearchErr: transportErr, AggregationErr: transportErr},
			want: ClassNoData,
		},
		{
			name: "search data beats aggregation unsupported",
			col:  &evidence.Collection{Search: hits, AggregationErr: unsupportedErr("esql")},
			want: ClassHasData,
		},
		{
			name: "aggregation data beats search failure",
			col:  &evidence.Collection{SearchErr: transportErr, Aggregation: rows},
			want: ClassHasData,
		},
		{
			name: "both have data",
			col:  &evidence.Collection{Search: hits, Aggregation: rows},
			want: ClassHasData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.col); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}
