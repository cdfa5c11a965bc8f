package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/retrieval"
)

type stubRetriever struct {
	search       *retrieval.SearchResult
	searchErr    error
	agg          *retrieval.AggregationResult
	aggErr       error
	searchParams retrieval.SearchParams
	aggParams    retrieval.AggregationParams
	callOrder    []string
}

func (s *stubRetriever) SearchLogs(_ context.Context, params retrieval.SearchParams) (*retrieval.SearchResult, error) {
	s.callOrder = append(s.callOrder, "search")
	s.searchParams = params
	return s.search, s.searchErr
}

func (s *stubRetriever) ErrorCountByHost(_ context.Context, params retrieval.AggregationParams) (*retrieval.AggregationResult, error) {
	s.callOrder = append(s.callOrder, "aggregation")
	s.aggParams = params
	return s.agg, s.aggErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollectRunsAggregationBeforeSearch(t *testing.T) {
	stub := &stubRetriever{
		search: &retrieval.SearchResult{},
		agg:    &retrieval.AggregationResult{},
	}
	collector := NewCollector(testLogger(), stub)

	col := collector.Collect(context.Background(), models.AnalyzeRequest{
		Query:            "latency spike",
		TimeRangeMinutes: 45,
		Alert:            &models.AlertPayload{Service: "checkout"},
	})

	if len(stub.callOrder) != 2 || stub.callOrder[0] != "aggregation" || stub.callOrder[1] != "search" {
		t.Fatalf("unexpected call order: %v", stub.callOrder)
	}
	if stub.aggParams.TimeRangeMinutes != 45 || stub.aggParams.Severity != "error" {
		t.Fatalf("unexpected aggregation params: %+v", stub.aggParams)
	}
	if stub.searchParams.QueryText != "latency spike" || stub.searchParams.Service != "checkout" || stub.searchParams.Size != 20 {
		t.Fatalf("unexpected search params: %+v", stub.searchParams)
	}
	if len(col.Audit) == 0 || col.Audit[0] != "Query received: latency spike" {
		t.Fatalf("unexpected audit head: %v", col.Audit)
	}
}

func TestCollectTruncatesLongQueryInAudit(t *testing.T) {
	stub := &stubRetriever{search: &retrieval.SearchResult{}, agg: &retrieval.AggregationResult{}}
	collector := NewCollector(testLogger(), stub)

	long := strings.Repeat("q", 120)
	col := collector.Collect(context.Background(), models.AnalyzeRequest{Query: long, TimeRangeMinutes: 15})

	want := "Query received: " + long[:80] + "..."
	if col.Audit[0] != want {
		t.Fatalf("audit head = %q, want %q", col.Audit[0], want)
	}
}

func TestCollectAggregationFailureIsIsolated(t *testing.T) {
	stub := &stubRetriever{
		aggErr: errors.New("connection reset"),
		search: &retrieval.SearchResult{
			Hits:  []retrieval.Hit{{Index: "logs-1", ID: "a", Source: map[string]any{"message": "boom"}}},
			Total: 1,
		},
	}
	collector := NewCollector(testLogger(), stub)

	col := collector.Collect(context.Background(), models.AnalyzeRequest{Query: "q", TimeRangeMinutes: 15})

	if col.AggregationErr == nil || col.Search == nil {
		t.Fatalf("aggregation failure must not block search: %+v", col)
	}
	found := false
	for _, entry := range col.Audit {
		if strings.Contains(entry, "Aggregation step failed (non-fatal)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit missing non-fatal aggregation entry: %v", col.Audit)
	}
	if len(col.Citations) != 1 || col.Citations[0].Type != models.CitationSearch {
		t.Fatalf("expected one search citation, got %+v", col.Citations)
	}
}

func TestCollectCapsCitationsPerCapability(t *testing.T) {
	hits := make([]retrieval.Hit, 0, 15)
	for i := 0; i < 15; i++ {
		hits = append(hits, retrieval.Hit{
			Index:  "logs-1",
			ID:     fmt.Sprintf("doc-%d", i),
			Source: map[string]any{"message": fmt.Sprintf("event %d", i)},
		})
	}
	rows := make([][]any, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, []any{i, fmt.Sprintf("host-%d", i)})
	}
	stub := &stubRetriever{
		search: &retrieval.SearchResult{Hits: hits, Total: 15},
		agg:    &retrieval.AggregationResult{Columns: []string{"count", "host.name"}, Rows: rows},
	}
	collector := NewCollector(testLogger(), stub)

	col := collector.Collect(context.Background(), models.AnalyzeRequest{Query: "q", TimeRangeMinutes: 15})

	if len(col.Citations) != 20 {
		t.Fatalf("expected 10 per capability, got %d", len(col.Citations))
	}
	if len(col.Citations) > models.MaxCitations {
		t.Fatalf("citation cap exceeded: %d", len(col.Citations))
	}
	if col.Citations[0].Type != models.CitationAnalytical {
		t.Fatalf("aggregation citations must come first, got %s", col.Citations[0].Type)
	}
	if col.Citations[10].Type != models.CitationSearch {
		t.Fatalf("search citations must follow, got %s", col.Citations[10].Type)
	}
}

func TestSearchCitationShaping(t *testing.T) {
	result := &retrieval.SearchResult{
		Hits: []retrieval.Hit{
			{
				Index: "logs-2026.01.01",
				ID:    "a",
				Source: map[string]any{
					"@timestamp": "2026-01-01T00:00:00Z",
					"log.level":  "error",
					"message":    "pool exhausted",
					"secret":     "must not leak",
				},
			},
			{
				Index:  "logs-2026.01.01",
				ID:     "b",
				Source: map[string]any{"error": map[string]any{"message": "nested failure"}},
			},
			{
				Index:  "logs-2026.01.01",
				ID:     "c",
				Source: map[string]any{"field": strings.Repeat("z", 400)},
			},
		},
		Total: 3,
	}

	citations := searchCitations(result)
	if len(citations) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(citations))
	}
	if citations[0].Snippet != "pool exhausted" || citations[0].Source != "logs-2026.01.01" {
		t.Fatalf("unexpected first citation: %+v", citations[0])
	}
	if _, leaked := citations[0].Fields["secret"]; leaked {
		t.Fatalf("citation fields must stay minimal: %+v", citations[0].Fields)
	}
	if citations[1].Snippet != "nested failure" {
		t.Fatalf("nested error message not extracted: %+v", citations[1])
	}
	if len(citations[2].Snippet) > 200 {
		t.Fatalf("fallback snippet not truncated: %d chars", len(citations[2].Snippet))
	}
}

func TestSearchCitationSnippetKeepsRunesIntact(t *testing.T) {
	result := &retrieval.SearchResult{
		Hits: []retrieval.Hit{
			{Index: "logs-1", ID: "a", Source: map[string]any{"message": strings.Repeat("ü", 600)}},
		},
		Total: 1,
	}

	citations := searchCitations(result)
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}
	snippet := citations[0].Snippet
	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet truncation split a rune: %q", snippet)
	}
	if got := len([]rune(snippet)); got != 500 {
		t.Fatalf("snippet rune length = %d, want 500", got)
	}
}

func TestAggregationCitationShaping(t *testing.T) {
	result := &retrieval.AggregationResult{
		Columns: []string{"count", "host.name"},
		Rows:    [][]any{{7, "host-1"}},
	}

	citations := aggregationCitations(result)
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}
	c := citations[0]
	if c.Type != models.CitationAnalytical {
		t.Fatalf("unexpected type: %s", c.Type)
	}
	if c.Fields["count"] != 7 || c.Fields["host.name"] != "host-1" {
		t.Fatalf("columns not zipped onto the row: %+v", c.Fields)
	}
	if c.Snippet == "" {
		t.Fatal("snippet must render the field mapping")
	}
}
