package evidence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsleuth/opsleuth/internal/metrics"
	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/retrieval"
)

const (
	// searchSize is the maximum number of ranked hits requested per search.
	searchSize = 20
	// aggregationSeverity is the fixed log-severity filter for the analytical query.
	aggregationSeverity = "error"
	// queryAuditLimit truncates the inbound query in the first audit entry.
	queryAuditLimit = 80
)

// Collector invokes both retrieval capabilities, shapes citations, and keeps
// an ordered audit of every step. A failure in one capability never prevents
// the other from running.
type Collector struct {
	logger    *slog.Logger
	retriever retrieval.Client
}

// NewCollector constructs an evidence collector.
func NewCollector(logger *slog.Logger, retriever retrieval.Client) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger, retriever: retriever}
}

// Collection is everything gathered for one request: per-capability outcomes,
// shaped citations, and the audit trail so far. All state is per-request.
type Collection struct {
	Search         *retrieval.SearchResult
	SearchErr      error
	Aggregation    *retrieval.AggregationResult
	AggregationErr error
	Citations      []models.Citation
	Audit          []string
}

// SearchAbsent reports whether the search capability produced no usable payload.
func (c *Collection) SearchAbsent() bool { return c.SearchErr != nil || c.Search == nil }

// AggregationAbsent reports whether the analytical capability produced no usable payload.
func (c *Collection) AggregationAbsent() bool { return c.AggregationErr != nil || c.Aggregation == nil }

// SearchHasData reports whether search returned at least one hit.
func (c *Collection) SearchHasData() bool { return !c.SearchAbsent() && !c.Search.Empty() }

// AggregationHasData reports whether the aggregation returned at least one row.
func (c *Collection) AggregationHasData() bool {
	return !c.AggregationAbsent() && !c.Aggregation.Empty()
}

// Collect runs the aggregation then the search, each individually wrapped.
// The first audit entry always records the inbound query.
func (c *Collector) Collect(ctx context.Context, req models.AnalyzeRequest) *Collection {
	col := &Collection{}
	queryLine := req.Query
	if runes := []rune(queryLine); len(runes) > queryAuditLimit {
		queryLine = string(runes[:queryAuditLimit]) + "..."
	}
	col.Audit = append(col.Audit, "Query received: "+queryLine)

	col.Audit = append(col.Audit, "Running analytical aggregation: error count by host")
	agg, err := c.retriever.ErrorCountByHost(ctx, retrieval.AggregationParams{
		TimeRangeMinutes: req.TimeRangeMinutes,
		Severity:         aggregationSeverity,
	})
	if err != nil {
		col.AggregationErr = err
		col.Audit = append(col.Audit, fmt.Sprintf("Aggregation step failed (non-fatal): %v", err))
		c.logger.Warn("aggregation capability failed", slog.Any("error", err))
		metrics.ObserveRetrievalFailure(metrics.CapabilityAggregation, failureKind(err))
	} else {
		col.Aggregation = agg
		col.Audit = append(col.Audit, fmt.Sprintf("Aggregation returned %d rows", len(agg.Rows)))
		col.Citations = append(col.Citations, aggregationCitations(agg)...)
	}

	col.Audit = append(col.Audit, "Running search over log indices")
	search, err := c.retriever.SearchLogs(ctx, retrieval.SearchParams{
		QueryText:        req.Query,
		Service:          req.AlertService(),
		TimeRangeMinutes: req.TimeRangeMinutes,
		Size:             searchSize,
	})
	if err != nil {
		col.SearchErr = err
		col.Audit = append(col.Audit, fmt.Sprintf("Search step failed: %v", err))
		c.logger.Warn("search capability failed", slog.Any("error", err))
		metrics.ObserveRetrievalFailure(metrics.CapabilitySearch, failureKind(err))
	} else {
		col.Search = search
		col.Audit = append(col.Audit, fmt.Sprintf("Search returned %d hits (showing %d)", search.Total, len(search.Hits)))
		col.Citations = append(col.Citations, searchCitations(search)...)
	}

	if len(col.Citations) > models.MaxCitations {
		col.Citations = col.Citations[:models.MaxCitations]
	}
	return col
}

func failureKind(err error) string {
	if retrieval.IsUnsupportedResource(err) {
		return metrics.FailureUnsupported
	}
	return metrics.FailureTransport
}
