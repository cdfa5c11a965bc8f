package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsleuth/opsleuth/internal/evidence"
	"github.com/opsleuth/opsleuth/internal/metrics"
	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/retrieval"
	"github.com/opsleuth/opsleuth/internal/ticket"
)

const (
	// ticketTitlePrefix tags every ticket opened by the pipeline.
	ticketTitlePrefix = "OpSleuth: "
	// ticketTitleSummaryLimit bounds how much of the summary lands in the title.
	ticketTitleSummaryLimit = 60
)

// Pipeline runs one analysis end to end: collect evidence, classify failures,
// correlate a hypothesis, explain the steps, and conditionally open a ticket.
// Every invocation builds fresh state; the pipeline holds no cross-request data.
type Pipeline struct {
	logger    *slog.Logger
	collector *evidence.Collector
	ticketer  ticket.Ticketer
}

// NewPipeline constructs the analysis pipeline. ticketer may be nil when no
// ticketing system is configured.
func NewPipeline(logger *slog.Logger, retriever retrieval.Client, ticketer ticket.Ticketer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		collector: evidence.NewCollector(logger, retriever),
		ticketer:  ticketer,
	}
}

// Analyze executes the pipeline for one request. Retrieval and ticket
// failures are absorbed into the audit trail; only request validation errors
// propagate to the caller.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return models.AnalyzeResponse{}, err
	}

	col := p.collector.Collect(ctx, req)
	cls := Classify(col)
	col.Audit = append(col.Audit, "Correlating results and generating hypothesis")

	verdict := Correlate(cls, col, req.TimeRangeMinutes)
	explanation := Explain(cls, col, req.TimeRangeMinutes)
	actions := p.triggerTicket(ctx, req, verdict, col)

	p.logger.Debug("analysis complete",
		slog.String("classification", string(cls)),
		slog.String("confidence", string(verdict.Confidence)),
		slog.Int("citations", len(col.Citations)),
	)

	evidenceOut := col.Citations
	if evidenceOut == nil {
		evidenceOut = make([]models.Citation, 0)
	}

	return models.AnalyzeResponse{
		AnalysisID:   uuid.NewString(),
		Summary:      verdict.Summary,
		RootCause:    verdict.RootCause,
		Evidence:     evidenceOut,
		ActionsTaken: actions,
		Explanation:  explanation,
		Confidence:   verdict.Confidence,
		AuditTrail:   col.Audit,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// triggerTicket performs at most one ticket attempt. Failure is recorded in
// the audit trail and never alters the verdict or raises to the caller.
func (p *Pipeline) triggerTicket(ctx context.Context, req models.AnalyzeRequest, verdict Verdict, col *evidence.Collection) []models.ActionTaken {
	actions := make([]models.ActionTaken, 0, 1)
	if !req.CreateTicket {
		return actions
	}
	if p.ticketer == nil {
		col.Audit = append(col.Audit, "Ticket requested but no ticketing system is configured")
		return actions
	}

	col.Audit = append(col.Audit, "Creating incident ticket")
	summary := verdict.Summary
	if runes := []rune(summary); len(runes) > ticketTitleSummaryLimit {
		summary = string(runes[:ticketTitleSummaryLimit])
	}

	action, err := p.ticketer.CreateTicket(ctx, ticket.Request{
		Title:       ticketTitlePrefix + summary,
		Description: verdict.RootCause,
		Severity:    req.AlertSeverity(),
	})
	if err != nil {
		col.Audit = append(col.Audit, fmt.Sprintf("Ticket creation failed: %v", err))
		p.logger.Warn("ticket creation failed", slog.Any("error", err))
		metrics.ObserveTicketAction(metrics.OutcomeError)
		return actions
	}

	reference := action.Identifier
	if reference == "" {
		reference = action.System
	}
	col.Audit = append(col.Audit, "Ticket created: "+reference)
	metrics.ObserveTicketAction(metrics.OutcomeSuccess)
	return append(actions, action)
}
