package models

import "time"

// Confidence is the discrete certainty level attached to a hypothesis. It is
// derived solely from the shape of the retrieval outcomes, never from ticket
// side effects.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CitationType identifies which retrieval capability produced a citation.
type CitationType string

const (
	CitationSearch     CitationType = "search"
	CitationAnalytical CitationType = "analytical"
)

// MaxCitations bounds the evidence attached to a response, independent of how
// many hits or rows were considered.
const MaxCitations = 30

// Citation is one unit of evidence: a retrieved document or aggregation row,
// reduced to a snippet and a small fixed field set.
type Citation struct {
	Type    CitationType   `json:"type"`
	Source  string         `json:"source,omitempty"`
	ID      string         `json:"id,omitempty"`
	Snippet string         `json:"snippet,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// ActionTaken records a successful side-effecting action. Actions are never
// retried; a failed action leaves no record here, only an audit entry.
type ActionTaken struct {
	Action     string `json:"action"`
	System     string `json:"system,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Link       string `json:"link,omitempty"`
}

// AnalyzeResponse is the assembled incident hypothesis.
type AnalyzeResponse struct {
	AnalysisID   string        `json:"analysis_id"`
	Summary      string        `json:"summary"`
	RootCause    string        `json:"root_cause"`
	Evidence     []Citation    `json:"evidence"`
	ActionsTaken []ActionTaken `json:"actions_taken"`
	Explanation  string        `json:"explanation,omitempty"`
	Confidence   Confidence    `json:"confidence"`
	AuditTrail   []string      `json:"audit_trail"`
	CreatedAt    time.Time     `json:"created_at"`
}
