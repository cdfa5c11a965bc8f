package models

import "fmt"

const (
	// DefaultTimeRangeMinutes is the lookback applied when a request omits the window.
	DefaultTimeRangeMinutes = 15
	// MaxTimeRangeMinutes caps the lookback at seven days.
	MaxTimeRangeMinutes = 10080
)

// AnalyzeRequest is a single-shot analysis invocation: a natural-language
// question plus an optional structured alert, bounded to a lookback window.
type AnalyzeRequest struct {
	Query            string        `json:"query"`
	TimeRangeMinutes int           `json:"time_range_minutes"`
	Alert            *AlertPayload `json:"alert,omitempty"`
	CreateTicket     bool          `json:"create_ticket"`
}

// AlertPayload carries informational context from an upstream alerting system.
// It is never validated against retrieval results.
type AlertPayload struct {
	TriggerTime string `json:"trigger_time,omitempty"`
	Service     string `json:"service,omitempty"`
	Component   string `json:"component,omitempty"`
	AlertType   string `json:"alert_type,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the request shape and applies the default window.
// Validation failures are the only fatal errors in the analysis flow.
func (r *AnalyzeRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.TimeRangeMinutes == 0 {
		r.TimeRangeMinutes = DefaultTimeRangeMinutes
	}
	if r.TimeRangeMinutes < 1 || r.TimeRangeMinutes > MaxTimeRangeMinutes {
		return fmt.Errorf("time_range_minutes must be between 1 and %d, got %d", MaxTimeRangeMinutes, r.TimeRangeMinutes)
	}
	return nil
}

// AlertService returns the service name from the structured alert, if any.
func (r *AnalyzeRequest) AlertService() string {
	if r.Alert == nil {
		return ""
	}
	return r.Alert.Service
}

// AlertSeverity returns the alert severity, defaulting to "medium" for tickets.
func (r *AnalyzeRequest) AlertSeverity() string {
	if r.Alert == nil || r.Alert.Severity == "" {
		return "medium"
	}
	return r.Alert.Severity
}
