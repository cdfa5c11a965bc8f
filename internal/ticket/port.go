package ticket

import (
	"context"

	"github.com/opsleuth/opsleuth/internal/models"
)

// MaxTitleLength is the ticketing system's summary limit.
const MaxTitleLength = 255

// Request describes the ticket to open for an incident hypothesis.
type Request struct {
	Title       string
	Description string
	Severity    string
}

// Ticketer is the action port: one side-effecting capability, attempted at
// most once per analysis. Implementations return the system-assigned
// reference on success.
type Ticketer interface {
	CreateTicket(ctx context.Context, req Request) (models.ActionTaken, error)
}

// truncateRunes bounds s to limit characters, never splitting a rune.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
