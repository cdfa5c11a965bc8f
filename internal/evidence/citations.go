package evidence

import (
	"fmt"

	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/retrieval"
)

const (
	// citationsPerCapability bounds how many rows/hits are shaped per capability.
	citationsPerCapability = 10
	// snippetLimit truncates citation snippets.
	snippetLimit = 500
	// sourceFallbackLimit truncates the stringified document used when no
	// message-like field exists.
	sourceFallbackLimit = 200
)

// aggregationCitations zips column names onto each of the first rows,
// rendering the field mapping as the snippet.
func aggregationCitations(result *retrieval.AggregationResult) []models.Citation {
	if result == nil {
		return nil
	}

	citations := make([]models.Citation, 0, citationsPerCapability)
	for i, row := range result.Rows {
		if i >= citationsPerCapability {
			break
		}
		fields := make(map[string]any, len(result.Columns))
		for j, col := range result.Columns {
			if j < len(row) {
				fields[col] = row[j]
			}
		}
		citations = append(citations, models.Citation{
			Type:    models.CitationAnalytical,
			Snippet: truncate(fmt.Sprintf("%v", fields), snippetLimit),
			Fields:  fields,
		})
	}
	return citations
}

// searchCitations extracts a message-like snippet and a minimal fixed field
// set from each of the first hits. The full source document is never attached.
func searchCitations(result *retrieval.SearchResult) []models.Citation {
	if result == nil {
		return nil
	}

	citations := make([]models.Citation, 0, citationsPerCapability)
	for i, hit := range result.Hits {
		if i >= citationsPerCapability {
			break
		}
		citations = append(citations, models.Citation{
			Type:    models.CitationSearch,
			Source:  hit.Index,
			ID:      hit.ID,
			Snippet: truncate(messageFromSource(hit.Source), snippetLimit),
			Fields: map[string]any{
				"@timestamp": hit.Source["@timestamp"],
				"log.level":  hit.Source["log.level"],
			},
		})
	}
	return citations
}

// messageFromSource prefers the message field, then a structured error
// message, then a stringified fallback of the document.
func messageFromSource(source map[string]any) string {
	if msg, ok := source["message"].(string); ok && msg != "" {
		return msg
	}
	if errField, ok := source["error"].(map[string]any); ok {
		if msg, ok := errField["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return truncate(fmt.Sprintf("%v", source), sourceFallbackLimit)
}

// truncate bounds s to limit characters, never splitting a rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
