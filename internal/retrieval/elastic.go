package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// timeField is the only field used for range filtering, so queries keep
// working when event.created is missing from the mapping.
const timeField = "@timestamp"

// ElasticConfig holds connection settings for a direct Elasticsearch client.
type ElasticConfig struct {
	URL             string
	CloudID         string
	APIKey          string
	Username        string
	Password        string
	LogIndexPattern string
	Timeout         time.Duration
}

// ElasticClient implements Client against Elasticsearch directly: the search
// capability uses the Search API, the analytical capability uses ES|QL.
type ElasticClient struct {
	es              *elasticsearch.Client
	logIndexPattern string
}

// NewElasticClient constructs a direct Elasticsearch retrieval client.
func NewElasticClient(cfg ElasticConfig) (*ElasticClient, error) {
	esCfg := elasticsearch.Config{
		CloudID:  cfg.CloudID,
		APIKey:   cfg.APIKey,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.CloudID == "" {
		url := cfg.URL
		if url == "" {
			url = "http://localhost:9200"
		}
		esCfg.Addresses = []string{url}
	}
	if cfg.Timeout > 0 {
		esCfg.Transport = &http.Transport{ResponseHeaderTimeout: cfg.Timeout}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	pattern := cfg.LogIndexPattern
	if pattern == "" {
		pattern = "logs-*"
	}
	return &ElasticClient{es: es, logIndexPattern: pattern}, nil
}

// SearchLogs runs a bool query over the log indices: a hard range filter on
// the window, an optional service term, and the question text as a should
// clause so time-bounded hits still come back when the wording does not match
// any document. Results are ranked by score, then recency with nulls last.
func (c *ElasticClient) SearchLogs(ctx context.Context, params SearchParams) (*SearchResult, error) {
	now := time.Now().UTC()
	start := now.Add(-time.Duration(params.TimeRangeMinutes) * time.Minute)

	must := []map[string]any{
		{"range": map[string]any{timeField: map[string]any{
			"gte": start.Format(time.RFC3339),
			"lte": now.Format(time.RFC3339),
		}}},
	}
	if params.Service != "" {
		must = append(must, map[string]any{"term": map[string]any{"service.name": params.Service}})
	}
	if params.Severity != "" {
		must = append(must, map[string]any{"terms": map[string]any{"log.level": severityVariants(params.Severity)}})
	}

	boolQuery := map[string]any{"must": must}
	if strings.TrimSpace(params.QueryText) != "" {
		boolQuery["should"] = []map[string]any{
			{"multi_match": map[string]any{
				"query":  params.QueryText,
				"fields": []string{"message", "error.message", "event.message"},
				"type":   "best_fields",
			}},
		}
	}

	size := params.Size
	if size <= 0 {
		size = 20
	}
	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  size,
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{timeField: map[string]any{"order": "desc", "missing": "_last"}},
		},
		"_source": true,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.logIndexPattern),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if err := classifyResponse(res, "search"); err != nil {
		return nil, err
	}

	var decoded struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Index  string         `json:"_index"`
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		hits = append(hits, Hit{Index: h.Index, ID: h.ID, Source: h.Source})
	}
	return &SearchResult{Hits: hits, Total: decoded.Hits.Total.Value}, nil
}

// ErrorCountByHost aggregates error counts per host over the window with an
// ES|QL STATS query. When the severity field is not in the mapping the query
// fails verification, so it retries once without the severity filter. An
// unsupported-resource response is surfaced directly and never retried.
func (c *ElasticClient) ErrorCountByHost(ctx context.Context, params AggregationParams) (*AggregationResult, error) {
	severity := strings.ToLower(strings.ReplaceAll(params.Severity, `"`, ""))
	timeCond := fmt.Sprintf("%s >= NOW() - %d minutes", timeField, params.TimeRangeMinutes)

	query := fmt.Sprintf(
		"FROM %s | WHERE %s AND TO_LOWER(TO_STRING(log.level)) == %q | STATS count = count() BY host.name | SORT count DESC | LIMIT 20",
		c.logIndexPattern, timeCond, severity,
	)
	result, err := c.runESQL(ctx, query)
	if err == nil {
		return result, nil
	}
	if IsUnsupportedResource(err) {
		return nil, err
	}

	// Fallback for mappings without log.level: count all documents by host.
	fallback := fmt.Sprintf(
		"FROM %s | WHERE %s | STATS count = count() BY host.name | SORT count DESC | LIMIT 20",
		c.logIndexPattern, timeCond,
	)
	return c.runESQL(ctx, fallback)
}

func (c *ElasticClient) runESQL(ctx context.Context, query string) (*AggregationResult, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode esql body: %w", err)
	}

	res, err := c.es.EsqlQuery(
		bytes.NewReader(payload),
		c.es.EsqlQuery.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("esql request: %w", err)
	}
	defer res.Body.Close()

	if err := classifyResponse(res, "esql"); err != nil {
		return nil, err
	}

	var decoded struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Values [][]any `json:"values"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode esql response: %w", err)
	}

	columns := make([]string, 0, len(decoded.Columns))
	for _, col := range decoded.Columns {
		columns = append(columns, col.Name)
	}
	return &AggregationResult{Columns: columns, Rows: decoded.Values}, nil
}

// severityVariants covers the casings log shippers commonly emit for a level:
// as given, lower, upper, and capitalized.
func severityVariants(severity string) []string {
	lower := strings.ToLower(severity)
	capitalized := lower
	if lower != "" {
		capitalized = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return []string{severity, lower, strings.ToUpper(severity), capitalized}
}

// classifyResponse converts an error response into either the typed
// unsupported-resource signal (404, e.g. serverless deployments answering
// "Unknown resource") or a transport error carrying the backend's reason.
func classifyResponse(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	detail := elasticErrorDetail(body)
	if res.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(detail), "unknown resource") {
		return fmt.Errorf("%s returned %d (%s): %w", op, res.StatusCode, detail, ErrUnsupportedResource)
	}
	return fmt.Errorf("%s returned %d: %s", op, res.StatusCode, detail)
}

func elasticErrorDetail(body []byte) string {
	var decoded struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Type != "" {
		return fmt.Sprintf("%s: %s", decoded.Error.Type, decoded.Error.Reason)
	}
	if len(body) > 400 {
		body = body[:400]
	}
	return string(body)
}
