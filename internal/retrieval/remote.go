package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// esErrorUnsupported is the marker the data service places in a 200 body when
// the backend answered 404 for the underlying operation.
const esErrorUnsupported = "unknown_resource"

// RemoteClient implements Client against a data service over HTTP. This is
// the split-process topology: failure detection is status-code based, and
// error detail comes from the structured body when present.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient constructs a data-service client with an explicit timeout.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchLogs calls POST /search/logs on the data service.
func (c *RemoteClient) SearchLogs(ctx context.Context, params SearchParams) (*SearchResult, error) {
	payload := map[string]any{
		"query_text":         params.QueryText,
		"time_range_minutes": params.TimeRangeMinutes,
		"size":               params.Size,
	}
	if params.Service != "" {
		payload["service"] = params.Service
	}
	if params.Severity != "" {
		payload["log_level"] = params.Severity
	}

	var response struct {
		Hits []struct {
			Index  string         `json:"_index"`
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
		Total   int    `json:"total"`
		ESError string `json:"es_error"`
	}
	if err := c.postJSON(ctx, c.resolvePath("/search/logs"), payload, &response); err != nil {
		return nil, fmt.Errorf("data service search failed: %w", err)
	}
	if response.ESError == esErrorUnsupported {
		return nil, fmt.Errorf("data service search: %w", ErrUnsupportedResource)
	}

	hits := make([]Hit, 0, len(response.Hits))
	for _, h := range response.Hits {
		hits = append(hits, Hit{Index: h.Index, ID: h.ID, Source: h.Source})
	}
	return &SearchResult{Hits: hits, Total: response.Total}, nil
}

// ErrorCountByHost calls POST /esql/error-count-by-host on the data service.
func (c *RemoteClient) ErrorCountByHost(ctx context.Context, params AggregationParams) (*AggregationResult, error) {
	payload := map[string]any{
		"time_range_minutes": params.TimeRangeMinutes,
		"log_level":          params.Severity,
	}

	var response struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Values  [][]any `json:"values"`
		ESError string  `json:"es_error"`
	}
	if err := c.postJSON(ctx, c.resolvePath("/esql/error-count-by-host"), payload, &response); err != nil {
		return nil, fmt.Errorf("data service aggregation failed: %w", err)
	}
	if response.ESError == esErrorUnsupported {
		return nil, fmt.Errorf("data service aggregation: %w", ErrUnsupportedResource)
	}

	columns := make([]string, 0, len(response.Columns))
	for _, col := range response.Columns {
		columns = append(columns, col.Name)
	}
	return &AggregationResult{Columns: columns, Rows: response.Values}, nil
}

func (c *RemoteClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *RemoteClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("data service base URL not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data service returned %d: %s", resp.StatusCode, responseErrorDetail(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseErrorDetail extracts a structured {"detail": ...} body from a failed
// response, falling back to raw text.
func responseErrorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var structured struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Detail != "" {
			return structured.Detail
		}
		if structured.Error != "" {
			return structured.Error
		}
	}
	text := string(raw)
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}
