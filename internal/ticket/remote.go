package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsleuth/opsleuth/internal/models"
)

// RemoteClient implements Ticketer against an actions service over HTTP,
// for the split-process topology.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient constructs an actions-service client with an explicit timeout.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateTicket calls POST /tickets on the actions service.
func (c *RemoteClient) CreateTicket(ctx context.Context, req Request) (models.ActionTaken, error) {
	if c.baseURL == "" {
		return models.ActionTaken{}, fmt.Errorf("actions service base URL not configured")
	}

	body, err := json.Marshal(map[string]string{
		"title":       truncateRunes(req.Title, MaxTitleLength),
		"description": req.Description,
		"severity":    req.Severity,
		"system":      "jira",
	})
	if err != nil {
		return models.ActionTaken{}, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets", bytes.NewReader(body))
	if err != nil {
		return models.ActionTaken{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.ActionTaken{}, fmt.Errorf("actions service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.ActionTaken{}, fmt.Errorf("actions service returned %d: %s", resp.StatusCode, actionsErrorDetail(resp))
	}

	var created struct {
		Action     string `json:"action"`
		System     string `json:"system"`
		Identifier string `json:"identifier"`
		Link       string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return models.ActionTaken{}, fmt.Errorf("decode response: %w", err)
	}
	if created.Action == "" {
		created.Action = "create_ticket"
	}

	return models.ActionTaken{
		Action:     created.Action,
		System:     created.System,
		Identifier: created.Identifier,
		Link:       created.Link,
	}, nil
}

// actionsErrorDetail extracts a structured {"detail": ...} body from a failed
// response, falling back to raw text.
func actionsErrorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var structured struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Detail != "" {
		return structured.Detail
	}
	text := string(raw)
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}
