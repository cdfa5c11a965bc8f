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
	"github.com/opsleuth/opsleuth/internal/utils"
)

// adfTextLimit caps a single ADF text node; Jira rejects larger nodes.
const adfTextLimit = 5000

// JiraClient creates issues through the Jira Cloud REST API v3, which
// requires descriptions in Atlassian Document Format.
type JiraClient struct {
	baseURL    string
	email      string
	apiToken   string
	projectKey string
	issueType  string
	httpClient *http.Client
}

// NewJiraClient constructs a Jira ticketing client.
func NewJiraClient(baseURL, email, apiToken, projectKey string, timeout time.Duration) *JiraClient {
	if projectKey == "" {
		projectKey = "OPS"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &JiraClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		projectKey: projectKey,
		issueType:  "Task",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateTicket opens a Jira issue and returns the key and browse link.
func (c *JiraClient) CreateTicket(ctx context.Context, req Request) (models.ActionTaken, error) {
	title := truncateRunes(req.Title, MaxTitleLength)

	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     title,
		"description": plainTextToADF(req.Description),
		"issuetype":   map[string]string{"name": c.issueType},
	}
	if strings.EqualFold(req.Severity, "high") {
		fields["priority"] = map[string]string{"name": "High"}
	}

	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return models.ActionTaken{}, utils.NewAppError("jira.CreateTicket", "marshal payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return models.ActionTaken{}, err
	}
	httpReq.SetBasicAuth(c.email, c.apiToken)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.ActionTaken{}, utils.NewAppError("jira.CreateTicket", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return models.ActionTaken{}, fmt.Errorf("jira API returned %d: %s", resp.StatusCode, jiraErrorDetail(resp))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return models.ActionTaken{}, utils.NewAppError("jira.CreateTicket", "decode response", err)
	}

	action := models.ActionTaken{
		Action:     "create_ticket",
		System:     "Jira",
		Identifier: created.Key,
	}
	if created.Key != "" {
		action.Link = fmt.Sprintf("%s/browse/%s", c.baseURL, created.Key)
	}
	return action, nil
}

// plainTextToADF converts plain text into an ADF document, one paragraph per
// non-empty line. Newlines are not allowed inside ADF text nodes.
func plainTextToADF(text string) map[string]any {
	if strings.TrimSpace(text) == "" {
		text = "(No description)"
	}

	content := make([]map[string]any, 0)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = truncateRunes(line, adfTextLimit)
		content = append(content, map[string]any{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": line}},
		})
	}
	if len(content) == 0 {
		content = append(content, map[string]any{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": text}},
		})
	}

	return map[string]any{"type": "doc", "version": 1, "content": content}
}

// jiraErrorDetail extracts errorMessages/errors from a failed Jira response,
// falling back to raw text.
func jiraErrorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}

	var structured struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil {
		if len(structured.ErrorMessages) > 0 {
			return strings.Join(structured.ErrorMessages, "; ")
		}
		if len(structured.Errors) > 0 {
			parts := make([]string, 0, len(structured.Errors))
			for field, msg := range structured.Errors {
				parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
			}
			return strings.Join(parts, "; ")
		}
	}
	text := string(raw)
	if len(text) > 400 {
		text = text[:400]
	}
	return text
}
