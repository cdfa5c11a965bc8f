package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opsleuth/opsleuth/internal/models"
)

type stubAnalyzer struct {
	resp    models.AnalyzeResponse
	err     error
	lastReq models.AnalyzeRequest
}

func (s *stubAnalyzer) Analyze(_ context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzeEndpoint(t *testing.T) {
	analyzer := &stubAnalyzer{
		resp: models.AnalyzeResponse{
			AnalysisID: "4f6d",
			Summary:    "Found 5 log events in the last 15 minutes.",
			Confidence: models.ConfidenceMedium,
		},
	}
	router := NewHandler(testLogger(), analyzer).Routes()

	body := strings.NewReader(`{"query":"checkout errors","time_range_minutes":15}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AnalysisID != "4f6d" || resp.Confidence != models.ConfidenceMedium {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if analyzer.lastReq.Query != "checkout errors" {
		t.Fatalf("request not forwarded: %+v", analyzer.lastReq)
	}
}

func TestAnalyzeEndpointRejectsBadRequests(t *testing.T) {
	router := NewHandler(testLogger(), &stubAnalyzer{}).Routes()

	cases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"query":`},
		{name: "missing query", body: `{"time_range_minutes":15}`},
		{name: "oversized window", body: `{"query":"q","time_range_minutes":999999}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "error") {
				t.Fatalf("error body missing: %s", rec.Body.String())
			}
		})
	}
}

func TestAnalyzeEndpointInternalError(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("collector exploded: secret detail")}
	router := NewHandler(testLogger(), analyzer).Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Fatalf("internal detail leaked to client: %s", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := NewHandler(testLogger(), &stubAnalyzer{}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
