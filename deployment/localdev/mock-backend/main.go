package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type searchHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

type esqlColumn struct {
	Name string `json:"name"`
}

type createdTicket struct {
	Action     string `json:"action"`
	System     string `json:"system"`
	Identifier string `json:"identifier"`
	Link       string `json:"link"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/search/logs", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		now := time.Now().UTC()
		writeJSON(w, map[string]any{
			"hits": []searchHit{
				{
					Index: "logs-2026.08.30",
					ID:    "evt-1",
					Source: map[string]any{
						"@timestamp": now.Add(-3 * time.Minute).Format(time.RFC3339),
						"log.level":  "error",
						"message":    "checkout failed to reach payments: connection refused",
						"service":    map[string]any{"name": "checkout"},
						"host":       map[string]any{"name": "host-1"},
					},
				},
				{
					Index: "logs-2026.08.30",
					ID:    "evt-2",
					Source: map[string]any{
						"@timestamp": now.Add(-2 * time.Minute).Format(time.RFC3339),
						"log.level":  "warn",
						"message":    "retry exhausted for payments endpoint",
						"service":    map[string]any{"name": "checkout"},
						"host":       map[string]any{"name": "host-2"},
					},
				},
			},
			"total": 2,
		})
	})

	mux.HandleFunc("/esql/error-count-by-host", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"columns": []esqlColumn{{Name: "count"}, {Name: "host.name"}},
			"values": [][]any{
				{7, "host-1"},
				{2, "host-2"},
			},
		})
	})

	ticketSeq := 0
	mux.HandleFunc("/tickets", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		ticketSeq++
		key := fmt.Sprintf("OPS-%d", ticketSeq)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, createdTicket{
			Action:     "create_ticket",
			System:     "Jira",
			Identifier: key,
			Link:       "https://example.atlassian.net/browse/" + key,
		})
	})

	logger := log.New(log.Writer(), "backend-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
