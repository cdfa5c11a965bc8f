package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Elasticsearch.LogIndexPattern != "logs-*" {
		t.Fatalf("unexpected index pattern: %s", cfg.Elasticsearch.LogIndexPattern)
	}
	if cfg.Jira.ProjectKey != "OPS" {
		t.Fatalf("unexpected project key: %s", cfg.Jira.ProjectKey)
	}
	if cfg.Server.GracefulTimeout != 10*time.Second {
		t.Fatalf("unexpected graceful timeout: %s", cfg.Server.GracefulTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
  metricsAddress: ":9100"
logging:
  level: debug
  json: true
elasticsearch:
  url: https://es.internal:9200
  logIndexPattern: app-logs-*
  timeout: 20s
jira:
  baseURL: https://example.atlassian.net
  projectKey: INC
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Elasticsearch.Timeout != 20*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Elasticsearch.Timeout)
	}
	if cfg.Jira.ProjectKey != "INC" {
		t.Fatalf("unexpected project key: %s", cfg.Jira.ProjectKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPSLEUTH_SERVER_ADDRESS", ":7070")
	t.Setenv("ELASTICSEARCH_URL", "https://override:9200")
	t.Setenv("JIRA_BASE_URL", "https://jira.example.com/")
	t.Setenv("OPSLEUTH_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env override not applied: %s", cfg.Server.Address)
	}
	if cfg.Elasticsearch.URL != "https://override:9200" {
		t.Fatalf("env override not applied: %s", cfg.Elasticsearch.URL)
	}
	if cfg.Jira.BaseURL != "https://jira.example.com" {
		t.Fatalf("trailing slash must be stripped: %s", cfg.Jira.BaseURL)
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format override not applied")
	}
}

func TestModeSelection(t *testing.T) {
	cfg := &Config{}
	if cfg.RetrievalMode() != ModeDirect {
		t.Fatalf("default retrieval mode = %s, want direct", cfg.RetrievalMode())
	}
	if cfg.TicketMode() != "" {
		t.Fatalf("default ticket mode = %q, want empty", cfg.TicketMode())
	}

	cfg.DataService.BaseURL = "http://data:9090"
	if cfg.RetrievalMode() != ModeRemote {
		t.Fatalf("data service must select remote mode")
	}

	cfg.Jira.BaseURL = "https://example.atlassian.net"
	if cfg.TicketMode() != ModeDirect {
		t.Fatalf("jira config must select direct ticketing")
	}

	cfg.ActionsService.BaseURL = "http://actions:9091"
	if cfg.TicketMode() != ModeRemote {
		t.Fatalf("actions service must win over jira")
	}
}
