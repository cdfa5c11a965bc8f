package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Retrieval topology selectors.
const (
	// ModeDirect talks to Elasticsearch and Jira directly.
	ModeDirect = "direct"
	// ModeRemote talks to the data and actions HTTP services.
	ModeRemote = "remote"
)

// Config captures the settings required to boot the analysis service.
type Config struct {
	Server         ServerConfig        `yaml:"server"`
	Logging        LoggingConfig       `yaml:"logging"`
	Elasticsearch  ElasticsearchConfig `yaml:"elasticsearch"`
	DataService    RemoteServiceConfig `yaml:"dataService"`
	ActionsService RemoteServiceConfig `yaml:"actionsService"`
	Jira           JiraConfig          `yaml:"jira"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ElasticsearchConfig configures direct access to the log backend.
type ElasticsearchConfig struct {
	URL             string        `yaml:"url"`
	CloudID         string        `yaml:"cloudID"`
	APIKey          string        `yaml:"apiKey"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	LogIndexPattern string        `yaml:"logIndexPattern"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RemoteServiceConfig configures one of the split HTTP services.
type RemoteServiceConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// JiraConfig configures direct ticket creation.
type JiraConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Email      string        `yaml:"email"`
	APIToken   string        `yaml:"apiToken"`
	ProjectKey string        `yaml:"projectKey"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load initialises Config from a YAML file, a local .env file, and
// environment overrides, in increasing precedence.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; explicit environment still wins either way.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("OPSLEUTH_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// RetrievalMode reports which retrieval client the configuration selects.
// A configured data service wins over direct Elasticsearch access.
func (c *Config) RetrievalMode() string {
	if c.DataService.BaseURL != "" {
		return ModeRemote
	}
	return ModeDirect
}

// TicketMode reports which ticket client the configuration selects, or ""
// when no ticketing is configured.
func (c *Config) TicketMode() string {
	if c.ActionsService.BaseURL != "" {
		return ModeRemote
	}
	if c.Jira.BaseURL != "" {
		return ModeDirect
	}
	return ""
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Elasticsearch: ElasticsearchConfig{
			URL:             "http://localhost:9200",
			LogIndexPattern: "logs-*",
			Timeout:         10 * time.Second,
		},
		DataService:    RemoteServiceConfig{Timeout: 15 * time.Second},
		ActionsService: RemoteServiceConfig{Timeout: 15 * time.Second},
		Jira: JiraConfig{
			ProjectKey: "OPS",
			Timeout:    15 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPSLEUTH_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OPSLEUTH_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("OPSLEUTH_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("OPSLEUTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPSLEUTH_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		cfg.Elasticsearch.URL = v
	}
	if v := os.Getenv("ELASTICSEARCH_CLOUD_ID"); v != "" {
		cfg.Elasticsearch.CloudID = v
	}
	if v := os.Getenv("ELASTICSEARCH_API_KEY"); v != "" {
		cfg.Elasticsearch.APIKey = v
	}
	if v := os.Getenv("ELASTICSEARCH_USERNAME"); v != "" {
		cfg.Elasticsearch.Username = v
	}
	if v := os.Getenv("ELASTICSEARCH_PASSWORD"); v != "" {
		cfg.Elasticsearch.Password = v
	}
	if v := os.Getenv("ELASTICSEARCH_LOG_INDEX_PATTERN"); v != "" {
		cfg.Elasticsearch.LogIndexPattern = v
	}
	if v := os.Getenv("ELASTICSEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Elasticsearch.Timeout = d
		}
	}
	if v := os.Getenv("OPSLEUTH_DATA_SERVICE_URL"); v != "" {
		cfg.DataService.BaseURL = v
	}
	if v := os.Getenv("OPSLEUTH_DATA_SERVICE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DataService.Timeout = d
		}
	}
	if v := os.Getenv("OPSLEUTH_ACTIONS_SERVICE_URL"); v != "" {
		cfg.ActionsService.BaseURL = v
	}
	if v := os.Getenv("OPSLEUTH_ACTIONS_SERVICE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ActionsService.Timeout = d
		}
	}
	if v := os.Getenv("JIRA_BASE_URL"); v != "" {
		cfg.Jira.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("JIRA_EMAIL"); v != "" {
		cfg.Jira.Email = v
	}
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		cfg.Jira.APIToken = v
	}
	if v := os.Getenv("JIRA_PROJECT_KEY"); v != "" {
		cfg.Jira.ProjectKey = v
	}
	if v := os.Getenv("JIRA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Jira.Timeout = d
		}
	}
}
