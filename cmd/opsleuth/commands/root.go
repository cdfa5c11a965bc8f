package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opsleuth/opsleuth/internal/config"
	"github.com/opsleuth/opsleuth/internal/retrieval"
	"github.com/opsleuth/opsleuth/internal/ticket"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "opsleuth",
	Short: "OpSleuth - incident analysis over observability data",
	Long: `OpSleuth correlates log search results with analytical aggregations to
produce an incident summary, a root-cause hypothesis, and a full audit trail.
It can optionally open an incident ticket for the finding.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// buildRetriever selects the retrieval client the configuration points at.
func buildRetriever(cfg *config.Config, logger *slog.Logger) (retrieval.Client, error) {
	if cfg.RetrievalMode() == config.ModeRemote {
		logger.Info("using remote data service", slog.String("base_url", cfg.DataService.BaseURL))
		return retrieval.NewRemoteClient(cfg.DataService.BaseURL, cfg.DataService.Timeout), nil
	}

	logger.Info("using direct Elasticsearch access", slog.String("url", cfg.Elasticsearch.URL))
	client, err := retrieval.NewElasticClient(retrieval.ElasticConfig{
		URL:             cfg.Elasticsearch.URL,
		CloudID:         cfg.Elasticsearch.CloudID,
		APIKey:          cfg.Elasticsearch.APIKey,
		Username:        cfg.Elasticsearch.Username,
		Password:        cfg.Elasticsearch.Password,
		LogIndexPattern: cfg.Elasticsearch.LogIndexPattern,
		Timeout:         cfg.Elasticsearch.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

// buildTicketer selects the ticket client, or returns nil when no ticketing
// system is configured.
func buildTicketer(cfg *config.Config, logger *slog.Logger) ticket.Ticketer {
	switch cfg.TicketMode() {
	case config.ModeRemote:
		logger.Info("using remote actions service", slog.String("base_url", cfg.ActionsService.BaseURL))
		return ticket.NewRemoteClient(cfg.ActionsService.BaseURL, cfg.ActionsService.Timeout)
	case config.ModeDirect:
		logger.Info("using direct Jira access", slog.String("base_url", cfg.Jira.BaseURL))
		return ticket.NewJiraClient(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.ProjectKey, cfg.Jira.Timeout)
	}
	return nil
}
