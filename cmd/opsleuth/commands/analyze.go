package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsleuth/opsleuth/internal/config"
	"github.com/opsleuth/opsleuth/internal/engine"
	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/utils"
)

var (
	analyzeQuery        string
	analyzeTimeRange    int
	analyzeCreateTicket bool
	analyzeJSON         bool
	analyzeServerURL    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis from the command line",
	Long: `Runs a single incident analysis and prints the result. By default the
pipeline runs in-process against the configured backends; with --server-url
the request is sent to a running opsleuth service instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.AnalyzeRequest{
			Query:            analyzeQuery,
			TimeRangeMinutes: analyzeTimeRange,
			CreateTicket:     analyzeCreateTicket,
		}
		if err := req.Validate(); err != nil {
			return err
		}

		var (
			resp models.AnalyzeResponse
			err  error
		)
		if analyzeServerURL != "" {
			resp, err = analyzeViaServer(cmd.Context(), analyzeServerURL, req)
		} else {
			resp, err = analyzeInProcess(cmd.Context(), req)
		}
		if err != nil {
			return err
		}

		if analyzeJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(resp)
		}

		printResponse(resp)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "Incident description or search query (required)")
	analyzeCmd.Flags().IntVarP(&analyzeTimeRange, "time-range", "t", models.DefaultTimeRangeMinutes, "Time range to analyze, in minutes")
	analyzeCmd.Flags().BoolVar(&analyzeCreateTicket, "create-ticket", false, "Open an incident ticket for the finding")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the raw JSON response")
	analyzeCmd.Flags().StringVar(&analyzeServerURL, "server-url", "", "Send the request to a running opsleuth service instead of running in-process")
	_ = analyzeCmd.MarkFlagRequired("query")
}

func analyzeInProcess(ctx context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return models.AnalyzeResponse{}, err
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	retriever, err := buildRetriever(cfg, logger)
	if err != nil {
		return models.AnalyzeResponse{}, err
	}
	ticketer := buildTicketer(cfg, logger)

	pipeline := engine.NewPipeline(logger, retriever, ticketer)
	return pipeline.Analyze(ctx, req)
}

func analyzeViaServer(ctx context.Context, serverURL string, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(serverURL, "/") + "/api/v1/analyze"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("call %s: %w", url, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return models.AnalyzeResponse{}, fmt.Errorf("server returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.AnalyzeResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func printResponse(resp models.AnalyzeResponse) {
	fmt.Printf("Analysis %s (%s confidence)\n\n", resp.AnalysisID, resp.Confidence)
	fmt.Println("Summary:")
	fmt.Printf("  %s\n\n", resp.Summary)
	fmt.Println("Root cause:")
	fmt.Printf("  %s\n\n", resp.RootCause)

	if len(resp.ActionsTaken) > 0 {
		fmt.Println("Actions taken:")
		for _, action := range resp.ActionsTaken {
			line := fmt.Sprintf("  - %s via %s: %s", action.Action, action.System, action.Identifier)
			if action.Link != "" {
				line += " (" + action.Link + ")"
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	fmt.Printf("Evidence: %d citation(s)\n\n", len(resp.Evidence))
	fmt.Println("Audit trail:")
	for _, entry := range resp.AuditTrail {
		fmt.Printf("  - %s\n", entry)
	}
}
