package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Ayash-Bera/mathgate/backend/internal/bootstrap"
	"github.com/Ayash-Bera/mathgate/backend/internal/config"
	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/internal/restclient"
	"github.com/Ayash-Bera/mathgate/backend/internal/services"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

const defaultServer = "http://localhost:8080"

// cli carries state shared by every subcommand. The application is only
// built for commands that run the pipeline locally.
type cli struct {
	server  string
	asJSON  bool
	verbose bool

	logger *logrus.Logger
	app    *bootstrap.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "mathctl",
		Short: "Command line client for the math tutoring gateway",
		Long: `mathctl asks questions through the guarded tutoring pipeline, searches
the knowledge base and manages feedback. metrics and logs are read from a
running server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			c.logger = utils.NewLogger("warn", cmd.ErrOrStderr())
			if c.verbose {
				c.logger.SetLevel(logrus.DebugLevel)
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.server, "server", defaultServer, "Gateway server URL for metrics and logs")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Print raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		c.askCmd(),
		c.kbCmd(),
		c.feedbackCmd(),
		c.metricsCmd(),
		c.logsCmd(),
	)
	return rootCmd
}

func (c *cli) tutor(ctx context.Context) (*services.TutorService, error) {
	if c.app != nil {
		return c.app.Tutor, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// the CLI has no use for an MCP endpoint
	cfg.MCP.Enabled = false

	app, err := bootstrap.New(ctx, cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app.Tutor, nil
}

func (c *cli) askCmd() *cobra.Command {
	var userID, sessionID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a math question through the full pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tutor, err := c.tutor(cmd.Context())
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = utils.NewSessionID()
			}

			resp, err := tutor.Ask(cmd.Context(), strings.Join(args, " "),
				gateway.WithUserID(userID),
				gateway.WithSessionID(sessionID),
			)
			if err != nil {
				return err
			}
			return c.printSolve(cmd.OutOrStdout(), services.SolveResponseFrom(resp))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id recorded with the request")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (random when empty)")
	return cmd
}

func (c *cli) printSolve(w io.Writer, resp models.SolveResponse) error {
	if c.asJSON {
		return writeJSON(w, resp)
	}

	fmt.Fprintln(w, resp.Content)
	fmt.Fprintln(w)
	status := "answered"
	switch {
	case resp.Blocked:
		status = "blocked"
	case !resp.Success:
		status = "unanswered"
	}
	fmt.Fprintf(w, "status: %s  agent: %s  confidence: %.2f  time: %.2fs\n",
		status, resp.AgentUsed, resp.Confidence, resp.ProcessingTime)
	for _, g := range resp.Guardrails {
		mark := "pass"
		if !g.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s (%s, %.2f)\n", mark, g.Name, g.Action, g.Confidence)
	}
	return nil
}

func (c *cli) kbCmd() *cobra.Command {
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect the knowledge base",
	}

	var limit int
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the closest knowledge base entries for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tutor, err := c.tutor(cmd.Context())
			if err != nil {
				return err
			}

			results, err := tutor.SearchKnowledge(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}

			w := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(w, "no matches")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(w, "%d. [%.3f %s] %s\n   %s\n", i+1, r.Score, r.Relevance, r.Question, r.Answer)
			}
			return nil
		},
	}
	searchCmd.Flags().IntVarP(&limit, "limit", "k", 5, "Number of entries to return")

	kbCmd.AddCommand(searchCmd)
	return kbCmd
}

func (c *cli) feedbackCmd() *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect answer ratings",
	}

	var req models.FeedbackRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Rate an answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			tutor, err := c.tutor(cmd.Context())
			if err != nil {
				return err
			}

			record, err := tutor.SubmitFeedback(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), models.FeedbackResponse{ID: record.ID, Message: "Feedback recorded"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "feedback %s recorded\n", record.ID)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&req.Question, "question", "q", "", "Question that was answered")
	addCmd.Flags().StringVar(&req.OriginalResponse, "response", "", "Answer being rated")
	addCmd.Flags().IntVarP(&req.Rating, "rating", "r", 0, "Rating from 1 to 5")
	addCmd.Flags().StringVar(&req.FeedbackText, "text", "", "Free text feedback")
	addCmd.Flags().StringVar(&req.SuggestedCorrection, "correction", "", "Suggested corrected answer")
	_ = addCmd.MarkFlagRequired("question")
	_ = addCmd.MarkFlagRequired("rating")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate feedback statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tutor, err := c.tutor(cmd.Context())
			if err != nil {
				return err
			}

			stats, err := tutor.FeedbackStats(cmd.Context())
			if err != nil {
				return err
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d  average: %.2f  positive: %d  negative: %d\n",
				stats.Total, stats.AverageRating, stats.Positive, stats.Negative)
			return nil
		},
	}

	feedbackCmd.AddCommand(addCmd, statsCmd)
	return feedbackCmd
}

func (c *cli) metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show gateway metrics from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var metrics gateway.Metrics
			if err := c.fetch(cmd.Context(), "/api/v1/metrics", &metrics); err != nil {
				return err
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), metrics)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "total requests:      %d\n", metrics.TotalRequests)
			fmt.Fprintf(w, "blocked requests:    %d\n", metrics.BlockedRequests)
			fmt.Fprintf(w, "successful requests: %d\n", metrics.SuccessfulRequests)
			fmt.Fprintf(w, "success rate:        %.1f%%\n", metrics.SuccessRate)
			fmt.Fprintf(w, "block rate:          %.1f%%\n", metrics.BlockRate)
			fmt.Fprintf(w, "avg processing time: %.2fs\n", metrics.AverageProcessingTime)
			return nil
		},
	}
}

func (c *cli) logsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent requests from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []gateway.LogEntry
			if err := c.fetch(cmd.Context(), "/api/v1/logs?limit="+strconv.Itoa(limit), &entries); err != nil {
				return err
			}
			if c.asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-14s  ok=%-5t blocked=%-5t %.2fs  %s\n",
					e.Timestamp.Format(time.RFC3339), e.AgentUsed, e.Success, e.Blocked, e.ProcessingTime, e.UserQuery)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries (0 = all)")
	return cmd
}

// fetch reads the data field of an API envelope from the server.
func (c *cli) fetch(ctx context.Context, endpoint string, out interface{}) error {
	client := restclient.New("gateway", strings.TrimRight(c.server, "/"), 10*time.Second, c.logger)

	var envelope struct {
		utils.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := client.Do(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("server error: %s", envelope.Message)
	}
	return json.Unmarshal(envelope.Data, out)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
