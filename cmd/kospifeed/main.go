// kospifeed aggregates KOSPI disclosure filings and market news into one
// time-sorted feed.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seenimoa/kospifeed/api"
	"github.com/seenimoa/kospifeed/internal/app"
	"github.com/seenimoa/kospifeed/internal/config"
	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/feed"
	"github.com/seenimoa/kospifeed/internal/providers/naver"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kospifeed",
	Short: "kospifeed — KOSPI filings and news in one feed",
	Long: `kospifeed merges DART disclosure filings and Naver news search
results into a single feed sorted by publish time, served over HTTP
or printed from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := loadDotEnv(envFile); err != nil {
			return err
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", "", ".env file to load (default: ./.env when present)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadDotEnv loads path, or ./.env when path is empty. Variables already
// in the environment are kept.
func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// newApp builds the application with logs on stderr so command output on
// stdout stays machine-readable.
func newApp(w io.Writer) (*app.App, error) {
	logger := diag.NewLogger(w, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return app.New(cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kospifeed %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		if cfg.API.Key == "" {
			a.Logger.Warn("no API key configured; /updates will reject every request")
		}
		return a.Server().ListenAndServe(cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port override")
}

// --- Updates Command ---

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Print the aggregated filings and news feed as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		symbols, _ := cmd.Flags().GetString("symbols")
		market, _ := cmd.Flags().GetString("market")

		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := a.Updates.Updates(ctx, feed.UpdatesRequest{
			Since:   since,
			Limit:   limit,
			Symbols: utils.SplitList(symbols, feed.MaxSymbols),
			Market:  market,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), api.ItemsResponse{Items: res.Items})
	},
}

func init() {
	updatesCmd.Flags().String("since", "", "lower bound (ISO-8601); default now-48h")
	updatesCmd.Flags().Int("limit", feed.DefaultLimit, "maximum items (capped at 200)")
	updatesCmd.Flags().String("symbols", "", "comma-separated keywords, up to 5")
	updatesCmd.Flags().String("market", feed.DefaultMarket, "market hint (informational)")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Search news for a single keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if strings.TrimSpace(query) == "" && len(args) > 0 {
			query = strings.Join(args, " ")
		}
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("query is required")
		}
		limit, _ := cmd.Flags().GetInt("limit")
		start, _ := cmd.Flags().GetInt("start")
		sort, _ := cmd.Flags().GetString("sort")

		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Upstream.Timeout+time.Second)
		defer cancel()

		items, err := a.Naver.Search(ctx, naver.SearchParams{Query: query, Limit: limit, Start: start, Sort: sort})
		if err != nil {
			if errors.Is(err, naver.ErrRateLimited) {
				return fmt.Errorf("naver rate limit: %w", err)
			}
			return err
		}
		return printJSON(cmd.OutOrStdout(), api.ItemsResponse{Items: items})
	},
}

func init() {
	newsCmd.Flags().StringP("query", "q", "", "search keyword")
	newsCmd.Flags().Int("limit", naver.DefaultSearchLimit, "results per page (1-100)")
	newsCmd.Flags().Int("start", 1, "result offset (1-1000)")
	newsCmd.Flags().String("sort", naver.SortDate, "date or sim")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		now := time.Now()

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  kospifeed — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time zone:     %s\n", cfg.Timezone)
		fmt.Printf("  Now:           %s\n", utils.FormatISO(now, loc))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Printf("    Window:        -%s / +%s\n", cfg.Window.Lookback, cfg.Window.Lookahead)
		fmt.Printf("    Timeout:       %s\n", cfg.Upstream.Timeout)
		fmt.Printf("    DART:          corp_cls=%s page_count=%d\n", cfg.DART.CorpClass, cfg.DART.PageCount)
		fmt.Printf("    Naver:         keywords=%s concurrency=%d rate=%d/s\n",
			strings.Join(cfg.Naver.Keywords, ","), cfg.Naver.Concurrency, cfg.Naver.RateLimit)
		fmt.Printf("    RSS feeds:     %d\n", len(cfg.RSS.Feeds))
		if err := cfg.Validate(); err != nil {
			fmt.Printf("    Problems:      %s\n", strings.ReplaceAll(err.Error(), "\n", "; "))
		}
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
