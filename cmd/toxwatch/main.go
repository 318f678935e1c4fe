package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toxwatch/toxwatch/internal/config"
	"github.com/toxwatch/toxwatch/internal/database"
	"github.com/toxwatch/toxwatch/internal/feed"
	"github.com/toxwatch/toxwatch/internal/perspective"
	"github.com/toxwatch/toxwatch/internal/pipeline"
	"github.com/toxwatch/toxwatch/internal/ratelimit"
	"github.com/toxwatch/toxwatch/internal/reply"
	"github.com/toxwatch/toxwatch/internal/report"
	"github.com/toxwatch/toxwatch/internal/tracking"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "toxwatch",
	Short:   "Toxicity watcher for social streams",
	Long:    "Toxwatch scores streamed posts against Perspective API attributes, tracks the ones that cross the configured thresholds, and keeps a ledger of runs.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statusCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("toxwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/toxwatch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure rules, limits, and credential sources.")
		return nil
	},
}

// --- run command ---

var runSource string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch a live source and track items that cross the thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// The source is connected with the interrupt context so a SIGINT
		// tears down a read blocked on a silent connection.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src, err := openSource(ctx)
		if err != nil {
			return err
		}
		defer src.Close()

		return execute(ctx, src, runSource)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "stream", "Source to watch: stream or rss")
}

// openSource builds the feed source selected by --source. Stream connection
// failures are startup-fatal here, before the pipeline exists.
func openSource(ctx context.Context) (feed.Source, error) {
	switch runSource {
	case "stream":
		token, err := cfg.Credential(cfg.Stream.BearerTokenEnv)
		if err != nil {
			return nil, fmt.Errorf("stream credential: %w", err)
		}
		s := feed.NewStream(token)
		if err := s.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connecting to stream: %w", err)
		}
		return s, nil
	case "rss":
		if len(cfg.Feeds.URLs) == 0 {
			return nil, fmt.Errorf("no feed URLs configured; add feeds.urls to the config")
		}
		return feed.NewRSS(cfg.Feeds.URLs, cfg.Feeds.FetchContent), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want stream or rss)", runSource)
	}
}

// --- analyze command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dataset.ndjson]",
	Short: "Run the evaluation pipeline over a local dataset file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src, err := feed.OpenFile(args[0])
		if err != nil {
			return fmt.Errorf("opening dataset: %w", err)
		}
		defer src.Close()

		return execute(ctx, src, "file:"+filepath.Base(args[0]))
	},
}

// execute wires up and runs the pipeline over an open source, prints the
// summary, and records the run in the ledger. The caller has validated the
// config; ctx carries the operator interrupt.
func execute(ctx context.Context, src feed.Source, sourceName string) error {
	apiKey, err := cfg.Credential(cfg.Perspective.APIKeyEnv)
	if err != nil {
		return fmt.Errorf("perspective credential: %w", err)
	}

	limiter, err := ratelimit.New(cfg.Rate.CallsPerSecond, cfg.Padding())
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	replier, err := reply.New(cfg.Reply.Mode, cfg.Reply.Text)
	if err != nil {
		return err
	}

	trackingPath := cfg.EffectiveTrackingPath()
	store, err := tracking.Open(trackingPath, cfg.Tracking.Append)
	if err != nil {
		return fmt.Errorf("opening tracking file: %w", err)
	}
	defer store.Close()

	pipe := pipeline.New(
		src,
		perspective.NewClient(apiKey),
		limiter,
		cfg.EvaluateRules(),
		replier,
		store,
		pipeline.Options{
			MaxProcessed: cfg.Limits.MaxProcessed,
			MaxMatched:   cfg.Limits.MaxMatched,
			Language:     cfg.Language.Accept,
			AllLanguages: cfg.Language.IncludeAll,
		},
	)

	fmt.Printf("Watching %s, tracking matches to %s\n", sourceName, trackingPath)
	summary := pipe.Run(ctx)

	fmt.Println()
	fmt.Print(summary.Format())

	if err := recordRun(sourceName, summary, trackingPath); err != nil {
		log.Printf("recording run: %v", err)
	}
	return nil
}

// recordRun appends the finished run to the sqlite ledger. Ledger failures
// never mask a completed run.
func recordRun(sourceName string, s *pipeline.Summary, trackingPath string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	counts := make(map[string]int, len(s.Errors))
	for kind, n := range s.Errors {
		counts[string(kind)] = n
	}
	if s.Matched == 0 {
		trackingPath = ""
	}

	_, err = db.InsertRun(sourceName, s.Started, string(s.StopReason), s.Processed, s.Matched, counts, trackingPath)
	return err
}

// --- report command ---

var (
	reportHTML bool
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report [tracking-file.jsonl]",
	Short: "Render a tracking file as a markdown or HTML report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matches, err := tracking.ReadAll(args[0])
		if err != nil {
			return fmt.Errorf("reading tracking file: %w", err)
		}

		out := report.Compose(args[0], matches)
		if reportHTML {
			out, err = report.RenderHTML(out)
			if err != nil {
				return err
			}
		}

		if reportOut == "" {
			fmt.Print(out)
			return nil
		}
		if err := os.WriteFile(reportOut, []byte(out), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Wrote report: %s\n", reportOut)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "Render HTML instead of markdown")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "Write the report to a file instead of stdout")
}

// --- runs command ---

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRecentRuns(runsLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			errTotal := 0
			for _, n := range r.ErrorCounts {
				errTotal += n
			}
			fmt.Printf("[%d] %s  %s  %s  processed=%d matched=%d errors=%d\n",
				r.ID, r.StartedAt, r.Source, r.StopReason, r.Processed, r.Matched, errTotal)
			if r.TrackingPath != nil {
				fmt.Printf("      tracked to %s\n", *r.TrackingPath)
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aggregate ledger statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		if stats.LastRunAt != nil {
			fmt.Printf("  Last run: %s\n", *stats.LastRunAt)
		}
		fmt.Println("\nItems:")
		fmt.Printf("  Processed: %d\n", stats.TotalProcessed)
		fmt.Printf("  Matched: %d\n", stats.TotalMatched)
		fmt.Printf("  Errors: %d\n", stats.TotalErrors)

		rules := make([]string, 0, len(cfg.Rules))
		for _, r := range cfg.Rules {
			mode := r.Mode
			if mode == "" {
				mode = "above"
			}
			rules = append(rules, fmt.Sprintf("%s %s %.2f", r.Attribute, mode, r.Threshold))
		}
		fmt.Println("\nRules:")
		fmt.Printf("  %s\n", strings.Join(rules, ", "))
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "toxwatch.db")
	return database.Open(dbPath)
}
