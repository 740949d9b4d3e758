package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"specpilot/internal/config"
	"specpilot/internal/engine"
	"specpilot/internal/feedback"
	"specpilot/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "specpilot",
		Short: "Static analysis feedback for NestJS services",
	}
	rootPath   string
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "Project root to analyze (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the specpilot config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the report history database (SQLite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	sampleCmd.Flags().Int("depth", -1, "Maximum nesting depth (default from config)")
	sampleCmd.Flags().Bool("json", false, "Print JSON instead of a TypeScript literal")
	feedbackCmd.Flags().String("routes", "", "Routes manifest (YAML); discovered from decorators when empty")
	feedbackCmd.Flags().Bool("all", false, "Analyze every handler, not only @SpecPilot ones")
	reportsCmd.Flags().Int("limit", 10, "Number of runs to show for one route")

	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exceptionCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(reportsCmd)
}

// setup loads the config, applies flag overrides and builds the engine.
func setup() (*config.Config, *engine.Engine, string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if rootPath != "" {
		cfg.Project.Root = rootPath
	}
	if dbPath != "" {
		cfg.Output.Database = dbPath
	}

	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		log.Fatalf("Failed to resolve project root: %v", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	e := engine.New(engine.Options{
		Logger:   logger,
		TTL:      cfg.Analysis.TTL,
		MaxDepth: cfg.Analysis.MaxDepth,
	})
	if _, err := e.Project(context.Background(), root); err != nil {
		log.Fatalf("Failed to load project: %v", err)
	}
	return cfg, e, root
}

// initStore opens the history database below the project root.
func initStore(cfg *config.Config, root string) (*storage.SQLiteStore, error) {
	path := cfg.Output.Database
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return storage.NewSQLiteStore(path)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

var traceCmd = &cobra.Command{
	Use:   "trace <Controller> <handler>",
	Short: "Show the service calls an entry handler delegates to",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, e, root := setup()

		first, ok := e.FirstServiceCall(root, args[0], args[1])
		if !ok {
			fmt.Printf("No service call found in %s.%s\n", args[0], args[1])
			return
		}
		target := first.TargetType
		if target == "" {
			target = "?"
		}
		fmt.Printf("➡️  %s.%s -> this.%s (%s).%s\n", args[0], args[1], first.Field, target, first.Method)

		calls, _ := e.ServiceCalls(root, args[0], args[1])
		for _, c := range calls {
			fmt.Printf("  - this.%s.%s  [%s]\n", c.Field, c.Method, c.TargetType)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <Class> <method>",
	Short: "Report complexity, N+1 suspicion and call sites of a method",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, e, root := setup()

		res, ok := e.ServiceMethod(root, args[0], args[1])
		if !ok {
			fmt.Printf("Method %s.%s not found\n", args[0], args[1])
			return
		}
		cx, _ := e.Complexity(root, args[0], args[1])
		n1, _ := e.LoopBoundRemoteCalls(root, args[0], args[1])

		fmt.Printf("📊 %s.%s complexity: %d\n", args[0], args[1], cx)
		if n1.Suspect {
			fmt.Printf("⚠️  Possible N+1: '%s' awaited inside a loop\n", n1.Sample)
		}
		printJSON(res)
	},
}

var exceptionCmd = &cobra.Command{
	Use:   "exception <Class>",
	Short: "Infer the representative exception a class raises",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, e, root := setup()

		hint, ok := e.InferException(root, args[0])
		if !ok {
			fmt.Printf("No exception inferred for %s\n", args[0])
			return
		}
		if hint.ImportFrom != "" {
			fmt.Printf("%s (from %s)\n", hint.Name, hint.ImportFrom)
			return
		}
		fmt.Println(hint.Name)
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample <DtoClass>",
	Short: "Synthesize a minimal valid payload for a DTO class",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, e, root := setup()
		depth, _ := cmd.Flags().GetInt("depth")
		asJSON, _ := cmd.Flags().GetBool("json")

		v, ok := e.Synthesize(root, args[0], depth)
		if !ok {
			fmt.Printf("Class %s not found\n", args[0])
			return
		}
		if asJSON {
			printJSON(v)
			return
		}
		fmt.Println(v.Literal())
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Run the feedback rules for every route and write reports",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, e, root := setup()
		manifest, _ := cmd.Flags().GetString("routes")
		all, _ := cmd.Flags().GetBool("all")
		if manifest == "" {
			manifest = cfg.Project.Routes
		}

		var routes []feedback.Route
		if manifest != "" {
			var err error
			routes, err = feedback.LoadManifest(manifest)
			if err != nil {
				log.Fatalf("Failed to load routes: %v", err)
			}
		} else {
			p, err := e.Project(ctx, root)
			if err != nil {
				log.Fatalf("Failed to load project: %v", err)
			}
			routes = feedback.DiscoverRoutes(p, cfg.FeedbackPolicy(), all)
		}
		if len(routes) == 0 {
			fmt.Println("✅ No routes to analyze.")
			return
		}
		fmt.Printf("🔍 Analyzing %d routes in %s\n", len(routes), root)

		store, err := initStore(cfg, root)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		runner := feedback.NewRunner(e, feedback.RunnerOptions{
			ReportDir:  cfg.Output.ReportDir,
			FixtureDir: cfg.Output.FixtureDir,
			Policy:     cfg.FeedbackPolicy(),
			Store:      store,
		})
		outcomes, err := runner.RunAll(ctx, root, routes)
		for _, o := range outcomes {
			if o.Skipped {
				fmt.Printf("  %s -> (skipped)\n", o.Report.RouteKey)
				continue
			}
			s := o.Report.Summary
			fmt.Printf("  %s -> %s (info:%d, warn:%d, error:%d)\n", o.Report.RouteKey, o.File, s.Info, s.Warn, s.Error)
		}
		if err != nil {
			log.Fatalf("Feedback finished with errors: %v", err)
		}
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports [routeKey]",
	Short: "Show stored report history",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if rootPath != "" {
			cfg.Project.Root = rootPath
		}
		if dbPath != "" {
			cfg.Output.Database = dbPath
		}
		root, err := filepath.Abs(cfg.Project.Root)
		if err != nil {
			log.Fatalf("Failed to resolve project root: %v", err)
		}

		store, err := initStore(cfg, root)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		var records []storage.ReportRecord
		if len(args) == 1 {
			limit, _ := cmd.Flags().GetInt("limit")
			records, err = store.ReportHistory(ctx, args[0], limit)
		} else {
			records, err = store.ListLatestReports(ctx)
		}
		if err != nil {
			log.Fatalf("Failed to read reports: %v", err)
		}
		if len(records) == 0 {
			fmt.Println("No reports recorded yet.")
			return
		}
		for _, r := range records {
			fmt.Printf("%s  %-40s %s %s (info:%d, warn:%d, error:%d)\n",
				r.GeneratedAt.Format("2006-01-02 15:04:05"), r.RouteKey, r.Method, r.Path, r.Info, r.Warn, r.Error)
		}
	},
}
