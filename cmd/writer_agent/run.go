package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/longform-writer/internal/config"
	"github.com/jonathan/longform-writer/internal/pipeline"
	"github.com/jonathan/longform-writer/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full document generation pipeline end-to-end",
	Long: `Orchestrates the entire generation process: planning -> scheduled drafting -> quality review -> assembly -> export.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath    string
	runTopic         string
	runTargetWords   int
	runKind          string
	runLevel         string
	runWantTables    bool
	runWantFigures   bool
	runSourceURLs    []string
	runConcurrency   int
	runInterpreter   string
	runScriptTimeout int
	runTextTimeout   int
	runMinComposite  float64
	runMaxIterations int
	runSkipReview    bool
	runUseBrowser    bool
	runProvider      string
	runAPIKey        string
	runOutputDir     string
	runArtifactDir   string
	runDatabaseURL   string
	runVerbose       bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runTopic, "topic", "t", "", "Document topic (required)")
	runCommand.Flags().IntVarP(&runTargetWords, "words", "w", 0, "Target word count")
	runCommand.Flags().StringVarP(&runKind, "kind", "k", "", "Document kind: essay, article, paper or thesis-chapter")
	runCommand.Flags().StringVarP(&runLevel, "level", "l", "", "Audience level: general, undergraduate, graduate or expert")
	runCommand.Flags().BoolVar(&runWantTables, "tables", false, "Request data tables in suitable sections")
	runCommand.Flags().BoolVar(&runWantFigures, "figures", false, "Request figure descriptions in suitable sections")
	runCommand.Flags().StringSliceVar(&runSourceURLs, "source-url", nil, "Reference URL for research sections (repeatable)")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Maximum sections drafted in parallel per wave")
	runCommand.Flags().StringVar(&runInterpreter, "interpreter", "", "Interpreter for analysis scripts (default python3)")
	runCommand.Flags().IntVar(&runScriptTimeout, "script-timeout", 0, "Analysis script timeout in seconds")
	runCommand.Flags().IntVar(&runTextTimeout, "text-timeout", 0, "Text generation timeout in seconds")
	runCommand.Flags().Float64Var(&runMinComposite, "min-composite", 0, "Quality pass threshold override (0-10)")
	runCommand.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Revision cap override")
	runCommand.Flags().BoolVar(&runSkipReview, "skip-review", false, "Disable the quality review loop")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sources (requires Chrome)")
	runCommand.Flags().StringVar(&runProvider, "provider", "", "Generation provider: gemini or openai (defaults to LLM_PROVIDER env var)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Provider API key (defaults to GEMINI_API_KEY or OPENAI_API_KEY env var)")
	runCommand.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for exported Markdown/HTML")
	runCommand.Flags().StringVar(&runArtifactDir, "artifact-dir", "", "Directory for analysis script artifacts")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	if runTopic == "" {
		return fmt.Errorf("--topic is required")
	}

	req := types.DocumentRequest{
		Topic:       runTopic,
		TargetWords: runTargetWords,
		Kind:        types.DocumentKind(runKind),
		Level:       types.AudienceLevel(runLevel),
		WantTables:  runWantTables,
		WantFigures: runWantFigures,
	}
	if req.TargetWords == 0 {
		req.TargetWords = 2000
	}
	if req.Kind == "" {
		req.Kind = types.KindArticle
	}
	if req.Level == "" {
		req.Level = types.LevelGeneral
	}

	opts, err := pipelineOptions(cfg, req)
	if err != nil {
		return err
	}

	_, err = pipeline.Run(ctx, opts)
	return err
}

// loadMergedConfig loads the optional config file, applies CLI overrides for
// flags that were explicitly set, and fills remaining gaps with defaults.
func loadMergedConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if runVerbose {
			fmt.Printf("Loaded config from: %s\n", runConfigPath)
		}
	}

	// Command-line args take priority; only override when explicitly set.
	if cmd.Flags().Changed("provider") {
		cfg.Provider = runProvider
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("source-url") {
		cfg.SourceURLs = runSourceURLs
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = runConcurrency
	}
	if cmd.Flags().Changed("interpreter") {
		cfg.Interpreter = runInterpreter
	}
	if cmd.Flags().Changed("script-timeout") {
		cfg.ScriptTimeout = runScriptTimeout
	}
	if cmd.Flags().Changed("text-timeout") {
		cfg.TextTimeout = runTextTimeout
	}
	if cmd.Flags().Changed("min-composite") {
		cfg.MinComposite = runMinComposite
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = runMaxIterations
	}
	if cmd.Flags().Changed("skip-review") {
		cfg.SkipReview = runSkipReview
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("artifact-dir") {
		cfg.ArtifactDir = runArtifactDir
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		Concurrency:   3,
		ScriptTimeout: 60,
		TextTimeout:   120,
		OutputDir:     "out",
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// pipelineOptions translates merged configuration into pipeline options.
func pipelineOptions(cfg config.Config, req types.DocumentRequest) (pipeline.RunOptions, error) {
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return pipeline.RunOptions{}, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return pipeline.RunOptions{
		Request:       req,
		APIKey:        apiKey,
		Provider:      cfg.Provider,
		SourceURLs:    cfg.SourceURLs,
		UseBrowser:    cfg.UseBrowser,
		Concurrency:   cfg.Concurrency,
		Interpreter:   cfg.Interpreter,
		ScriptTimeout: time.Duration(cfg.ScriptTimeout) * time.Second,
		TextTimeout:   time.Duration(cfg.TextTimeout) * time.Second,
		MinComposite:  cfg.MinComposite,
		MaxIterations: cfg.MaxIterations,
		SkipReview:    cfg.SkipReview,
		OutputDir:     cfg.OutputDir,
		ArtifactDir:   cfg.ArtifactDir,
		DatabaseURL:   cfg.DatabaseURL,
		Verbose:       cfg.Verbose,
	}, nil
}

// resolveAPIKey falls back to the provider-specific environment variable.
func resolveAPIKey(cfg config.Config) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	switch cfg.Provider {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("OPENAI_API_KEY environment variable or --api-key flag is required")
	default:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
}
