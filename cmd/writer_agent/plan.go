package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/longform-writer/internal/config"
	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/observability"
	"github.com/jonathan/longform-writer/internal/planning"
	"github.com/jonathan/longform-writer/internal/store"
	"github.com/jonathan/longform-writer/internal/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build and print a document plan without drafting it",
	Long:  "Decomposes a topic into a dependency-ordered section plan with per-section word budgets, specializations and quality criteria. Optionally persists the plan so a later run can execute it.",
	RunE:  runPlan,
}

var (
	planTopic       string
	planTargetWords int
	planKind        string
	planLevel       string
	planWantTables  bool
	planWantFigures bool
	planProvider    string
	planAPIKey      string
	planDatabaseURL string
	planPersist     bool
)

func init() {
	planCmd.Flags().StringVarP(&planTopic, "topic", "t", "", "Document topic (required)")
	planCmd.Flags().IntVarP(&planTargetWords, "words", "w", 2000, "Target word count")
	planCmd.Flags().StringVarP(&planKind, "kind", "k", "article", "Document kind: essay, article, paper or thesis-chapter")
	planCmd.Flags().StringVarP(&planLevel, "level", "l", "general", "Audience level: general, undergraduate, graduate or expert")
	planCmd.Flags().BoolVar(&planWantTables, "tables", false, "Request data tables in suitable sections")
	planCmd.Flags().BoolVar(&planWantFigures, "figures", false, "Request figure descriptions in suitable sections")
	planCmd.Flags().StringVar(&planProvider, "provider", "", "Generation provider: gemini or openai")
	planCmd.Flags().StringVar(&planAPIKey, "api-key", "", "Provider API key (defaults to GEMINI_API_KEY or OPENAI_API_KEY env var)")
	planCmd.Flags().StringVar(&planDatabaseURL, "db-url", "", "PostgreSQL connection URL (only needed with --save)")
	planCmd.Flags().BoolVar(&planPersist, "save", false, "Persist the plan as a new run snapshot")

	if err := planCmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("failed to mark topic flag as required: %v", err))
	}

	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	apiKey, err := resolveAPIKey(config.Config{Provider: planProvider, APIKey: planAPIKey})
	if err != nil {
		return err
	}

	var cfg *llm.Config
	switch planProvider {
	case "openai":
		cfg = llm.DefaultOpenAIConfig()
	case "gemini":
		cfg = llm.DefaultGeminiConfig()
	default:
		cfg = llm.DefaultConfig()
	}

	client, err := llm.NewClient(ctx, cfg, apiKey)
	if err != nil {
		return fmt.Errorf("failed to initialize generation provider: %w", err)
	}
	defer func() { _ = client.Close() }()

	req := types.DocumentRequest{
		Topic:       planTopic,
		TargetWords: planTargetWords,
		Kind:        types.DocumentKind(planKind),
		Level:       types.AudienceLevel(planLevel),
		WantTables:  planWantTables,
		WantFigures: planWantFigures,
	}

	plan, err := planning.NewBuilder(client).BuildPlan(ctx, req)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintPlan(plan)

	if !planPersist {
		return nil
	}

	if planDatabaseURL == "" {
		planDatabaseURL = os.Getenv("DATABASE_URL")
	}
	if planDatabaseURL == "" {
		return fmt.Errorf("--save requires DATABASE_URL or --db-url")
	}

	database, err := store.Connect(ctx, planDatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	runID, err := database.CreateRun(ctx, req.Topic, string(req.Kind), req.TargetWords)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	if err := database.SaveRequest(ctx, runID, &req); err != nil {
		return fmt.Errorf("failed to save request snapshot: %w", err)
	}
	if err := database.SavePlan(ctx, runID, plan); err != nil {
		return fmt.Errorf("failed to save plan snapshot: %w", err)
	}

	fmt.Printf("Plan saved as run %s; execute it with: writer_agent resume %s\n", runID, runID)
	return nil
}
