// Package pipeline provides the high-level orchestration for a document
// generation run: plan, schedule, review, assemble, export.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/longform-writer/internal/assembly"
	"github.com/jonathan/longform-writer/internal/export"
	"github.com/jonathan/longform-writer/internal/fetch"
	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/observability"
	"github.com/jonathan/longform-writer/internal/planning"
	"github.com/jonathan/longform-writer/internal/review"
	"github.com/jonathan/longform-writer/internal/sandbox"
	"github.com/jonathan/longform-writer/internal/scheduler"
	"github.com/jonathan/longform-writer/internal/store"
	"github.com/jonathan/longform-writer/internal/types"
	"github.com/jonathan/longform-writer/internal/workers"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage     string `json:"stage"`
	Wave      int    `json:"wave,omitempty"`
	SectionID string `json:"section_id,omitempty"`
	Message   string `json:"message"`
	RunID     string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Pipeline stages reported through the progress callback
const (
	StagePlanning   = "planning"
	StageExecuting  = "executing"
	StageAssembling = "assembling"
	StageExporting  = "exporting"
)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Request types.DocumentRequest

	APIKey     string
	Provider   string // "gemini" or "openai"; empty uses LLM_PROVIDER
	SourceURLs []string
	UseBrowser bool

	Concurrency   int
	Interpreter   string
	ScriptTimeout time.Duration
	TextTimeout   time.Duration
	SkipReview    bool

	// MinComposite and MaxIterations override the planned quality criteria
	// when positive.
	MinComposite  float64
	MaxIterations int

	OutputDir   string
	ArtifactDir string
	DatabaseURL string
	Verbose     bool
	OnProgress  ProgressCallback
}

// Result holds the outcome of a completed run
type Result struct {
	RunID        uuid.UUID
	Plan         *types.DocumentPlan
	Document     *types.AssembledDocument
	MarkdownPath string
	HTMLPath     string
}

// Run orchestrates the full generation pipeline from a document request.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	printer := observability.NewPrinter(os.Stdout)

	client, err := newClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	database := connectStore(ctx, opts)
	if database != nil {
		defer database.Close()
	}

	fmt.Printf("Building plan for %q (%s, %d words)...\n",
		opts.Request.Topic, opts.Request.Kind, opts.Request.TargetWords)
	emitProgress(&opts, ProgressEvent{Stage: StagePlanning, Message: "building document plan"})

	plan, err := planning.NewBuilder(client).BuildPlan(ctx, opts.Request)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	if opts.MinComposite > 0 {
		plan.Quality.MinComposite = opts.MinComposite
	}
	if opts.MaxIterations > 0 {
		plan.Quality.MaxIterations = opts.MaxIterations
	}
	if opts.Verbose {
		printer.PrintPlan(plan)
	}

	var runID uuid.UUID
	if database != nil {
		runID, err = database.CreateRun(ctx, opts.Request.Topic, string(opts.Request.Kind), opts.Request.TargetWords)
		if err != nil {
			fmt.Printf("Warning: failed to create database run: %v\n", err)
		} else {
			_ = database.SaveRequest(ctx, runID, &opts.Request)
			_ = database.SavePlan(ctx, runID, plan)
		}
	}

	shared := types.NewSharedContext()
	return execute(ctx, opts, client, database, runID, plan, shared, printer)
}

// Resume restarts a cancelled or interrupted run from its last snapshot.
// Sections already done keep their content; the scheduler re-runs the rest.
func Resume(ctx context.Context, runID uuid.UUID, opts RunOptions) (*Result, error) {
	if opts.DatabaseURL == "" {
		return nil, fmt.Errorf("resume requires a database URL")
	}

	database, err := store.Connect(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("resume requires the run database: %w", err)
	}
	defer database.Close()

	plan, err := database.GetPlan(ctx, runID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("no plan snapshot found for run %s", runID)
	}

	shared, err := database.GetSharedContext(ctx, runID)
	if err != nil {
		return nil, err
	}
	if shared == nil {
		shared = types.NewSharedContext()
	}

	if req, err := database.GetRequest(ctx, runID); err == nil && req != nil {
		opts.Request = *req
	}

	client, err := newClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	printer := observability.NewPrinter(os.Stdout)
	fmt.Printf("Resuming run %s (%d sections, %d already done)...\n",
		runID, len(plan.Sections), doneCount(plan))

	return execute(ctx, opts, client, database, runID, plan, shared, printer)
}

// execute drives scheduling, assembly and export for a prepared plan.
func execute(ctx context.Context, opts RunOptions, client llm.Client, database *store.DB, runID uuid.UUID, plan *types.DocumentPlan, shared *types.SharedContext, printer *observability.Printer) (*Result, error) {
	sched := scheduler.New(scheduler.Config{
		Workers:     workerConfig(client, opts),
		Loop:        reviewLoop(client, opts),
		Concurrency: opts.Concurrency,
		SourceURLs:  sourceURLs(opts),
		OnProgress: func(ev scheduler.Event) {
			if opts.Verbose {
				printer.PrintWaveEvent(ev.Wave, ev.SectionID, ev.State, ev.Message)
			}
			emitProgress(&opts, ProgressEvent{
				Stage:     StageExecuting,
				Wave:      ev.Wave,
				SectionID: ev.SectionID,
				Message:   string(ev.State),
				RunID:     runIDString(runID),
			})
		},
	})

	execErr := sched.Execute(ctx, plan, shared)
	plan.MeasuredWords = int(shared.Stats["words_written"])

	// Snapshot regardless of outcome so a cancelled run can resume with
	// every finished section intact. The detached context keeps the writes
	// alive after cancellation.
	if database != nil && runID != uuid.Nil {
		snapCtx := context.WithoutCancel(ctx)
		_ = database.SavePlan(snapCtx, runID, plan)
		_ = database.SaveSharedContext(snapCtx, runID, shared)
	}
	if execErr != nil {
		if database != nil && runID != uuid.Nil {
			_ = database.CompleteRun(context.WithoutCancel(ctx), runID, store.StatusCancelled)
		}
		return nil, fmt.Errorf("execution stopped: %w", execErr)
	}

	emitProgress(&opts, ProgressEvent{Stage: StageAssembling, Message: "assembling document", RunID: runIDString(runID)})
	doc := assembly.Assemble(plan, shared)
	if plan.Citations.MinSources > 0 && len(shared.Citations) < plan.Citations.MinSources {
		doc.Warnings = append(doc.Warnings,
			fmt.Sprintf("citation registry holds %d distinct sources; the plan calls for %d",
				len(shared.Citations), plan.Citations.MinSources))
	}

	result := &Result{RunID: runID, Plan: plan, Document: doc}

	emitProgress(&opts, ProgressEvent{Stage: StageExporting, Message: "exporting document", RunID: runIDString(runID)})
	if err := exportDocument(doc, opts.OutputDir, result); err != nil {
		return nil, err
	}

	if database != nil && runID != uuid.Nil {
		_ = database.SaveDocument(ctx, runID, doc)
		_ = database.SaveTextArtifact(ctx, runID, store.StepMarkdown, export.Markdown(doc))
		if html, err := export.HTML(doc); err == nil {
			_ = database.SaveTextArtifact(ctx, runID, store.StepHTML, html)
		}
		_ = database.CompleteRun(ctx, runID, runStatus(plan))
	}

	if opts.Verbose {
		printer.PrintRunReport(plan, doc)
	}
	fmt.Printf("Done: %d of %d sections completed, %d words written.\n",
		doneCount(plan), len(plan.Sections), plan.MeasuredWords)

	return result, nil
}

// newClient builds the provider client for the configured provider.
func newClient(ctx context.Context, opts RunOptions) (llm.Client, error) {
	var cfg *llm.Config
	switch opts.Provider {
	case "openai":
		cfg = llm.DefaultOpenAIConfig()
	case "gemini":
		cfg = llm.DefaultGeminiConfig()
	default:
		cfg = llm.DefaultConfig()
	}

	client, err := llm.NewClient(ctx, cfg, opts.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}
	return client, nil
}

// connectStore opens the database when configured. Persistence is optional:
// a failed connection degrades to an in-memory run with a warning.
func connectStore(ctx context.Context, opts RunOptions) *store.DB {
	if opts.DatabaseURL == "" {
		return nil
	}
	database, err := store.Connect(ctx, opts.DatabaseURL)
	if err != nil {
		fmt.Printf("Warning: failed to connect to database: %v\n", err)
		fmt.Printf("Continuing without persistence; this run cannot be resumed.\n")
		return nil
	}
	return database
}

func workerConfig(client llm.Client, opts RunOptions) workers.Config {
	cfg := workers.Config{
		Client:      client,
		TextTimeout: opts.TextTimeout,
		Verbose:     opts.Verbose,
	}
	cfg.Fetcher = fetch.NewFetcher(&fetch.Options{
		Timeout:    30 * time.Second,
		UseBrowser: opts.UseBrowser,
		Verbose:    opts.Verbose,
	})
	cfg.Sandbox = sandbox.NewRunner(sandbox.Limits{
		Timeout:     opts.ScriptTimeout,
		Interpreter: opts.Interpreter,
		ArtifactDir: opts.ArtifactDir,
	})
	return cfg
}

func reviewLoop(client llm.Client, opts RunOptions) *review.Loop {
	if opts.SkipReview {
		return nil
	}
	return &review.Loop{Reviewer: review.NewReviewer(client, 0)}
}

func sourceURLs(opts RunOptions) []string {
	urls := append([]string{}, opts.Request.SourceURLs...)
	urls = append(urls, opts.SourceURLs...)
	return urls
}

// exportDocument writes the Markdown and HTML renditions next to each other
// in the output directory.
func exportDocument(doc *types.AssembledDocument, outputDir string, result *Result) error {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := slugify(doc.Title)
	md := export.Markdown(doc)
	mdPath := filepath.Join(outputDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write Markdown export: %w", err)
	}
	result.MarkdownPath = mdPath

	html, err := export.HTML(doc)
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(outputDir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML export: %w", err)
	}
	result.HTMLPath = htmlPath
	return nil
}

func emitProgress(opts *RunOptions, ev ProgressEvent) {
	if opts.OnProgress != nil {
		opts.OnProgress(ev)
	}
}

func runIDString(runID uuid.UUID) string {
	if runID == uuid.Nil {
		return ""
	}
	return runID.String()
}

func runStatus(plan *types.DocumentPlan) string {
	if doneCount(plan) == 0 {
		return store.StatusFailed
	}
	return store.StatusCompleted
}

func doneCount(plan *types.DocumentPlan) int {
	n := 0
	for _, sec := range plan.Sections {
		if sec.State == types.StateDone {
			n++
		}
	}
	return n
}

// slugify derives a filesystem-friendly base name from the document title.
func slugify(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		slug = "document"
	}
	return slug
}
