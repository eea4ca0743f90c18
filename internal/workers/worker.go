// Package workers contains the section workers that turn one section
// specification plus accumulated shared context into prose content.
// Specializations are dispatched by capability tag, not inheritance: every
// variant satisfies the same Worker contract and is testable in isolation.
package workers

import (
	"context"
	"time"

	"github.com/jonathan/longform-writer/internal/fetch"
	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/sandbox"
	"github.com/jonathan/longform-writer/internal/types"
)

// DefaultTextTimeout bounds a single text-generation call.
const DefaultTextTimeout = 90 * time.Second

// Config holds the collaborators shared by all worker variants
type Config struct {
	Client      llm.Client
	Fetcher     *fetch.Fetcher  // optional; research workers degrade without it
	Sandbox     *sandbox.Runner // optional; analysis workers degrade without it
	TextTimeout time.Duration
	Verbose     bool
}

// RevisionRequest carries targeted feedback for a revision pass
type RevisionRequest struct {
	Previous         string
	TargetDimensions []types.Dimension
	Rationale        map[types.Dimension]string
}

// Request is everything a worker needs for one production pass
type Request struct {
	Plan       *types.DocumentPlan
	Section    types.SectionSpec
	Shared     *types.SharedContext
	SourceURLs []string
	Revision   *RevisionRequest
}

// Worker produces the content for one section. A worker never blocks
// indefinitely: every external call is timeout-wrapped with a single
// reduced-scope retry before the error is surfaced.
type Worker interface {
	Produce(ctx context.Context, req Request) (*types.SectionOutput, error)
}

// For returns the worker variant for a specialization tag. Unknown tags get
// the generic narrative writer.
func For(spec types.Specialization, cfg Config) Worker {
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	b := base{cfg: cfg}

	switch spec {
	case types.SpecResearchSynthesis:
		return &researchWorker{base: b}
	case types.SpecMethodology:
		return &methodologyWorker{base: b}
	case types.SpecDataAnalysis:
		return &analysisWorker{base: b}
	case types.SpecDiscussion:
		return &discussionWorker{base: b}
	default:
		return &genericWorker{base: b}
	}
}
