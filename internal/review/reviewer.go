// Package review scores produced sections along fixed quality dimensions
// and drives the bounded revision loop for sections that fall short.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/schemas"
	"github.com/jonathan/longform-writer/internal/types"
)

// DefaultReviewTimeout bounds a single scoring call.
const DefaultReviewTimeout = 60 * time.Second

// Reviewer scores section content with the provider and validates the
// response against the quality report schema before trusting it.
type Reviewer struct {
	client  llm.Client
	timeout time.Duration
}

// NewReviewer creates a Reviewer. A zero timeout uses the default.
func NewReviewer(client llm.Client, timeout time.Duration) *Reviewer {
	if timeout <= 0 {
		timeout = DefaultReviewTimeout
	}
	return &Reviewer{client: client, timeout: timeout}
}

// scoreResponse mirrors the JSON shape the scoring prompt demands.
type scoreResponse struct {
	Scores    map[string]float64 `json:"scores"`
	Rationale map[string]string  `json:"rationale"`
}

// Review scores one section draft and returns the resulting report.
// The pass decision uses the plan's quality criteria: weighted composite,
// rounded to two decimals, compared inclusively against the threshold.
func (r *Reviewer) Review(ctx context.Context, plan *types.DocumentPlan, section *types.SectionSpec, content string, iteration int) (*types.QualityReport, error) {
	prompt := prompts.Format(prompts.MustGet("review.json", "score_section"), map[string]string{
		"Topic":     plan.Title,
		"Title":     section.Title,
		"KeyPoints": bulletList(section.KeyPoints),
		"Content":   content,
	})

	// The scoring call is detached from run cancellation: a stopping run
	// lets the in-flight review finish so the draft keeps its score.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	raw, err := r.client.GenerateJSON(callCtx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %w", err)
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.QualityReport, cleaned); err != nil {
		return nil, fmt.Errorf("scoring response rejected: %w", err)
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}

	report := &types.QualityReport{
		SectionID: section.ID,
		Iteration: iteration,
		Scores:    make(map[types.Dimension]float64, len(resp.Scores)),
		Rationale: make(map[types.Dimension]string, len(resp.Rationale)),
	}
	for _, dim := range types.AllDimensions {
		if score, ok := resp.Scores[string(dim)]; ok {
			report.Scores[dim] = score
		}
		if why, ok := resp.Rationale[string(dim)]; ok {
			report.Rationale[dim] = why
		}
	}

	report.Composite = types.ComputeComposite(report.Scores, plan.Quality.Weights)
	report.Passed = report.Composite >= plan.Quality.MinComposite
	return report, nil
}

func bulletList(points []string) string {
	var sb strings.Builder
	for _, p := range points {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	return sb.String()
}
