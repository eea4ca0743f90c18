package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/types"
)

// base holds the helpers shared by every worker variant
type base struct {
	cfg Config
}

// generate wraps one provider call in a timeout and retries exactly once
// with a reduced-scope prompt before giving up. A cancelled run context is
// never retried.
//
// Each call runs on a context detached from the run's cancellation signal:
// stopping a run halts dispatch at the next wave boundary, but a provider
// call already in flight finishes or times out on its own. Only sandbox
// executions are terminated early.
func (b *base) generate(ctx context.Context, prompt, reducedPrompt string, tier llm.ModelTier) (string, error) {
	attempt := func(p string) (string, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.TextTimeout)
		defer cancel()
		return b.cfg.Client.GenerateContent(callCtx, p, tier)
	}

	out, err := attempt(prompt)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	if reducedPrompt == "" {
		reducedPrompt = prompt
	}
	out, retryErr := attempt(reducedPrompt)
	if retryErr != nil {
		return "", fmt.Errorf("generation failed after retry: %w", retryErr)
	}
	return out, nil
}

// promptData assembles the placeholder values shared by all section prompts.
func (b *base) promptData(req Request) map[string]string {
	return map[string]string{
		"Title":       req.Section.Title,
		"Kind":        string(req.Plan.Kind),
		"Topic":       req.Plan.Title,
		"Level":       string(req.Plan.Level),
		"TargetWords": fmt.Sprintf("%d", req.Section.TargetWords),
		"KeyPoints":   keyPointList(req.Section.KeyPoints),
		"Context":     contextBlock(req.Shared),
		"Revision":    revisionBlock(req.Revision),
	}
}

// reducedPromptData halves the word budget for the retry attempt.
func (b *base) reducedPromptData(req Request) map[string]string {
	data := b.promptData(req)
	data["TargetWords"] = fmt.Sprintf("%d", req.Section.TargetWords/2)
	return data
}

// finish builds the standard section output: content, a context delta with a
// summary, and any fulfilled table supplements. Content that lands outside
// the tolerance band around the section's word budget is kept but flagged.
func (b *base) finish(ctx context.Context, req Request, content string, degradations []string, citations []types.Citation) *types.SectionOutput {
	words := wordCount(content)
	if note := budgetNote(req.Section.TargetWords, words); note != "" {
		degradations = append(degradations, note)
	}

	out := &types.SectionOutput{
		SectionID:    req.Section.ID,
		Content:      content,
		Degradations: degradations,
		Delta: types.ContextDelta{
			Citations:  citations,
			WordsAdded: words,
		},
	}

	summary, findings := b.summarize(ctx, req.Section.Title, content)
	out.Delta.Summary = &types.SectionSummary{
		SectionID:   req.Section.ID,
		Title:       req.Section.Title,
		Summary:     summary,
		KeyFindings: findings,
	}

	b.fulfillSupplements(ctx, req, out)
	return out
}

// summarize produces the 2-3 sentence digest propagated to later waves.
// A failed summary call falls back to the section's opening sentences so a
// flaky provider never fails an otherwise finished section.
func (b *base) summarize(ctx context.Context, title, content string) (string, []string) {
	prompt := prompts.Format(prompts.MustGet("workers.json", "summarize"), map[string]string{
		"Title":   title,
		"Content": truncate(content, 6000),
	})

	raw, err := b.generate(ctx, prompt, "", llm.TierLite)
	if err != nil {
		return leadingSentences(content, 2), nil
	}

	var findings []string
	var summaryLines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			findings = append(findings, strings.TrimPrefix(line, "- "))
		} else if line != "" {
			summaryLines = append(summaryLines, line)
		}
	}
	summary := strings.Join(summaryLines, " ")
	if summary == "" {
		summary = leadingSentences(content, 2)
	}
	if len(findings) > 3 {
		findings = findings[:3]
	}
	return summary, findings
}

// fulfillSupplements generates bodies for the section's required tables.
// Figures get their description as a body; actual image generation is the
// media pipeline's job, not this worker's. Supplement failures degrade the
// section, they never fail it.
func (b *base) fulfillSupplements(ctx context.Context, req Request, out *types.SectionOutput) {
	for _, sup := range req.Section.Supplements {
		if out.Supplements == nil {
			out.Supplements = make(map[string]string)
		}

		switch sup.Kind {
		case types.ElementTable:
			prompt := prompts.Format(prompts.MustGet("workers.json", "table_body"), map[string]string{
				"Subject": sup.Subject,
				"Title":   req.Section.Title,
				"Topic":   req.Plan.Title,
				"Rows":    fmt.Sprintf("%d", sup.Rows),
				"Cols":    fmt.Sprintf("%d", sup.Cols),
			})
			body, err := b.generate(ctx, prompt, "", llm.TierLite)
			if err != nil {
				out.Degradations = append(out.Degradations,
					fmt.Sprintf("table %s could not be generated: %v", sup.ID, err))
				continue
			}
			out.Supplements[sup.ID] = strings.TrimSpace(body)
		case types.ElementFigure:
			body := sup.Description
			if body == "" {
				body = sup.Subject
			}
			out.Supplements[sup.ID] = body
		}
	}
}

// keyPointList renders key points as a bulleted block.
func keyPointList(points []string) string {
	var sb strings.Builder
	for _, p := range points {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	return sb.String()
}

// contextBlock renders the shared context for prompt inclusion. Empty
// context yields an empty string so first-wave prompts stay clean.
func contextBlock(shared *types.SharedContext) string {
	if shared == nil || (len(shared.Summaries) == 0 && len(shared.Terminology) == 0) {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Context from earlier sections:\n")
	for _, s := range shared.Summaries {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Title, s.Summary)
	}
	if len(shared.Terminology) > 0 {
		sb.WriteString("Established terminology:\n")
		for term, def := range shared.Terminology {
			fmt.Fprintf(&sb, "- %s: %s\n", term, def)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// revisionBlock renders targeted revision feedback, or nothing for a first
// draft.
func revisionBlock(rev *RevisionRequest) string {
	if rev == nil {
		return ""
	}

	var dims []string
	for _, d := range rev.TargetDimensions {
		dims = append(dims, string(d))
	}

	var rationale strings.Builder
	for _, d := range rev.TargetDimensions {
		if r, ok := rev.Rationale[d]; ok && r != "" {
			fmt.Fprintf(&rationale, "- %s: %s\n", d, r)
		}
	}

	return prompts.Format(prompts.MustGet("review.json", "revision_feedback"), map[string]string{
		"Dimensions": strings.Join(dims, ", "),
		"Rationale":  rationale.String(),
		"Previous":   rev.Previous,
	})
}

// wordCount counts whitespace-separated words.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// budgetTolerancePct is the accepted deviation from a section's word
// budget, in percent, before the miss is recorded.
const budgetTolerancePct = 15

// budgetNote reports a word count landing outside the tolerance band
// around the section's budget. Sections without a budget are never
// flagged. The miss degrades the section, it never fails it.
func budgetNote(target, words int) string {
	if target <= 0 {
		return ""
	}
	low := target * (100 - budgetTolerancePct) / 100
	high := target * (100 + budgetTolerancePct) / 100
	if words >= low && words <= high {
		return ""
	}
	return fmt.Sprintf("word budget missed: wrote %d words against a target of %d (tolerance %d%%)",
		words, target, budgetTolerancePct)
}

// leadingSentences returns the first n sentences of a text.
func leadingSentences(s string, n int) string {
	count := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}
	return truncate(strings.TrimSpace(s), 300)
}

// truncate limits a string to max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !isASCIIBoundary(s, max) {
		max--
	}
	return s[:max]
}

func isASCIIBoundary(s string, i int) bool {
	return i >= len(s) || (s[i]&0xC0) != 0x80
}
