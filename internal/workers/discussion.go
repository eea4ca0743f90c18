package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/types"
)

// discussionWorker interprets the findings of the sections it depends on.
// It reads their summaries from the shared context rather than their full
// text, so its prompt stays bounded regardless of document size.
type discussionWorker struct {
	base
}

func (w *discussionWorker) Produce(ctx context.Context, req Request) (*types.SectionOutput, error) {
	deps, degradations := w.dependencyBlock(req)

	data := w.promptData(req)
	data["Dependencies"] = deps
	reducedData := w.reducedPromptData(req)
	reducedData["Dependencies"] = deps

	template := prompts.MustGet("workers.json", "discussion")
	prompt := prompts.Format(template, data)
	reduced := prompts.Format(template, reducedData)

	content, err := w.generate(ctx, prompt, reduced, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}

	return w.finish(ctx, req, content, degradations, nil), nil
}

// dependencyBlock renders the summaries of upstream sections. Missing
// summaries are noted as degradations so the reviewer and the final report
// can see what the discussion could not draw on.
func (w *discussionWorker) dependencyBlock(req Request) (string, []string) {
	var sb strings.Builder
	var degradations []string

	for _, depID := range req.Section.DependsOn {
		summary := req.Shared.SummaryFor(depID)
		if summary == nil {
			degradations = append(degradations,
				fmt.Sprintf("degraded: missing context from %s", depID))
			continue
		}
		fmt.Fprintf(&sb, "## %s\n%s\n", summary.Title, summary.Summary)
		for _, finding := range summary.KeyFindings {
			fmt.Fprintf(&sb, "- %s\n", finding)
		}
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "(no upstream findings available)", degradations
	}
	return sb.String(), degradations
}
