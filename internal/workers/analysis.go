package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/sandbox"
	"github.com/jonathan/longform-writer/internal/types"
)

// analysisWorker generates an analysis script, runs it in the sandbox, and
// narrates the results. When the sandbox is unavailable or the script
// misbehaves the worker degrades to a narrative-only section instead of
// failing.
type analysisWorker struct {
	base
}

func (w *analysisWorker) Produce(ctx context.Context, req Request) (*types.SectionOutput, error) {
	output, artifacts, degradations := w.runAnalysis(ctx, req)

	data := w.promptData(req)
	data["AnalysisOutput"] = output
	reducedData := w.reducedPromptData(req)
	reducedData["AnalysisOutput"] = output

	template := prompts.MustGet("workers.json", "analysis_narrative")
	prompt := prompts.Format(template, data)
	reduced := prompts.Format(template, reducedData)

	content, err := w.generate(ctx, prompt, reduced, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	out := w.finish(ctx, req, content, degradations, nil)
	out.Artifacts = append(out.Artifacts, artifacts...)
	return out, nil
}

// runAnalysis produces and executes the analysis script. It returns the
// captured output for the narrative prompt, any artifacts the script
// produced, and the degradation notes accumulated along the way.
func (w *analysisWorker) runAnalysis(ctx context.Context, req Request) (string, []types.Artifact, []string) {
	if w.cfg.Sandbox == nil {
		return "(no computed results; analysis ran without a sandbox)", nil,
			[]string{"sandbox unavailable; analysis is narrative only"}
	}

	template := prompts.MustGet("workers.json", "analysis_script")
	prompt := prompts.Format(template, w.promptData(req))
	script, err := w.generate(ctx, prompt, prompt, llm.TierAdvanced)
	if err != nil {
		return "(no computed results; script generation failed)", nil,
			[]string{"analysis script generation failed; analysis is narrative only"}
	}
	script = stripCodeFence(script)

	// The sandbox keeps the live run context: cancelling a run terminates
	// the script while the rest of the section finishes on detached calls.
	result, err := w.cfg.Sandbox.Execute(ctx, script)
	if err != nil {
		var timeoutErr *sandbox.TimeoutError
		var resourceErr *sandbox.ResourceExceededError
		switch {
		case errors.As(err, &timeoutErr):
			return "(no computed results; analysis script timed out)", nil,
				[]string{"analysis script timed out; analysis is narrative only"}
		case errors.As(err, &resourceErr):
			return "(no computed results; analysis script exceeded output limits)", nil,
				[]string{"analysis script exceeded output limits; analysis is narrative only"}
		default:
			return "(no computed results; analysis script could not run)", nil,
				[]string{fmt.Sprintf("analysis script failed to run: %v", err)}
		}
	}

	if result.ExitCode != 0 {
		note := fmt.Sprintf("analysis script exited with status %d; results may be partial", result.ExitCode)
		return analysisOutput(result), result.Artifacts, []string{note}
	}
	return analysisOutput(result), result.Artifacts, nil
}

func analysisOutput(result *sandbox.Result) string {
	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		out = "(script produced no output)"
	}
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		out += "\n\nstderr:\n" + truncate(stderr, 2000)
	}
	return truncate(out, 8000)
}

// stripCodeFence removes a surrounding markdown code fence from generated
// scripts, including an optional language tag on the opening fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
