package workers

import (
	"context"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/types"
)

// genericWorker is the default narrative writer for roles with no special
// capability.
type genericWorker struct {
	base
}

func (w *genericWorker) Produce(ctx context.Context, req Request) (*types.SectionOutput, error) {
	template := prompts.MustGet("workers.json", "generic")
	prompt := prompts.Format(template, w.promptData(req))
	reduced := prompts.Format(template, w.reducedPromptData(req))

	content, err := w.generate(ctx, prompt, reduced, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	return w.finish(ctx, req, content, nil, nil), nil
}

// methodologyWorker describes procedure and justifies choices. It shares the
// generic production shape with a methodology-specific prompt.
type methodologyWorker struct {
	base
}

func (w *methodologyWorker) Produce(ctx context.Context, req Request) (*types.SectionOutput, error) {
	template := prompts.MustGet("workers.json", "methodology")
	prompt := prompts.Format(template, w.promptData(req))
	reduced := prompts.Format(template, w.reducedPromptData(req))

	content, err := w.generate(ctx, prompt, reduced, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	return w.finish(ctx, req, content, nil, nil), nil
}
