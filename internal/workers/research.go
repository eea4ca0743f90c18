package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/types"
)

// maxResearchSources caps how many reference pages one section fetches.
const maxResearchSources = 5

// researchWorker fetches reference pages, reconciles them into a coherent
// narrative, and registers the citations it used.
type researchWorker struct {
	base
}

func (w *researchWorker) Produce(ctx context.Context, req Request) (*types.SectionOutput, error) {
	sources, citations, degradations := w.gatherSources(ctx, req)

	data := w.promptData(req)
	data["Sources"] = sources
	reducedData := w.reducedPromptData(req)
	reducedData["Sources"] = sources

	template := prompts.MustGet("workers.json", "research")
	prompt := prompts.Format(template, data)
	reduced := prompts.Format(template, reducedData)

	content, err := w.generate(ctx, prompt, reduced, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}

	return w.finish(ctx, req, content, degradations, citations), nil
}

// gatherSources fetches the request's reference URLs and renders them as a
// numbered source list. Fetch failures degrade the section rather than
// failing it: the worker falls back to model knowledge.
func (w *researchWorker) gatherSources(ctx context.Context, req Request) (string, []types.Citation, []string) {
	var degradations []string

	if w.cfg.Fetcher == nil || len(req.SourceURLs) == 0 {
		degradations = append(degradations, "no external sources available; synthesis relies on model knowledge")
		return "(no source material fetched)", nil, degradations
	}

	urls := req.SourceURLs
	if len(urls) > maxResearchSources {
		urls = urls[:maxResearchSources]
	}

	var sb strings.Builder
	var citations []types.Citation
	n := 0
	for _, url := range urls {
		source, err := w.cfg.Fetcher.Source(ctx, url)
		if err != nil {
			degradations = append(degradations, fmt.Sprintf("source fetch failed for %s", url))
			continue
		}
		n++
		title := source.Title
		if title == "" {
			title = url
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", n, title, url, truncate(source.Text, 4000))
		citations = append(citations, types.Citation{
			ID:     fmt.Sprintf("%s_c%d", req.Section.ID, n),
			Source: title,
			Title:  title,
			URL:    url,
		})
	}

	if n == 0 {
		degradations = append(degradations, "no external sources available; synthesis relies on model knowledge")
		return "(no source material fetched)", nil, degradations
	}
	return sb.String(), citations, degradations
}
