package review

import (
	"context"
	"fmt"

	"github.com/jonathan/longform-writer/internal/types"
	"github.com/jonathan/longform-writer/internal/workers"
)

// Loop drives the review-revise cycle for one section. The cycle stops on
// the first passing score or when the iteration cap is reached; the last
// produced draft is kept either way.
type Loop struct {
	Reviewer *Reviewer
}

// Run reviews a section draft and revises it until it passes or the plan's
// iteration cap is exhausted. It returns the final draft and the ordered
// history of quality reports, one per review iteration.
//
// A reviewer outage never fails the section: the current draft is kept with
// a degradation note and whatever history exists so far. The history holds
// at most MaxIterations+1 reports.
//
// Run cancellation stops the loop before the next revision starts; the
// draft in hand is kept rather than discarded.
func (l *Loop) Run(ctx context.Context, worker workers.Worker, req workers.Request, draft *types.SectionOutput) (*types.SectionOutput, types.RevisionHistory, error) {
	out := draft
	var history types.RevisionHistory

	for revisions := 0; ; revisions++ {
		report, err := l.Reviewer.Review(ctx, req.Plan, &req.Section, out.Content, len(history)+1)
		if err != nil {
			out.Degradations = append(out.Degradations,
				fmt.Sprintf("quality review unavailable; draft kept unscored: %v", err))
			return out, history, nil
		}
		history = append(history, *report)

		if report.Passed {
			return out, history, nil
		}
		if revisions >= req.Plan.Quality.MaxIterations {
			history[len(history)-1].CapReached = true
			return out, history, nil
		}
		if ctx.Err() != nil {
			history[len(history)-1].CapReached = true
			out.Degradations = append(out.Degradations,
				"revision loop stopped early: run cancelled")
			return out, history, nil
		}

		target := report.LowestDimensions(3)
		rationale := make(map[types.Dimension]string, len(target))
		for _, dim := range target {
			if why, ok := report.Rationale[dim]; ok {
				rationale[dim] = why
			}
		}
		req.Revision = &workers.RevisionRequest{
			Previous:         out.Content,
			TargetDimensions: target,
			Rationale:        rationale,
		}

		revised, err := worker.Produce(ctx, req)
		if err != nil {
			out.Degradations = append(out.Degradations,
				fmt.Sprintf("revision attempt failed; keeping previous draft: %v", err))
			return out, history, nil
		}
		out = revised
	}
}
