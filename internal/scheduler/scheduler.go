// Package scheduler executes a document plan wave by wave. A wave is the
// set of pending sections whose dependencies have all reached a terminal
// state; sections within a wave run concurrently under a bounded pool, and
// shared context is merged only at the barrier between waves.
package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/longform-writer/internal/review"
	"github.com/jonathan/longform-writer/internal/types"
	"github.com/jonathan/longform-writer/internal/workers"
)

// DefaultConcurrency bounds how many sections run at once within a wave.
// Unbounded fan-out would exceed provider rate limits on large plans.
const DefaultConcurrency = 3

// Event reports one scheduling transition for progress display.
type Event struct {
	Wave      int
	SectionID string
	State     types.SectionState
	Message   string
}

// Config holds the collaborators the scheduler dispatches work to
type Config struct {
	Workers     workers.Config
	Loop        *review.Loop // optional; nil skips quality review
	Concurrency int
	SourceURLs  []string // reference URLs handed to research sections
	OnProgress  func(Event)
}

// Scheduler runs every section of a plan to a terminal state
type Scheduler struct {
	cfg Config
}

// New creates a Scheduler. Non-positive concurrency uses the default.
func New(cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Scheduler{cfg: cfg}
}

// sectionResult is what one section's goroutine hands back to the barrier.
type sectionResult struct {
	id      string
	output  *types.SectionOutput
	history types.RevisionHistory
	err     error
}

// Execute runs the plan until no pending sections remain, mutating section
// states in place and merging every finished section's delta into shared.
//
// A failed section never blocks its dependents: they run with a degraded
// context and a recorded warning instead of being skipped. Cancellation
// stops dispatch at the next wave boundary: sections already in flight
// finish naturally and their output is merged, sections not yet dispatched
// stay pending for a resumable restart. Only sandbox executions are
// terminated early.
func (s *Scheduler) Execute(ctx context.Context, plan *types.DocumentPlan, shared *types.SharedContext) error {
	if shared == nil {
		return fmt.Errorf("shared context must not be nil")
	}

	indegree := make(map[string]int, len(plan.Sections))
	for _, sec := range plan.Sections {
		if sec.State == "" {
			plan.SectionByID(sec.ID).State = types.StatePending
		}
		indegree[sec.ID] = len(sec.DependsOn)
	}
	// Resumed plans re-enter with some sections already terminal.
	for _, sec := range plan.Sections {
		if sec.State.Terminal() {
			s.unblockDependents(plan, sec.ID, sec.State == types.StateFailed, indegree)
		}
	}

	for wave := 1; ; wave++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready := s.nextWave(plan, indegree)
		if len(ready) == 0 {
			if s.pendingRemain(plan) {
				return fmt.Errorf("no runnable sections but %d still pending; plan graph is inconsistent", s.pendingCount(plan))
			}
			return nil
		}

		results := make([]sectionResult, len(ready))
		// A plain group, not errgroup.WithContext: cancellation must not
		// ripple into sections already dispatched. The run context still
		// reaches runSection so sandbox executions can be killed and
		// retries skipped during shutdown.
		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)

		for i, id := range ready {
			sec := plan.SectionByID(id)
			sec.State = types.StateRunning
			s.progress(Event{Wave: wave, SectionID: id, State: types.StateRunning})

			g.Go(func() error {
				results[i] = s.runSection(ctx, plan, id, shared, wave)
				return nil
			})
		}
		// Section errors are recorded per section, never returned, so
		// Wait only blocks until the wave drains.
		_ = g.Wait()

		// Barrier: exactly one goroutine merges deltas and flips states, so
		// the next wave observes a fully updated context or none of it.
		for _, res := range results {
			sec := plan.SectionByID(res.id)
			sec.History = res.history

			if res.err != nil {
				if ctx.Err() != nil {
					// The attempt failed while the run was shutting down,
					// so its retry was skipped. Resume re-runs the section
					// with the full retry budget.
					sec.State = types.StatePending
					sec.History = nil
					continue
				}
				sec.State = types.StateFailed
				sec.FailureReason = res.err.Error()
				s.progress(Event{Wave: wave, SectionID: res.id, State: types.StateFailed, Message: res.err.Error()})
			} else {
				applyOutput(sec, res.output)
				shared.Merge(res.output.Delta)
				sec.State = types.StateDone
				s.progress(Event{Wave: wave, SectionID: res.id, State: types.StateDone})
			}
			s.unblockDependents(plan, res.id, res.err != nil, indegree)
		}
	}
}

// nextWave returns the ids of all pending sections with no unresolved
// dependencies, in plan order.
func (s *Scheduler) nextWave(plan *types.DocumentPlan, indegree map[string]int) []string {
	var ready []string
	for _, sec := range plan.Sections {
		if sec.State == types.StatePending && indegree[sec.ID] == 0 {
			ready = append(ready, sec.ID)
		}
	}
	return ready
}

// runSection produces and reviews one section. All errors come back in the
// result; the goroutine itself never fails the wave. The worker gets a
// snapshot of the shared context so concurrent sections cannot observe or
// mutate the canonical copy mid-wave.
func (s *Scheduler) runSection(ctx context.Context, plan *types.DocumentPlan, id string, shared *types.SharedContext, wave int) sectionResult {
	sec := plan.SectionByID(id)
	req := workers.Request{
		Plan:    plan,
		Section: *sec,
		Shared:  shared.Clone(),
	}
	if sec.Specialization == types.SpecResearchSynthesis {
		req.SourceURLs = s.cfg.SourceURLs
	}

	worker := workers.For(sec.Specialization, s.cfg.Workers)
	out, err := worker.Produce(ctx, req)
	if err != nil {
		return sectionResult{id: id, err: fmt.Errorf("section production failed: %w", err)}
	}
	out.Degradations = mergeNotes(out.Degradations, sec.Degradations)

	if s.cfg.Loop == nil {
		return sectionResult{id: id, output: out}
	}

	s.progress(Event{Wave: wave, SectionID: id, State: types.StateReviewing})
	reviewed, history, err := s.cfg.Loop.Run(ctx, worker, req, out)
	if err != nil {
		return sectionResult{id: id, history: history, err: fmt.Errorf("review loop aborted: %w", err)}
	}
	return sectionResult{id: id, output: reviewed, history: history}
}

// unblockDependents decrements the in-degree of every section depending on
// id. When the dependency failed, each dependent gets a degradation note
// instead of staying blocked.
func (s *Scheduler) unblockDependents(plan *types.DocumentPlan, id string, failed bool, indegree map[string]int) {
	for i := range plan.Sections {
		dep := &plan.Sections[i]
		if dep.State.Terminal() {
			continue
		}
		for _, d := range dep.DependsOn {
			if d != id {
				continue
			}
			indegree[dep.ID]--
			if failed {
				dep.Degradations = append(dep.Degradations,
					fmt.Sprintf("degraded: missing context from %s", id))
			}
		}
	}
}

// applyOutput writes a finished section's content back onto its spec,
// including fulfilled supplement bodies.
func applyOutput(sec *types.SectionSpec, out *types.SectionOutput) {
	sec.Content = out.Content
	sec.Degradations = out.Degradations
	if out.Delta.Summary != nil {
		sec.Summary = out.Delta.Summary.Summary
	}
	for i := range sec.Supplements {
		if body, ok := out.Supplements[sec.Supplements[i].ID]; ok {
			sec.Supplements[i].Body = body
		}
	}
}

// mergeNotes appends extra notes, skipping exact duplicates. A discussion
// worker and the barrier can both flag the same failed dependency.
func mergeNotes(notes []string, extra []string) []string {
	for _, note := range extra {
		seen := false
		for _, existing := range notes {
			if existing == note {
				seen = true
				break
			}
		}
		if !seen {
			notes = append(notes, note)
		}
	}
	return notes
}

func (s *Scheduler) pendingRemain(plan *types.DocumentPlan) bool {
	return s.pendingCount(plan) > 0
}

func (s *Scheduler) pendingCount(plan *types.DocumentPlan) int {
	n := 0
	for _, sec := range plan.Sections {
		if !sec.State.Terminal() {
			n++
		}
	}
	return n
}

func (s *Scheduler) progress(ev Event) {
	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(ev)
	}
}
