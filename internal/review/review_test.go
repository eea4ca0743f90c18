package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/types"
	"github.com/jonathan/longform-writer/internal/workers"
)

// fakeScorer returns queued JSON scoring responses in order, repeating the
// last one when the queue runs dry.
type fakeScorer struct {
	queue []string
	err   error
	calls int
}

func (f *fakeScorer) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.queue) {
		idx = len(f.queue) - 1
	}
	return f.queue[idx], nil
}

func (f *fakeScorer) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeScorer) GetModel(_ llm.ModelTier) string { return "fake" }
func (f *fakeScorer) Close() error                    { return nil }

// fakeWorker records revision requests and returns canned drafts.
type fakeWorker struct {
	revisions []*workers.RevisionRequest
	err       error
}

func (f *fakeWorker) Produce(_ context.Context, req workers.Request) (*types.SectionOutput, error) {
	f.revisions = append(f.revisions, req.Revision)
	if f.err != nil {
		return nil, f.err
	}
	return &types.SectionOutput{
		SectionID: req.Section.ID,
		Content:   fmt.Sprintf("revision %d content", len(f.revisions)),
	}, nil
}

// scoresJSON builds a full scoring response with every dimension at base,
// overridden per dimension by overrides.
func scoresJSON(base float64, overrides map[string]float64) string {
	var parts []string
	for _, dim := range types.AllDimensions {
		v := base
		if ov, ok := overrides[string(dim)]; ok {
			v = ov
		}
		parts = append(parts, fmt.Sprintf("%q: %.1f", dim, v))
	}
	return fmt.Sprintf(`{"scores": {%s}, "rationale": {"clarity": "reads well"}}`,
		strings.Join(parts, ", "))
}

func testPlan() *types.DocumentPlan {
	return &types.DocumentPlan{
		Title: "Queueing Delay in Microservice Meshes",
		Kind:  types.KindPaper,
		Quality: types.QualityCriteria{
			MinComposite:  8.0,
			MaxIterations: 3,
		},
	}
}

func testSection() types.SectionSpec {
	return types.SectionSpec{
		ID:        "sec_2",
		Title:     "Related Work",
		KeyPoints: []string{"prior latency studies"},
	}
}

func TestReviewPassesAtThresholdInclusive(t *testing.T) {
	client := &fakeScorer{queue: []string{scoresJSON(8.0, nil)}}
	r := NewReviewer(client, 0)

	sec := testSection()
	report, err := r.Review(t.Context(), testPlan(), &sec, "draft text", 1)
	require.NoError(t, err)

	assert.Equal(t, 8.0, report.Composite)
	assert.True(t, report.Passed)
	assert.Equal(t, "sec_2", report.SectionID)
	assert.Equal(t, 1, report.Iteration)
	assert.Equal(t, "reads well", report.Rationale[types.DimClarity])
}

func TestReviewAppliesWeights(t *testing.T) {
	plan := testPlan()
	plan.Quality.Weights = map[string]float64{"clarity": 3.0}
	client := &fakeScorer{queue: []string{scoresJSON(9.0, map[string]float64{"clarity": 3.0})}}
	r := NewReviewer(client, 0)

	sec := testSection()
	report, err := r.Review(t.Context(), plan, &sec, "draft", 1)
	require.NoError(t, err)

	// (3*3 + 7*9) / 10 = 7.2
	assert.Equal(t, 7.2, report.Composite)
	assert.False(t, report.Passed)
}

func TestReviewRejectsIncompleteScores(t *testing.T) {
	client := &fakeScorer{queue: []string{`{"scores": {"clarity": 9.0}, "rationale": {}}`}}
	r := NewReviewer(client, 0)

	sec := testSection()
	_, err := r.Review(t.Context(), testPlan(), &sec, "draft", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring response rejected")
}

func TestReviewStripsCodeFence(t *testing.T) {
	client := &fakeScorer{queue: []string{"```json\n" + scoresJSON(9.0, nil) + "\n```"}}
	r := NewReviewer(client, 0)

	sec := testSection()
	report, err := r.Review(t.Context(), testPlan(), &sec, "draft", 1)
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestLoopPassesFirstTry(t *testing.T) {
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{queue: []string{scoresJSON(9.0, nil)}}, 0)}
	w := &fakeWorker{}

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(t.Context(), w, req, draft)
	require.NoError(t, err)

	assert.Equal(t, "initial draft", out.Content)
	require.Len(t, history, 1)
	assert.True(t, history[0].Passed)
	assert.Empty(t, w.revisions)
}

func TestLoopRevisesTargetingLowestDimensions(t *testing.T) {
	low := scoresJSON(9.0, map[string]float64{"depth": 4.0, "citations": 5.0, "tone": 6.0})
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{queue: []string{low, scoresJSON(9.0, nil)}}, 0)}
	w := &fakeWorker{}

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(t.Context(), w, req, draft)
	require.NoError(t, err)

	require.Len(t, w.revisions, 1)
	rev := w.revisions[0]
	require.NotNil(t, rev)
	assert.Equal(t, "initial draft", rev.Previous)
	assert.Equal(t, []types.Dimension{types.DimDepth, types.DimCitations, types.DimTone}, rev.TargetDimensions)

	assert.Equal(t, "revision 1 content", out.Content)
	require.Len(t, history, 2)
	assert.False(t, history[0].Passed)
	assert.True(t, history[1].Passed)
	assert.Equal(t, 1, history[0].Iteration)
	assert.Equal(t, 2, history[1].Iteration)
}

func TestLoopStopsAtCapWithFlag(t *testing.T) {
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{queue: []string{scoresJSON(5.0, nil)}}, 0)}
	w := &fakeWorker{}

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(t.Context(), w, req, draft)
	require.NoError(t, err)

	// initial review plus one per revision, capped
	require.Len(t, history, req.Plan.Quality.MaxIterations+1)
	assert.Len(t, w.revisions, req.Plan.Quality.MaxIterations)

	last := history[len(history)-1]
	assert.True(t, last.CapReached)
	assert.False(t, last.Passed)
	for _, report := range history[:len(history)-1] {
		assert.False(t, report.CapReached)
	}
	assert.Equal(t, "revision 3 content", out.Content)
}

func TestLoopKeepsDraftWhenReviewerUnavailable(t *testing.T) {
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{err: errors.New("provider down")}, 0)}
	w := &fakeWorker{}

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(t.Context(), w, req, draft)
	require.NoError(t, err)

	assert.Equal(t, "initial draft", out.Content)
	assert.Empty(t, history)
	require.Len(t, out.Degradations, 1)
	assert.Contains(t, out.Degradations[0], "quality review unavailable")
}

func TestLoopHaltsRevisionsOnCancelledRun(t *testing.T) {
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{queue: []string{scoresJSON(5.0, nil)}}, 0)}
	w := &fakeWorker{}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(ctx, w, req, draft)
	require.NoError(t, err)

	// the initial review still completed; no revision was started
	assert.Equal(t, "initial draft", out.Content)
	require.Len(t, history, 1)
	assert.True(t, history[0].CapReached)
	assert.Empty(t, w.revisions)
	require.NotEmpty(t, out.Degradations)
	assert.Contains(t, out.Degradations[0], "run cancelled")
}

func TestLoopKeepsDraftWhenRevisionFails(t *testing.T) {
	loop := &Loop{Reviewer: NewReviewer(&fakeScorer{queue: []string{scoresJSON(5.0, nil)}}, 0)}
	w := &fakeWorker{err: errors.New("generation failed after retry: boom")}

	req := workers.Request{Plan: testPlan(), Section: testSection()}
	draft := &types.SectionOutput{SectionID: "sec_2", Content: "initial draft"}

	out, history, err := loop.Run(t.Context(), w, req, draft)
	require.NoError(t, err)

	assert.Equal(t, "initial draft", out.Content)
	require.Len(t, history, 1)
	require.NotEmpty(t, out.Degradations)
	assert.Contains(t, out.Degradations[0], "keeping previous draft")
}
