package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/longform-writer/internal/fetch"
	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/sandbox"
	"github.com/jonathan/longform-writer/internal/types"
)

// fakeClient routes canned responses by prompt content and can fail the
// first N calls to exercise the retry path.
type fakeClient struct {
	response  string
	responses map[string]string // substring match on prompt
	failFirst int
	calls     int
	prompts   []string
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, _ llm.ModelTier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.calls <= f.failFirst {
		return "", errors.New("provider overloaded")
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return f.response, nil
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeClient) GetModel(_ llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                    { return nil }

func testRequest(spec types.Specialization) Request {
	return Request{
		Plan: &types.DocumentPlan{
			Title:       "Queueing Delay in Microservice Meshes",
			Kind:        types.KindPaper,
			Level:       types.LevelGraduate,
			TargetWords: 5000,
		},
		Section: types.SectionSpec{
			ID:    "sec_2",
			Title: "Related Work",
			Role:  "related-work",
			// no word budget: the fakes answer in single sentences
			TargetWords:    0,
			KeyPoints:      []string{"prior latency studies", "mesh tracing tools"},
			Specialization: spec,
		},
		Shared: types.NewSharedContext(),
	}
}

func TestForDispatch(t *testing.T) {
	cfg := Config{Client: &fakeClient{}}

	tests := []struct {
		spec types.Specialization
		want string
	}{
		{types.SpecGeneric, "*workers.genericWorker"},
		{types.SpecResearchSynthesis, "*workers.researchWorker"},
		{types.SpecMethodology, "*workers.methodologyWorker"},
		{types.SpecDataAnalysis, "*workers.analysisWorker"},
		{types.SpecDiscussion, "*workers.discussionWorker"},
		{types.Specialization("unknown"), "*workers.genericWorker"},
	}
	for _, tt := range tests {
		got := fmt.Sprintf("%T", For(tt.spec, cfg))
		assert.Equal(t, tt.want, got, "spec %s", tt.spec)
	}
}

func TestGenericWorkerProduce(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"2-3 sentence": "Prior work measured tail latency.\n- tracing dominates overhead",
		},
		response: "Drafted prose about related work in mesh latency measurement.",
	}
	w := For(types.SpecGeneric, Config{Client: client})

	out, err := w.Produce(t.Context(), testRequest(types.SpecGeneric))
	require.NoError(t, err)

	assert.Equal(t, "sec_2", out.SectionID)
	assert.Contains(t, out.Content, "Drafted prose")
	require.NotNil(t, out.Delta.Summary)
	assert.Equal(t, "Related Work", out.Delta.Summary.Title)
	assert.Equal(t, []string{"tracing dominates overhead"}, out.Delta.Summary.KeyFindings)
	assert.Greater(t, out.Delta.WordsAdded, 0)
	assert.Empty(t, out.Degradations)
}

func TestGenerateRetriesOnceWithReducedScope(t *testing.T) {
	client := &fakeClient{failFirst: 1, response: "second attempt prose"}
	b := base{cfg: Config{Client: client, TextTimeout: time.Second}}

	out, err := b.generate(t.Context(), "full prompt", "reduced prompt", llm.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "second attempt prose", out)
	require.Len(t, client.prompts, 2)
	assert.Equal(t, "reduced prompt", client.prompts[1])
}

func TestGenerateFailsAfterRetry(t *testing.T) {
	client := &fakeClient{failFirst: 2}
	b := base{cfg: Config{Client: client, TextTimeout: time.Second}}

	_, err := b.generate(t.Context(), "p", "r", llm.TierStandard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed after retry")
	assert.Equal(t, 2, client.calls)
}

func TestGenerateDoesNotRetryCancelledContext(t *testing.T) {
	client := &fakeClient{failFirst: 2}
	b := base{cfg: Config{Client: client, TextTimeout: time.Second}}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := b.generate(ctx, "p", "r", llm.TierStandard)
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestGenerateRunsDetachedFromRunCancellation(t *testing.T) {
	client := &fakeClient{response: "prose finished during shutdown"}
	b := base{cfg: Config{Client: client, TextTimeout: time.Second}}

	// a cancelled run stops dispatch, not the call already in flight
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	out, err := b.generate(ctx, "p", "r", llm.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "prose finished during shutdown", out)
	assert.Equal(t, 1, client.calls)
}

func TestResearchWorkerFetchesSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Mesh Tracing Survey</title></head><body><main>`+
			strings.Repeat("<p>Latency tracing results across service meshes, sampled hourly.</p>", 20)+
			`</main></body></html>`)
	}))
	defer srv.Close()

	client := &fakeClient{response: "Synthesis grounded in the fetched survey."}
	w := For(types.SpecResearchSynthesis, Config{
		Client:  client,
		Fetcher: fetch.NewFetcher(&fetch.Options{Timeout: 5 * time.Second}),
	})

	req := testRequest(types.SpecResearchSynthesis)
	req.SourceURLs = []string{srv.URL}

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)

	require.Len(t, out.Delta.Citations, 1)
	assert.Equal(t, "Mesh Tracing Survey", out.Delta.Citations[0].Source)
	assert.Equal(t, srv.URL, out.Delta.Citations[0].URL)
	assert.Empty(t, out.Degradations)

	// the research prompt carries the numbered source block
	var sawSource bool
	for _, p := range client.prompts {
		if strings.Contains(p, "[1] Mesh Tracing Survey") {
			sawSource = true
		}
	}
	assert.True(t, sawSource)
}

func TestResearchWorkerDegradesWithoutFetcher(t *testing.T) {
	client := &fakeClient{response: "Synthesis from model knowledge only."}
	w := For(types.SpecResearchSynthesis, Config{Client: client})

	out, err := w.Produce(t.Context(), testRequest(types.SpecResearchSynthesis))
	require.NoError(t, err)

	assert.Empty(t, out.Delta.Citations)
	require.Len(t, out.Degradations, 1)
	assert.Contains(t, out.Degradations[0], "no external sources available")
}

func TestResearchWorkerDegradesOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := &fakeClient{response: "fallback prose"}
	w := For(types.SpecResearchSynthesis, Config{
		Client:  client,
		Fetcher: fetch.NewFetcher(&fetch.Options{Timeout: 5 * time.Second}),
	})

	req := testRequest(types.SpecResearchSynthesis)
	req.SourceURLs = []string{srv.URL + "/gone"}

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)
	assert.Empty(t, out.Delta.Citations)
	require.NotEmpty(t, out.Degradations)
	assert.Contains(t, out.Degradations[0], "source fetch failed")
}

func TestAnalysisWorkerDegradesWithoutSandbox(t *testing.T) {
	client := &fakeClient{response: "Narrative analysis without computed numbers."}
	w := For(types.SpecDataAnalysis, Config{Client: client})

	out, err := w.Produce(t.Context(), testRequest(types.SpecDataAnalysis))
	require.NoError(t, err)

	require.Len(t, out.Degradations, 1)
	assert.Contains(t, out.Degradations[0], "sandbox unavailable")
	assert.Empty(t, out.Artifacts)
}

func TestAnalysisWorkerRunsScript(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"self-contained": "```sh\necho mean_latency_ms=42\n```",
		},
		response: "The computed mean of 42ms confirms the queueing model.",
	}
	runner := sandbox.NewRunner(sandbox.Limits{
		Timeout:     10 * time.Second,
		Interpreter: "sh",
	})
	w := For(types.SpecDataAnalysis, Config{Client: client, Sandbox: runner})

	out, err := w.Produce(t.Context(), testRequest(types.SpecDataAnalysis))
	require.NoError(t, err)
	assert.Empty(t, out.Degradations)

	// the narrative prompt carries the script's stdout
	var sawOutput bool
	for _, p := range client.prompts {
		if strings.Contains(p, "mean_latency_ms=42") {
			sawOutput = true
		}
	}
	assert.True(t, sawOutput)
}

func TestAnalysisWorkerDegradesOnTimeout(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{"self-contained": "sleep 10"},
		response:  "narrative only",
	}
	runner := sandbox.NewRunner(sandbox.Limits{
		Timeout:     200 * time.Millisecond,
		Interpreter: "sh",
	})
	w := For(types.SpecDataAnalysis, Config{Client: client, Sandbox: runner})

	out, err := w.Produce(t.Context(), testRequest(types.SpecDataAnalysis))
	require.NoError(t, err)
	require.NotEmpty(t, out.Degradations)
	assert.Contains(t, out.Degradations[0], "timed out")
}

func TestDiscussionWorkerUsesDependencySummaries(t *testing.T) {
	client := &fakeClient{response: "Interpretation of upstream findings."}
	w := For(types.SpecDiscussion, Config{Client: client})

	req := testRequest(types.SpecDiscussion)
	req.Section.DependsOn = []string{"sec_1", "sec_3"}
	req.Shared.Summaries = append(req.Shared.Summaries, types.SectionSummary{
		SectionID:   "sec_1",
		Title:       "Introduction",
		Summary:     "Frames the queueing delay question.",
		KeyFindings: []string{"delay grows superlinearly"},
	})

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)

	require.Len(t, out.Degradations, 1)
	assert.Equal(t, "degraded: missing context from sec_3", out.Degradations[0])

	var sawSummary bool
	for _, p := range client.prompts {
		if strings.Contains(p, "Frames the queueing delay question.") &&
			strings.Contains(p, "delay grows superlinearly") {
			sawSummary = true
		}
	}
	assert.True(t, sawSummary)
}

func TestFulfillSupplementsTableAndFigure(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"Markdown table": "| a | b |\n|---|---|\n| 1 | 2 |",
		},
		response: "section prose",
	}
	w := For(types.SpecGeneric, Config{Client: client})

	req := testRequest(types.SpecGeneric)
	req.Section.Supplements = []types.SupplementSpec{
		{ID: "sup_1", Kind: types.ElementTable, Subject: "latency percentiles", Rows: 5, Cols: 3, SectionID: "sec_2", PlacementHint: -1},
		{ID: "sup_2", Kind: types.ElementFigure, Subject: "delay curve", Description: "Delay versus load.", SectionID: "sec_2", PlacementHint: -1},
	}

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)

	assert.Contains(t, out.Supplements["sup_1"], "| a | b |")
	assert.Equal(t, "Delay versus load.", out.Supplements["sup_2"])
}

func TestBudgetNote(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		words   int
		flagged bool
	}{
		{"no budget", 0, 500, false},
		{"on target", 1000, 1000, false},
		{"lower bound inclusive", 1000, 850, false},
		{"upper bound inclusive", 1000, 1150, false},
		{"under budget", 1000, 840, true},
		{"over budget", 1000, 1160, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := budgetNote(tt.target, tt.words)
			if tt.flagged {
				assert.Contains(t, note, "word budget missed")
			} else {
				assert.Empty(t, note)
			}
		})
	}
}

func TestProduceFlagsMissedWordBudget(t *testing.T) {
	client := &fakeClient{response: "Far too short for the budget."}
	w := For(types.SpecGeneric, Config{Client: client})

	req := testRequest(types.SpecGeneric)
	req.Section.TargetWords = 400

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)

	require.NotEmpty(t, out.Degradations)
	assert.Contains(t, out.Degradations[0], "word budget missed")
	assert.Contains(t, out.Degradations[0], "target of 400")
}

func TestProduceKeepsQuietWithinWordBudget(t *testing.T) {
	client := &fakeClient{response: strings.Repeat("steady prose under budget ", 20)}
	w := For(types.SpecGeneric, Config{Client: client})

	req := testRequest(types.SpecGeneric)
	req.Section.TargetWords = 80

	out, err := w.Produce(t.Context(), req)
	require.NoError(t, err)
	assert.Empty(t, out.Degradations)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```python\nprint(1)\n```", "print(1)"},
		{"```\necho hi\n```", "echo hi"},
		{"plain script", "plain script"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}
