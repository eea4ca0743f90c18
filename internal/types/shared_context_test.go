package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedContext_MergeAppendsSummary(t *testing.T) {
	ctx := NewSharedContext()

	ctx.Merge(ContextDelta{
		Summary:    &SectionSummary{SectionID: "sec_1", Title: "Intro", Summary: "overview"},
		WordsAdded: 250,
	})

	require.Len(t, ctx.Summaries, 1)
	assert.Equal(t, "sec_1", ctx.Summaries[0].SectionID)
	assert.Equal(t, 250.0, ctx.Stats["words_written"])
	assert.Equal(t, 1.0, ctx.Stats["sections_done"])
}

func TestSharedContext_MergeDeduplicatesCitations(t *testing.T) {
	ctx := NewSharedContext()

	ctx.Merge(ContextDelta{Citations: []Citation{{ID: "c1", Source: "Smith 2021"}}})
	ctx.Merge(ContextDelta{Citations: []Citation{
		{ID: "c2", Source: "Smith 2021"},
		{ID: "c3", Source: "Jones 2019"},
	}})

	require.Len(t, ctx.Citations, 2)
	assert.True(t, ctx.HasSource("Smith 2021"))
	assert.True(t, ctx.HasSource("Jones 2019"))
}

func TestSharedContext_TerminologyFirstWriterWins(t *testing.T) {
	ctx := NewSharedContext()

	ctx.Merge(ContextDelta{Terminology: map[string]string{"wave": "original definition"}})
	ctx.Merge(ContextDelta{Terminology: map[string]string{"wave": "competing definition"}})

	assert.Equal(t, "original definition", ctx.Terminology["wave"])
}

func TestSharedContext_CloneIsIndependent(t *testing.T) {
	ctx := NewSharedContext()
	ctx.Merge(ContextDelta{
		Summary:     &SectionSummary{SectionID: "sec_1", Summary: "s"},
		Terminology: map[string]string{"term": "def"},
	})

	clone := ctx.Clone()
	clone.Summaries[0].Summary = "mutated"
	clone.Terminology["term"] = "mutated"
	clone.Stats["words_written"] = 999

	assert.Equal(t, "s", ctx.Summaries[0].Summary)
	assert.Equal(t, "def", ctx.Terminology["term"])
	assert.NotEqual(t, 999.0, ctx.Stats["words_written"])
}

func TestSharedContext_SummaryFor(t *testing.T) {
	ctx := NewSharedContext()
	ctx.Merge(ContextDelta{Summary: &SectionSummary{SectionID: "sec_2", Summary: "found"}})

	require.NotNil(t, ctx.SummaryFor("sec_2"))
	assert.Nil(t, ctx.SummaryFor("sec_9"))
}
