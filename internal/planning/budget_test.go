package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestAllocateWords_ConservesTotal(t *testing.T) {
	roles := []RoleSpec{
		{Name: "introduction", Share: 0.13, Supplements: boolPtr(false)},
		{Name: "body-a", Weight: 1.0},
		{Name: "body-b", Weight: 1.5},
		{Name: "conclusion", Share: 0.13, Supplements: boolPtr(false)},
	}

	for _, total := range []int{777, 1000, 4999, 12345} {
		allocs := allocateWords(roles, total)
		sum := 0
		for _, a := range allocs {
			sum += a.Words
		}
		assert.Equal(t, total, sum, "total %d", total)
	}
}

func TestAllocateWords_RespectsSharesAndWeights(t *testing.T) {
	roles := []RoleSpec{
		{Name: "introduction", Share: 0.2},
		{Name: "body-a", Weight: 1.0},
		{Name: "body-b", Weight: 3.0},
	}

	allocs := allocateWords(roles, 1000)
	assert.Equal(t, 200, allocs[0].Words)
	assert.Greater(t, allocs[2].Words, allocs[1].Words)
}

func TestAllocateWords_ZeroWeightDefaultsToOne(t *testing.T) {
	roles := []RoleSpec{
		{Name: "a"},
		{Name: "b"},
	}

	allocs := allocateWords(roles, 1000)
	assert.Equal(t, 500, allocs[0].Words)
	assert.Equal(t, 500, allocs[1].Words)
}

func TestMergeDegenerate_FoldsSmallSections(t *testing.T) {
	allocs := []allocation{
		{Role: RoleSpec{Name: "introduction", Supplements: boolPtr(false)}, Words: 40},
		{Role: RoleSpec{Name: "body"}, Words: 300},
		{Role: RoleSpec{Name: "conclusion", Supplements: boolPtr(false)}, Words: 60},
	}

	merged, renamed := mergeDegenerate(allocs)
	require.Len(t, merged, 1)
	assert.Equal(t, "body", merged[0].Role.Name)
	assert.Equal(t, 400, merged[0].Words)
	assert.Equal(t, "body", renamed["introduction"])
	assert.Equal(t, "body", renamed["conclusion"])
}

func TestMergeDegenerate_NoChangeWhenViable(t *testing.T) {
	allocs := []allocation{
		{Role: RoleSpec{Name: "a"}, Words: 200},
		{Role: RoleSpec{Name: "b"}, Words: 300},
	}

	merged, renamed := mergeDegenerate(allocs)
	assert.Len(t, merged, 2)
	assert.Empty(t, renamed)
}

func TestMergeDegenerate_CollapsesRenameChains(t *testing.T) {
	allocs := []allocation{
		{Role: RoleSpec{Name: "a"}, Words: 50},
		{Role: RoleSpec{Name: "b"}, Words: 30},
		{Role: RoleSpec{Name: "c"}, Words: 500},
	}

	merged, renamed := mergeDegenerate(allocs)
	require.Len(t, merged, 1)
	assert.Equal(t, "c", merged[0].Role.Name)
	assert.Equal(t, "c", renamed["a"])
	assert.Equal(t, "c", renamed["b"])
}
