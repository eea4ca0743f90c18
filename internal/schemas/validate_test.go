package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_PlanOutlineValid(t *testing.T) {
	doc := `{
		"title": "Queueing Delay in Microservices",
		"sections": [
			{"role": "introduction", "title": "Introduction", "key_points": ["what", "why"]}
		]
	}`

	assert.NoError(t, Validate(PlanOutline, doc))
}

func TestValidate_PlanOutlineMissingSections(t *testing.T) {
	err := Validate(PlanOutline, `{"title": "No sections"}`)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, PlanOutline, ve.Schema)
	assert.NotEmpty(t, ve.Errors)
}

func TestValidate_QualityReportValid(t *testing.T) {
	doc := `{
		"scores": {
			"clarity": 8.5, "coherence": 7, "depth": 6.5, "citations": 5,
			"structure": 8, "originality": 7, "language": 9, "tone": 8
		},
		"rationale": {"clarity": "reads well"}
	}`

	assert.NoError(t, Validate(QualityReport, doc))
}

func TestValidate_QualityReportScoreOutOfRange(t *testing.T) {
	doc := `{
		"scores": {
			"clarity": 11, "coherence": 7, "depth": 6.5, "citations": 5,
			"structure": 8, "originality": 7, "language": 9, "tone": 8
		}
	}`

	var ve *ValidationError
	require.True(t, errors.As(Validate(QualityReport, doc), &ve))
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(PlanOutline, `{not json`)
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve), "malformed JSON should not be a ValidationError")
}

func TestValidate_UnknownSchema(t *testing.T) {
	assert.Error(t, Validate("missing.schema.json", `{}`))
}
