package types

import "math"

// Dimension is a quality scoring axis
type Dimension string

// The fixed set of quality dimensions scored by the reviewer
const (
	DimClarity     Dimension = "clarity"
	DimCoherence   Dimension = "coherence"
	DimDepth       Dimension = "depth"
	DimCitations   Dimension = "citations"
	DimStructure   Dimension = "structure"
	DimOriginality Dimension = "originality"
	DimLanguage    Dimension = "language"
	DimTone        Dimension = "tone"
)

// AllDimensions lists every scoring dimension in canonical order.
var AllDimensions = []Dimension{
	DimClarity, DimCoherence, DimDepth, DimCitations,
	DimStructure, DimOriginality, DimLanguage, DimTone,
}

// QualityReport is the result of one review pass over a section or document
type QualityReport struct {
	SectionID string                `json:"section_id,omitempty"`
	Iteration int                   `json:"iteration"`
	Scores    map[Dimension]float64 `json:"scores"`
	Rationale map[Dimension]string  `json:"rationale,omitempty"`
	Composite float64               `json:"composite"`
	Passed    bool                  `json:"passed"`

	// CapReached marks the last report of a section that never met the
	// threshold within the iteration cap. Neither success nor failure.
	CapReached bool `json:"cap_reached,omitempty"`
}

// RevisionHistory is the ordered sequence of reports for one section,
// one per review iteration
type RevisionHistory []QualityReport

// ComputeComposite returns the weighted mean of the scores, rounded to two
// decimals. Dimensions missing from weights get weight 1.0; dimensions with
// zero total weight yield 0.
func ComputeComposite(scores map[Dimension]float64, weights map[string]float64) float64 {
	var sum, totalWeight float64
	for _, dim := range AllDimensions {
		score, ok := scores[dim]
		if !ok {
			continue
		}
		w := 1.0
		if weights != nil {
			if ww, ok := weights[string(dim)]; ok {
				w = ww
			}
		}
		sum += score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Round(sum/totalWeight*100) / 100
}

// LowestDimensions returns the n lowest-scoring dimensions in ascending score
// order, breaking ties by canonical dimension order for determinism.
func (r *QualityReport) LowestDimensions(n int) []Dimension {
	ordered := make([]Dimension, 0, len(AllDimensions))
	for _, dim := range AllDimensions {
		if _, ok := r.Scores[dim]; ok {
			ordered = append(ordered, dim)
		}
	}
	// Insertion sort by score; the canonical order above makes ties stable.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && r.Scores[ordered[j]] < r.Scores[ordered[j-1]]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}
