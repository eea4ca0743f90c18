package planning

import (
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/types"
)

// distributeSupplements attaches table/figure requirements to body sections:
// one element per 2-3 body sections, never the introduction or conclusion.
// Each element's subject is seeded from a body section's key points, then the
// element is attached to the section whose key points overlap the subject
// best (usually, but not necessarily, the seeding section).
func distributeSupplements(plan *types.DocumentPlan, req types.DocumentRequest, allocs []allocation) {
	var bodyIdx []int
	for i, a := range allocs {
		if a.Role.AllowsSupplements() {
			bodyIdx = append(bodyIdx, i)
		}
	}
	if len(bodyIdx) == 0 {
		return
	}

	count := (len(bodyIdx) + 2) / 3
	if count < 1 {
		count = 1
	}

	next := 1
	if req.WantTables {
		for n := 0; n < count; n++ {
			seed := bodyIdx[(n*len(bodyIdx))/count]
			subject := subjectFromKeyPoints(plan.Sections[seed], req.Topic)
			attach(plan, bodyIdx, types.SupplementSpec{
				ID:            fmt.Sprintf("sup_%d", next),
				Kind:          types.ElementTable,
				Subject:       subject,
				Rows:          5,
				Cols:          3,
				PlacementHint: -1,
			})
			next++
		}
	}
	if req.WantFigures {
		for n := 0; n < count; n++ {
			seed := bodyIdx[(n*len(bodyIdx))/count]
			subject := subjectFromKeyPoints(plan.Sections[seed], req.Topic)
			attach(plan, bodyIdx, types.SupplementSpec{
				ID:            fmt.Sprintf("sup_%d", next),
				Kind:          types.ElementFigure,
				Subject:       subject,
				Description:   fmt.Sprintf("Visual overview of %s", subject),
				PlacementHint: -1,
			})
			next++
		}
	}
}

// attach binds a supplement to the body section whose key points share the
// most keywords with the subject. Ties go to the earlier section.
func attach(plan *types.DocumentPlan, bodyIdx []int, sup types.SupplementSpec) {
	best, bestScore := bodyIdx[0], -1
	for _, i := range bodyIdx {
		score := keywordOverlap(sup.Subject, strings.Join(plan.Sections[i].KeyPoints, " "))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	sup.SectionID = plan.Sections[best].ID
	plan.Sections[best].Supplements = append(plan.Sections[best].Supplements, sup)
}

// subjectFromKeyPoints derives an element subject from a section's first key
// point, trimmed to a short phrase.
func subjectFromKeyPoints(sec types.SectionSpec, topic string) string {
	if len(sec.KeyPoints) > 0 {
		words := strings.Fields(sec.KeyPoints[0])
		if len(words) > 6 {
			words = words[:6]
		}
		return strings.ToLower(strings.Join(words, " "))
	}
	return strings.ToLower(topic)
}

// keywordOverlap counts distinct lowercase words of length >= 4 shared
// between a and b. Simple overlap is all the placement heuristic needs.
func keywordOverlap(a, b string) int {
	aWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) >= 4 {
			aWords[w] = true
		}
	}

	seen := make(map[string]bool)
	count := 0
	for _, w := range strings.Fields(strings.ToLower(b)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if aWords[w] && !seen[w] {
			seen[w] = true
			count++
		}
	}
	return count
}
