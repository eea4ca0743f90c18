package planning

import (
	"fmt"

	"github.com/jonathan/longform-writer/internal/types"
)

// ValidatePlan checks the structural invariants of a generated plan:
// the dependency graph is acyclic with resolvable references, section word
// budgets sum to the plan total, every section meets the minimum viable
// length, and every supplement belongs to its owning section.
func ValidatePlan(plan *types.DocumentPlan) error {
	if len(plan.Sections) == 0 {
		return fmt.Errorf("plan has no sections")
	}

	ids := make(map[string]bool, len(plan.Sections))
	for _, sec := range plan.Sections {
		if ids[sec.ID] {
			return fmt.Errorf("duplicate section id %q", sec.ID)
		}
		ids[sec.ID] = true
	}

	total := 0
	for _, sec := range plan.Sections {
		total += sec.TargetWords
		if sec.TargetWords < MinSectionWords {
			return fmt.Errorf("section %q budget %d below minimum %d", sec.ID, sec.TargetWords, MinSectionWords)
		}
		for _, dep := range sec.DependsOn {
			if !ids[dep] {
				return fmt.Errorf("section %q depends on unknown section %q", sec.ID, dep)
			}
			if dep == sec.ID {
				return fmt.Errorf("section %q depends on itself", sec.ID)
			}
		}
		for _, sup := range sec.Supplements {
			if sup.SectionID != sec.ID {
				return fmt.Errorf("supplement %q owned by %q but attached to %q", sup.ID, sup.SectionID, sec.ID)
			}
		}
	}
	if total != plan.TargetWords {
		return fmt.Errorf("section budgets sum to %d, plan total is %d", total, plan.TargetWords)
	}

	return checkAcyclic(plan)
}

// checkAcyclic runs Kahn's algorithm; leftover nodes mean a cycle.
func checkAcyclic(plan *types.DocumentPlan) error {
	inDegree := make(map[string]int, len(plan.Sections))
	dependents := make(map[string][]string)

	for _, sec := range plan.Sections {
		inDegree[sec.ID] = len(sec.DependsOn)
		for _, dep := range sec.DependsOn {
			dependents[dep] = append(dependents[dep], sec.ID)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(plan.Sections) {
		return fmt.Errorf("dependency graph contains a cycle (%d of %d sections orderable)", visited, len(plan.Sections))
	}
	return nil
}
