package planning

import "math"

// MinSectionWords is the smallest viable word budget for a section. A role
// allocated less than this is merged into an adjacent role rather than
// emitted as a degenerate section.
const MinSectionWords = 100

// allocation pairs a role with its resolved word budget
type allocation struct {
	Role  RoleSpec
	Words int
}

// allocateWords distributes the total word budget over the template roles.
// Roles with a fixed share get share*total; the remainder is split over the
// weighted roles. Largest-remainder rounding keeps the section sum exactly
// equal to the total.
func allocateWords(roles []RoleSpec, totalWords int) []allocation {
	exact := make([]float64, len(roles))

	var fixedFraction, totalWeight float64
	for _, r := range roles {
		if r.Share > 0 {
			fixedFraction += r.Share
		} else {
			w := r.Weight
			if w <= 0 {
				w = 1.0
			}
			totalWeight += w
		}
	}

	remainder := 1.0 - fixedFraction
	if remainder < 0 {
		remainder = 0
	}

	for i, r := range roles {
		if r.Share > 0 {
			exact[i] = r.Share * float64(totalWords)
		} else if totalWeight > 0 {
			w := r.Weight
			if w <= 0 {
				w = 1.0
			}
			exact[i] = remainder * float64(totalWords) * w / totalWeight
		}
	}

	words := roundConserving(exact, totalWords)

	out := make([]allocation, len(roles))
	for i, r := range roles {
		out[i] = allocation{Role: r, Words: words[i]}
	}
	return out
}

// roundConserving floors each value and hands the leftover words to the
// entries with the largest fractional parts so the sum matches total exactly.
func roundConserving(exact []float64, total int) []int {
	words := make([]int, len(exact))
	fractions := make([]float64, len(exact))

	sum := 0
	for i, v := range exact {
		words[i] = int(math.Floor(v))
		fractions[i] = v - math.Floor(v)
		sum += words[i]
	}

	for sum < total {
		best := 0
		for i := 1; i < len(fractions); i++ {
			if fractions[i] > fractions[best] {
				best = i
			}
		}
		words[best]++
		fractions[best] = -1
		sum++
	}
	return words
}

// mergeDegenerate folds any allocation below MinSectionWords into an
// adjacent allocation. It prefers the nearest following role that accepts
// supplements (a body role), falling back to the previous role. The returned
// rename map records merged role names so dependency references can be
// rewritten to the surviving role.
func mergeDegenerate(allocs []allocation) ([]allocation, map[string]string) {
	renamed := make(map[string]string)

	for {
		merged := false
		for i := 0; i < len(allocs); i++ {
			if allocs[i].Words >= MinSectionWords || len(allocs) == 1 {
				continue
			}

			target := -1
			for j := i + 1; j < len(allocs); j++ {
				if allocs[j].Role.AllowsSupplements() {
					target = j
					break
				}
			}
			if target == -1 {
				if i > 0 {
					target = i - 1
				} else {
					target = 1
				}
			}

			allocs[target].Words += allocs[i].Words
			renamed[allocs[i].Role.Name] = allocs[target].Role.Name
			allocs = append(allocs[:i], allocs[i+1:]...)
			merged = true
			break
		}
		if !merged {
			break
		}
	}

	// Collapse chains left by repeated merges (a -> b, b -> c becomes a -> c).
	for from, to := range renamed {
		for {
			next, ok := renamed[to]
			if !ok {
				break
			}
			to = next
			renamed[from] = to
		}
	}

	return allocs, renamed
}
