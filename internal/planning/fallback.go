package planning

import (
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/types"
)

// fallbackOutline produces a usable outline without any provider call.
// Plan generation must never fail outright for lack of an external service,
// so this path has no error returns.
func fallbackOutline(req types.DocumentRequest, allocs []allocation) outline {
	out := outline{
		Title: fallbackTitle(req),
	}

	for _, a := range allocs {
		title := a.Role.TitleHint
		if title == "" {
			title = titleCase(a.Role.Name)
		}

		out.Sections = append(out.Sections, outlineSection{
			Role:      a.Role.Name,
			Title:     title,
			KeyPoints: fallbackKeyPoints(req.Topic, a.Role),
		})
	}
	return out
}

func fallbackTitle(req types.DocumentRequest) string {
	switch req.Kind {
	case types.KindPaper, types.KindThesisChapter:
		return fmt.Sprintf("%s: An Analysis", titleCase(req.Topic))
	default:
		return titleCase(req.Topic)
	}
}

// fallbackKeyPoints derives generic but serviceable key points from the role
// and topic. Three to six points per section, per the planning contract.
func fallbackKeyPoints(topic string, role RoleSpec) []string {
	switch role.Specialization {
	case types.SpecResearchSynthesis:
		return []string{
			fmt.Sprintf("Survey existing work on %s", topic),
			"Identify points of agreement across sources",
			"Flag open disagreements and gaps",
		}
	case types.SpecMethodology:
		return []string{
			fmt.Sprintf("Describe the approach used to examine %s", topic),
			"Justify the chosen methods over alternatives",
			"State assumptions and limitations",
		}
	case types.SpecDataAnalysis:
		return []string{
			fmt.Sprintf("Present quantitative findings about %s", topic),
			"Summarize the central tendencies and outliers",
			"Relate the numbers back to the research question",
		}
	case types.SpecDiscussion:
		return []string{
			"Interpret the findings of the preceding sections",
			"Weigh competing explanations",
			fmt.Sprintf("State what the findings mean for %s in practice", topic),
		}
	}

	switch role.Name {
	case "introduction":
		return []string{
			fmt.Sprintf("Introduce %s and why it matters", topic),
			"State the scope and structure of the document",
			"Preview the main line of argument",
		}
	case "conclusion":
		return []string{
			"Restate the central findings",
			"Acknowledge limitations",
			"Point to directions for further work",
		}
	default:
		return []string{
			fmt.Sprintf("Develop one major aspect of %s", topic),
			"Support the argument with concrete examples",
			"Connect back to the document's central claim",
		}
	}
}

// titleCase uppercases the first letter of every word. Adequate for fallback
// titles; proper heading capitalization comes from the provider path.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
