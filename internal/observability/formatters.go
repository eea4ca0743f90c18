// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/longform-writer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPlan outputs a human-readable summary of the document plan.
func (p *Printer) PrintPlan(plan *types.DocumentPlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:   %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Kind:    %s (%s audience)\n", plan.Kind, plan.Level))
	sb.WriteString(fmt.Sprintf("Target:  %d words across %d sections\n", plan.TargetWords, len(plan.Sections)))
	sb.WriteString(fmt.Sprintf("Quality: composite ≥ %.1f, up to %d revisions\n",
		plan.Quality.MinComposite, plan.Quality.MaxIterations))
	if plan.Citations.MinSources > 0 {
		sb.WriteString(fmt.Sprintf("Sources: at least %d distinct\n", plan.Citations.MinSources))
	}
	sb.WriteString("\n")

	for _, sec := range plan.Sections {
		sb.WriteString(fmt.Sprintf("%-8s %s (%d words", sec.ID, sec.Title, sec.TargetWords))
		if len(sec.Supplements) > 0 {
			sb.WriteString(fmt.Sprintf(", %d supplements", len(sec.Supplements)))
		}
		sb.WriteString(")\n")
		if len(sec.DependsOn) > 0 {
			sb.WriteString(fmt.Sprintf("         after: %s\n", strings.Join(sec.DependsOn, ", ")))
		}
	}

	p.printBox("DOCUMENT PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQualityReport outputs the dimension scores of one review iteration.
func (p *Printer) PrintQualityReport(report *types.QualityReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Section: %s (iteration %d)\n", report.SectionID, report.Iteration))
	sb.WriteString(fmt.Sprintf("Composite: %.2f", report.Composite))
	switch {
	case report.Passed:
		sb.WriteString("  ✓ passed\n")
	case report.CapReached:
		sb.WriteString("  ⚠ revision cap reached\n")
	default:
		sb.WriteString("  ✗ below threshold\n")
	}
	sb.WriteString("\n")

	for _, dim := range types.AllDimensions {
		score, ok := report.Scores[dim]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-12s %4.1f\n", dim, score))
	}

	p.printBox("QUALITY REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunReport outputs the final per-section outcome of a run, including
// failures, degradation notes and assembly warnings.
func (p *Printer) PrintRunReport(plan *types.DocumentPlan, doc *types.AssembledDocument) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	done, failed := 0, 0
	for _, sec := range plan.Sections {
		if sec.State == types.StateDone {
			done++
		} else {
			failed++
		}
	}
	sb.WriteString(fmt.Sprintf("Sections: %d done, %d not completed\n", done, failed))
	if plan.MeasuredWords > 0 {
		sb.WriteString(fmt.Sprintf("Words:    %d written of %d planned\n", plan.MeasuredWords, plan.TargetWords))
	}
	sb.WriteString("\n")

	for _, sec := range plan.Sections {
		marker := "✓"
		if sec.State != types.StateDone {
			marker = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", marker, sec.ID, sec.Title))
		if sec.FailureReason != "" {
			sb.WriteString(fmt.Sprintf("  failed: %s\n", sec.FailureReason))
		}
		if n := len(sec.History); n > 0 {
			last := sec.History[n-1]
			sb.WriteString(fmt.Sprintf("  quality: %.2f after %d iteration(s)\n", last.Composite, n))
		}
		for i, note := range sec.Degradations {
			if i >= maxItemsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more notes\n", len(sec.Degradations)-maxItemsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  note: %s\n", note))
		}
	}

	if doc != nil && len(doc.Warnings) > 0 {
		sb.WriteString("\nAssembly warnings:\n")
		count := min(len(doc.Warnings), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", doc.Warnings[i]))
		}
		if len(doc.Warnings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Warnings)-maxItemsToShow))
		}
	}

	p.printBox("RUN REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintWaveEvent outputs one scheduler transition. Used as the scheduler's
// progress callback in verbose mode.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintWaveEvent(wave int, sectionID string, state types.SectionState, message string) {
	if message != "" {
		fmt.Fprintf(p.out, "wave %d  %-8s %-10s %s\n", wave, sectionID, state, message)
		return
	}
	fmt.Fprintf(p.out, "wave %d  %-8s %s\n", wave, sectionID, state)
}
