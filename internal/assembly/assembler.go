// Package assembly merges finished section outputs into one ordered
// document: headings, paragraphs, placed supplements, a table of contents,
// and a references list. Assembly is a pure function of the plan and the
// shared context, so re-running it yields an identical document.
package assembly

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/longform-writer/internal/types"
)

// markerPattern matches an explicit in-text reference such as "Table 1",
// "Figure X", or "table below".
var markerPattern = map[types.ElementKind]*regexp.Regexp{
	types.ElementTable:  regexp.MustCompile(`(?i)\btable\s+(\d+|[A-Z]\b|below|above)`),
	types.ElementFigure: regexp.MustCompile(`(?i)\bfigure\s+(\d+|[A-Z]\b|below|above)`),
}

var anchorStrip = regexp.MustCompile(`[^a-z0-9 -]`)

// Assemble builds the final document from a plan whose sections have
// reached a terminal state. Failed sections and their supplements are
// omitted with a warning instead of aborting assembly.
func Assemble(plan *types.DocumentPlan, shared *types.SharedContext) *types.AssembledDocument {
	doc := &types.AssembledDocument{Title: plan.Title}
	numbers := map[types.ElementKind]int{}

	for _, sec := range plan.Sections {
		if sec.State != types.StateDone {
			doc.Warnings = append(doc.Warnings,
				fmt.Sprintf("section %q (%s) omitted: %s", sec.Title, sec.ID, omissionReason(sec)))
			for _, sup := range sec.Supplements {
				doc.Warnings = append(doc.Warnings,
					fmt.Sprintf("%s %q omitted: owning section %s not completed", sup.Kind, sup.Subject, sec.ID))
			}
			continue
		}

		anchor := Anchor(sec.Title)
		doc.TOC = append(doc.TOC, types.TOCEntry{Title: sec.Title, Anchor: anchor})
		doc.Blocks = append(doc.Blocks, types.Block{
			Kind:   types.BlockHeading,
			Level:  2,
			Text:   sec.Title,
			Anchor: anchor,
		})

		paragraphs := SplitParagraphs(sec.Content)
		placed := placeSupplements(sec, paragraphs, numbers, doc)

		for i, p := range paragraphs {
			doc.Blocks = append(doc.Blocks, types.Block{Kind: types.BlockParagraph, Text: p})
			for j := range placed {
				if placed[j].ParagraphOffset == i {
					doc.Blocks = append(doc.Blocks, types.Block{Kind: types.BlockElement, Element: &placed[j]})
				}
			}
		}
		if len(paragraphs) == 0 {
			for j := range placed {
				doc.Blocks = append(doc.Blocks, types.Block{Kind: types.BlockElement, Element: &placed[j]})
			}
		}

		for _, note := range sec.Degradations {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("section %s: %s", sec.ID, note))
		}
	}

	appendReferences(doc, shared)
	return doc
}

// placeSupplements binds each fulfilled supplement of a section to a final
// number and a paragraph offset. Placement scans for the earliest paragraph
// referencing the element, by keyword overlap with its subject or by an
// explicit "Table"/"Figure" marker, and falls back to the end of the
// section. Numbering is per kind, in document order, assigned only here so
// omitted elements never leave gaps.
func placeSupplements(sec types.SectionSpec, paragraphs []string, numbers map[types.ElementKind]int, doc *types.AssembledDocument) []types.PlacedElement {
	var placed []types.PlacedElement

	for _, sup := range sec.Supplements {
		if sup.Body == "" {
			doc.Warnings = append(doc.Warnings,
				fmt.Sprintf("%s %q omitted: never fulfilled", sup.Kind, sup.Subject))
			continue
		}

		offset := len(paragraphs) - 1
		switch {
		case sup.PlacementHint >= 0:
			offset = sup.PlacementHint
			if offset >= len(paragraphs) {
				offset = len(paragraphs) - 1
			}
		default:
			if idx := referenceParagraph(paragraphs, sup); idx >= 0 {
				offset = idx
			}
		}
		if offset < 0 {
			offset = 0
		}

		numbers[sup.Kind]++
		n := numbers[sup.Kind]
		placed = append(placed, types.PlacedElement{
			Supplement:      sup,
			Number:          n,
			Caption:         fmt.Sprintf("%s %d: %s", captionPrefix(sup.Kind), n, sup.Subject),
			SectionID:       sec.ID,
			ParagraphOffset: offset,
		})
	}
	return placed
}

// referenceParagraph returns the index of the earliest paragraph that
// plausibly references the supplement, or -1.
func referenceParagraph(paragraphs []string, sup types.SupplementSpec) int {
	subjectWords := keywordSet(sup.Subject)
	marker := markerPattern[sup.Kind]

	for i, p := range paragraphs {
		if marker != nil && marker.MatchString(p) {
			return i
		}
		if len(subjectWords) == 0 {
			continue
		}
		overlap := 0
		for w := range keywordSet(p) {
			if subjectWords[w] {
				overlap++
			}
		}
		// at least half the subject's keywords must appear
		if overlap*2 >= len(subjectWords) {
			return i
		}
	}
	return -1
}

// appendReferences emits the references section from the citation registry.
func appendReferences(doc *types.AssembledDocument, shared *types.SharedContext) {
	if shared == nil || len(shared.Citations) == 0 {
		return
	}

	anchor := Anchor("References")
	doc.TOC = append(doc.TOC, types.TOCEntry{Title: "References", Anchor: anchor})
	doc.Blocks = append(doc.Blocks, types.Block{Kind: types.BlockHeading, Level: 2, Text: "References", Anchor: anchor})

	for i, cit := range shared.Citations {
		line := fmt.Sprintf("[%d] %s", i+1, cit.Source)
		if cit.URL != "" {
			line += ". " + cit.URL
		}
		if cit.Year > 0 {
			line += fmt.Sprintf(" (%d)", cit.Year)
		}
		doc.Blocks = append(doc.Blocks, types.Block{Kind: types.BlockParagraph, Text: line})
	}
}

// SplitParagraphs splits Markdown prose on blank lines.
func SplitParagraphs(content string) []string {
	var paragraphs []string
	for _, chunk := range strings.Split(content, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			paragraphs = append(paragraphs, chunk)
		}
	}
	return paragraphs
}

// Anchor derives a URL-safe fragment identifier from a heading title.
func Anchor(title string) string {
	s := strings.ToLower(title)
	s = anchorStrip.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	return s
}

func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) >= 4 {
			set[w] = true
		}
	}
	return set
}

func captionPrefix(kind types.ElementKind) string {
	if kind == types.ElementFigure {
		return "Figure"
	}
	return "Table"
}

func omissionReason(sec types.SectionSpec) string {
	if sec.FailureReason != "" {
		return sec.FailureReason
	}
	return "section did not reach a completed state"
}
