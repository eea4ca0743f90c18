// Package export renders an assembled document to Markdown and to an HTML
// preview.
package export

import (
	"fmt"
	"strings"

	"github.com/jonathan/longform-writer/internal/types"
)

// Markdown renders the assembled document as a single Markdown file: title,
// table of contents, section bodies with placed elements, and warnings as a
// trailing comment so they never pollute the document text.
func Markdown(doc *types.AssembledDocument) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)

	if len(doc.TOC) > 0 {
		sb.WriteString("## Contents\n\n")
		for _, entry := range doc.TOC {
			fmt.Fprintf(&sb, "- [%s](#%s)\n", entry.Title, entry.Anchor)
		}
		sb.WriteString("\n")
	}

	for _, block := range doc.Blocks {
		switch block.Kind {
		case types.BlockHeading:
			fmt.Fprintf(&sb, "%s %s\n\n", strings.Repeat("#", block.Level), block.Text)
		case types.BlockParagraph:
			sb.WriteString(block.Text)
			sb.WriteString("\n\n")
		case types.BlockElement:
			sb.WriteString(renderElement(block.Element))
		}
	}

	if len(doc.Warnings) > 0 {
		sb.WriteString("<!--\nAssembly warnings:\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("-->\n")
	}

	return sb.String()
}

func renderElement(el *types.PlacedElement) string {
	var sb strings.Builder
	switch el.Supplement.Kind {
	case types.ElementTable:
		sb.WriteString(strings.TrimSpace(el.Supplement.Body))
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "*%s*\n\n", el.Caption)
	case types.ElementFigure:
		fmt.Fprintf(&sb, "> %s\n\n", strings.TrimSpace(el.Supplement.Body))
		fmt.Fprintf(&sb, "*%s*\n\n", el.Caption)
	}
	return sb.String()
}
