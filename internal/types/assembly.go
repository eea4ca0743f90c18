package types

// BlockKind identifies the kind of an assembled document block
type BlockKind string

// Block kinds emitted by the assembler
const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockElement   BlockKind = "element"
)

// Block is one unit of the assembled document body. The downstream renderer
// consumes an ordered sequence of these plus the table of contents.
type Block struct {
	Kind    BlockKind      `json:"kind"`
	Level   int            `json:"level,omitempty"` // heading level, 1-based
	Text    string         `json:"text,omitempty"`
	Element *PlacedElement `json:"element,omitempty"`
	Anchor  string         `json:"anchor,omitempty"`
}

// PlacedElement is a supplement bound to a final number and insertion point.
// Created once during assembly; immutable thereafter.
type PlacedElement struct {
	Supplement      SupplementSpec `json:"supplement"`
	Number          int            `json:"number"`
	Caption         string         `json:"caption"`
	SectionID       string         `json:"section_id"`
	ParagraphOffset int            `json:"paragraph_offset"`
}

// TOCEntry is one table-of-contents entry
type TOCEntry struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// AssembledDocument is the assembler's output contract to the rendering stage
type AssembledDocument struct {
	Title    string     `json:"title"`
	Blocks   []Block    `json:"blocks"`
	TOC      []TOCEntry `json:"toc"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Artifact is a named blob produced by a sandbox execution (e.g. a generated
// chart image or a CSV of computed statistics).
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
