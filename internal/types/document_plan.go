// Package types provides type definitions for structured data used throughout the longform-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// DocumentKind identifies the structural template used for a document
type DocumentKind string

// Supported document kinds
const (
	KindEssay         DocumentKind = "essay"
	KindArticle       DocumentKind = "article"
	KindPaper         DocumentKind = "paper"
	KindThesisChapter DocumentKind = "thesis-chapter"
)

// AudienceLevel represents the target reader sophistication
type AudienceLevel string

// Supported audience levels, ordered from least to most demanding
const (
	LevelGeneral       AudienceLevel = "general"
	LevelUndergraduate AudienceLevel = "undergraduate"
	LevelGraduate      AudienceLevel = "graduate"
	LevelExpert        AudienceLevel = "expert"
)

// DocumentRequest is the structured generation request consumed by the plan builder.
// It is produced upstream (intent parsing is out of scope for this system).
type DocumentRequest struct {
	Topic       string        `json:"topic" validate:"required,min=3"`
	TargetWords int           `json:"target_words" validate:"required,min=300,max=100000"`
	Kind        DocumentKind  `json:"kind" validate:"required,oneof=essay article paper thesis-chapter"`
	Level       AudienceLevel `json:"level" validate:"required,oneof=general undergraduate graduate expert"`
	WantTables  bool          `json:"want_tables"`
	WantFigures bool          `json:"want_figures"`
	SourceURLs  []string      `json:"source_urls,omitempty" validate:"dive,url"`
}

// DocumentPlan is the root artifact of planning: a validated DAG of section
// specifications plus document-wide strategies
type DocumentPlan struct {
	Title       string           `json:"title"`
	Kind        DocumentKind     `json:"kind"`
	Level       AudienceLevel    `json:"level"`
	TargetWords int              `json:"target_words"`
	Sections    []SectionSpec    `json:"sections"`
	Citations   CitationStrategy `json:"citations"`
	Quality     QualityCriteria  `json:"quality"`

	// MeasuredWords is filled after execution with the actual word total.
	MeasuredWords int `json:"measured_words,omitempty"`
}

// SectionState is the lifecycle state of a planned section
type SectionState string

// Section lifecycle states. Transitions are owned by the scheduler:
// Pending -> Ready -> Running -> Reviewing -> Done | Failed.
const (
	StatePending   SectionState = "pending"
	StateReady     SectionState = "ready"
	StateRunning   SectionState = "running"
	StateReviewing SectionState = "reviewing"
	StateDone      SectionState = "done"
	StateFailed    SectionState = "failed"
)

// Specialization selects which section worker variant handles a section
type Specialization string

// Section worker specializations
const (
	SpecGeneric           Specialization = "generic"
	SpecResearchSynthesis Specialization = "research-synthesis"
	SpecMethodology       Specialization = "methodology"
	SpecDataAnalysis      Specialization = "data-analysis"
	SpecDiscussion        Specialization = "discussion"
)

// SectionSpec is one planned section of a document
type SectionSpec struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Role           string           `json:"role"`
	TargetWords    int              `json:"target_words"`
	KeyPoints      []string         `json:"key_points"`
	Specialization Specialization   `json:"specialization"`
	DependsOn      []string         `json:"depends_on,omitempty"`
	Supplements    []SupplementSpec `json:"supplements,omitempty"`

	// Execution state, mutated only by the scheduler and the review loop.
	State         SectionState    `json:"state"`
	Content       string          `json:"content,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Degradations  []string        `json:"degradations,omitempty"`
	History       RevisionHistory `json:"history,omitempty"`
}

// ElementKind distinguishes tables from figures
type ElementKind string

// Supplement kinds
const (
	ElementTable  ElementKind = "table"
	ElementFigure ElementKind = "figure"
)

// SupplementSpec describes a required table or figure. Every supplement
// belongs to exactly one section, identified by SectionID.
type SupplementSpec struct {
	ID          string      `json:"id"`
	Kind        ElementKind `json:"kind"`
	Subject     string      `json:"subject"`
	Description string      `json:"description,omitempty"`
	Rows        int         `json:"rows,omitempty"`
	Cols        int         `json:"cols,omitempty"`
	SectionID   string      `json:"section_id"`

	// PlacementHint is an explicit paragraph index, or -1 when placement
	// should be inferred from the section text.
	PlacementHint int `json:"placement_hint"`

	// Body holds the fulfilled content: Markdown table rows for tables,
	// or a path/description for figures.
	Body string `json:"body,omitempty"`
}

// CitationStrategy captures document-wide citation requirements
type CitationStrategy struct {
	DensityPer1000 float64 `json:"density_per_1000"`
	MinSources     int     `json:"min_sources"`
}

// QualityCriteria configures the review loop for a plan
type QualityCriteria struct {
	MinComposite  float64            `json:"min_composite"`
	MaxIterations int                `json:"max_iterations"`
	Weights       map[string]float64 `json:"weights,omitempty"`
}

// SectionByID returns a pointer to the section with the given id, or nil.
func (p *DocumentPlan) SectionByID(id string) *SectionSpec {
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			return &p.Sections[i]
		}
	}
	return nil
}

// Terminal reports whether the state is Done or Failed.
func (s SectionState) Terminal() bool {
	return s == StateDone || s == StateFailed
}
