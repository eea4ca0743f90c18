package types

// SectionSummary is the per-section digest propagated to later waves
type SectionSummary struct {
	SectionID   string   `json:"section_id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"key_findings,omitempty"`
}

// Citation is one registered source
type Citation struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// SharedContext accumulates cross-section knowledge between waves.
// It is append-only: workers return ContextDelta values and the scheduler
// merges them during the inter-wave barrier, so the context has exactly one
// writer at a time and needs no locking.
type SharedContext struct {
	Summaries   []SectionSummary   `json:"summaries"`
	Citations   []Citation         `json:"citations"`
	Terminology map[string]string  `json:"terminology"`
	Stats       map[string]float64 `json:"stats"`
}

// ContextDelta is what a single section contributes to the shared context
type ContextDelta struct {
	Summary     *SectionSummary   `json:"summary,omitempty"`
	Citations   []Citation        `json:"citations,omitempty"`
	Terminology map[string]string `json:"terminology,omitempty"`
	WordsAdded  int               `json:"words_added"`
}

// NewSharedContext returns an empty shared context with initialized maps.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		Terminology: make(map[string]string),
		Stats:       make(map[string]float64),
	}
}

// Merge applies a delta to the context. Citations already registered under
// the same source are not duplicated; terminology is first-writer-wins so a
// term keeps the definition from the earliest section that introduced it.
func (c *SharedContext) Merge(delta ContextDelta) {
	if delta.Summary != nil {
		c.Summaries = append(c.Summaries, *delta.Summary)
	}
	for _, cit := range delta.Citations {
		if !c.HasSource(cit.Source) {
			c.Citations = append(c.Citations, cit)
		}
	}
	for term, def := range delta.Terminology {
		if _, exists := c.Terminology[term]; !exists {
			c.Terminology[term] = def
		}
	}
	c.Stats["words_written"] += float64(delta.WordsAdded)
	c.Stats["sections_done"]++
}

// HasSource reports whether a citation with the given source is registered.
func (c *SharedContext) HasSource(source string) bool {
	for _, cit := range c.Citations {
		if cit.Source == source {
			return true
		}
	}
	return false
}

// SummaryFor returns the summary for a section id, or nil if the section has
// not completed yet (or failed).
func (c *SharedContext) SummaryFor(sectionID string) *SectionSummary {
	for i := range c.Summaries {
		if c.Summaries[i].SectionID == sectionID {
			return &c.Summaries[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Workers receive clones so that a misbehaving
// worker cannot mutate the canonical context between waves.
func (c *SharedContext) Clone() *SharedContext {
	out := &SharedContext{
		Summaries:   make([]SectionSummary, len(c.Summaries)),
		Citations:   make([]Citation, len(c.Citations)),
		Terminology: make(map[string]string, len(c.Terminology)),
		Stats:       make(map[string]float64, len(c.Stats)),
	}
	copy(out.Summaries, c.Summaries)
	copy(out.Citations, c.Citations)
	for k, v := range c.Terminology {
		out.Terminology[k] = v
	}
	for k, v := range c.Stats {
		out.Stats[k] = v
	}
	return out
}
