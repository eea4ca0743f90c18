package types

// SectionOutput is what a section worker returns to the scheduler. Workers
// never touch the shared context directly; the scheduler merges the Delta
// during the inter-wave barrier.
type SectionOutput struct {
	SectionID    string       `json:"section_id"`
	Content      string       `json:"content"`
	Delta        ContextDelta `json:"delta"`
	Artifacts    []Artifact   `json:"artifacts,omitempty"`
	Degradations []string     `json:"degradations,omitempty"`

	// Supplements carries fulfilled supplement bodies keyed by supplement ID.
	Supplements map[string]string `json:"supplements,omitempty"`
}
