package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/longform-writer/internal/llm"
	"github.com/jonathan/longform-writer/internal/prompts"
	"github.com/jonathan/longform-writer/internal/schemas"
	"github.com/jonathan/longform-writer/internal/types"
)

// Default quality criteria applied to every plan
const (
	DefaultMinComposite  = 8.0
	DefaultMaxIterations = 3
)

// Builder constructs document plans. The LLM client is optional: with a nil
// client every outline comes from the deterministic fallback.
type Builder struct {
	client   llm.Client
	validate *validator.Validate
}

// NewBuilder creates a plan builder
func NewBuilder(client llm.Client) *Builder {
	return &Builder{
		client:   client,
		validate: validator.New(),
	}
}

// outline is the provider-facing shape of a planned document skeleton
type outline struct {
	Title    string           `json:"title"`
	Sections []outlineSection `json:"sections"`
}

type outlineSection struct {
	Role      string   `json:"role"`
	Title     string   `json:"title"`
	KeyPoints []string `json:"key_points"`
}

// BuildPlan turns a validated request into a DocumentPlan with a valid DAG.
func (b *Builder) BuildPlan(ctx context.Context, req types.DocumentRequest) (*types.DocumentPlan, error) {
	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid document request: %w", err)
	}

	template, err := TemplateFor(req.Kind)
	if err != nil {
		return nil, err
	}

	allocs := allocateWords(template.Roles, req.TargetWords)
	allocs, renamed := mergeDegenerate(allocs)

	out := b.buildOutline(ctx, req, allocs)

	plan := &types.DocumentPlan{
		Title:       out.Title,
		Kind:        req.Kind,
		Level:       req.Level,
		TargetWords: req.TargetWords,
		Citations:   citationStrategy(req),
		Quality: types.QualityCriteria{
			MinComposite:  DefaultMinComposite,
			MaxIterations: DefaultMaxIterations,
			Weights:       template.Weights,
		},
	}

	roleToID := make(map[string]string, len(allocs))
	for i, a := range allocs {
		id := fmt.Sprintf("sec_%d", i+1)
		roleToID[a.Role.Name] = id

		sec := types.SectionSpec{
			ID:             id,
			Role:           a.Role.Name,
			TargetWords:    a.Words,
			Specialization: a.Role.Specialization,
			State:          types.StatePending,
		}
		if sec.Specialization == "" {
			sec.Specialization = types.SpecGeneric
		}
		if i < len(out.Sections) {
			sec.Title = out.Sections[i].Title
			sec.KeyPoints = out.Sections[i].KeyPoints
		}

		plan.Sections = append(plan.Sections, sec)
	}

	assignDependencies(plan, allocs, roleToID, renamed)
	distributeSupplements(plan, req, allocs)

	if err := ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("generated plan failed validation: %w", err)
	}
	return plan, nil
}

// buildOutline asks the provider for topic-specific titles and key points,
// falling back to the deterministic skeleton on any failure. The fallback is
// mandatory behavior: planning never depends on the provider being up.
func (b *Builder) buildOutline(ctx context.Context, req types.DocumentRequest, allocs []allocation) outline {
	if b.client == nil {
		return fallbackOutline(req, allocs)
	}

	var roleLines []string
	for _, a := range allocs {
		roleLines = append(roleLines, fmt.Sprintf("- %s (%s, about %d words)", a.Role.Name, a.Role.Specialization, a.Words))
	}

	prompt := prompts.Format(prompts.MustGet("planning.json", "outline"), map[string]string{
		"Kind":  string(req.Kind),
		"Level": string(req.Level),
		"Topic": req.Topic,
		"Roles": strings.Join(roleLines, "\n"),
	})

	raw, err := b.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return fallbackOutline(req, allocs)
	}
	if err := schemas.Validate(schemas.PlanOutline, raw); err != nil {
		return fallbackOutline(req, allocs)
	}

	var out outline
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fallbackOutline(req, allocs)
	}

	// The provider must echo every role back; anything else is unusable.
	if len(out.Sections) != len(allocs) {
		return fallbackOutline(req, allocs)
	}
	for i, a := range allocs {
		if out.Sections[i].Role != a.Role.Name {
			return fallbackOutline(req, allocs)
		}
	}
	return out
}

// assignDependencies wires the DAG edges. A sequential role depends on every
// section before it; an `after` role depends on the named roles (rewritten
// through the merge rename map); everything else runs independently.
func assignDependencies(plan *types.DocumentPlan, allocs []allocation, roleToID, renamed map[string]string) {
	for i := range plan.Sections {
		role := allocs[i].Role

		if role.Sequential {
			for j := 0; j < i; j++ {
				plan.Sections[i].DependsOn = append(plan.Sections[i].DependsOn, plan.Sections[j].ID)
			}
			continue
		}

		seen := make(map[string]bool)
		for _, afterRole := range role.After {
			if to, ok := renamed[afterRole]; ok {
				afterRole = to
			}
			id, ok := roleToID[afterRole]
			if !ok || id == plan.Sections[i].ID || seen[id] {
				continue
			}
			seen[id] = true
			plan.Sections[i].DependsOn = append(plan.Sections[i].DependsOn, id)
		}
	}
}

// citationStrategy scales citation requirements with length and audience
// level: a more academic audience expects denser sourcing.
func citationStrategy(req types.DocumentRequest) types.CitationStrategy {
	density := map[types.AudienceLevel]float64{
		types.LevelGeneral:       2.0,
		types.LevelUndergraduate: 4.0,
		types.LevelGraduate:      6.0,
		types.LevelExpert:        8.0,
	}[req.Level]
	if density == 0 {
		density = 2.0
	}

	minSources := int(density * float64(req.TargetWords) / 1000.0 / 3.0)
	if minSources < 3 {
		minSources = 3
	}

	return types.CitationStrategy{
		DensityPer1000: density,
		MinSources:     minSources,
	}
}
