// Package planning decomposes a document request into a dependency-aware
// execution plan: a DAG of section specifications with word budgets, key
// points, supplement requirements, and a citation strategy.
package planning

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/longform-writer/internal/types"
)

//go:embed templates.yaml
var templatesYAML []byte

// RoleSpec is one structural role in a document template
type RoleSpec struct {
	Name           string               `yaml:"name"`
	TitleHint      string               `yaml:"title_hint"`
	Share          float64              `yaml:"share"`
	Weight         float64              `yaml:"weight"`
	Specialization types.Specialization `yaml:"specialization"`
	Sequential     bool                 `yaml:"sequential"`
	After          []string             `yaml:"after"`
	Supplements    *bool                `yaml:"supplements"`
}

// AllowsSupplements reports whether tables/figures may be attached to this
// role. Defaults to true when unset.
func (r *RoleSpec) AllowsSupplements() bool {
	return r.Supplements == nil || *r.Supplements
}

// Template is the structural skeleton for one document kind
type Template struct {
	Roles   []RoleSpec         `yaml:"roles"`
	Weights map[string]float64 `yaml:"weights"`
}

type templateFile struct {
	Kinds map[types.DocumentKind]Template `yaml:"kinds"`
}

var (
	templates     map[types.DocumentKind]Template
	templatesOnce sync.Once
	templatesErr  error
)

// TemplateFor returns the structural template for a document kind.
// Unknown kinds fall back to the article template.
func TemplateFor(kind types.DocumentKind) (Template, error) {
	templatesOnce.Do(func() {
		var f templateFile
		if err := yaml.Unmarshal(templatesYAML, &f); err != nil {
			templatesErr = fmt.Errorf("failed to parse embedded templates: %w", err)
			return
		}
		templates = f.Kinds
	})
	if templatesErr != nil {
		return Template{}, templatesErr
	}

	if t, ok := templates[kind]; ok {
		return t, nil
	}
	if t, ok := templates[types.KindArticle]; ok {
		return t, nil
	}
	return Template{}, fmt.Errorf("no template for kind %q and no article fallback", kind)
}
