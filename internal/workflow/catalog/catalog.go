// Package catalog holds the read-only workflow templates and the condition rule
// table. Both are decoded once from embedded YAML and never mutated afterwards.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"dealflow/internal/workflow/models"
)

//go:embed data/templates.yaml data/rules.yaml
var embedded embed.FS

// DefaultLocale is the label used as a condition title.
const DefaultLocale = "en"

// StepDefinition is a template-level step.
type StepDefinition struct {
	Order int    `yaml:"order" json:"stepOrder"`
	Slug  string `yaml:"slug" json:"slug"`
	Name  string `yaml:"name" json:"name"`
}

// Template is an ordered list of steps a transaction instantiates at creation.
type Template struct {
	ID              string                 `yaml:"id" json:"id"`
	Name            string                 `yaml:"name" json:"name"`
	TransactionType models.TransactionType `yaml:"transactionType" json:"transactionType"`
	Steps           []StepDefinition       `yaml:"steps" json:"steps"`
}

// Matcher restricts a rule. Absent fields match everything.
type Matcher struct {
	TransactionTypes  []models.TransactionType `yaml:"transactionTypes"`
	PropertyTypes     []models.PropertyType    `yaml:"propertyTypes"`
	Contexts          []models.PropertyContext `yaml:"contexts"`
	Financed          *bool                    `yaml:"financed"`
	HasWell           *bool                    `yaml:"hasWell"`
	HasSeptic         *bool                    `yaml:"hasSeptic"`
	CondoDocsRequired *bool                    `yaml:"condoDocsRequired"`
}

func (m Matcher) matches(profile *models.PropertyProfile, txType models.TransactionType) bool {
	if len(m.TransactionTypes) > 0 && !slices.Contains(m.TransactionTypes, txType) {
		return false
	}
	if len(m.PropertyTypes) > 0 && !slices.Contains(m.PropertyTypes, profile.PropertyType) {
		return false
	}
	if len(m.Contexts) > 0 && !slices.Contains(m.Contexts, profile.PropertyContext) {
		return false
	}
	return flag(m.Financed, profile.IsFinanced) &&
		flag(m.HasWell, profile.HasWell) &&
		flag(m.HasSeptic, profile.HasSeptic) &&
		flag(m.CondoDocsRequired, profile.CondoDocsRequired)
}

func flag(want *bool, got bool) bool {
	return want == nil || *want == got
}

// ConditionTemplate is the generator output for one condition.
type ConditionTemplate struct {
	Key              string                `yaml:"key"`
	Step             string                `yaml:"step"`
	Level            models.ConditionLevel `yaml:"level"`
	SourceType       models.SourceType     `yaml:"sourceType"`
	EvidenceRequired bool                  `yaml:"evidenceRequired"`
	Category         string                `yaml:"category"`
	DueInDays        int                   `yaml:"dueInDays"`
	Labels           map[string]string     `yaml:"labels"`
	When             Matcher               `yaml:"when"`
}

// Title returns the default-locale label.
func (t ConditionTemplate) Title() string {
	if title, ok := t.Labels[DefaultLocale]; ok {
		return title
	}
	return t.Key
}

// DueDate computes the due date from the moment the step was entered.
func (t ConditionTemplate) DueDate(enteredAt time.Time) *time.Time {
	if t.DueInDays <= 0 {
		return nil
	}
	due := enteredAt.AddDate(0, 0, t.DueInDays)
	return &due
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

type ruleFile struct {
	Rules []ConditionTemplate `yaml:"rules"`
}

// Catalog is safe for concurrent use; it is immutable after Load.
type Catalog struct {
	templates []*Template
	byID      map[string]*Template
	rules     map[string][]ConditionTemplate
}

// Load decodes the embedded catalog.
func Load() (*Catalog, error) {
	templates, err := embedded.ReadFile("data/templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read templates: %w", err)
	}
	rules, err := embedded.ReadFile("data/rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read rules: %w", err)
	}
	return Parse(templates, rules)
}

// MustLoad is Load for process start-up and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates catalog YAML.
func Parse(templatesYAML, rulesYAML []byte) (*Catalog, error) {
	var tf templateFile
	if err := decodeStrict(templatesYAML, &tf); err != nil {
		return nil, fmt.Errorf("catalog: decode templates: %w", err)
	}
	var rf ruleFile
	if err := decodeStrict(rulesYAML, &rf); err != nil {
		return nil, fmt.Errorf("catalog: decode rules: %w", err)
	}

	c := &Catalog{
		byID:  make(map[string]*Template, len(tf.Templates)),
		rules: make(map[string][]ConditionTemplate),
	}
	slugs := make(map[string]bool)
	for i := range tf.Templates {
		t := &tf.Templates[i]
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template %q", t.ID)
		}
		for _, s := range t.Steps {
			slugs[s.Slug] = true
		}
		c.byID[t.ID] = t
		c.templates = append(c.templates, t)
	}

	seen := make(map[string]bool)
	for _, r := range rf.Rules {
		if err := validateRule(r, slugs); err != nil {
			return nil, err
		}
		// A key may appear under several steps but only once per step.
		k := r.Step + "/" + r.Key
		if seen[k] {
			return nil, fmt.Errorf("catalog: duplicate rule %q for step %q", r.Key, r.Step)
		}
		seen[k] = true
		c.rules[r.Step] = append(c.rules[r.Step], r)
	}
	return c, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func validateTemplate(t *Template) error {
	if t.ID == "" || t.Name == "" {
		return fmt.Errorf("catalog: template id and name are required")
	}
	if !t.TransactionType.IsValid() {
		return fmt.Errorf("catalog: template %q has invalid transaction type %q", t.ID, t.TransactionType)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("catalog: template %q has no steps", t.ID)
	}
	sort.Slice(t.Steps, func(i, j int) bool { return t.Steps[i].Order < t.Steps[j].Order })
	slugs := make(map[string]bool, len(t.Steps))
	for i, s := range t.Steps {
		if s.Order != i+1 {
			return fmt.Errorf("catalog: template %q step orders must be contiguous from 1", t.ID)
		}
		if s.Slug == "" || s.Name == "" {
			return fmt.Errorf("catalog: template %q step %d needs a slug and a name", t.ID, s.Order)
		}
		if slugs[s.Slug] {
			return fmt.Errorf("catalog: template %q repeats step %q", t.ID, s.Slug)
		}
		slugs[s.Slug] = true
	}
	return nil
}

func validateRule(r ConditionTemplate, slugs map[string]bool) error {
	if r.Key == "" {
		return fmt.Errorf("catalog: rule without key")
	}
	if !slugs[r.Step] {
		return fmt.Errorf("catalog: rule %q targets unknown step %q", r.Key, r.Step)
	}
	if !r.Level.IsValid() {
		return fmt.Errorf("catalog: rule %q has invalid level %q", r.Key, r.Level)
	}
	if !r.SourceType.IsValid() {
		return fmt.Errorf("catalog: rule %q has invalid source type %q", r.Key, r.SourceType)
	}
	if r.EvidenceRequired && r.Category == "" {
		return fmt.Errorf("catalog: rule %q requires evidence but names no document category", r.Key)
	}
	if r.Labels[DefaultLocale] == "" {
		return fmt.Errorf("catalog: rule %q is missing its %q label", r.Key, DefaultLocale)
	}
	return nil
}

// Templates lists templates in file order.
func (c *Catalog) Templates() []*Template {
	return c.templates
}

// Template returns a template by id.
func (c *Catalog) Template(templateID string) (*Template, bool) {
	t, ok := c.byID[templateID]
	return t, ok
}

// DefaultTemplate returns the first template for a transaction type.
func (c *Catalog) DefaultTemplate(txType models.TransactionType) (*Template, bool) {
	for _, t := range c.templates {
		if t.TransactionType == txType {
			return t, true
		}
	}
	return nil, false
}

// Generate returns the condition templates that apply to a step for the given
// profile, sorted by key. It is pure: the same inputs yield the same output.
func (c *Catalog) Generate(profile *models.PropertyProfile, txType models.TransactionType, stepSlug string) []ConditionTemplate {
	var out []ConditionTemplate
	for _, r := range c.rules[stepSlug] {
		if r.When.matches(profile, txType) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
