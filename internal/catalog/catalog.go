// Package catalog provides read-only access to the configured vocabularies
// the rest of the service validates against: step types, actor roles,
// connectors, output formats, runtimes, and the generation rule set. A
// catalog is built once at process start and never mutated afterwards, so
// concurrent requests read it without locking.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"blueprint-mcp/backend/internal/config"
)

// Vocabulary names served by the catalog.
const (
	VocabStepTypes     = "step_types"
	VocabActorRoles    = "actor_roles"
	VocabConnectors    = "connectors"
	VocabOutputFormats = "output_formats"
	VocabRuntimes      = "runtimes"
)

// ConfigurationError means the catalog configuration is missing or
// malformed. This is an operational fault for the whole service, not a
// per-request validation failure.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("catalog configuration: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ErrUnknownVocabulary is returned by Vocabulary for names the catalog does
// not serve.
type ErrUnknownVocabulary struct {
	Name string
}

func (e *ErrUnknownVocabulary) Error() string {
	return fmt.Sprintf("unknown vocabulary: %s", e.Name)
}

// Rule is one compiled (pattern, step_type) classification rule.
type Rule struct {
	Pattern  *regexp.Regexp
	StepType string
}

// GenerationRules is the compiled rule set for rule-based generation.
type GenerationRules struct {
	SentenceSplit    *regexp.Regexp
	SequenceSplit    *regexp.Regexp
	TypeRules        []Rule
	DefaultStepType  string
	DefaultActorRole string
	DefaultTask      string
}

// Template holds the per-format rendering knobs.
type Template struct {
	MermaidDirection string
	BPMNNamespace    string
}

// Resource is one catalog entry in the shape exposed by the resource
// listing endpoints and the MCP resource surface.
type Resource struct {
	Name string      `json:"name"`
	URI  string      `json:"uri"`
	Data interface{} `json:"data"`
}

// Catalog serves the closed vocabularies and generation rules.
type Catalog struct {
	vocabularies map[string][]string
	sets         map[string]map[string]struct{}
	rules        GenerationRules
	templates    map[string]Template
	rawRules     config.GenerationConfig
}

// New builds a Catalog from loaded configuration, compiling the generation
// patterns up front so a bad pattern fails at startup rather than on the
// first request.
func New(cfg *config.CatalogConfig) (*Catalog, error) {
	if len(cfg.StepTypes) == 0 {
		return nil, &ConfigurationError{Reason: "no step types configured"}
	}
	if len(cfg.ActorRoles) == 0 {
		return nil, &ConfigurationError{Reason: "no actor roles configured"}
	}
	if len(cfg.OutputFormats) == 0 {
		return nil, &ConfigurationError{Reason: "no output formats configured"}
	}

	gen := cfg.Generation
	if gen.SentenceSplitPattern == "" || gen.SequenceSplitPattern == "" {
		return nil, &ConfigurationError{Reason: "generation split patterns are not configured"}
	}
	if gen.DefaultStepType == "" || gen.DefaultActorRole == "" {
		return nil, &ConfigurationError{Reason: "generation defaults are not configured"}
	}
	if !contains(cfg.StepTypes, gen.DefaultStepType) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("default step type %q is not in the step type vocabulary", gen.DefaultStepType)}
	}
	if !contains(cfg.ActorRoles, gen.DefaultActorRole) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("default actor role %q is not in the actor role vocabulary", gen.DefaultActorRole)}
	}

	sentenceSplit, err := regexp.Compile(gen.SentenceSplitPattern)
	if err != nil {
		return nil, &ConfigurationError{Reason: "invalid sentence split pattern", Err: err}
	}
	sequenceSplit, err := regexp.Compile("(?i)" + gen.SequenceSplitPattern)
	if err != nil {
		return nil, &ConfigurationError{Reason: "invalid sequence split pattern", Err: err}
	}

	var typeRules []Rule
	for _, r := range gen.TypeRules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid type rule pattern %q", r.Pattern), Err: err}
		}
		if !contains(cfg.StepTypes, r.StepType) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("type rule targets unknown step type %q", r.StepType)}
		}
		typeRules = append(typeRules, Rule{Pattern: re, StepType: r.StepType})
	}

	vocabularies := map[string][]string{
		VocabStepTypes:     cfg.StepTypes,
		VocabActorRoles:    cfg.ActorRoles,
		VocabConnectors:    cfg.Connectors,
		VocabOutputFormats: cfg.OutputFormats,
		VocabRuntimes:      cfg.Runtimes,
	}
	sets := make(map[string]map[string]struct{}, len(vocabularies))
	for name, values := range vocabularies {
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		sets[name] = set
	}

	defaultTask := gen.DefaultTask
	if defaultTask == "" {
		defaultTask = "process request"
	}

	tmpl := Template{
		MermaidDirection: cfg.Templates.Mermaid.Direction,
		BPMNNamespace:    cfg.Templates.BPMN.Namespace,
	}
	if tmpl.MermaidDirection == "" {
		tmpl.MermaidDirection = "TD"
	}
	if tmpl.BPMNNamespace == "" {
		tmpl.BPMNNamespace = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	}
	templates := make(map[string]Template, len(cfg.OutputFormats))
	for _, f := range cfg.OutputFormats {
		templates[strings.ToLower(f)] = tmpl
	}

	return &Catalog{
		vocabularies: vocabularies,
		sets:         sets,
		rules: GenerationRules{
			SentenceSplit:    sentenceSplit,
			SequenceSplit:    sequenceSplit,
			TypeRules:        typeRules,
			DefaultStepType:  gen.DefaultStepType,
			DefaultActorRole: gen.DefaultActorRole,
			DefaultTask:      defaultTask,
		},
		templates: templates,
		rawRules:  gen,
	}, nil
}

// Vocabulary returns the configured value list for the named vocabulary in
// configuration order.
func (c *Catalog) Vocabulary(name string) ([]string, error) {
	values, ok := c.vocabularies[name]
	if !ok {
		return nil, &ErrUnknownVocabulary{Name: name}
	}
	return values, nil
}

// Contains reports whether value belongs to the named vocabulary. Unknown
// vocabulary names contain nothing.
func (c *Catalog) Contains(name, value string) bool {
	set, ok := c.sets[name]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// Template returns the rendering rules for a format name. The lookup is
// case-insensitive, matching export format resolution.
func (c *Catalog) Template(format string) (Template, error) {
	tmpl, ok := c.templates[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return Template{}, &ErrUnknownVocabulary{Name: format}
	}
	return tmpl, nil
}

// RuleSet returns the compiled generation rules.
func (c *Catalog) RuleSet() GenerationRules {
	return c.rules
}

// Resources lists every catalog as a named resource, mirroring the
// read-only listing endpoints.
func (c *Catalog) Resources() []Resource {
	return []Resource{
		{Name: VocabStepTypes, URI: "workflow://resources/step-types", Data: c.vocabularies[VocabStepTypes]},
		{Name: VocabActorRoles, URI: "workflow://resources/actor-roles", Data: c.vocabularies[VocabActorRoles]},
		{Name: VocabConnectors, URI: "workflow://resources/connectors", Data: c.vocabularies[VocabConnectors]},
		{Name: VocabOutputFormats, URI: "workflow://resources/output-formats", Data: c.vocabularies[VocabOutputFormats]},
		{Name: VocabRuntimes, URI: "workflow://resources/runtimes", Data: c.vocabularies[VocabRuntimes]},
		{Name: "generation_rules", URI: "workflow://resources/generation-rules", Data: c.rawRules},
	}
}

// Resource returns a single named catalog resource, or nil if unknown.
func (c *Catalog) Resource(name string) *Resource {
	for _, r := range c.Resources() {
		if r.Name == name {
			res := r
			return &res
		}
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
