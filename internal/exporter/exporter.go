// Package exporter renders a validated workflow graph into one of the
// configured external representations: JSON and YAML (lossless, both parse
// back into the same graph), Mermaid flowchart text, and BPMN-like XML.
package exporter

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/validator"
	"blueprint-mcp/backend/pkg/models"
)

// UnsupportedFormatError names the requested format and lists the
// configured valid set.
type UnsupportedFormatError struct {
	Requested string
	Valid     []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s (valid formats: %s)", e.Requested, strings.Join(e.Valid, ", "))
}

// Exporter renders workflows. It re-validates every graph before rendering;
// it never renders a graph that breaks the schema invariants.
type Exporter struct {
	catalog   *catalog.Catalog
	validator *validator.Validator
}

// New creates an Exporter backed by the given catalog and validator.
func New(cat *catalog.Catalog, val *validator.Validator) *Exporter {
	return &Exporter{catalog: cat, validator: val}
}

// Resolve maps a caller-supplied format name to its canonical configured
// spelling, or fails with UnsupportedFormatError listing the valid set.
func (e *Exporter) Resolve(format string) (string, error) {
	formats, err := e.catalog.Vocabulary(catalog.VocabOutputFormats)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(strings.TrimSpace(format))
	for _, f := range formats {
		if strings.ToLower(f) == want {
			return f, nil
		}
	}
	return "", &UnsupportedFormatError{Requested: format, Valid: formats}
}

// Export renders the workflow in the named format. Format names are matched
// against the configured vocabulary case-insensitively after trimming. An
// invalid workflow is rejected with the same violations the validator would
// report.
func (e *Exporter) Export(wf *models.Workflow, format string) (string, error) {
	canonical, err := e.Resolve(format)
	if err != nil {
		return "", err
	}

	if result := e.validator.Validate(wf); !result.Valid {
		return "", &validator.RejectedError{Violations: result.Errors}
	}

	switch strings.ToLower(canonical) {
	case "json":
		return renderJSON(wf)
	case "yaml":
		return renderYAML(wf)
	case "mermaid":
		return e.renderMermaid(wf)
	case "bpmn":
		return e.renderBPMN(wf)
	default:
		// A configured format the exporter has no renderer for is an
		// operational fault, not caller misuse.
		return "", &catalog.ConfigurationError{Reason: fmt.Sprintf("format %q has no renderer", canonical)}
	}
}

func renderJSON(wf *models.Workflow) (string, error) {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal workflow to JSON: %w", err)
	}
	return string(data), nil
}

func renderYAML(wf *models.Workflow) (string, error) {
	data, err := yaml.Marshal(wf)
	if err != nil {
		return "", fmt.Errorf("marshal workflow to YAML: %w", err)
	}
	return string(data), nil
}

// ParseJSON decodes a JSON export back into a workflow. Together with the
// JSON renderer it forms the lossless round-trip pair.
func ParseJSON(data string) (*models.Workflow, error) {
	var wf models.Workflow
	if err := json.Unmarshal([]byte(data), &wf); err != nil {
		return nil, fmt.Errorf("parse workflow JSON: %w", err)
	}
	return &wf, nil
}

// ParseYAML decodes a YAML export back into a workflow.
func ParseYAML(data string) (*models.Workflow, error) {
	var wf models.Workflow
	if err := yaml.Unmarshal([]byte(data), &wf); err != nil {
		return nil, fmt.Errorf("parse workflow YAML: %w", err)
	}
	return &wf, nil
}

// renderMermaid produces a flow-diagram text: one node per step labeled
// "type: label", one edge per transition with its condition as an edge
// label. Presentation-only; this format does not round-trip.
func (e *Exporter) renderMermaid(wf *models.Workflow) (string, error) {
	tmpl, err := e.catalog.Template("mermaid")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s", tmpl.MermaidDirection)
	for _, s := range wf.Steps {
		label := escapeMermaid(fmt.Sprintf("%s: %s", s.Type, s.Label))
		fmt.Fprintf(&b, "\n    %s[\"%s\"]", s.StepID, label)
	}
	for _, t := range wf.Transitions {
		if t.Condition != "" {
			fmt.Fprintf(&b, "\n    %s -->|%s| %s", t.FromStep, escapeMermaid(t.Condition), t.ToStep)
		} else {
			fmt.Fprintf(&b, "\n    %s --> %s", t.FromStep, t.ToStep)
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

func escapeMermaid(text string) string {
	text = strings.ReplaceAll(text, "\"", "#quot;")
	text = strings.ReplaceAll(text, "|", "/")
	return text
}
