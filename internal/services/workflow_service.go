package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/exporter"
	"blueprint-mcp/backend/internal/generator"
	"blueprint-mcp/backend/internal/validator"
	"blueprint-mcp/backend/pkg/models"
)

// Logger is the narrow logging interface the service needs.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ExportResult is a rendered workflow with the canonical format name.
type ExportResult struct {
	Format string `json:"format"`
	Output string `json:"output"`
}

// LLMGenerateResult is the outcome of the LLM-assisted pipeline: the
// generated workflow, its validation verdict, and (when valid) the export
// in the requested format.
type LLMGenerateResult struct {
	Valid      bool                     `json:"valid"`
	Workflow   *models.Workflow         `json:"workflow,omitempty"`
	Validation *models.ValidationResult `json:"validation"`
	Export     *ExportResult            `json:"export,omitempty"`
}

// WorkflowService sequences generator, validator, and exporter for each
// request kind and translates internal failures into the service error
// taxonomy. It holds no per-request state; concurrent requests share only
// the immutable catalog.
type WorkflowService struct {
	catalog    *catalog.Catalog
	generator  *generator.Generator
	validator  *validator.Validator
	exporter   *exporter.Exporter
	logger     Logger
	operations metric.Int64Counter
}

// NewWorkflowService wires the pipeline. llm may be nil to disable the
// LLM-assisted path entirely.
func NewWorkflowService(cat *catalog.Catalog, llm generator.CompletionClient, logger Logger) *WorkflowService {
	val := validator.New(cat)
	meter := otel.Meter("blueprint-mcp/backend/services")
	operations, err := meter.Int64Counter(
		"workflow_operations_total",
		metric.WithDescription("Count of workflow pipeline operations by kind"),
	)
	if err != nil {
		logger.Error("failed to create operations counter: %v", err)
	}

	return &WorkflowService{
		catalog:    cat,
		generator:  generator.New(cat, llm, logger),
		validator:  val,
		exporter:   exporter.New(cat, val),
		logger:     logger,
		operations: operations,
	}
}

func (s *WorkflowService) count(ctx context.Context, operation string) {
	if s.operations != nil {
		s.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// Generate runs rule-based generation and self-validates the result before
// returning it. A generated workflow that fails validation indicates a
// defect (the rule-based path is defined to always produce a valid graph
// against a consistent catalog), so it logs and surfaces a service failure.
func (s *WorkflowService) Generate(ctx context.Context, description string) (*models.Workflow, error) {
	s.count(ctx, "generate")

	wf, err := s.generator.Generate(description)
	if err != nil {
		return nil, err
	}

	if result := s.validator.Validate(wf); !result.Valid {
		s.logger.Error("defect: generated workflow failed validation: %v", result.Errors)
		return nil, fmt.Errorf("generated workflow failed validation: %w", &validator.RejectedError{Violations: result.Errors})
	}
	return wf, nil
}

// Validate checks a caller-supplied workflow. A payload missing its
// required collections is malformed input rather than a rejection.
func (s *WorkflowService) Validate(ctx context.Context, wf *models.Workflow) (*models.ValidationResult, error) {
	s.count(ctx, "validate")

	if err := wf.CheckShape(); err != nil {
		return nil, err
	}
	return s.validator.Validate(wf), nil
}

// Export validates and renders a caller-supplied workflow in the named
// format.
func (s *WorkflowService) Export(ctx context.Context, wf *models.Workflow, format string) (*ExportResult, error) {
	s.count(ctx, "export")

	if err := wf.CheckShape(); err != nil {
		return nil, err
	}
	canonical, err := s.exporter.Resolve(format)
	if err != nil {
		return nil, err
	}
	output, err := s.exporter.Export(wf, canonical)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Format: canonical, Output: output}, nil
}

// GenerateWithLLM runs the LLM-assisted pipeline: generate (with the
// rule-based fallback inside the generator), validate, and export to the
// requested format. A workflow the validator rejects is returned as
// structured feedback, not an error.
func (s *WorkflowService) GenerateWithLLM(ctx context.Context, prompt, outputFormat string) (*LLMGenerateResult, error) {
	s.count(ctx, "llm_generate")

	// Resolve the format up front so an unsupported name fails before the
	// completion call is made.
	canonical, err := s.exporter.Resolve(outputFormat)
	if err != nil {
		return nil, err
	}

	wf, err := s.generator.GenerateWithLLM(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := s.validator.Validate(wf)
	if !result.Valid {
		return &LLMGenerateResult{Valid: false, Workflow: wf, Validation: result}, nil
	}

	output, err := s.exporter.Export(wf, canonical)
	if err != nil {
		return nil, err
	}
	return &LLMGenerateResult{
		Valid:      true,
		Workflow:   wf,
		Validation: result,
		Export:     &ExportResult{Format: canonical, Output: output},
	}, nil
}

// Resources lists every catalog vocabulary.
func (s *WorkflowService) Resources(ctx context.Context) []catalog.Resource {
	s.count(ctx, "resources")
	return s.catalog.Resources()
}

// Resource returns one named catalog vocabulary, or nil if unknown.
func (s *WorkflowService) Resource(ctx context.Context, name string) *catalog.Resource {
	s.count(ctx, "resource")
	return s.catalog.Resource(name)
}
