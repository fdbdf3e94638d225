// Package validator checks a candidate workflow graph against the schema
// invariants and the catalog's closed vocabularies.
package validator

import (
	"fmt"
	"strings"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/pkg/models"
)

// Validator verifies the structural and referential integrity of a
// workflow. Validation is pure: it only reads the workflow and the catalog,
// so calling it twice on the same value yields identical results.
type Validator struct {
	catalog *catalog.Catalog
}

// New creates a Validator backed by the given catalog.
func New(cat *catalog.Catalog) *Validator {
	return &Validator{catalog: cat}
}

// RejectedError carries the violations of a workflow that failed
// validation, for callers (the exporter) that need the rejection as an
// error value rather than a result.
type RejectedError struct {
	Violations []models.Violation
}

func (e *RejectedError) Error() string {
	codes := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, string(v.Code))
	}
	return fmt.Sprintf("workflow rejected: %s", strings.Join(codes, ", "))
}

// Validate checks every invariant in a single pass and reports all
// violations found, not just the first, so a caller can fix the workflow in
// one round-trip. Order is stable: workflow-level checks, then steps in
// input order, then transitions, then actors.
func (v *Validator) Validate(wf *models.Workflow) *models.ValidationResult {
	var violations []models.Violation

	if wf.WorkflowID == "" {
		violations = append(violations, models.Violation{
			Code:    models.ViolationMissingWorkflowID,
			Entity:  "workflow",
			Field:   "workflow_id",
			Message: "workflow_id must not be empty",
		})
	}

	// The empty workflow is a legal degenerate case, but only when it is
	// empty all the way down.
	if len(wf.Steps) == 0 {
		if len(wf.Transitions) > 0 {
			violations = append(violations, models.Violation{
				Code:    models.ViolationEmptyWorkflow,
				Entity:  "workflow",
				Field:   "transitions",
				Message: "a workflow with no steps must not declare transitions",
			})
		}
		if len(wf.Actors) > 0 {
			violations = append(violations, models.Violation{
				Code:    models.ViolationEmptyWorkflow,
				Entity:  "workflow",
				Field:   "actors",
				Message: "a workflow with no steps must not declare actors",
			})
		}
	}

	if wf.Runtime != "" && !v.catalog.Contains(catalog.VocabRuntimes, wf.Runtime) {
		violations = append(violations, models.Violation{
			Code:    models.ViolationUnknownRuntime,
			Entity:  "workflow",
			Field:   "runtime",
			Message: fmt.Sprintf("unknown runtime: %s", wf.Runtime),
		})
	}

	actorIDs := make(map[string]struct{}, len(wf.Actors))
	for _, a := range wf.Actors {
		actorIDs[a.ActorID] = struct{}{}
	}

	stepIDs := make(map[string]struct{}, len(wf.Steps))
	for _, s := range wf.Steps {
		if _, dup := stepIDs[s.StepID]; dup {
			violations = append(violations, models.Violation{
				Code:    models.ViolationDuplicateStepID,
				Entity:  s.StepID,
				Field:   "step_id",
				Message: fmt.Sprintf("duplicate step id: %s", s.StepID),
			})
		}
		stepIDs[s.StepID] = struct{}{}

		if !v.catalog.Contains(catalog.VocabStepTypes, s.Type) {
			violations = append(violations, models.Violation{
				Code:    models.ViolationUnknownStepType,
				Entity:  s.StepID,
				Field:   "type",
				Message: fmt.Sprintf("unknown step type: %s", s.Type),
			})
		}
		if s.Actor != "" {
			if _, ok := actorIDs[s.Actor]; !ok {
				violations = append(violations, models.Violation{
					Code:    models.ViolationUnresolvedActor,
					Entity:  s.StepID,
					Field:   "actor",
					Message: fmt.Sprintf("step references undeclared actor: %s", s.Actor),
				})
			}
		}
		if s.Connector != "" && !v.catalog.Contains(catalog.VocabConnectors, s.Connector) {
			violations = append(violations, models.Violation{
				Code:    models.ViolationUnknownConnector,
				Entity:  s.StepID,
				Field:   "connector",
				Message: fmt.Sprintf("unknown connector: %s", s.Connector),
			})
		}
	}

	for i, t := range wf.Transitions {
		entity := fmt.Sprintf("transition[%d]", i)
		if _, ok := stepIDs[t.FromStep]; !ok {
			violations = append(violations, models.Violation{
				Code:    models.ViolationInvalidTransition,
				Entity:  entity,
				Field:   "from_step",
				Message: fmt.Sprintf("transition references unknown step: %s", t.FromStep),
			})
		}
		if _, ok := stepIDs[t.ToStep]; !ok {
			violations = append(violations, models.Violation{
				Code:    models.ViolationInvalidTransition,
				Entity:  entity,
				Field:   "to_step",
				Message: fmt.Sprintf("transition references unknown step: %s", t.ToStep),
			})
		}
	}

	seenActors := make(map[string]struct{}, len(wf.Actors))
	for _, a := range wf.Actors {
		if _, dup := seenActors[a.ActorID]; dup {
			violations = append(violations, models.Violation{
				Code:    models.ViolationDuplicateActorID,
				Entity:  a.ActorID,
				Field:   "actor_id",
				Message: fmt.Sprintf("duplicate actor id: %s", a.ActorID),
			})
		}
		seenActors[a.ActorID] = struct{}{}

		if !v.catalog.Contains(catalog.VocabActorRoles, a.Role) {
			violations = append(violations, models.Violation{
				Code:    models.ViolationUnknownRole,
				Entity:  a.ActorID,
				Field:   "role",
				Message: fmt.Sprintf("unknown actor role: %s", a.Role),
			})
		}
	}

	return &models.ValidationResult{
		Valid:  len(violations) == 0,
		Errors: violations,
	}
}
