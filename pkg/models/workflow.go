// Package models defines the domain models for the workflow blueprint service.
package models

import (
	"fmt"
	"strings"
)

// Workflow is the root aggregate: a graph of typed steps, transitions, and
// actors produced from a natural-language process description. A workflow is
// immutable once handed to the validator; validation and export only read it.
type Workflow struct {
	WorkflowID  string       `json:"workflow_id" yaml:"workflow_id"`
	Steps       []Step       `json:"steps" yaml:"steps"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
	Actors      []Actor      `json:"actors" yaml:"actors"`
	Runtime     string       `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// Step is a single unit of work in the graph. Type must belong to the
// configured step-type vocabulary; Actor, when set, references an Actor by id.
type Step struct {
	StepID    string `json:"step_id" yaml:"step_id"`
	Type      string `json:"type" yaml:"type"`
	Label     string `json:"label" yaml:"label"`
	Actor     string `json:"actor,omitempty" yaml:"actor,omitempty"`
	Connector string `json:"connector,omitempty" yaml:"connector,omitempty"`
}

// Transition is a directed edge between two steps, optionally guarded by a
// free-text condition label used for decision branching.
type Transition struct {
	FromStep  string `json:"from_step" yaml:"from_step"`
	ToStep    string `json:"to_step" yaml:"to_step"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Actor is a participant in the workflow. Role must belong to the configured
// actor-role vocabulary.
type Actor struct {
	ActorID string `json:"actor_id" yaml:"actor_id"`
	Role    string `json:"role" yaml:"role"`
}

// ViolationCode identifies the invariant a violation breaks.
type ViolationCode string

const (
	ViolationMissingWorkflowID ViolationCode = "missing_workflow_id"
	ViolationEmptyWorkflow     ViolationCode = "empty_workflow"
	ViolationDuplicateStepID   ViolationCode = "duplicate_step_id"
	ViolationDuplicateActorID  ViolationCode = "duplicate_actor_id"
	ViolationUnknownStepType   ViolationCode = "unknown_step_type"
	ViolationUnknownConnector  ViolationCode = "unknown_connector"
	ViolationUnknownRole       ViolationCode = "unknown_actor_role"
	ViolationUnresolvedActor   ViolationCode = "unresolved_actor"
	ViolationInvalidTransition ViolationCode = "invalid_transition"
	ViolationUnknownRuntime    ViolationCode = "unknown_runtime"
)

// Violation names the offending entity, the field, and the invariant it
// breaks, so callers can fix a workflow in one round-trip.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Entity  string        `json:"entity"`
	Field   string        `json:"field"`
	Message string        `json:"message"`
}

// ValidationResult is the validator's verdict: either accepted, or rejected
// with every violation found in a single pass.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Errors []Violation `json:"errors"`
}

// MalformedInputError indicates a caller-supplied payload cannot be
// interpreted as a workflow at all, as opposed to a workflow that parses but
// breaks invariants.
type MalformedInputError struct {
	Missing []string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("workflow payload is missing required collections: %s", strings.Join(e.Missing, ", "))
}

// CheckShape verifies the payload carries the required collections. Decoders
// leave absent JSON/YAML arrays as nil slices, which is how a missing
// collection is distinguished from a present-but-empty one.
func (w *Workflow) CheckShape() error {
	var missing []string
	if w.Steps == nil {
		missing = append(missing, "steps")
	}
	if w.Transitions == nil {
		missing = append(missing, "transitions")
	}
	if w.Actors == nil {
		missing = append(missing, "actors")
	}
	if len(missing) > 0 {
		return &MalformedInputError{Missing: missing}
	}
	return nil
}
