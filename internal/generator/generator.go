// Package generator turns a free-text process description into a candidate
// workflow graph, either deterministically from the configured rule set or
// by delegating to an LLM adapter with a rule-based fallback.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/pkg/models"
)

// ErrEmptyDescription is returned for blank input. Rule-based generation is
// defined to always succeed on non-empty input, so this is the only way it
// can fail.
var ErrEmptyDescription = errors.New("description is empty")

// Logger is the narrow logging interface the generator needs.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Generator builds candidate workflows from descriptions. It never hands
// back a graph it has not verified to be structurally sound, though it
// performs no vocabulary normalization beyond the configured fallback
// defaults.
type Generator struct {
	catalog *catalog.Catalog
	llm     CompletionClient
	logger  Logger
}

// New creates a Generator. llm may be nil, in which case the LLM-assisted
// path degrades immediately to rule-based generation.
func New(cat *catalog.Catalog, llm CompletionClient, logger Logger) *Generator {
	return &Generator{catalog: cat, llm: llm, logger: logger}
}

var articles = map[string]struct{}{"the": {}, "a": {}, "an": {}}

// Generate runs rule-based extraction: the description is split into
// clauses on the configured sequencing cues, each clause yields one step in
// source order, distinct actor noun phrases yield actors, and clauses are
// chained by linear transitions.
func (g *Generator) Generate(description string) (*models.Workflow, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}

	rules := g.catalog.RuleSet()

	clauses := g.splitClauses(description)
	if len(clauses) == 0 {
		// Non-empty input that yields no clause (punctuation only) still
		// produces a workflow, carrying the configured default task.
		return &models.Workflow{
			WorkflowID: newWorkflowID(),
			Steps: []models.Step{{
				StepID: "step_1",
				Type:   rules.DefaultStepType,
				Label:  rules.DefaultTask,
			}},
			Transitions: []models.Transition{},
			Actors:      []models.Actor{},
		}, nil
	}

	wf := &models.Workflow{
		WorkflowID:  newWorkflowID(),
		Steps:       make([]models.Step, 0, len(clauses)),
		Transitions: make([]models.Transition, 0, len(clauses)-1),
		Actors:      []models.Actor{},
	}

	seenActors := make(map[string]struct{})
	for i, clause := range clauses {
		actorID, action := splitActor(clause)
		step := models.Step{
			StepID: fmt.Sprintf("step_%d", i+1),
			Type:   g.classify(action, rules),
			Label:  clause,
			Actor:  actorID,
		}
		wf.Steps = append(wf.Steps, step)

		if actorID != "" {
			if _, seen := seenActors[actorID]; !seen {
				seenActors[actorID] = struct{}{}
				role := rules.DefaultActorRole
				if g.catalog.Contains(catalog.VocabActorRoles, actorID) {
					role = actorID
				}
				wf.Actors = append(wf.Actors, models.Actor{ActorID: actorID, Role: role})
			}
		}

		if i > 0 {
			wf.Transitions = append(wf.Transitions, models.Transition{
				FromStep: wf.Steps[i-1].StepID,
				ToStep:   step.StepID,
			})
		}
	}

	if err := verifyStructure(wf); err != nil {
		// Cannot happen with the construction above; treated as a defect.
		return nil, fmt.Errorf("rule-based generation produced an unsound graph: %w", err)
	}
	return wf, nil
}

// splitClauses splits on sentence boundaries first, then on the configured
// sequencing cues within each sentence.
func (g *Generator) splitClauses(description string) []string {
	rules := g.catalog.RuleSet()
	text := strings.Join(strings.Fields(description), " ")
	if text == "" {
		return nil
	}

	var clauses []string
	for _, sentence := range rules.SentenceSplit.Split(text, -1) {
		for _, part := range rules.SequenceSplit.Split(sentence, -1) {
			part = strings.TrimSpace(part)
			if part != "" {
				clauses = append(clauses, part)
			}
		}
	}
	return clauses
}

// splitActor extracts the leading actor noun phrase of a clause. Leading
// articles and surrounding punctuation are stripped and the noun is
// lowercased, so "User", "the user" and "user," share one identity. A
// single-token clause is all action and yields no actor.
func splitActor(clause string) (actorID, action string) {
	tokens := strings.Fields(clause)
	for len(tokens) > 0 {
		if _, ok := articles[strings.ToLower(tokens[0])]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	if len(tokens) < 2 {
		return "", clause
	}
	actorID = normalizeActor(tokens[0])
	if actorID == "" {
		return "", clause
	}
	return actorID, strings.Join(tokens[1:], " ")
}

func normalizeActor(token string) string {
	return strings.ToLower(strings.Trim(token, ",.;:!?\"'()"))
}

// classify matches the action phrase against the ordered rule set; the
// first matching pattern wins and no match falls back to the configured
// default step type.
func (g *Generator) classify(action string, rules catalog.GenerationRules) string {
	for _, r := range rules.TypeRules {
		if r.Pattern.MatchString(action) {
			return r.StepType
		}
	}
	return rules.DefaultStepType
}

func newWorkflowID() string {
	return "wf_" + uuid.New().String()
}

// verifyStructure checks that ids are unique and every reference resolves
// within the graph. It deliberately ignores vocabularies; those belong to
// the validator.
func verifyStructure(wf *models.Workflow) error {
	stepIDs := make(map[string]struct{}, len(wf.Steps))
	for _, s := range wf.Steps {
		if _, dup := stepIDs[s.StepID]; dup {
			return fmt.Errorf("duplicate step id %q", s.StepID)
		}
		stepIDs[s.StepID] = struct{}{}
	}
	actorIDs := make(map[string]struct{}, len(wf.Actors))
	for _, a := range wf.Actors {
		if _, dup := actorIDs[a.ActorID]; dup {
			return fmt.Errorf("duplicate actor id %q", a.ActorID)
		}
		actorIDs[a.ActorID] = struct{}{}
	}
	for _, s := range wf.Steps {
		if s.Actor != "" {
			if _, ok := actorIDs[s.Actor]; !ok {
				return fmt.Errorf("step %q references undeclared actor %q", s.StepID, s.Actor)
			}
		}
	}
	for i, t := range wf.Transitions {
		if _, ok := stepIDs[t.FromStep]; !ok {
			return fmt.Errorf("transition %d references unknown step %q", i, t.FromStep)
		}
		if _, ok := stepIDs[t.ToStep]; !ok {
			return fmt.Errorf("transition %d references unknown step %q", i, t.ToStep)
		}
	}
	return nil
}
