package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/pkg/models"
)

// CompletionClient is the LLM adapter: an opaque, possibly slow, possibly
// failing text-in/text-out function. The generator never inspects model
// identity or provider-specific fields.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const llmPromptTemplate = `Convert the following business process description into a workflow blueprint.
Respond with a single JSON object and nothing else, matching this schema:

{
  "workflow_id": "string",
  "steps": [{"step_id": "string", "type": "string", "label": "string", "actor": "string", "connector": "string"}],
  "transitions": [{"from_step": "string", "to_step": "string", "condition": "string"}],
  "actors": [{"actor_id": "string", "role": "string"}]
}

Allowed step types: %s
Allowed actor roles: %s

Description: %s`

const llmStrictSuffix = `

Your previous response was not valid JSON. Respond with ONLY the JSON object,
no markdown fences, no commentary.`

// GenerateWithLLM delegates the description to the LLM adapter and parses
// its response as a candidate graph. A malformed response is retried once
// with a stricter instruction; if the second attempt also fails, or the
// adapter errors or times out, the rule-based strategy runs instead. The
// caller always receives a structurally sound graph, never a raw LLM
// parsing error.
func (g *Generator) GenerateWithLLM(ctx context.Context, description string) (*models.Workflow, error) {
	if g.llm == nil {
		return g.Generate(description)
	}

	prompt := g.buildPrompt(description)

	out, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		g.warnf("llm completion failed, falling back to rule-based generation: %v", err)
		return g.Generate(description)
	}

	wf, perr := parseCandidate(out)
	if perr != nil {
		g.warnf("llm response was not a well-formed workflow, retrying with strict instruction: %v", perr)
		out, err = g.llm.Complete(ctx, prompt+llmStrictSuffix)
		if err != nil {
			g.warnf("llm retry failed, falling back to rule-based generation: %v", err)
			return g.Generate(description)
		}
		wf, perr = parseCandidate(out)
		if perr != nil {
			g.warnf("llm retry response was malformed, falling back to rule-based generation: %v", perr)
			return g.Generate(description)
		}
	}

	if wf.WorkflowID == "" {
		wf.WorkflowID = newWorkflowID()
	}
	if err := verifyStructure(wf); err != nil {
		g.warnf("llm produced a structurally unsound graph, falling back to rule-based generation: %v", err)
		return g.Generate(description)
	}
	return wf, nil
}

func (g *Generator) buildPrompt(description string) string {
	stepTypes, _ := g.catalog.Vocabulary(catalog.VocabStepTypes)
	roles, _ := g.catalog.Vocabulary(catalog.VocabActorRoles)
	return fmt.Sprintf(llmPromptTemplate, strings.Join(stepTypes, ", "), strings.Join(roles, ", "), description)
}

// parseCandidate decodes an LLM response into a workflow, tolerating
// markdown code fences and surrounding prose around the JSON object.
func parseCandidate(response string) (*models.Workflow, error) {
	text := strings.TrimSpace(response)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}
	if text == "" || !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("response contains no JSON object")
	}

	var wf models.Workflow
	if err := json.Unmarshal([]byte(text), &wf); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if err := wf.CheckShape(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (g *Generator) warnf(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
