package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/config"
	"blueprint-mcp/backend/internal/services"
	"blueprint-mcp/backend/pkg/models"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Warn(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.New(&config.CatalogConfig{
		StepTypes:     []string{"start", "end", "task", "decision"},
		ActorRoles:    []string{"user", "manager", "unknown"},
		Connectors:    []string{"http"},
		OutputFormats: []string{"JSON", "YAML", "Mermaid", "BPMN"},
		Runtimes:      []string{"temporal"},
		Generation: config.GenerationConfig{
			SentenceSplitPattern: `[.!?;]+`,
			SequenceSplitPattern: `,?\s*\b(?:and\s+)?then\b|,`,
			DefaultStepType:      "task",
			DefaultActorRole:     "unknown",
		},
	})
	require.NoError(t, err)
	return NewServer(services.NewWorkflowService(cat, nil, noopLogger{}))
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func workflowArg() map[string]interface{} {
	return map[string]interface{}{
		"workflow_id": "wf_test",
		"steps": []interface{}{
			map[string]interface{}{"step_id": "step_1", "type": "task", "label": "submit request", "actor": "user"},
		},
		"transitions": []interface{}{},
		"actors": []interface{}{
			map[string]interface{}{"actor_id": "user", "role": "user"},
		},
	}
}

func TestHandleGenerate(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleGenerate(context.Background(), callRequest(map[string]interface{}{
		"description": "The user submits a request, then the manager approves the request.",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var wf models.Workflow
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &wf))
	assert.Len(t, wf.Steps, 2)
	assert.Len(t, wf.Transitions, 1)
}

func TestHandleGenerate_MissingDescription(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleGenerate(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleValidate(context.Background(), callRequest(map[string]interface{}{
		"workflow": workflowArg(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var vr models.ValidationResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &vr))
	assert.True(t, vr.Valid)
}

func TestHandleValidate_ReportsViolations(t *testing.T) {
	s := newTestServer(t)

	arg := workflowArg()
	arg["steps"] = []interface{}{
		map[string]interface{}{"step_id": "step_1", "type": "teleport", "label": "x"},
	}

	result, err := s.handleValidate(context.Background(), callRequest(map[string]interface{}{
		"workflow": arg,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var vr models.ValidationResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &vr))
	assert.False(t, vr.Valid)
	require.Len(t, vr.Errors, 1)
	assert.Equal(t, models.ViolationUnknownStepType, vr.Errors[0].Code)
}

func TestHandleValidate_MissingWorkflow(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleValidate(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleExport(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleExport(context.Background(), callRequest(map[string]interface{}{
		"workflow": workflowArg(),
		"format":   "mermaid",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var exported services.ExportResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &exported))
	assert.Equal(t, "Mermaid", exported.Format)
	assert.Contains(t, exported.Output, "flowchart TD")
}

func TestHandleExport_UnsupportedFormat(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleExport(context.Background(), callRequest(map[string]interface{}{
		"workflow": workflowArg(),
		"format":   "CSV",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "unsupported format")
}
