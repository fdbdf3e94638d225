package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/config"
	"blueprint-mcp/backend/internal/services"
	"blueprint-mcp/backend/pkg/models"
)

type testLogger struct{}

func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}

type fixedClient struct {
	response string
}

func (c fixedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.response, nil
}

func newTestEcho(t *testing.T, llmResponse string) *echo.Echo {
	t.Helper()
	cat, err := catalog.New(&config.CatalogConfig{
		StepTypes:     []string{"start", "end", "task", "decision"},
		ActorRoles:    []string{"user", "manager", "system", "unknown"},
		Connectors:    []string{"http", "email"},
		OutputFormats: []string{"JSON", "YAML", "Mermaid", "BPMN"},
		Runtimes:      []string{"temporal"},
		Generation: config.GenerationConfig{
			SentenceSplitPattern: `[.!?;]+`,
			SequenceSplitPattern: `,?\s*\b(?:and\s+)?then\b|,`,
			TypeRules: []config.TypeRule{
				{Pattern: `approv|review`, StepType: "decision"},
			},
			DefaultStepType:  "task",
			DefaultActorRole: "unknown",
		},
	})
	require.NoError(t, err)

	var svc *services.WorkflowService
	if llmResponse == "" {
		svc = services.NewWorkflowService(cat, nil, testLogger{})
	} else {
		svc = services.NewWorkflowService(cat, fixedClient{response: llmResponse}, testLogger{})
	}

	e := echo.New()
	server := NewServer(svc, testLogger{})
	server.RegisterRoutes(e.Group("/api/v1"))
	server.RegisterVisualizer(e)
	e.GET("/health", HandleHealth)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const validWorkflowJSON = `{
	"workflow_id": "wf_test",
	"steps": [
		{"step_id": "step_1", "type": "task", "label": "submit request", "actor": "user"},
		{"step_id": "step_2", "type": "decision", "label": "approve request", "actor": "manager"}
	],
	"transitions": [{"from_step": "step_1", "to_step": "step_2"}],
	"actors": [
		{"actor_id": "user", "role": "user"},
		{"actor_id": "manager", "role": "manager"}
	]
}`

func TestHealth(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "blueprint-mcp", status.Service)
}

func TestGenerate(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/generate",
		`{"description": "The user submits a request, then the manager approves the request."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.True(t, strings.HasPrefix(wf.WorkflowID, "wf_"))
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "decision", wf.Steps[1].Type)
	assert.Len(t, wf.Transitions, 1)
}

func TestGenerate_EmptyDescription(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/generate", `{"description": "   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "about:blank", problem.Type)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
}

func TestValidate_ValidWorkflow(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/validate",
		fmt.Sprintf(`{"workflow": %s}`, validWorkflowJSON))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_InvalidWorkflowIsStill200(t *testing.T) {
	e := newTestEcho(t, "")

	body := `{"workflow": {
		"workflow_id": "wf_test",
		"steps": [{"step_id": "step_1", "type": "teleport", "label": "x"}],
		"transitions": [],
		"actors": []
	}}`
	rec := doJSON(e, http.MethodPost, "/api/v1/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ViolationUnknownStepType, result.Errors[0].Code)
}

func TestValidate_MissingCollectionsAre400(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/validate",
		`{"workflow": {"workflow_id": "wf_test", "steps": []}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "transitions")
	assert.Contains(t, problem.Detail, "actors")
}

func TestExport(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/export",
		fmt.Sprintf(`{"workflow": %s, "format": "mermaid"}`, validWorkflowJSON))
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.ExportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Mermaid", result.Format)
	assert.Contains(t, result.Output, "flowchart TD")
	assert.Contains(t, result.Output, "step_1 --> step_2")
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/export",
		fmt.Sprintf(`{"workflow": %s, "format": "CSV"}`, validWorkflowJSON))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Unsupported Format", problem.Title)
	assert.Equal(t, []string{"JSON", "YAML", "Mermaid", "BPMN"}, problem.ValidFormats)
}

func TestExport_RejectedWorkflowIs422(t *testing.T) {
	e := newTestEcho(t, "")

	body := `{"workflow": {
		"workflow_id": "wf_test",
		"steps": [{"step_id": "step_1", "type": "task", "label": "x"}],
		"transitions": [{"from_step": "step_1", "to_step": "step_99"}],
		"actors": []
	}, "format": "JSON"}`
	rec := doJSON(e, http.MethodPost, "/api/v1/export", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Workflow Rejected", problem.Title)
	require.Len(t, problem.Violations, 1)
	assert.Equal(t, models.ViolationInvalidTransition, problem.Violations[0].Code)
	assert.Equal(t, "transition[0]", problem.Violations[0].Entity)
}

func TestLLMGenerate(t *testing.T) {
	e := newTestEcho(t, `{
		"workflow_id": "wf_llm",
		"steps": [{"step_id": "step_1", "type": "task", "label": "do work", "actor": "user"}],
		"transitions": [],
		"actors": [{"actor_id": "user", "role": "user"}]
	}`)

	rec := doJSON(e, http.MethodPost, "/api/v1/llm/generate",
		`{"prompt": "describe the work", "output_format": "json"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.LLMGenerateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "wf_llm", result.Workflow.WorkflowID)
	require.NotNil(t, result.Export)
	assert.Equal(t, "JSON", result.Export.Format)
}

func TestLLMGenerate_EmptyPrompt(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodPost, "/api/v1/llm/generate",
		`{"prompt": "", "output_format": "JSON"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListResources(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodGet, "/api/v1/resources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]catalog.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body["resources"], 6)
}

func TestGetResource(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodGet, "/api/v1/resources/step_types", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resource catalog.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resource))
	assert.Equal(t, "step_types", resource.Name)
	assert.Contains(t, resource.Data, "decision")
}

func TestGetResource_Unknown(t *testing.T) {
	e := newTestEcho(t, "")

	rec := doJSON(e, http.MethodGet, "/api/v1/resources/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Resource Not Found", problem.Title)
}
