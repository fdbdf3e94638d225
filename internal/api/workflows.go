package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/exporter"
	"blueprint-mcp/backend/internal/generator"
	"blueprint-mcp/backend/internal/services"
	"blueprint-mcp/backend/internal/validator"
	"blueprint-mcp/backend/pkg/models"
)

// Logger is the narrow logging interface the handlers need.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Server holds the dependencies for the API server.
type Server struct {
	service *services.WorkflowService
	logger  Logger
}

// NewServer creates a new Server.
func NewServer(service *services.WorkflowService, logger Logger) *Server {
	return &Server{service: service, logger: logger}
}

// RegisterRoutes mounts the workflow endpoints on the given group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.POST("/generate", s.Generate)
	g.POST("/validate", s.Validate)
	g.POST("/export", s.Export)
	g.POST("/llm/generate", s.LLMGenerate)
	g.GET("/resources", s.ListResources)
	g.GET("/resources/:name", s.GetResource)
}

// GenerateRequest is the payload for rule-based generation.
type GenerateRequest struct {
	Description string `json:"description"`
}

// ValidateRequest wraps a caller-supplied workflow.
type ValidateRequest struct {
	Workflow models.Workflow `json:"workflow"`
}

// ExportRequest names the workflow and the target format.
type ExportRequest struct {
	Workflow models.Workflow `json:"workflow"`
	Format   string          `json:"format"`
}

// LLMGenerateRequest is the payload for the LLM-assisted pipeline.
type LLMGenerateRequest struct {
	Prompt       string `json:"prompt"`
	OutputFormat string `json:"output_format"`
}

// Generate turns a description into a workflow blueprint
// (POST /api/v1/generate)
func (s *Server) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	}
	if strings.TrimSpace(req.Description) == "" {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: "description must not be empty",
		})
	}

	wf, err := s.service.Generate(c.Request().Context(), req.Description)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// Validate checks a workflow against the schema invariants
// (POST /api/v1/validate)
func (s *Server) Validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	}

	result, err := s.service.Validate(c.Request().Context(), &req.Workflow)
	if err != nil {
		return s.writeError(c, err)
	}
	// Rejection is structured feedback for the caller, not an HTTP error.
	return c.JSON(http.StatusOK, result)
}

// Export renders a workflow in the requested format
// (POST /api/v1/export)
func (s *Server) Export(c echo.Context) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	}

	result, err := s.service.Export(c.Request().Context(), &req.Workflow, req.Format)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// LLMGenerate runs the LLM-assisted generate/validate/export pipeline
// (POST /api/v1/llm/generate)
func (s *Server) LLMGenerate(c echo.Context) error {
	var req LLMGenerateRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: "prompt must not be empty",
		})
	}

	result, err := s.service.GenerateWithLLM(c.Request().Context(), req.Prompt, req.OutputFormat)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListResources returns every configured catalog
// (GET /api/v1/resources)
func (s *Server) ListResources(c echo.Context) error {
	resources := s.service.Resources(c.Request().Context())
	return c.JSON(http.StatusOK, map[string][]catalog.Resource{"resources": resources})
}

// GetResource returns one named catalog
// (GET /api/v1/resources/:name)
func (s *Server) GetResource(c echo.Context) error {
	name := c.Param("name")
	resource := s.service.Resource(c.Request().Context(), name)
	if resource == nil {
		return writeProblem(c, ProblemDetails{
			Title: "Resource Not Found", Status: http.StatusNotFound,
			Detail: "unknown resource: " + name,
		})
	}
	return c.JSON(http.StatusOK, resource)
}

// writeError translates internal failures into caller-visible problem
// responses. Misconfiguration is an operational fault (503); everything a
// caller can fix comes back as structured 4xx detail; anything else is an
// opaque 500.
func (s *Server) writeError(c echo.Context, err error) error {
	var confErr *catalog.ConfigurationError
	var malformedErr *models.MalformedInputError
	var formatErr *exporter.UnsupportedFormatError
	var rejectedErr *validator.RejectedError

	switch {
	case errors.As(err, &confErr):
		s.logger.Error("service misconfigured: %v", confErr)
		return writeProblem(c, ProblemDetails{
			Title: "Service Unavailable", Status: http.StatusServiceUnavailable,
			Detail: "the service catalog is misconfigured",
		})
	case errors.As(err, &malformedErr):
		return writeProblem(c, ProblemDetails{
			Title: "Malformed Workflow", Status: http.StatusBadRequest, Detail: malformedErr.Error(),
		})
	case errors.As(err, &formatErr):
		return writeProblem(c, ProblemDetails{
			Title: "Unsupported Format", Status: http.StatusBadRequest,
			Detail: formatErr.Error(), ValidFormats: formatErr.Valid,
		})
	case errors.As(err, &rejectedErr):
		return writeProblem(c, ProblemDetails{
			Title: "Workflow Rejected", Status: http.StatusUnprocessableEntity,
			Detail: rejectedErr.Error(), Violations: rejectedErr.Violations,
		})
	case errors.Is(err, generator.ErrEmptyDescription):
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	default:
		s.logger.Error("request failed: %v", err)
		return writeProblem(c, ProblemDetails{
			Title: "Internal Server Error", Status: http.StatusInternalServerError,
			Detail: "an internal error occurred",
		})
	}
}
