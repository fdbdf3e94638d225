package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"blueprint-mcp/backend/internal/services"
	"blueprint-mcp/backend/pkg/models"
)

type Server struct {
	mcpServer       *server.MCPServer
	workflowService *services.WorkflowService
}

func NewServer(workflowService *services.WorkflowService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Workflow Blueprint",
			"1.0.0",
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
		),
		workflowService: workflowService,
	}

	s.registerTools()
	s.registerResources()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"generate_workflow_spec",
			mcp.WithDescription("Generate a workflow blueprint from a natural language description"),
			mcp.WithString("description", mcp.Required(), mcp.Description("Natural language description of the business process")),
		),
		s.handleGenerate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"validate_workflow",
			mcp.WithDescription("Validate a workflow blueprint against the configured schema and vocabularies"),
			mcp.WithObject("workflow", mcp.Required(), mcp.Description("Workflow JSON to validate")),
		),
		s.handleValidate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"export_to_format",
			mcp.WithDescription("Export a workflow blueprint to JSON, YAML, Mermaid, or BPMN"),
			mcp.WithObject("workflow", mcp.Required(), mcp.Description("Workflow JSON to export")),
			mcp.WithString("format", mcp.Required(), mcp.Description("Target output format")),
		),
		s.handleExport,
	)
}

func (s *Server) registerResources() {
	for _, res := range s.workflowService.Resources(context.Background()) {
		resource := res
		s.mcpServer.AddResource(
			mcp.NewResource(
				resource.URI,
				resource.Name,
				mcp.WithResourceDescription("Configured catalog: "+resource.Name),
				mcp.WithMIMEType("application/json"),
			),
			func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				data, err := json.Marshal(resource.Data)
				if err != nil {
					return nil, err
				}
				return []mcp.ResourceContents{
					mcp.TextResourceContents{
						URI:      resource.URI,
						MIMEType: "application/json",
						Text:     string(data),
					},
				}, nil
			},
		)
	}
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	description, ok := args["description"].(string)
	if !ok || description == "" {
		return mcp.NewToolResultError("Missing required parameter: description"), nil
	}

	workflow, err := s.workflowService.Generate(ctx, description)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(workflow)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflow, err := decodeWorkflowArg(args["workflow"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.workflowService.Validate(ctx, workflow)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to validate workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflow, err := decodeWorkflowArg(args["workflow"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format, ok := args["format"].(string)
	if !ok || format == "" {
		return mcp.NewToolResultError("Missing required parameter: format"), nil
	}

	result, err := s.workflowService.Export(ctx, workflow, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to export workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// decodeWorkflowArg converts the raw tool argument into a workflow via a
// JSON round-trip, since MCP object arguments arrive as generic maps.
func decodeWorkflowArg(arg interface{}) (*models.Workflow, error) {
	raw, ok := arg.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Missing required parameter: workflow")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("Invalid workflow argument: %v", err)
	}
	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("Invalid workflow argument: %v", err)
	}
	return &workflow, nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
