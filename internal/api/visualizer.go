package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"blueprint-mcp/backend/pkg/models"
)

// VisualizerRenderRequest accepts either raw Mermaid text or a workflow to
// export before rendering.
type VisualizerRenderRequest struct {
	Workflow *models.Workflow `json:"workflow"`
	Mermaid  string           `json:"mermaid"`
	Format   string           `json:"format"`
}

// RegisterVisualizer mounts the diagram viewer pages on the server root.
func (s *Server) RegisterVisualizer(e *echo.Echo) {
	e.GET("/visualizer", s.VisualizerPage)
	e.POST("/visualizer/render", s.VisualizerRender)
}

// VisualizerPage serves the diagram viewer, which renders the Mermaid
// source passed in the src query parameter
// (GET /visualizer)
func (s *Server) VisualizerPage(c echo.Context) error {
	return c.HTML(http.StatusOK, visualizerHTML)
}

// VisualizerRender resolves the request to Mermaid text and redirects to
// the viewer with the encoded source
// (POST /visualizer/render)
func (s *Server) VisualizerRender(c echo.Context) error {
	var req VisualizerRenderRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, ProblemDetails{
			Title: "Invalid Request Body", Status: http.StatusBadRequest, Detail: err.Error(),
		})
	}

	code := req.Mermaid
	if code == "" {
		if req.Workflow == nil {
			return writeProblem(c, ProblemDetails{
				Title: "Invalid Request Body", Status: http.StatusBadRequest,
				Detail: "provide either mermaid or workflow in the request",
			})
		}
		format := req.Format
		if format == "" {
			format = "Mermaid"
		}
		result, err := s.service.Export(c.Request().Context(), req.Workflow, format)
		if err != nil {
			return s.writeError(c, err)
		}
		code = result.Output
	}

	return c.Redirect(http.StatusTemporaryRedirect, "/visualizer?src="+url.QueryEscape(code))
}

const visualizerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Workflow Visualizer</title>
</head>
<body>
  <pre id="diagram" class="mermaid"></pre>
  <script type="module">
  import mermaid from "https://unpkg.com/mermaid@10/dist/mermaid.esm.min.mjs";
  const el = document.getElementById("diagram");
  el.textContent = new URLSearchParams(window.location.search).get("src") || "";
  mermaid.initialize({ startOnLoad: false });
  await mermaid.run({ nodes: [el] });
  </script>
</body>
</html>`
