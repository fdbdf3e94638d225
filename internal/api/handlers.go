// Package api contains the HTTP handlers for the workflow blueprint service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"blueprint-mcp/backend/pkg/models"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "blueprint-mcp",
		Version:   "1.0.0",
	}
	return c.JSON(http.StatusOK, status)
}

// ProblemDetails represents an RFC 7807 Problem Details response, extended
// with the structured fields callers need to correct their request.
type ProblemDetails struct {
	Type         string             `json:"type"`
	Title        string             `json:"title"`
	Status       int                `json:"status"`
	Detail       string             `json:"detail"`
	Instance     string             `json:"instance,omitempty"`
	Violations   []models.Violation `json:"violations,omitempty"`
	ValidFormats []string           `json:"valid_formats,omitempty"`
}

// writeProblem writes an RFC 7807 Problem Details JSON error response.
func writeProblem(c echo.Context, problem ProblemDetails) error {
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(problem.Status)
	return json.NewEncoder(c.Response()).Encode(problem)
}
