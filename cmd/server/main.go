package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"blueprint-mcp/backend/internal/api"
	"blueprint-mcp/backend/internal/auth"
	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/config"
	"blueprint-mcp/backend/internal/logging"
	"blueprint-mcp/backend/internal/mcp"
	"blueprint-mcp/backend/internal/services"
	"blueprint-mcp/backend/internal/tls"
)

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Parse command line flags
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger.Info("Starting Workflow Blueprint Service")

	// Build the catalog once; a malformed catalog is fatal for the whole
	// service, not a per-request condition.
	cat, err := catalog.New(&cfg.Catalog)
	if err != nil {
		logger.Error("Failed to build catalog: %v", err)
		log.Fatalf("Catalog initialization failed: %v", err)
	}
	logger.Info("Catalog loaded")

	// Initialize service layer
	var llmClient *services.HTTPCompletionClient
	if cfg.LLM.URL != "" {
		llmClient = services.NewHTTPCompletionClient(
			cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.APIKey,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
		)
		logger.Info("LLM adapter configured", "url", cfg.LLM.URL)
	} else {
		logger.Warn("No LLM endpoint configured; llm/generate will use rule-based generation only")
	}

	var workflowService *services.WorkflowService
	if llmClient != nil {
		workflowService = services.NewWorkflowService(cat, llmClient, logger)
	} else {
		workflowService = services.NewWorkflowService(cat, nil, logger)
	}

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("blueprint-mcp"))

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")

	if cfg.Auth.Enable {
		authz, err := auth.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to initialize auth", "error", err)
			log.Fatalf("auth initialization failed: %v", err)
		}
		e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
		e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
		e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
		apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
		logger.Info("Authentication enabled")
	}

	apiServer := api.NewServer(workflowService, logger)
	apiServer.RegisterRoutes(apiGroup)
	e.GET("/healthz", api.HandleHealth)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(workflowService)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Expose OpenAPI spec and Swagger UI
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler()))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler()))

	// Diagram viewer
	apiServer.RegisterVisualizer(e)

	// Create HTTP server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
		if cfg.TLS.Enable {
			port = 8443
		}
	}
	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received: %v", sig)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error: %v", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}
