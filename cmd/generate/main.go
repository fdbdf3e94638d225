// Command generate runs the rule-based pipeline offline: it reads a process
// description, generates and validates a workflow, and prints the export in
// the requested format.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"blueprint-mcp/backend/internal/catalog"
	"blueprint-mcp/backend/internal/config"
	"blueprint-mcp/backend/internal/logging"
	"blueprint-mcp/backend/internal/services"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	configFile := flag.String("config", "", "Path to config file")
	description := flag.String("description", "", "Process description to convert")
	format := flag.String("format", "JSON", "Output format")
	flag.Parse()

	if *description == "" {
		fmt.Fprintln(os.Stderr, "usage: generate -description \"...\" [-format JSON|YAML|Mermaid|BPMN]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cat, err := catalog.New(&cfg.Catalog)
	if err != nil {
		log.Fatalf("Catalog initialization failed: %v", err)
	}

	workflowService := services.NewWorkflowService(cat, nil, logger)

	workflow, err := workflowService.Generate(ctx, *description)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	result, err := workflowService.Export(ctx, workflow, *format)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Println(result.Output)
}
