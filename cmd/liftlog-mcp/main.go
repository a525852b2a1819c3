package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "liftlog daemon base URL")
	apiKey := flag.String("api-key", os.Getenv("LIFTLOG_AUTH_API_KEY"), "API key for the daemon")
	flag.Parse()

	// Logs go to stderr: stdout carries the MCP stdio transport.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds := mcp.NewHTTPClient(*serverURL, *apiKey)
	s := mcp.New(ds, Version, log)

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
