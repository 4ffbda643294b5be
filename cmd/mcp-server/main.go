// Package main provides the MCP server entry point for campus community QA.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bull/campus-qa/internal/app"
	"github.com/bull/campus-qa/internal/config"
	mcpserver "github.com/bull/campus-qa/internal/mcp"
)

func main() {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer closer.Close()

	// Index, models and optional Qdrant mirror
	svc, err := app.LoadServices(cfg, logger)
	if err != nil {
		log.Fatalf("failed to load answering components: %v", err)
	}
	defer svc.Close()

	// Corpus repository for staleness checks (optional)
	fetcher, err := app.NewFetcher(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create GitHub client: %v", err)
	}

	serverCfg := &mcpserver.Config{
		Answerer: svc.Answerer,
		Manifest: svc.Manifest,
	}
	if svc.Retriever != nil {
		serverCfg.Searcher = svc.Retriever
	}
	if svc.Mirror != nil {
		serverCfg.Mirror = svc.Mirror
	}
	if fetcher != nil {
		serverCfg.Source = fetcher
		serverCfg.SourcePath = cfg.GitHub.Path
	}
	server := mcpserver.NewServer(serverCfg)

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()

	var qdrant mcpserver.HealthChecker
	if svc.Mirror != nil {
		qdrant = svc.Mirror
	}
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(!svc.Degraded, qdrant))
	mux.Handle("/mcp", server.HTTPHandler(false))
	mux.HandleFunc("/", mcpserver.NewLandingHandler(svc.Manifest))

	addr := "0.0.0.0:" + cfg.Server.Port

	if cfg.Server.Mode {
		// HTTP mode: serve MCP over HTTP for remote clients
		httpServer := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			httpServer.Shutdown(context.Background())
		}()

		logger.Info("Starting HTTP server", "addr", addr, "degraded", svc.Degraded)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients.
	// The health endpoint still runs in the background for local testing.
	go func() {
		logger.Info("Starting health server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting campus QA MCP server (stdio mode)", "degraded", svc.Degraded)
	if err := server.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
