package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/querylens/querylens-engine/pkg/adapters/datasource/mysql"
	_ "github.com/querylens/querylens-engine/pkg/adapters/datasource/postgres"
	_ "github.com/querylens/querylens-engine/pkg/adapters/datasource/sqlite"
	"github.com/querylens/querylens-engine/pkg/config"
	"github.com/querylens/querylens-engine/pkg/llm"
	"github.com/querylens/querylens-engine/pkg/logging"
	"github.com/querylens/querylens-engine/pkg/mcp"
	"github.com/querylens/querylens-engine/pkg/mcp/tools"
	"github.com/querylens/querylens-engine/pkg/session"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := llm.NewClient(&llm.Config{
		Provider:    cfg.AI.Provider,
		Endpoint:    cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		APIKey:      cfg.AI.APIKey,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create model client", zap.Error(err))
	}

	registry := session.NewRegistry(client, cfg.AI, cfg.Query, logger)

	srv := mcp.NewServer(cfg.Name, cfg.Version, logger)
	deps := &tools.Deps{Sessions: registry, Logger: logger}
	tools.RegisterConnectionTools(srv.MCP(), deps)
	tools.RegisterSchemaTools(srv.MCP(), deps)
	tools.RegisterQueryTools(srv.MCP(), deps)
	tools.RegisterHistoryTools(srv.MCP(), deps)
	tools.RegisterHealthTool(srv.MCP(), cfg.Version)

	logger.Info("starting querylens-engine",
		zap.String("version", cfg.Version),
		zap.String("transport", cfg.Transport),
		zap.String("model", cfg.AI.Model))

	switch cfg.Transport {
	case "stdio":
		if err := srv.ServeStdio(); err != nil {
			logger.Fatal("stdio server failed", zap.Error(err))
		}
	case "http":
		if err := serveHTTP(srv, cfg, logger); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}
}

func serveHTTP(srv *mcp.Server, cfg *config.Config, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", srv.NewStreamableHTTPServer())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}
