package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jchaffin/call-analytics-pinecone/internal/api"
	"github.com/jchaffin/call-analytics-pinecone/internal/clustering"
	"github.com/jchaffin/call-analytics-pinecone/internal/config"
	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
	"github.com/jchaffin/call-analytics-pinecone/internal/ingest"
	"github.com/jchaffin/call-analytics-pinecone/internal/pipeline"
	"github.com/jchaffin/call-analytics-pinecone/internal/storage"
	"github.com/jchaffin/call-analytics-pinecone/internal/vectorindex"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "callanalytics version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the vector index backend.
	index, closeIndex, err := openIndex(cfg.Index)
	if err != nil {
		return err
	}
	if closeIndex != nil {
		defer func() {
			if err := closeIndex(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing index: %v\n", err)
			}
		}()
	}
	slog.Info("vector index ready", "backend", cfg.Index.Backend)

	// Build the analysis pipeline.
	client := genai.NewClient(cfg.GenAI.BaseURL, cfg.GenAI.APIKey, cfg.GenAI.EmbedModel)
	writer := storage.NewWriter(client, index, cfg.Index.Namespace)
	docs := pipeline.NewDocRetriever(client, index, cfg.Index.DocsNamespace, cfg.Index.DocsTopK)
	catalog := pipeline.DefaultCatalog(cfg.GenAI.DefaultModel)
	analyzer := pipeline.NewAnalyzer(client, writer, docs, catalog, logger)
	clusterer := clustering.NewEngine(index, client, cfg.Index.Namespace, 0)
	ingester := ingest.NewIngester(client, index, cfg.Index.DocsNamespace)

	handler := api.NewHandler(api.Deps{
		Analyzer:         analyzer,
		Clusterer:        clusterer,
		Ingester:         ingester,
		DefaultModel:     cfg.GenAI.DefaultModel,
		DefaultThreshold: cfg.Clustering.Threshold,
		DefaultLimit:     cfg.Clustering.Limit,
		Token:            cfg.Server.Token,
		Logger:           logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server over stdio, alongside HTTP.
	if cfg.Server.MCPEnabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Analyzer:         analyzer,
			Clusterer:        clusterer,
			DefaultModel:     cfg.GenAI.DefaultModel,
			DefaultThreshold: cfg.Clustering.Threshold,
			DefaultLimit:     cfg.Clustering.Limit,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "callanalytics listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openIndex(cfg config.IndexConfig) (vectorindex.Index, func() error, error) {
	switch cfg.Backend {
	case "pinecone":
		return vectorindex.NewPinecone(cfg.PineconeHost, cfg.PineconeAPIKey), nil, nil
	case "sqlite":
		idx, err := vectorindex.OpenSQLite(cfg.DataDir, cfg.Dimension)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite index: %w", err)
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
