package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roivaz/notion-chakra-mcp/internal/app"
	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/mcp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "mcp-server",
		Short:         "Notion MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	root.PersistentFlags().String("transport", config.TransportSSE, "Transport: stdio, sse or http")
	root.PersistentFlags().String("host", "0.0.0.0", "HTTP host")
	root.PersistentFlags().Int("port", 8050, "HTTP port")
	root.PersistentFlags().String("notion-api-key", "", "Notion integration token (env NOTION_API_KEY)")
	root.PersistentFlags().String("data-dir", "data", "Directory for stored schemas")
	root.PersistentFlags().String("schema-backend", config.BackendFile, "Schema store: file or postgres")
	root.PersistentFlags().String("postgres-url", "", "Postgres connection URL for the postgres schema store")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().Int("retry-max-attempts", 5, "Attempts per tool call, including the first")
	root.PersistentFlags().Duration("retry-base-delay", time.Second, "First retry delay")
	root.PersistentFlags().Duration("retry-max-delay", 10*time.Second, "Upper bound for a single retry delay")
	root.PersistentFlags().String("otel-exporter", "none", "Trace exporter: none, otlp, otlp_http or stdout")

	config.Init(root)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-server: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	settings := config.Load()
	if err := settings.Validate(); err != nil {
		return err
	}
	log := logging.New(logging.ForLevel(settings.LogLevel))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, settings, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			log.Error(err, "error releasing resources")
		}
	}()

	cfg := mcp.DefaultConfig(settings, mcp.Dependencies{
		Executor:  rt.Adapter,
		Schemas:   rt.Schemas,
		Databases: settings.Databases,
		Filter:    rt.Filter,
	})
	cfg.Metrics = rt.Telemetry.MetricsHandler()
	cfg.Logger = log
	srv, err := mcp.New(cfg)
	if err != nil {
		return err
	}

	if settings.Server.Transport == config.TransportStdio {
		log.Info("serving MCP over stdio")
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
	return serveHTTP(ctx, srv, settings.Server.Addr(), log)
}

func serveHTTP(ctx context.Context, srv *mcp.Server, addr string, log logging.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("MCP server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(err, "error closing MCP sessions")
		}
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
