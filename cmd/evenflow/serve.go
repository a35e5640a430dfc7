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

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"evenflow/internal/api"
	"evenflow/internal/config"
	"evenflow/internal/mcp"
	"evenflow/internal/otel"
)

func serveCmd() *cobra.Command {
	var transport string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio, or the HTTP API with MCP mounted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(transport, addr)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (overrides config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(transport, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if transport == "" {
		transport = a.cfg.Server.Transport
	}
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	shutdownTracing, err := otel.Setup(ctx, "evenflow")
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	if interval := a.engine.World.Config().WorldTickInterval; interval > 0 {
		a.engine.StartTicker(time.Duration(interval) * time.Second)
	}
	defer func() {
		if _, err := a.engine.Checkpoint(context.Background()); err != nil {
			a.logger.Error("final checkpoint failed", "error", err)
		}
	}()

	server := mcp.NewServer(a.engine, version)

	switch transport {
	case config.TransportStdio:
		a.logger.Info("serving mcp over stdio", "locations", len(a.engine.World.ListLocations()))
		return server.Run(ctx, &sdk.StdioTransport{})
	case config.TransportHTTP:
		return serveHTTP(ctx, a, addr, api.New(a.engine, version, api.WithMCP(server.HTTPHandler())))
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func serveHTTP(ctx context.Context, a *app, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving http", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
