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

	"cvscreen/internal/config"
	"cvscreen/internal/mockapi"
	"cvscreen/internal/tools"
)

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// --- mock server ---

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory screening service for local development",
	Long: `Run an in-memory implementation of the screening service API.

State lives in memory and is lost on exit. Useful for trying the client
without a real backend:

  cvscreen mock-server &
  cvscreen register --email dev@example.com --password secret
  cvscreen upload resumes/*.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:    addr,
			Handler: mockapi.NewServer().Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("mock screening service listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			slog.Info("shutting down")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	mockServerCmd.Flags().String("addr", "127.0.0.1:8000", "listen address")
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve screening tools over MCP (stdio transport)",
	Long: `Expose the screening client as MCP tools on stdio, for use by MCP
hosts: list_batches, list_job_descriptions, rank_resumes and
dashboard_activity. Requires a stored session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}
		setupLogging(a.cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mcpSrv := tools.NewMCPServer(tools.Deps{
			Reader:     a.cache,
			Ranker:     a.orch,
			WindowDays: a.cfg.Dashboard.WindowDays,
			PageSize:   a.cfg.List.PageSize,
		})

		slog.Info("MCP server starting (stdio transport)")
		stdioSrv := server.NewStdioServer(mcpSrv)
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
