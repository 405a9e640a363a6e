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

	"github.com/lamim/vocabforge/internal/httpapi"
	"github.com/lamim/vocabforge/internal/jobs"
	"github.com/lamim/vocabforge/internal/scheduler"
	"github.com/lamim/vocabforge/internal/workflow"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long:  "Serve the vocabulary and generation REST API, and run scheduled fill-gap jobs when enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	if addr == "" {
		addr = a.cfg.Server.ListenAddr
	}

	if !a.gen.CheckConnection(ctx) {
		a.logger.Warn("Ollama is not reachable, generation endpoints will return 503", "host", a.gen.Host())
	}

	wf := workflow.New(a.gen, a.store, a.checkpoints, a.metrics, a.logger)
	registry := jobs.NewStore()
	runner := jobs.NewRunner(ctx, registry, wf, a.logger)

	var sched *scheduler.Scheduler
	if a.cfg.Schedule.Enabled {
		sched, err = scheduler.New(a.cfg, a.store, runner, a.gen.Model(), a.logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	api := httpapi.NewServer(a.cfg, a.store, a.gen, registry, runner, a.logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("API listening", "addr", addr, "version", Version, "model", a.gen.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Graceful shutdown failed", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	// Running jobs observe the cancelled context and save their checkpoints
	stop()
	runner.Wait()

	a.logger.Info("Server stopped")
	return nil
}
