// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	modeler "github.com/AleutianAI/SemanticModeler/services/modeler"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		scenarios []string
		watch     bool
		port      int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the modeler HTTP API on /v1/modeler, with Prometheus metrics on
/metrics. Scenarios given with --scenario are registered at startup; with
--watch each file is reloaded when it changes.

Examples:
  modeler serve
  modeler serve --scenario people.yaml --watch
  modeler serve --config modeler.yaml --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, scenarios, watch)
		},
	}

	cmd.Flags().StringSliceVar(&scenarios, "scenario", nil, "Scenario YAML file to register (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload scenario files when they change")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}

// serve runs the API until ctx is done, then shuts down gracefully.
func (a *app) serve(ctx context.Context, scenarios []string, watch bool) error {
	logger := a.slog()

	shutdownTelemetry, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("modeler"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	svc, closeSvc, err := a.newService(true, modeler.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer closeSvc()

	for _, path := range scenarios {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		info, err := svc.RegisterScenario(ctx, sc)
		if err != nil {
			return err
		}
		a.printer.Success("registered %s as %s", path, info.ID)

		if watch {
			w, err := watchScenario(ctx, svc, path, info.ID, logger)
			if err != nil {
				return err
			}
			defer w.Stop()
		}
	}

	if a.cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsHandler := telemetry.MetricsHandler()
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router := modeler.NewRouter(modeler.NewHandlers(svc, logger), modeler.RouterOptions{
		ServiceName:    a.cfg.Telemetry.ServiceName,
		RateLimit:      a.cfg.Server.RateLimit,
		Burst:          a.cfg.Server.Burst,
		MaxBodyBytes:   a.cfg.Server.MaxBodyBytes,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	server := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting modeler server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down modeler server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// watchScenario reloads path into graph id whenever the file changes. A
// reload that fails to build keeps the previous graph.
func watchScenario(ctx context.Context, svc *modeler.Service, path, id string, logger *slog.Logger) (*scenario.Watcher, error) {
	opts := scenario.DefaultWatcherOptions()
	opts.Logger = logger
	w, err := scenario.NewWatcher(path, func(sc *scenario.Scenario, err error) {
		if err != nil {
			logger.Warn("scenario reload rejected",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return
		}
		if _, err := svc.ReplaceGraph(id, sc); err != nil {
			logger.Error("scenario reload failed",
				slog.String("graph_id", id),
				slog.String("error", err.Error()),
			)
		}
	}, &opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return w, nil
}
