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
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SemanticModeler/pkg/logging"
	"github.com/AleutianAI/SemanticModeler/pkg/ux"
	modeler "github.com/AleutianAI/SemanticModeler/services/modeler"
	"github.com/AleutianAI/SemanticModeler/services/modeler/config"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg     config.Config
	logger  *logging.Logger
	out     io.Writer
	errOut  io.Writer
	printer *ux.Printer
}

// newRootCmd builds the command tree writing to out and errOut.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "modeler",
		Short: "Find semantic models connecting attributes in a weighted graph",
		Long: `modeler maps source attributes onto an ontology graph and searches
for the lightest trees connecting them.

Subcommands:
  search      - Search trees for a fixed set of origins
  candidates  - List candidate attribute mappings
  generate    - Run the whole pipeline
  serve       - Start the HTTP API
  runs        - Inspect archived runs

Configuration is read from --config, then MODELER_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newSearchCmd(a),
		newCandidatesCmd(a),
		newGenerateCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
	)
	return root
}

// setup loads configuration and creates the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "modeler",
		JSON:    cfg.Logging.JSON,
		Output:  a.errOut,
	})
	a.printer = ux.NewPrinter(a.out)
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// slog returns the slog view of the logger.
func (a *app) slog() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}

// serviceConfig maps the loaded configuration onto the service defaults.
func (a *app) serviceConfig() modeler.ServiceConfig {
	return modeler.ServiceConfig{
		Engine:      a.cfg.Engine,
		Candidates:  a.cfg.Candidates,
		Concurrency: a.cfg.Pipeline.Concurrency,
		CacheSize:   a.cfg.Pipeline.CacheSize,
	}
}

// openRuns opens the run archive. The returned close func is never nil.
func (a *app) openRuns() (*storage.RunStore, func(), error) {
	cfg := a.cfg.Storage
	cfg.Logger = a.slog().With(slog.String("component", "badger"))
	db, err := storage.Open(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open run archive: %w", err)
	}
	store, err := storage.NewRunStore(db)
	if err != nil {
		_ = db.Close()
		return nil, func() {}, err
	}
	return store, func() {
		if err := db.Close(); err != nil {
			a.slog().Warn("failed to close run archive", slog.String("error", err.Error()))
		}
	}, nil
}

// newService creates a service, archiving runs unless archive is false.
func (a *app) newService(archive bool, extra ...modeler.ServiceOption) (*modeler.Service, func(), error) {
	opts := append([]modeler.ServiceOption{modeler.WithLogger(a.slog())}, extra...)
	closeRuns := func() {}
	if archive {
		store, closer, err := a.openRuns()
		if err != nil {
			return nil, closeRuns, err
		}
		closeRuns = closer
		opts = append(opts, modeler.WithRunStore(store))
	}
	svc, err := modeler.NewService(a.serviceConfig(), opts...)
	if err != nil {
		closeRuns()
		return nil, func() {}, err
	}
	return svc, closeRuns, nil
}

// commandContext returns the command context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
