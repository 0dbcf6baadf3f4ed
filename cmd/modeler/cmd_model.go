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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
)

// errNoOrigins is returned by search when neither --origins nor the
// scenario names any.
var errNoOrigins = errors.New("no origins: pass --origins or list origins in the scenario")

// searchFlags are the engine overrides shared by search and generate.
type searchFlags struct {
	k        int
	heap     int
	maxSteps int
	maxHops  int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.k, "k", "k", 0, "Number of trees returned (default from config)")
	cmd.Flags().IntVar(&f.heap, "heap", 0, "Output heap size (default from config)")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", 0, "Frontier pop budget, 0 for unbounded (default from config)")
	cmd.Flags().IntVar(&f.maxHops, "max-hops", 0, "Longest walker path, 0 for unbounded (default from config)")
}

// apply overrides the configured engine options with the flags the user set.
func (f *searchFlags) apply(cmd *cobra.Command, a *app) {
	if cmd.Flags().Changed("k") {
		a.cfg.Engine.K = f.k
	}
	if cmd.Flags().Changed("heap") {
		a.cfg.Engine.OutputHeapSize = f.heap
	}
	if cmd.Flags().Changed("max-steps") {
		a.cfg.Engine.MaxSteps = f.maxSteps
	}
	if cmd.Flags().Changed("max-hops") {
		a.cfg.Engine.MaxHops = f.maxHops
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		scenarioPath string
		origins      string
		jsonOut      bool
		noArchive    bool
		sf           searchFlags
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the lightest trees connecting a set of origins",
		Long: `Search the scenario graph for the lightest trees connecting the given
origins. Origins are node keys or numeric ids.

Examples:
  modeler search --scenario people.yaml --origins name,org_name
  modeler search --scenario people.yaml --origins 3,7 -k 5 --heap 50
  modeler search --scenario people.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			sf.apply(cmd, a)

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			ids := sc.Origins
			if origins != "" {
				ids, err = sc.Resolve(splitRefs(origins))
				if err != nil {
					return err
				}
			}
			if len(ids) == 0 {
				return errNoOrigins
			}

			svc, closeSvc, err := a.newService(!noArchive)
			if err != nil {
				return err
			}
			defer closeSvc()

			info, err := svc.RegisterScenario(ctx, sc)
			if err != nil {
				return err
			}
			opts := a.cfg.Engine
			out, err := svc.Search(ctx, info.ID, graph.MappingFromOrigins(ids...), &opts)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(a.out, out)
			}
			renderSearch(a.printer, sc, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (required)")
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated node keys or ids (default: scenario origins)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not archive the run")
	sf.register(cmd)
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newCandidatesCmd(a *app) *cobra.Command {
	var (
		scenarioPath string
		num          int
		branching    int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List candidate mappings for the scenario's attributes",
		Long: `Generate and score candidate mappings: one (data node, class node) pair
per attribute, chosen from each attribute's semantic types.

Examples:
  modeler candidates --scenario people.yaml
  modeler candidates --scenario people.yaml --num 3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			if cmd.Flags().Changed("num") {
				a.cfg.Candidates.NumCandidates = num
			}
			if cmd.Flags().Changed("branching") {
				a.cfg.Candidates.BranchingFactor = branching
			}

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			svc, closeSvc, err := a.newService(false)
			if err != nil {
				return err
			}
			defer closeSvc()

			info, err := svc.RegisterScenario(ctx, sc)
			if err != nil {
				return err
			}
			cands, err := svc.Candidates(ctx, info.ID, nil, nil)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(a.out, cands)
			}
			renderCandidates(a.printer, sc, cands)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (required)")
	cmd.Flags().IntVar(&num, "num", 0, "Number of candidates (default from config)")
	cmd.Flags().IntVar(&branching, "branching", 0, "Partial mappings kept per attribute (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		scenarioPath string
		jsonOut      bool
		noArchive    bool
		sf           searchFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ranked semantic models for the scenario",
		Long: `Run the whole pipeline: candidate mappings are generated from the
scenario's attributes, every mapping is searched, and the trees of all
searches are ranked by coherence, then weight.

Examples:
  modeler generate --scenario people.yaml
  modeler generate --scenario people.yaml -k 3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			sf.apply(cmd, a)

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			svc, closeSvc, err := a.newService(!noArchive)
			if err != nil {
				return err
			}
			defer closeSvc()

			info, err := svc.RegisterScenario(ctx, sc)
			if err != nil {
				return err
			}
			opts := a.cfg.Engine
			out, err := svc.Generate(ctx, info.ID, nil, nil, &opts)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(a.out, out)
			}
			renderGenerate(a.printer, sc, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (required)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not archive the run")
	sf.register(cmd)
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// splitRefs splits a comma-separated list, dropping empty items.
func splitRefs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// describeRefs renders ids as scenario keys where possible.
func describeRefs(sc *scenario.Scenario, ids []graph.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = nodeName(sc, id)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
