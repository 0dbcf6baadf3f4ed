// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package steiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

// cancelCheckInterval is how many frontier pops pass between context checks.
const cancelCheckInterval = 256

// Result is the outcome of one Search call.
type Result struct {
	// Trees holds at most K trees, ascending by weight, coherence set.
	Trees []CandidateTree `json:"trees"`

	// Truncated is true when MaxSteps stopped the search early.
	Truncated bool `json:"truncated"`

	// Steps is the number of walkers popped from the frontier.
	Steps int `json:"steps"`

	// Walkers is the number of walkers created, roots included.
	Walkers int `json:"walkers"`

	// Candidates is the number of trees offered to the output heap.
	Candidates int `json:"candidates"`

	// Evictions is the number of kept trees displaced by better ones.
	Evictions int `json:"evictions"`

	// CappedVisits counts visits whose combinations hit MaxCombinations.
	CappedVisits int `json:"capped_visits"`

	// DurationMs is the wall time of the search in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// Engine runs searches on one graph.
//
// Thread Safety: Safe for concurrent use as long as the graph is not
// modified. Each Search call keeps its own state.
type Engine struct {
	graph  Graph
	logger *slog.Logger
}

// NewEngine creates an engine for g. A nil logger means slog.Default().
func NewEngine(g Graph, logger *slog.Logger) (*Engine, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{graph: g, logger: logger}, nil
}

// Search runs one search on g with the default logger.
func Search(ctx context.Context, g Graph, mapping graph.Mapping, opts SearchOptions) (*Result, error) {
	e, err := NewEngine(g, nil)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, mapping, opts)
}

// Search finds the lowest-weight trees connecting the mapping's origins.
//
// Description:
//
//	One walker starts at each origin (the U side of every node pair). The
//	frontier repeatedly pops the walker with the lightest last edge, which
//	advances one hop and may spawn siblings. The node it leaves gets a
//	Visit, and every combination of that visit with visits of the other
//	origins at the same node becomes a candidate tree for the output heap.
//	With a single origin there is nothing to converge with: siblings are
//	not spawned and the only tree is the full best-first walk, offered when
//	the walker reaches a sink or MaxHops.
//	When the frontier is empty, or MaxSteps is reached, the heap is drained
//	and the best K trees are scored for coherence.
//
// Inputs:
//
//	ctx - Checked for cancellation every few hundred steps.
//	mapping - Origins to connect. Two pairs with the same U are still two
//	          origins.
//	opts - Search limits. Must pass Validate().
//
// Outputs:
//
//	*Result - Ranked trees and counters. Trees are empty when no candidate
//	          was found.
//	error - ErrInvalidInput family for malformed calls, or ctx.Err().
//
// Complexity: Bounded by MaxSteps pops, each costing O(d + C*E) for
// in-degree d, C combinations, and E edges per combination.
func (e *Engine) Search(ctx context.Context, mapping graph.Mapping, opts SearchOptions) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "steiner.Engine.Search",
		trace.WithAttributes(
			attribute.Int("origins", len(mapping.Nodes)),
			attribute.Int("k", opts.K),
			attribute.Int("output_heap_size", opts.OutputHeapSize),
			attribute.Int("max_steps", opts.MaxSteps),
			attribute.Int("max_hops", opts.MaxHops),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, e.logger)

	origins, err := e.validate(mapping, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		searchTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	frontier := NewFrontier()
	tracker := NewConvergenceTracker(len(origins), opts.MaxCombinations)
	out := NewOutputHeap(opts.OutputHeapSize)
	result := &Result{Walkers: len(origins)}

	for i, id := range origins {
		frontier.Push(NewWalker(i, id))
	}
	single := len(origins) == 1

	for !frontier.IsEmpty() {
		if opts.MaxSteps > 0 && result.Steps >= opts.MaxSteps {
			result.Truncated = true
			break
		}
		if result.Steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				telemetry.RecordError(span, err)
				searchTotal.WithLabelValues("cancelled").Inc()
				return nil, fmt.Errorf("search cancelled after %d steps: %w", result.Steps, err)
			}
		}

		w := frontier.Pop()
		result.Steps++

		path := w.snapshot()
		node, siblings := w.Advance(e.graph, opts.MaxHops)

		// One origin: the answer is its best-first walk, offered once the
		// walker stops at a sink or the hop limit.
		if single {
			if w.HasMore() {
				frontier.Push(w)
			} else {
				walk := Combination{
					Visits:  []Visit{{Origin: w.Origin, Seq: w.Seq, Path: path}},
					Missing: []bool{false},
				}
				e.offer(out, result, opts, Assemble(walk))
			}
			continue
		}

		for _, s := range siblings {
			frontier.Push(s)
		}
		if len(siblings) > 0 {
			result.Walkers += len(siblings)
			walkersSpawned.Add(float64(len(siblings)))
		}
		if w.HasMore() {
			frontier.Push(w)
		}

		combos, capped := tracker.Record(node, Visit{Origin: w.Origin, Seq: w.Seq, Path: path})
		if capped {
			result.CappedVisits++
			combinationsCapped.Inc()
		}
		for _, combo := range combos {
			e.offer(out, result, opts, Assemble(combo))
		}
	}

	ranked := out.Drain()
	k := min(opts.K, len(ranked))
	result.Trees = make([]CandidateTree, k)
	for i := range k {
		t := *ranked[i]
		t.Coherence = Coherence(e.graph, t.EdgeIDs)
		result.Trees[i] = t
	}

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	searchDuration.Observe(elapsed.Seconds())
	searchSteps.Observe(float64(result.Steps))

	outcome := "ok"
	if result.Truncated {
		outcome = "truncated"
		span.AddEvent("truncated", trace.WithAttributes(attribute.Int("max_steps", opts.MaxSteps)))
		logger.Debug("search truncated",
			slog.Int("steps", result.Steps),
			slog.Int("frontier", frontier.Len()),
		)
	}
	searchTotal.WithLabelValues(outcome).Inc()

	span.SetAttributes(
		attribute.Int("steps", result.Steps),
		attribute.Int("walkers", result.Walkers),
		attribute.Int("candidates", result.Candidates),
		attribute.Int("trees", len(result.Trees)),
		attribute.Bool("truncated", result.Truncated),
	)
	logger.Debug("search finished",
		slog.Int("origins", len(origins)),
		slog.Int("steps", result.Steps),
		slog.Int("walkers", result.Walkers),
		slog.Int("candidates", result.Candidates),
		slog.Int("trees", len(result.Trees)),
		slog.Int("visited_nodes", tracker.Nodes()),
		slog.Duration("duration", elapsed),
	)

	return result, nil
}

// offer hands tree to the output heap unless it is below MinTreeEdges.
func (e *Engine) offer(out *OutputHeap, result *Result, opts SearchOptions, tree *CandidateTree) {
	if len(tree.EdgeIDs) < opts.MinTreeEdges {
		return
	}
	result.Candidates++
	outcome := out.Offer(tree)
	if outcome == OfferReplaced {
		result.Evictions++
	}
	candidateTrees.WithLabelValues(offerOutcome(outcome)).Inc()
}

// validate checks options and mapping and returns the origin ids.
func (e *Engine) validate(mapping graph.Mapping, opts SearchOptions) ([]graph.ID, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(mapping.Nodes) == 0 {
		return nil, ErrEmptyMapping
	}

	origins := mapping.Origins()
	var errs []error
	for _, id := range origins {
		if _, ok := e.graph.Node(id); !ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrOriginNotFound, id))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return origins, nil
}
