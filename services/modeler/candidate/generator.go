// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package candidate

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

var tracer = otel.Tracer("modeler.candidate")

// Graph is the read-only view of the graph the generator needs.
type Graph interface {
	Node(id graph.ID) (*graph.Node, bool)
	NodesByLabel(kind graph.NodeKind, label string) ([]*graph.Node, error)
	OutgoingEdgeWithLabel(id graph.ID, label string) (*graph.Edge, bool)
}

// match is one (U, V) pair found for a semantic type.
type match struct {
	pair       graph.NodePair
	confidence float64
}

// Generator builds candidate mappings.
//
// Thread Safety: Safe for concurrent use.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// NewGenerator validates opts and returns a generator. A nil logger means
// slog.Default().
func NewGenerator(opts Options, logger *slog.Logger) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{opts: opts, logger: logger}, nil
}

// Options returns the generator's options.
func (g *Generator) Options() Options {
	return g.opts
}

// Generate returns the best-scoring candidate mappings for attrs.
//
// Description:
//
//	For every semantic type of an attribute, each class node labelled with
//	the type's class that has an outgoing edge labelled with the type's
//	predicate yields a match {U: edge target, V: class node}. Mappings are
//	extended attribute by attribute with every match, as a cartesian
//	product. An attribute without any match leaves the mappings as they
//	are. After each attribute only the BranchingFactor best mappings are
//	kept. The result is sorted by descending score, ties in generation
//	order, and cut to NumCandidates.
//
// Outputs:
//
//	[]Candidate - Possibly empty when no attribute matched.
//	error - ErrNilGraph, ErrInvalidAttribute, or ctx.Err().
func (g *Generator) Generate(ctx context.Context, attrs []Attribute, model Graph) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "candidate.Generator.Generate",
		trace.WithAttributes(
			attribute.Int("attributes", len(attrs)),
			attribute.Int("branching_factor", g.opts.BranchingFactor),
		),
	)
	defer span.End()

	if model == nil {
		telemetry.RecordError(span, ErrNilGraph)
		return nil, ErrNilGraph
	}
	for i := range attrs {
		if err := validate.Struct(attrs[i]); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalidAttribute, attrs[i].Name, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	var mappings []Candidate
	for _, attr := range attrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches := findMatches(attr, model)
		if len(matches) == 0 {
			continue
		}

		if len(mappings) == 0 {
			for _, m := range matches {
				mappings = append(mappings, Candidate{
					Mapping: graph.Mapping{
						Attributes: []string{attr.Name},
						Nodes:      []graph.NodePair{m.pair},
					},
					Confidences: []float64{m.confidence},
				})
			}
		} else {
			next := make([]Candidate, 0, len(mappings)*len(matches))
			for _, existing := range mappings {
				for _, m := range matches {
					c := existing.clone()
					c.Attributes = append(c.Attributes, attr.Name)
					c.Nodes = append(c.Nodes, m.pair)
					c.Confidences = append(c.Confidences, m.confidence)
					next = append(next, c)
				}
			}
			mappings = next
		}

		if len(mappings) > g.opts.BranchingFactor {
			mappings = g.rank(mappings, model)[:g.opts.BranchingFactor]
		}
	}

	mappings = g.rank(mappings, model)
	if len(mappings) > g.opts.NumCandidates {
		mappings = mappings[:g.opts.NumCandidates]
	}

	span.SetAttributes(attribute.Int("candidates", len(mappings)))
	telemetry.LoggerWithTrace(ctx, g.logger).Debug("candidate mappings generated",
		slog.Int("attributes", len(attrs)),
		slog.Int("candidates", len(mappings)),
	)
	return mappings, nil
}

// findMatches returns the matches of every semantic type of attr, in
// semantic type order, then class node order.
func findMatches(attr Attribute, model Graph) []match {
	var out []match
	for _, st := range attr.SemanticTypes {
		classes, err := model.NodesByLabel(graph.KindClass, st.Class)
		if err != nil {
			continue
		}
		for _, class := range classes {
			edge, ok := model.OutgoingEdgeWithLabel(class.ID, st.Predicate)
			if !ok {
				continue
			}
			out = append(out, match{
				pair:       graph.NodePair{U: edge.Target, V: class.ID},
				confidence: st.Confidence,
			})
		}
	}
	return out
}

// rank scores every mapping and sorts them best first. The sort is stable.
func (g *Generator) rank(mappings []Candidate, model Graph) []Candidate {
	for i := range mappings {
		g.score(&mappings[i], model)
	}
	slices.SortStableFunc(mappings, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return mappings
}

// score fills in the score components of c.
func (g *Generator) score(c *Candidate, model Graph) {
	c.Confidence = Confidence(c.Confidences)
	c.Coherence = Coherence(c.Nodes, model)
	c.SizeReduction = SizeReduction(c.Nodes)
	w := g.opts.Weights
	c.Score = w.Confidence*c.Confidence + w.Coherence*c.Coherence + w.SizeReduction*c.SizeReduction
}

// Confidence is the mean of the per-pair confidences, 0 when empty.
func Confidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range confidences {
		sum += c
	}
	return sum / float64(len(confidences))
}

// Coherence counts the tags of both nodes of every pair and divides the
// highest count by the number of pairs. Without tags it is 0.
func Coherence(pairs []graph.NodePair, model Graph) float64 {
	if len(pairs) == 0 {
		return 0
	}
	counts := make(map[string]int)
	best := 0
	bump := func(id graph.ID) {
		n, ok := model.Node(id)
		if !ok {
			return
		}
		for _, tag := range n.Tags {
			counts[tag]++
			best = max(best, counts[tag])
		}
	}
	for _, p := range pairs {
		bump(p.V)
		bump(p.U)
	}
	return float64(best) / float64(len(pairs))
}

// SizeReduction measures how many nodes the mapping shares.
//
// With k pairs the mapping spans between k+1 distinct nodes (every data
// node on one class) and 2k (nothing shared). The result is
// (2k - size) / k: 0 when nothing is shared, (k-1)/k at best.
func SizeReduction(pairs []graph.NodePair) float64 {
	k := len(pairs)
	if k == 0 {
		return 0
	}
	distinct := make(map[graph.ID]struct{}, 2*k)
	for _, p := range pairs {
		distinct[p.U] = struct{}{}
		distinct[p.V] = struct{}{}
	}
	upper := 2 * k
	lower := k + 1
	return float64(upper-len(distinct)) / float64(upper-lower+1)
}
