// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package modeler ties the modeling stages together: a registry of frozen
// graphs, candidate mapping generation, Steiner-tree search with a result
// cache, and an archive of past runs. It also serves them over HTTP.
package modeler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/SemanticModeler/services/modeler/cache"
	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

var tracer = otel.Tracer("modeler.service")

var validate = validator.New()

// ErrInvalidConfig is returned by NewService for a bad ServiceConfig.
var ErrInvalidConfig = errors.New("invalid service config")

// ServiceConfig holds the defaults a Service applies to requests that do
// not bring their own options.
type ServiceConfig struct {
	Engine     steiner.SearchOptions
	Candidates candidate.Options

	// Concurrency bounds the searches a single Generate call runs at once.
	Concurrency int `validate:"gte=1,lte=256"`

	// CacheSize is the number of search results kept. Zero disables the
	// cache.
	CacheSize int `validate:"gte=0"`
}

// DefaultServiceConfig returns the engine and candidate defaults, four
// concurrent searches and a 256 entry cache.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Engine:      steiner.DefaultSearchOptions(),
		Candidates:  candidate.DefaultOptions(),
		Concurrency: 4,
		CacheSize:   256,
	}
}

// Validate checks every field.
func (c ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Candidates.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithRunStore archives every run in store.
func WithRunStore(store *storage.RunStore) ServiceOption {
	return func(s *Service) { s.runs = store }
}

// WithMetrics records pipeline and cache metrics.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// registeredGraph is one entry of the registry. Entries are replaced, never
// mutated, so readers may keep using one after releasing the lock.
type registeredGraph struct {
	info     GraphInfo
	scenario *scenario.Scenario
	engine   *steiner.Engine
}

// Service is the modeling pipeline.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg ServiceConfig

	mu     sync.RWMutex
	graphs map[string]*registeredGraph

	results *cache.LRU[cache.Key, *steiner.Result]
	runs    *storage.RunStore
	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService validates cfg and returns an empty service.
func NewService(cfg ServiceConfig, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:    cfg,
		graphs: make(map[string]*registeredGraph),
		logger: slog.Default(),
		now:    time.Now,
	}
	if cfg.CacheSize > 0 {
		s.results = cache.NewLRU[cache.Key, *steiner.Result](cfg.CacheSize, nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the service defaults.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Archived reports whether runs are archived.
func (s *Service) Archived() bool {
	return s.runs != nil
}

// CacheStats returns the search cache counters. Zero when the cache is off.
func (s *Service) CacheStats() cache.Stats {
	if s.results == nil {
		return cache.Stats{}
	}
	return s.results.Stats()
}

// RegisterScenario adds a built scenario under a new id.
//
// The scenario's graph must be frozen; it is frozen here otherwise.
func (s *Service) RegisterScenario(ctx context.Context, sc *scenario.Scenario) (GraphInfo, error) {
	if sc == nil || sc.Graph == nil {
		return GraphInfo{}, fmt.Errorf("%w: no graph", scenario.ErrInvalidScenario)
	}
	id := uuid.NewString()
	entry, err := s.newEntry(id, sc, s.now().UTC())
	if err != nil {
		return GraphInfo{}, err
	}

	s.mu.Lock()
	s.graphs[id] = entry
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.GraphsRegistered.Add(ctx, 1)
	}
	s.logger.Info("graph registered",
		slog.String("graph_id", id),
		slog.String("name", sc.Name),
		slog.Int("nodes", entry.info.Stats.NodeCount),
		slog.Int("edges", entry.info.Stats.EdgeCount),
	)
	return entry.info, nil
}

// RegisterDocument builds doc and registers the result.
func (s *Service) RegisterDocument(ctx context.Context, doc *scenario.Document) (GraphInfo, error) {
	if doc == nil {
		return GraphInfo{}, fmt.Errorf("%w: empty document", scenario.ErrInvalidScenario)
	}
	if err := doc.Validate(); err != nil {
		return GraphInfo{}, err
	}
	sc, err := scenario.Build(doc)
	if err != nil {
		return GraphInfo{}, err
	}
	return s.RegisterScenario(ctx, sc)
}

// ReplaceGraph swaps the scenario behind id and drops its cached results.
// Used when a watched scenario file changes.
func (s *Service) ReplaceGraph(id string, sc *scenario.Scenario) (GraphInfo, error) {
	if sc == nil || sc.Graph == nil {
		return GraphInfo{}, fmt.Errorf("%w: no graph", scenario.ErrInvalidScenario)
	}

	s.mu.Lock()
	old, ok := s.graphs[id]
	if !ok {
		s.mu.Unlock()
		return GraphInfo{}, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	entry, err := s.newEntry(id, sc, old.info.CreatedAt)
	if err != nil {
		s.mu.Unlock()
		return GraphInfo{}, err
	}
	s.graphs[id] = entry
	s.mu.Unlock()

	dropped := 0
	if s.results != nil {
		dropped = s.results.RemoveFunc(cache.ForGraph(id))
	}
	s.logger.Info("graph replaced",
		slog.String("graph_id", id),
		slog.String("name", sc.Name),
		slog.Int("cache_dropped", dropped),
	)
	return entry.info, nil
}

// RemoveGraph forgets id and its cached results.
func (s *Service) RemoveGraph(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.graphs[id]
	delete(s.graphs, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	if s.results != nil {
		s.results.RemoveFunc(cache.ForGraph(id))
	}
	if s.metrics != nil {
		s.metrics.GraphsRegistered.Add(ctx, -1)
	}
	return nil
}

// Graph returns the description of a registered graph.
func (s *Service) Graph(id string) (GraphInfo, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return GraphInfo{}, err
	}
	return entry.info, nil
}

// Scenario returns the scenario registered under id. It must not be
// modified.
func (s *Service) Scenario(id string) (*scenario.Scenario, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.scenario, nil
}

// Graphs lists registered graphs, oldest first.
func (s *Service) Graphs() []GraphInfo {
	s.mu.RLock()
	out := make([]GraphInfo, 0, len(s.graphs))
	for _, entry := range s.graphs {
		out = append(out, entry.info)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b GraphInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Search finds the best trees connecting the origins of mapping in the
// graph registered under graphID.
//
// Description:
//
//	A nil opts means the service's engine defaults. Results are served
//	from the cache when the same origins were searched with the same
//	options since the graph was last replaced. Every call is archived when
//	a run store is configured, cached or not.
//
// Outputs:
//
//	*SearchOutcome - The trees and, when archived, the run id.
//	error - ErrGraphNotFound, the steiner.ErrInvalidInput family, or
//	        ctx.Err().
func (s *Service) Search(ctx context.Context, graphID string, mapping graph.Mapping, opts *steiner.SearchOptions) (*SearchOutcome, error) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "modeler.Service.Search",
		trace.WithAttributes(
			attribute.String("graph_id", graphID),
			attribute.Int("origins", len(mapping.Nodes)),
		),
	)
	defer span.End()

	searchOpts := s.cfg.Engine
	if opts != nil {
		searchOpts = *opts
	}

	entry, err := s.lookup(graphID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, cached, err := s.search(ctx, entry, mapping, searchOpts)
	s.recordRun(ctx, storage.RunSearch, start, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := &SearchOutcome{Mapping: mapping, Result: result, Cached: cached}
	out.RunID = s.archive(ctx, storage.Run{
		Kind:       storage.RunSearch,
		GraphID:    graphID,
		Scenario:   entry.info.Name,
		Mappings:   []graph.Mapping{mapping},
		Options:    searchOpts,
		Trees:      result.Trees,
		Truncated:  result.Truncated,
		Steps:      result.Steps,
		DurationMs: s.now().Sub(start).Milliseconds(),
	})
	span.SetAttributes(
		attribute.Int("trees", len(result.Trees)),
		attribute.Bool("cached", cached),
	)
	return out, nil
}

// Candidates returns the candidate mappings for attrs on graphID.
//
// Empty attrs fall back to the attributes of the registered scenario. A
// nil opts means the service's candidate defaults.
func (s *Service) Candidates(ctx context.Context, graphID string, attrs []candidate.Attribute, opts *candidate.Options) ([]candidate.Candidate, error) {
	entry, err := s.lookup(graphID)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, entry, attrs, opts)
}

// Generate runs the whole pipeline: candidate mappings are generated, each
// mapping is searched, and the trees of all searches are ranked together.
//
// Description:
//
//	Searches run concurrently, at most Concurrency at a time. Trees with
//	the same edge set found from different mappings are kept once, for the
//	best-ranked mapping. Incomplete trees are dropped when any complete
//	one was found. The merged trees are sorted with steiner.SortTrees, cut
//	to the search K, and each one is materialized as a model subgraph.
//
// Inputs:
//
//	ctx - Cancels every search.
//	graphID - A registered graph.
//	attrs - Attributes to map. Empty means the scenario's attributes.
//	candOpts, searchOpts - Nil means the service defaults.
//
// Outputs:
//
//	*GenerateOutcome - Candidates in rank order and the ranked models.
//	error - ErrGraphNotFound, ErrNoAttributes, an invalid option, the first
//	        search failure, or ctx.Err().
func (s *Service) Generate(ctx context.Context, graphID string, attrs []candidate.Attribute, candOpts *candidate.Options, searchOpts *steiner.SearchOptions) (*GenerateOutcome, error) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "modeler.Service.Generate",
		trace.WithAttributes(attribute.String("graph_id", graphID)),
	)
	defer span.End()

	out, err := s.generate(ctx, graphID, attrs, candOpts, searchOpts, start)
	s.recordRun(ctx, storage.RunGenerate, start, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("candidates", len(out.Candidates)),
		attribute.Int("models", len(out.Models)),
	)
	return out, nil
}

func (s *Service) generate(ctx context.Context, graphID string, attrs []candidate.Attribute, candOpts *candidate.Options, searchOpts *steiner.SearchOptions, start time.Time) (*GenerateOutcome, error) {
	entry, err := s.lookup(graphID)
	if err != nil {
		return nil, err
	}
	opts := s.cfg.Engine
	if searchOpts != nil {
		opts = *searchOpts
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cands, err := s.candidates(ctx, entry, attrs, candOpts)
	if err != nil {
		return nil, err
	}

	results := make([]*steiner.Result, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range cands {
		g.Go(func() error {
			res, _, err := s.search(gctx, entry, cands[i].Mapping, opts)
			if err != nil {
				return fmt.Errorf("search mapping %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MappingsSearched.Add(ctx, int64(len(cands)))
	}

	out := &GenerateOutcome{Candidates: cands}
	trees, owners := mergeTrees(results)
	for _, res := range results {
		out.Truncated = out.Truncated || res.Truncated
		out.Steps += res.Steps
	}
	if len(trees) > opts.K {
		trees = trees[:opts.K]
	}

	for i, tree := range trees {
		sub, err := graph.SubgraphFromTree(entry.scenario.Graph, tree.EdgeIDs)
		if err != nil {
			if errors.Is(err, graph.ErrEmptyTree) {
				continue
			}
			return nil, fmt.Errorf("materialize tree %s: %w", tree.Digest, err)
		}
		out.Models = append(out.Models, Model{
			Rank:         len(out.Models) + 1,
			MappingIndex: owners[i],
			Tree:         tree,
			Model:        viewOf(sub),
		})
	}
	out.DurationMs = s.now().Sub(start).Milliseconds()

	mappings := make([]graph.Mapping, len(cands))
	for i := range cands {
		mappings[i] = cands[i].Mapping
	}
	kept := make([]steiner.CandidateTree, len(out.Models))
	for i := range out.Models {
		kept[i] = out.Models[i].Tree
	}
	out.RunID = s.archive(ctx, storage.Run{
		Kind:       storage.RunGenerate,
		GraphID:    graphID,
		Scenario:   entry.info.Name,
		Mappings:   mappings,
		Options:    opts,
		Trees:      kept,
		Truncated:  out.Truncated,
		Steps:      out.Steps,
		DurationMs: out.DurationMs,
	})

	telemetry.LoggerWithRun(ctx, s.logger, out.RunID).Info("pipeline finished",
		slog.String("graph_id", graphID),
		slog.Int("candidates", len(cands)),
		slog.Int("models", len(out.Models)),
		slog.Bool("truncated", out.Truncated),
		slog.Int64("duration_ms", out.DurationMs),
	)
	return out, nil
}

// mergeTrees flattens per-mapping results into one ranked list. owners[i]
// is the index of the mapping whose search found trees[i] first.
func mergeTrees(results []*steiner.Result) (trees []steiner.CandidateTree, owners []int) {
	type owned struct {
		tree  steiner.CandidateTree
		owner int
	}
	seen := make(map[string]bool)
	var all []owned
	complete := false
	for i, res := range results {
		for _, t := range res.Trees {
			if seen[t.Digest] {
				continue
			}
			seen[t.Digest] = true
			t.EdgeIDs = slices.Clone(t.EdgeIDs)
			all = append(all, owned{tree: t, owner: i})
			complete = complete || t.Complete()
		}
	}
	if complete {
		all = slices.DeleteFunc(all, func(o owned) bool { return !o.tree.Complete() })
	}

	// SortTrees is stable, so sort a parallel slice and carry owners along
	// by digest.
	trees = make([]steiner.CandidateTree, len(all))
	ownerOf := make(map[string]int, len(all))
	for i, o := range all {
		trees[i] = o.tree
		ownerOf[o.tree.Digest] = o.owner
	}
	steiner.SortTrees(trees)
	owners = make([]int, len(trees))
	for i, t := range trees {
		owners[i] = ownerOf[t.Digest]
	}
	return trees, owners
}

// viewOf copies the nodes and edges of a materialized model.
func viewOf(sub *graph.Graph) ModelView {
	view := ModelView{
		Nodes: make([]graph.Node, 0, sub.NodeCount()),
		Edges: make([]graph.Edge, 0, sub.EdgeCount()),
	}
	for _, n := range sub.AllNodes() {
		view.Nodes = append(view.Nodes, *n)
	}
	for _, e := range sub.AllEdges() {
		view.Edges = append(view.Edges, *e)
	}
	return view
}

// Runs lists archived runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]storage.Run, error) {
	if s.runs == nil {
		return []storage.Run{}, nil
	}
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	return runs, nil
}

// Run returns one archived run.
func (s *Service) Run(ctx context.Context, id string) (storage.Run, error) {
	if s.runs == nil {
		return storage.Run{}, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	return s.runs.Get(ctx, id)
}

func (s *Service) lookup(id string) (*registeredGraph, error) {
	s.mu.RLock()
	entry, ok := s.graphs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	return entry, nil
}

func (s *Service) newEntry(id string, sc *scenario.Scenario, created time.Time) (*registeredGraph, error) {
	sc.Graph.Freeze()
	engine, err := steiner.NewEngine(sc.Graph, s.logger)
	if err != nil {
		return nil, err
	}
	return &registeredGraph{
		info: GraphInfo{
			ID:         id,
			Name:       sc.Name,
			Stats:      sc.Graph.Stats(),
			Attributes: len(sc.Attributes),
			CreatedAt:  created,
			UpdatedAt:  s.now().UTC(),
			Keys:       sc.Keys,
		},
		scenario: sc,
		engine:   engine,
	}, nil
}

func (s *Service) candidates(ctx context.Context, entry *registeredGraph, attrs []candidate.Attribute, opts *candidate.Options) ([]candidate.Candidate, error) {
	if len(attrs) == 0 {
		attrs = entry.scenario.Attributes
	}
	if len(attrs) == 0 {
		return nil, ErrNoAttributes
	}
	candOpts := s.cfg.Candidates
	if opts != nil {
		candOpts = *opts
	}
	gen, err := candidate.NewGenerator(candOpts, s.logger)
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, attrs, entry.scenario.Graph)
}

// search runs one cached search on entry.
func (s *Service) search(ctx context.Context, entry *registeredGraph, mapping graph.Mapping, opts steiner.SearchOptions) (*steiner.Result, bool, error) {
	key := cache.SearchKey(entry.info.ID, mapping, opts)
	if s.results != nil {
		if res, ok := s.results.Get(key); ok {
			s.countLookup(ctx, "hit")
			return res, true, nil
		}
		s.countLookup(ctx, "miss")
	}

	res, err := entry.engine.Search(ctx, mapping, opts)
	if err != nil {
		return nil, false, err
	}

	// Skip the cache when the graph was replaced mid-search.
	if s.results != nil {
		if current, err := s.lookup(entry.info.ID); err == nil && current == entry {
			s.results.Add(key, res)
		}
	}
	return res, false, nil
}

func (s *Service) countLookup(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *Service) recordRun(ctx context.Context, kind storage.RunKind, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", status),
	)
	s.metrics.PipelineRunsTotal.Add(ctx, 1, attrs)
	s.metrics.PipelineDuration.Record(ctx, s.now().Sub(start).Seconds(), attrs)
}

// archive saves run and returns its id, or "" when archiving is off or
// fails. A failed save is logged, not returned.
func (s *Service) archive(ctx context.Context, run storage.Run) string {
	if s.runs == nil {
		return ""
	}
	saved, err := s.runs.Save(ctx, run)
	if err != nil {
		telemetry.LoggerWithTrace(ctx, s.logger).Warn("failed to archive run",
			slog.String("kind", string(run.Kind)),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return saved.ID
}
