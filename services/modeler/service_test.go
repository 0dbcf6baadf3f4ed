// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package modeler

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
)

// staffYAML builds nodes person=0 org=1 name=2 org_name=3 island=4 and
// edges person->name=5 org->org_name=6 person->org=7.
const staffYAML = `
name: staff
nodes:
  - {key: person, label: "foaf:Person", tags: [m1]}
  - {key: org, label: "ex:Organization", tags: [m1]}
  - {key: name, kind: data_reference, label: name, tags: [m1]}
  - {key: org_name, kind: data_reference, label: org_name, tags: [m1]}
  - {key: island, label: "ex:Island"}
edges:
  - {source: person, target: name, label: "foaf:name", weight: 1, tags: [m1]}
  - {source: org, target: org_name, label: "ex:orgName", weight: 1, tags: [m1]}
  - {source: person, target: org, label: "ex:worksFor", weight: 2, tags: [m1]}
attributes:
  - name: name
    semantic_types:
      - {class: "foaf:Person", predicate: "foaf:name", confidence: 0.9}
  - name: org_name
    semantic_types:
      - {class: "ex:Organization", predicate: "ex:orgName", confidence: 0.8}
`

func buildStaff(t *testing.T) *scenario.Scenario {
	t.Helper()
	doc, err := scenario.Parse([]byte(staffYAML))
	require.NoError(t, err)
	sc, err := scenario.Build(doc)
	require.NoError(t, err)
	return sc
}

func newTestService(t *testing.T, archived bool) *Service {
	t.Helper()
	var opts []ServiceOption
	if archived {
		db, err := storage.Open(storage.InMemoryConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store, err := storage.NewRunStore(db)
		require.NoError(t, err)
		opts = append(opts, WithRunStore(store))
	}
	svc, err := NewService(DefaultServiceConfig(), opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
	}{
		{"zero concurrency", func(c *ServiceConfig) { c.Concurrency = 0 }},
		{"negative cache", func(c *ServiceConfig) { c.CacheSize = -1 }},
		{"k above heap", func(c *ServiceConfig) { c.Engine.K = c.Engine.OutputHeapSize + 1 }},
		{"no candidates", func(c *ServiceConfig) { c.Candidates.NumCandidates = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultServiceConfig()
			tc.mutate(&cfg)
			_, err := NewService(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("cache disabled", func(t *testing.T) {
		cfg := DefaultServiceConfig()
		cfg.CacheSize = 0
		svc, err := NewService(cfg)
		require.NoError(t, err)
		assert.Zero(t, svc.CacheStats())
		assert.False(t, svc.Archived())
	})
}

func TestService_Registry(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, false)

	info, err := svc.RegisterScenario(ctx, buildStaff(t))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "staff", info.Name)
	assert.Equal(t, 5, info.Stats.NodeCount)
	assert.Equal(t, 3, info.Stats.EdgeCount)
	assert.Equal(t, 2, info.Attributes)
	assert.Equal(t, graph.ID(2), info.Keys["name"])

	got, err := svc.Graph(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.Len(t, svc.Graphs(), 1)

	_, err = svc.Graph("missing")
	assert.ErrorIs(t, err, ErrGraphNotFound)

	t.Run("register document", func(t *testing.T) {
		doc, err := scenario.Parse([]byte(staffYAML))
		require.NoError(t, err)
		second, err := svc.RegisterDocument(ctx, doc)
		require.NoError(t, err)
		assert.NotEqual(t, info.ID, second.ID)
		assert.Len(t, svc.Graphs(), 2)
	})

	t.Run("nil scenario", func(t *testing.T) {
		_, err := svc.RegisterScenario(ctx, nil)
		assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, svc.RemoveGraph(ctx, info.ID))
		assert.ErrorIs(t, svc.RemoveGraph(ctx, info.ID), ErrGraphNotFound)
		assert.Len(t, svc.Graphs(), 1)
	})
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, true)
	info, err := svc.RegisterScenario(ctx, buildStaff(t))
	require.NoError(t, err)

	mapping := graph.MappingFromOrigins(2, 3)

	first, err := svc.Search(ctx, info.ID, mapping, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.RunID)
	require.Len(t, first.Result.Trees, 1)
	assert.Equal(t, 4.0, first.Result.Trees[0].Weight)
	assert.Equal(t, []graph.ID{5, 6, 7}, first.Result.Trees[0].EdgeIDs)
	assert.Equal(t, 1.0, first.Result.Trees[0].Coherence)

	second, err := svc.Search(ctx, info.ID, mapping, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, int64(1), svc.CacheStats().Hits)

	t.Run("other options miss the cache", func(t *testing.T) {
		opts := steiner.DefaultSearchOptions()
		opts.K = 1
		out, err := svc.Search(ctx, info.ID, mapping, &opts)
		require.NoError(t, err)
		assert.False(t, out.Cached)
	})

	t.Run("runs are archived", func(t *testing.T) {
		runs, err := svc.Runs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		run, err := svc.Run(ctx, first.RunID)
		require.NoError(t, err)
		assert.Equal(t, storage.RunSearch, run.Kind)
		assert.Equal(t, "staff", run.Scenario)
		assert.Equal(t, []graph.Mapping{mapping}, run.Mappings)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Search(ctx, "missing", mapping, nil)
		assert.ErrorIs(t, err, ErrGraphNotFound)

		_, err = svc.Search(ctx, info.ID, graph.MappingFromOrigins(99), nil)
		assert.ErrorIs(t, err, steiner.ErrOriginNotFound)

		_, err = svc.Search(ctx, info.ID, graph.Mapping{}, nil)
		assert.ErrorIs(t, err, steiner.ErrEmptyMapping)
	})
}

func TestService_ReplaceGraph(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, false)
	info, err := svc.RegisterScenario(ctx, buildStaff(t))
	require.NoError(t, err)

	_, err = svc.Search(ctx, info.ID, graph.MappingFromOrigins(2, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats().Len)

	replacement := buildStaff(t)
	replacement.Name = "staff-v2"
	updated, err := svc.ReplaceGraph(info.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, info.ID, updated.ID)
	assert.Equal(t, "staff-v2", updated.Name)
	assert.Equal(t, info.CreatedAt, updated.CreatedAt)
	assert.Zero(t, svc.CacheStats().Len)

	_, err = svc.ReplaceGraph("missing", buildStaff(t))
	assert.ErrorIs(t, err, ErrGraphNotFound)
}

func TestService_Candidates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, false)
	info, err := svc.RegisterScenario(ctx, buildStaff(t))
	require.NoError(t, err)

	cands, err := svc.Candidates(ctx, info.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"name", "org_name"}, cands[0].Attributes)
	assert.Equal(t, []graph.NodePair{{U: 2, V: 0}, {U: 3, V: 1}}, cands[0].Nodes)
	assert.InDelta(t, 0.85, cands[0].Confidence, 1e-9)

	t.Run("explicit attributes", func(t *testing.T) {
		attrs := []candidate.Attribute{{
			Name: "name",
			SemanticTypes: []graph.SemanticType{
				{Class: "foaf:Person", Predicate: "foaf:name", Confidence: 0.5},
			},
		}}
		cands, err := svc.Candidates(ctx, info.ID, attrs, nil)
		require.NoError(t, err)
		require.Len(t, cands, 1)
		assert.Equal(t, []graph.NodePair{{U: 2, V: 0}}, cands[0].Nodes)
	})

	t.Run("invalid options", func(t *testing.T) {
		opts := candidate.DefaultOptions()
		opts.BranchingFactor = 0
		_, err := svc.Candidates(ctx, info.ID, nil, &opts)
		assert.ErrorIs(t, err, candidate.ErrInvalidOptions)
	})
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, true)
	info, err := svc.RegisterScenario(ctx, buildStaff(t))
	require.NoError(t, err)

	out, err := svc.Generate(ctx, info.ID, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	require.Len(t, out.Models, 1)
	assert.NotEmpty(t, out.RunID)
	assert.False(t, out.Truncated)

	model := out.Models[0]
	assert.Equal(t, 1, model.Rank)
	assert.Equal(t, 0, model.MappingIndex)
	assert.Equal(t, []graph.ID{5, 6, 7}, model.Tree.EdgeIDs)
	assert.Len(t, model.Model.Edges, 3)
	assert.Len(t, model.Model.Nodes, 4)
	for _, n := range model.Model.Nodes {
		assert.NotEqual(t, "ex:Island", n.Label)
	}

	run, err := svc.Run(ctx, out.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunGenerate, run.Kind)
	assert.Len(t, run.Mappings, 1)
	require.Len(t, run.Trees, 1)
	assert.Equal(t, model.Tree.Digest, run.Trees[0].Digest)

	t.Run("no attributes", func(t *testing.T) {
		doc, err := scenario.Parse([]byte(staffYAML))
		require.NoError(t, err)
		doc.Attributes = nil
		bare, err := svc.RegisterDocument(ctx, doc)
		require.NoError(t, err)

		_, err = svc.Generate(ctx, bare.ID, nil, nil, nil)
		assert.ErrorIs(t, err, ErrNoAttributes)
	})

	t.Run("invalid search options", func(t *testing.T) {
		opts := steiner.DefaultSearchOptions()
		opts.K = 0
		_, err := svc.Generate(ctx, info.ID, nil, nil, &opts)
		assert.ErrorIs(t, err, steiner.ErrInvalidInput)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Generate(cctx, info.ID, nil, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMergeTrees(t *testing.T) {
	results := []*steiner.Result{
		{Trees: []steiner.CandidateTree{
			{Weight: 5, Coherence: 1, EdgeIDs: []graph.ID{1}, Digest: "a"},
			{Weight: math.Inf(1), EdgeIDs: []graph.ID{9}, Digest: "x"},
		}},
		{Trees: []steiner.CandidateTree{
			{Weight: 3, Coherence: 1, EdgeIDs: []graph.ID{2}, Digest: "b"},
			{Weight: 5, Coherence: 1, EdgeIDs: []graph.ID{1}, Digest: "a"},
		}},
		{Trees: []steiner.CandidateTree{
			{Weight: 1, Coherence: 0.5, EdgeIDs: []graph.ID{3}, Digest: "c"},
		}},
	}

	trees, owners := mergeTrees(results)

	digests := make([]string, len(trees))
	for i, tr := range trees {
		digests[i] = tr.Digest
	}
	assert.Equal(t, []string{"b", "a", "c"}, digests)
	assert.Equal(t, []int{1, 0, 2}, owners)

	t.Run("incomplete trees survive alone", func(t *testing.T) {
		trees, owners := mergeTrees([]*steiner.Result{{Trees: []steiner.CandidateTree{
			{Weight: math.Inf(1), EdgeIDs: []graph.ID{9}, Digest: "x"},
		}}})
		require.Len(t, trees, 1)
		assert.Equal(t, []int{0}, owners)
	})
}
