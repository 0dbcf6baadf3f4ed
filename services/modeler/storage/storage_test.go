// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
)

func openStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewRunStore(db)
	require.NoError(t, err)
	return store
}

func TestOpen(t *testing.T) {
	t.Run("persistent requires a path", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("persistent with gc", func(t *testing.T) {
		cfg := DefaultConfig(t.TempDir())
		cfg.GCInterval = time.Hour
		db, err := Open(cfg)
		require.NoError(t, err)
		assert.False(t, db.InMemory())
		assert.Equal(t, cfg.Path, db.Path())
		assert.NoError(t, db.Close())
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(InMemoryConfig())
		require.NoError(t, err)
		assert.True(t, db.InMemory())
		assert.Empty(t, db.Path())
		assert.NoError(t, db.Close())
	})

	t.Run("nil db", func(t *testing.T) {
		_, err := NewRunStore(nil)
		assert.Error(t, err)
	})
}

func TestRunStore_SaveGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, Run{
		Kind:     RunSearch,
		GraphID:  "g1",
		Mappings: []graph.Mapping{graph.MappingFromOrigins(1, 2)},
		Options:  steiner.DefaultSearchOptions(),
		Trees: []steiner.CandidateTree{
			{Weight: 7, EdgeIDs: []graph.ID{3, 4}, Coherence: 0.5},
			{Weight: math.Inf(1), EdgeIDs: []graph.ID{5}},
		},
		Steps: 12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, RunSearch, got.Kind)
	assert.Equal(t, "g1", got.GraphID)
	assert.Equal(t, 12, got.Steps)
	assert.Equal(t, []graph.ID{1, 2}, got.Mappings[0].Origins())
	require.Len(t, got.Trees, 2)
	assert.Equal(t, 7.0, got.Trees[0].Weight)
	assert.True(t, math.IsInf(got.Trees[1].Weight, 1))
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestRunStore_NotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStore_List(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := store.Save(ctx, Run{Kind: RunGenerate, Steps: i})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, ids[2], runs[0].ID)
		assert.Equal(t, ids[0], runs[2].ID)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, ids[2], runs[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, ids[1]))
		runs, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
		_, err = store.Get(ctx, ids[1])
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.List(cctx, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunStore_ExplicitID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	saved, err := store.Save(ctx, Run{ID: "fixed", CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "fixed", saved.ID)

	got, err := store.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.CreatedAt))
}
