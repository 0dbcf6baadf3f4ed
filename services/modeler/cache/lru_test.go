// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
)

func TestLRU_Basic(t *testing.T) {
	t.Run("get and add", func(t *testing.T) {
		c := NewLRU[string, int](4, nil)
		c.Add("a", 1)
		c.Add("b", 2)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = c.Get("missing")
		assert.False(t, ok)

		st := c.Stats()
		assert.Equal(t, int64(1), st.Hits)
		assert.Equal(t, int64(1), st.Misses)
		assert.Equal(t, 2, st.Len)
		assert.Equal(t, 4, st.Capacity)
	})

	t.Run("update keeps one entry", func(t *testing.T) {
		c := NewLRU[string, int](4, nil)
		c.Add("a", 1)
		assert.False(t, c.Add("a", 2))
		v, _ := c.Peek("a")
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		c := NewLRU[string, int](4, nil)
		c.Add("a", 1)
		assert.True(t, c.Remove("a"))
		assert.False(t, c.Remove("a"))
		assert.Zero(t, c.Len())
	})

	t.Run("purge resets counters", func(t *testing.T) {
		c := NewLRU[string, int](4, nil)
		c.Add("a", 1)
		c.Get("a")
		c.Purge()
		assert.Zero(t, c.Len())
		assert.Equal(t, Stats{Capacity: 4}, c.Stats())
	})

	t.Run("non-positive capacity uses default", func(t *testing.T) {
		assert.Equal(t, DefaultCapacity, NewLRU[string, int](0, nil).Stats().Capacity)
	})
}

func TestLRU_Eviction(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](2, func(k string, _ int) {
		evicted = append(evicted, k)
	})

	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // b is now least recent
	assert.True(t, c.Add("c", 3))

	assert.Equal(t, []string{"b"}, evicted)
	_, ok := c.Peek("b")
	assert.False(t, ok)
	_, ok = c.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_RemoveFunc(t *testing.T) {
	c := NewLRU[Key, int](8, nil)
	opts := steiner.DefaultSearchOptions()
	c.Add(SearchKey("g1", graph.MappingFromOrigins(1), opts), 1)
	c.Add(SearchKey("g1", graph.MappingFromOrigins(2), opts), 2)
	c.Add(SearchKey("g2", graph.MappingFromOrigins(1), opts), 3)

	assert.Equal(t, 2, c.RemoveFunc(ForGraph("g1")))
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](16, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Add(w*100+i, i)
				c.Get(i)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}

func TestSearchKey(t *testing.T) {
	opts := steiner.DefaultSearchOptions()
	base := SearchKey("g", graph.MappingFromOrigins(1, 2), opts)

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, base, SearchKey("g", graph.MappingFromOrigins(1, 2), opts))
	})

	t.Run("class side is ignored", func(t *testing.T) {
		m := graph.Mapping{Nodes: []graph.NodePair{{U: 1, V: 7}, {U: 2, V: 9}}}
		assert.Equal(t, base, SearchKey("g", m, opts))
	})

	changed := opts
	changed.K = 3
	tests := []struct {
		name string
		key  Key
	}{
		{"other graph", SearchKey("h", graph.MappingFromOrigins(1, 2), opts)},
		{"origin order", SearchKey("g", graph.MappingFromOrigins(2, 1), opts)},
		{"other options", SearchKey("g", graph.MappingFromOrigins(1, 2), changed)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, base, tc.key)
		})
	}

	assert.Contains(t, base.String(), fmt.Sprintf("g:%x", base.Digest[:4]))
}
