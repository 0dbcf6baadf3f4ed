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

import "fmt"

// Default search limits.
const (
	DefaultOutputHeapSize  = 50
	DefaultK               = 10
	DefaultMaxSteps        = 100_000
	DefaultMaxHops         = 32
	DefaultMaxCombinations = 10_000
	DefaultMinTreeEdges    = 1
)

// SearchOptions configures one Search call.
type SearchOptions struct {
	// OutputHeapSize is how many candidate trees are kept during the search.
	// Must be at least K.
	OutputHeapSize int `json:"output_heap_size" yaml:"output_heap_size"`

	// K is the number of ranked trees returned.
	K int `json:"k" yaml:"k"`

	// MaxSteps bounds the number of walkers popped from the frontier.
	// Zero means unbounded.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// MaxHops bounds the number of edges on any walker's path.
	// Zero means unbounded, which may not terminate on cyclic graphs.
	MaxHops int `json:"max_hops" yaml:"max_hops"`

	// MaxCombinations bounds how many candidate trees one visit may produce.
	// Zero means unbounded.
	MaxCombinations int `json:"max_combinations" yaml:"max_combinations"`

	// MinTreeEdges drops candidate trees with fewer edges. The default of 1
	// discards the empty tree every origin forms on its own.
	MinTreeEdges int `json:"min_tree_edges" yaml:"min_tree_edges"`
}

// DefaultSearchOptions returns the default search limits.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		OutputHeapSize:  DefaultOutputHeapSize,
		K:               DefaultK,
		MaxSteps:        DefaultMaxSteps,
		MaxHops:         DefaultMaxHops,
		MaxCombinations: DefaultMaxCombinations,
		MinTreeEdges:    DefaultMinTreeEdges,
	}
}

// Validate checks the options.
//
// Outputs:
//
//	error - ErrInvalidK or ErrInvalidOptions, nil if valid.
func (o SearchOptions) Validate() error {
	if o.K < 1 || o.K > o.OutputHeapSize {
		return fmt.Errorf("%w: k=%d output_heap_size=%d", ErrInvalidK, o.K, o.OutputHeapSize)
	}
	if o.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps=%d", ErrInvalidOptions, o.MaxSteps)
	}
	if o.MaxHops < 0 {
		return fmt.Errorf("%w: max_hops=%d", ErrInvalidOptions, o.MaxHops)
	}
	if o.MaxCombinations < 0 {
		return fmt.Errorf("%w: max_combinations=%d", ErrInvalidOptions, o.MaxCombinations)
	}
	if o.MinTreeEdges < 0 {
		return fmt.Errorf("%w: min_tree_edges=%d", ErrInvalidOptions, o.MinTreeEdges)
	}
	return nil
}
