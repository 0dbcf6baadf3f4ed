// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package candidate enumerates and scores candidate mappings: one choice of
// (data-reference node, class node) pair per attribute, derived from the
// attributes' semantic-type guesses.
//
// The pairs of a mapping are the origins handed to the steiner search.
package candidate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// Sentinel errors for candidate generation.
var (
	// ErrInvalidOptions is returned when Options fail validation.
	ErrInvalidOptions = errors.New("invalid candidate options")

	// ErrInvalidAttribute is returned when an attribute fails validation.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrNilGraph is returned when Generate is given no graph.
	ErrNilGraph = errors.New("graph must not be nil")
)

// validate is shared by the package; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// Attribute is a source attribute with its semantic-type guesses.
type Attribute struct {
	Name          string               `json:"name" yaml:"name" validate:"required"`
	SemanticTypes []graph.SemanticType `json:"semantic_types" yaml:"semantic_types" validate:"dive"`
}

// Weights balances the three score components.
type Weights struct {
	Confidence    float64 `json:"confidence" yaml:"confidence" validate:"gte=0"`
	Coherence     float64 `json:"coherence" yaml:"coherence" validate:"gte=0"`
	SizeReduction float64 `json:"size_reduction" yaml:"size_reduction" validate:"gte=0"`
}

// Options configures a Generator.
type Options struct {
	// BranchingFactor caps the number of partial mappings kept after each
	// attribute. The lowest-scoring ones are dropped.
	BranchingFactor int `json:"branching_factor" yaml:"branching_factor" validate:"gte=1"`

	// NumCandidates caps the number of mappings returned.
	NumCandidates int `json:"num_candidates" yaml:"num_candidates" validate:"gte=1"`

	Weights Weights `json:"weights" yaml:"weights"`
}

// DefaultOptions returns equal weights, a branching factor of 50 and ten
// candidates.
func DefaultOptions() Options {
	return Options{
		BranchingFactor: 50,
		NumCandidates:   10,
		Weights: Weights{
			Confidence:    1.0 / 3.0,
			Coherence:     1.0 / 3.0,
			SizeReduction: 1.0 / 3.0,
		},
	}
}

// Validate checks the options with their struct tags.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Candidate is one scored mapping.
type Candidate struct {
	graph.Mapping

	// Confidences[i] is the confidence of the semantic type behind Nodes[i].
	Confidences []float64 `json:"confidences"`

	// Score is the weighted sum of the three components below.
	Score float64 `json:"score"`

	Confidence    float64 `json:"confidence"`
	Coherence     float64 `json:"coherence"`
	SizeReduction float64 `json:"size_reduction"`
}

// clone deep-copies c so that extending the copy leaves c untouched.
func (c Candidate) clone() Candidate {
	out := c
	out.Attributes = append([]string(nil), c.Attributes...)
	out.Nodes = append([]graph.NodePair(nil), c.Nodes...)
	out.Confidences = append([]float64(nil), c.Confidences...)
	return out
}
