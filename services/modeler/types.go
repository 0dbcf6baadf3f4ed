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
	"time"

	"github.com/AleutianAI/SemanticModeler/services/modeler/cache"
	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
)

// ServiceVersion is the modeler service version.
const ServiceVersion = "0.1.0"

// GraphInfo describes a registered graph.
type GraphInfo struct {
	ID         string           `json:"id"`
	Name       string           `json:"name,omitempty"`
	Stats      graph.GraphStats `json:"stats"`
	Attributes int              `json:"attributes"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`

	// Keys maps the scenario's node keys to ids.
	Keys map[string]graph.ID `json:"keys,omitempty"`
}

// SearchRequest is the body of POST /v1/modeler/search.
//
// Origins are given as ids, as scenario node keys, or as a full mapping;
// the first non-empty one wins in the order Mapping, Origins, Keys.
type SearchRequest struct {
	GraphID string                 `json:"graph_id" binding:"required"`
	Mapping *graph.Mapping         `json:"mapping,omitempty"`
	Origins []graph.ID             `json:"origins,omitempty"`
	Keys    []string               `json:"keys,omitempty"`
	Options *steiner.SearchOptions `json:"options,omitempty"`
}

// SearchOutcome is the result of Service.Search.
type SearchOutcome struct {
	RunID   string          `json:"run_id,omitempty"`
	Mapping graph.Mapping   `json:"mapping"`
	Result  *steiner.Result `json:"result"`
	Cached  bool            `json:"cached"`
}

// CandidatesRequest is the body of POST /v1/modeler/candidates.
//
// Attributes default to the ones stored with the graph's scenario.
type CandidatesRequest struct {
	GraphID    string                `json:"graph_id" binding:"required"`
	Attributes []candidate.Attribute `json:"attributes,omitempty"`
	Options    *candidate.Options    `json:"options,omitempty"`
}

// CandidatesResponse is returned by POST /v1/modeler/candidates.
type CandidatesResponse struct {
	Candidates []candidate.Candidate `json:"candidates"`
}

// GenerateRequest is the body of POST /v1/modeler/generate.
type GenerateRequest struct {
	GraphID    string                 `json:"graph_id" binding:"required"`
	Attributes []candidate.Attribute  `json:"attributes,omitempty"`
	Candidates *candidate.Options     `json:"candidates,omitempty"`
	Search     *steiner.SearchOptions `json:"search,omitempty"`
}

// ModelView is a materialized semantic model.
type ModelView struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// Model is one ranked result of a pipeline run.
type Model struct {
	Rank int `json:"rank"`

	// MappingIndex points into GenerateOutcome.Candidates.
	MappingIndex int                   `json:"mapping_index"`
	Tree         steiner.CandidateTree `json:"tree"`
	Model        ModelView             `json:"model"`
}

// GenerateOutcome is the result of Service.Generate.
type GenerateOutcome struct {
	RunID      string                `json:"run_id,omitempty"`
	Candidates []candidate.Candidate `json:"candidates"`
	Models     []Model               `json:"models"`

	// Truncated is true when any mapping's search hit MaxSteps.
	Truncated  bool  `json:"truncated"`
	Steps      int   `json:"steps"`
	DurationMs int64 `json:"duration_ms"`
}

// RunsResponse is returned by GET /v1/modeler/runs.
type RunsResponse struct {
	Runs []storage.Run `json:"runs"`
}

// HealthResponse is returned by GET /v1/modeler/health.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Graphs  int         `json:"graphs"`
	Cache   cache.Stats `json:"cache"`
	Archive bool        `json:"archive"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id,omitempty"`
}
