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
	"errors"
	"net/http"

	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
)

// Sentinel errors for the modeler service.
var (
	// ErrGraphNotFound indicates no graph is registered under the id.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrNoAttributes indicates a pipeline run had no attributes to map,
	// neither in the request nor in the registered scenario.
	ErrNoAttributes = errors.New("no attributes to map")

	// ErrNoOrigins indicates a search request named no origins.
	ErrNoOrigins = errors.New("no origins given")
)

// errorStatus maps an error to an HTTP status and a machine-readable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrGraphNotFound):
		return http.StatusNotFound, "GRAPH_NOT_FOUND"
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound, "RUN_NOT_FOUND"
	case errors.Is(err, ErrNoAttributes):
		return http.StatusBadRequest, "NO_ATTRIBUTES"
	case errors.Is(err, ErrNoOrigins), errors.Is(err, steiner.ErrEmptyMapping):
		return http.StatusBadRequest, "NO_ORIGINS"
	case errors.Is(err, steiner.ErrOriginNotFound):
		return http.StatusBadRequest, "ORIGIN_NOT_FOUND"
	case errors.Is(err, scenario.ErrUnknownKey):
		return http.StatusBadRequest, "UNKNOWN_KEY"
	case errors.Is(err, steiner.ErrInvalidK):
		return http.StatusBadRequest, "INVALID_K"
	case errors.Is(err, steiner.ErrInvalidInput),
		errors.Is(err, candidate.ErrInvalidOptions),
		errors.Is(err, candidate.ErrInvalidAttribute):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, scenario.ErrDuplicateKey),
		errors.Is(err, graph.ErrInvalidKind),
		errors.Is(err, graph.ErrNegativeWeight),
		errors.Is(err, graph.ErrMaxNodesExceeded),
		errors.Is(err, graph.ErrMaxEdgesExceeded):
		return http.StatusBadRequest, "INVALID_SCENARIO"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return 499, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
