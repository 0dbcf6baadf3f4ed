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
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

// defaultRunsLimit is the page size of GET /runs without ?limit.
const defaultRunsLimit = 50

// Handlers serves the modeler API.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers for svc. A nil logger means slog.Default().
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// HandleHealth handles GET /v1/modeler/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Graphs:  len(h.svc.Graphs()),
		Cache:   h.svc.CacheStats(),
		Archive: h.svc.Archived(),
	})
}

// HandleRegisterGraph handles POST /v1/modeler/graphs.
//
// Description:
//
//	Builds a scenario document into a frozen graph and registers it. The
//	body is JSON, or YAML when Content-Type is application/yaml or
//	application/x-yaml.
//
// Response:
//
//	201 Created: GraphInfo
//	400 Bad Request: Malformed document, duplicate or unknown node keys
//	413 Request Entity Too Large: Body over the configured limit
func (h *Handlers) HandleRegisterGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleRegisterGraph")

	var doc *scenario.Document
	if isYAML(c.GetHeader("Content-Type")) {
		parsed, err := scenario.Decode(c.Request.Body)
		if err != nil {
			h.writeError(c, logger, requestID, err)
			return
		}
		doc = parsed
	} else {
		doc = &scenario.Document{}
		if err := c.ShouldBindJSON(doc); err != nil {
			h.writeBindError(c, logger, requestID, err)
			return
		}
	}

	info, err := h.svc.RegisterDocument(c.Request.Context(), doc)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// HandleListGraphs handles GET /v1/modeler/graphs.
func (h *Handlers) HandleListGraphs(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, gin.H{"graphs": h.svc.Graphs()})
}

// HandleGetGraph handles GET /v1/modeler/graphs/:id.
func (h *Handlers) HandleGetGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	info, err := h.svc.Graph(c.Param("id"))
	if err != nil {
		h.writeError(c, h.requestLogger(c, requestID, "HandleGetGraph"), requestID, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleDeleteGraph handles DELETE /v1/modeler/graphs/:id.
func (h *Handlers) HandleDeleteGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	if err := h.svc.RemoveGraph(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, h.requestLogger(c, requestID, "HandleDeleteGraph"), requestID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleSearch handles POST /v1/modeler/search.
//
// Description:
//
//	Runs one Steiner search. Origins come from mapping, origins, or keys,
//	in that order of preference. Keys are scenario node keys.
//
// Response:
//
//	200 OK: SearchOutcome
//	400 Bad Request: No origins, unknown origin, or invalid options
//	404 Not Found: Unknown graph
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleSearch")

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, logger, requestID, err)
		return
	}

	mapping, err := h.resolveMapping(req)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}

	out, err := h.svc.Search(c.Request.Context(), req.GraphID, mapping, req.Options)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}
	logger.Debug("search served",
		slog.Int("trees", len(out.Result.Trees)),
		slog.Bool("cached", out.Cached),
	)
	c.JSON(http.StatusOK, out)
}

// HandleCandidates handles POST /v1/modeler/candidates.
func (h *Handlers) HandleCandidates(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleCandidates")

	var req CandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, logger, requestID, err)
		return
	}

	cands, err := h.svc.Candidates(c.Request.Context(), req.GraphID, req.Attributes, req.Options)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}
	if cands == nil {
		cands = []candidate.Candidate{}
	}
	c.JSON(http.StatusOK, CandidatesResponse{Candidates: cands})
}

// HandleGenerate handles POST /v1/modeler/generate.
//
// Response:
//
//	200 OK: GenerateOutcome
//	400 Bad Request: No attributes or invalid options
//	404 Not Found: Unknown graph
func (h *Handlers) HandleGenerate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleGenerate")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, logger, requestID, err)
		return
	}

	out, err := h.svc.Generate(c.Request.Context(), req.GraphID, req.Attributes, req.Candidates, req.Search)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleListRuns handles GET /v1/modeler/runs.
//
// Query Parameters:
//
//	limit - Maximum runs returned, newest first. Default 50.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.requestLogger(c, requestID, "HandleListRuns")

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     "limit must be a positive integer",
				Code:      "INVALID_REQUEST",
				RequestID: requestID,
			})
			return
		}
		limit = n
	}

	runs, err := h.svc.Runs(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, logger, requestID, err)
		return
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs})
}

// HandleGetRun handles GET /v1/modeler/runs/:id.
func (h *Handlers) HandleGetRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	run, err := h.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, h.requestLogger(c, requestID, "HandleGetRun"), requestID, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handlers) resolveMapping(req SearchRequest) (graph.Mapping, error) {
	switch {
	case req.Mapping != nil && len(req.Mapping.Nodes) > 0:
		return *req.Mapping, nil
	case len(req.Origins) > 0:
		return graph.MappingFromOrigins(req.Origins...), nil
	case len(req.Keys) > 0:
		sc, err := h.svc.Scenario(req.GraphID)
		if err != nil {
			return graph.Mapping{}, err
		}
		ids, err := sc.Resolve(req.Keys)
		if err != nil {
			return graph.Mapping{}, err
		}
		return graph.MappingFromOrigins(ids...), nil
	default:
		return graph.Mapping{}, ErrNoOrigins
	}
}

func (h *Handlers) requestLogger(c *gin.Context, requestID, handler string) *slog.Logger {
	return telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With(
		slog.String("request_id", requestID),
		slog.String("handler", handler),
	)
}

func (h *Handlers) writeBindError(c *gin.Context, logger *slog.Logger, requestID string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:     "Request body too large",
			Code:      "BODY_TOO_LARGE",
			RequestID: requestID,
		})
		return
	}
	logger.Warn("invalid request body", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     "Invalid request body",
		Code:      "INVALID_REQUEST",
		RequestID: requestID,
	})
}

func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, requestID string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeBindError(c, logger, requestID, err)
		return
	}
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("code", code), slog.String("error", err.Error()))
	} else {
		logger.Info("request rejected", slog.String("code", code), slog.String("error", err.Error()))
	}
	c.JSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID,
	})
}

// getOrCreateRequestID returns X-Request-ID, generating one when absent,
// and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/yaml" || mediaType == "application/x-yaml" || mediaType == "text/yaml"
}
