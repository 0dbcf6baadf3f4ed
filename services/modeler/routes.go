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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

// RegisterRoutes registers all modeler routes with the router.
//
// Description:
//
//	Registers the /modeler/* endpoints on rg. The group should already
//	carry any required middleware.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET    /v1/modeler/health - Service health and cache counters
//	GET    /v1/modeler/graphs - List registered graphs
//	POST   /v1/modeler/graphs - Register a scenario document
//	GET    /v1/modeler/graphs/:id - Describe a graph
//	DELETE /v1/modeler/graphs/:id - Forget a graph
//	POST   /v1/modeler/search - Search one mapping
//	POST   /v1/modeler/candidates - Generate candidate mappings
//	POST   /v1/modeler/generate - Run the whole pipeline
//	GET    /v1/modeler/runs - List archived runs
//	GET    /v1/modeler/runs/:id - Show one archived run
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	m := rg.Group("/modeler")
	{
		m.GET("/health", handlers.HandleHealth)

		m.GET("/graphs", handlers.HandleListGraphs)
		m.POST("/graphs", handlers.HandleRegisterGraph)
		m.GET("/graphs/:id", handlers.HandleGetGraph)
		m.DELETE("/graphs/:id", handlers.HandleDeleteGraph)

		m.POST("/search", handlers.HandleSearch)
		m.POST("/candidates", handlers.HandleCandidates)
		m.POST("/generate", handlers.HandleGenerate)

		m.GET("/runs", handlers.HandleListRuns)
		m.GET("/runs/:id", handlers.HandleGetRun)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName labels otelgin spans.
	ServiceName string

	RateLimit    float64
	Burst        int
	MaxBodyBytes int64

	// Metrics adds HTTP metrics when set.
	Metrics *telemetry.Metrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine serving handlers under /v1.
//
// Middleware order: recovery, tracing, HTTP metrics, then rate limiting
// and the body cap on the API group only.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "modeler"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.GinMiddleware())
	}
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	v1 := router.Group("/v1")
	v1.Use(RateLimit(opts.RateLimit, opts.Burst), MaxBody(opts.MaxBodyBytes))
	RegisterRoutes(v1, handlers)
	return router
}
