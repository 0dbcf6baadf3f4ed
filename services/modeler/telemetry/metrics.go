// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the service-level OTel instruments.
//
// Description:
//
//	HTTP request metrics, pipeline metrics, and cache metrics. Engine
//	internals are measured separately with promauto collectors. All names
//	use the "modeler_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks requests in flight.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Pipeline Metrics ---

	// PipelineRunsTotal counts pipeline runs by kind and status.
	PipelineRunsTotal metric.Int64Counter

	// PipelineDuration records pipeline run duration in seconds.
	PipelineDuration metric.Float64Histogram

	// MappingsSearched counts candidate mappings handed to the engine.
	MappingsSearched metric.Int64Counter

	// GraphsRegistered tracks graphs held by the service.
	GraphsRegistered metric.Int64UpDownCounter

	// --- Cache Metrics ---

	// CacheLookups counts search cache lookups by result (hit, miss).
	CacheLookups metric.Int64Counter
}

// NewMetrics registers every instrument with meter.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("modeler"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"modeler_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"modeler_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"modeler_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.PipelineRunsTotal, err = meter.Int64Counter(
		"modeler_pipeline_runs_total",
		metric.WithDescription("Total pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline_runs_total: %w", err)
	}

	m.PipelineDuration, err = meter.Float64Histogram(
		"modeler_pipeline_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline_duration: %w", err)
	}

	m.MappingsSearched, err = meter.Int64Counter(
		"modeler_mappings_searched_total",
		metric.WithDescription("Candidate mappings searched"),
		metric.WithUnit("{mapping}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mappings_searched_total: %w", err)
	}

	m.GraphsRegistered, err = meter.Int64UpDownCounter(
		"modeler_graphs_registered",
		metric.WithDescription("Graphs held by the service"),
		metric.WithUnit("{graph}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create graphs_registered: %w", err)
	}

	m.CacheLookups, err = meter.Int64Counter(
		"modeler_cache_lookups_total",
		metric.WithDescription("Search cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_lookups_total: %w", err)
	}

	return m, nil
}

// GinMiddleware records request count, duration, and in-flight requests.
//
// Description:
//
//	The route template (c.FullPath()) is used as the path attribute so
//	that ids in URLs do not blow up cardinality. Unmatched routes are
//	reported as "unmatched".
//
// Thread Safety: Safe for concurrent use.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.HTTPActiveRequests.Add(ctx, 1)
		defer m.HTTPActiveRequests.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.Int("status", c.Writer.Status()),
		)
		m.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
