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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("modeler.steiner")

// Prometheus metrics for the search engine.
var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modeler_steiner_searches_total",
		Help: "Total searches by outcome",
	}, []string{"result"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modeler_steiner_search_duration_seconds",
		Help:    "Search duration",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})

	searchSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modeler_steiner_search_steps",
		Help:    "Walkers popped from the frontier per search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	walkersSpawned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modeler_steiner_walkers_spawned_total",
		Help: "Sibling walkers spawned on alternate incoming edges",
	})

	candidateTrees = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modeler_steiner_candidate_trees_total",
		Help: "Candidate trees offered to the output heap by outcome",
	}, []string{"outcome"})

	combinationsCapped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modeler_steiner_combinations_capped_total",
		Help: "Visits whose combinations were cut short by max_combinations",
	})
)

// offerOutcome names an OfferResult for the candidate tree counter.
func offerOutcome(r OfferResult) string {
	switch r {
	case OfferAdmitted:
		return "admitted"
	case OfferReplaced:
		return "replaced"
	case OfferRejected:
		return "rejected"
	case OfferDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}
