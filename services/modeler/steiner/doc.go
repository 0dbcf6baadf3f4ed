// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package steiner finds low-weight trees connecting a set of origin nodes
// in a weighted attribute graph.
//
// The search is a BANKS-style backward expansion. One Walker starts at each
// origin and repeatedly follows the cheapest edge pointing into its current
// node. Every other incoming edge spawns a sibling walker so alternatives
// are kept as parallel hypotheses. A single frontier orders all walkers by
// the weight of the edge they last crossed.
//
// Each time a walker leaves a node it leaves a Visit there holding the path
// from its origin to that node. Visits left by walkers of different origins
// are combined into candidate trees: one visit per origin, edges unioned,
// distinct edge weights summed. Candidates flow through a bounded output
// heap that keeps the best ones seen, which are finally ranked by weight
// and scored for coherence.
//
// # Determinism
//
// Ties between incoming edges of equal weight go to the edge added to the
// graph first. Ties on the frontier go to the walker pushed first. With a
// fixed graph and mapping, Search always returns the same trees in the
// same order.
//
// # Termination
//
// Walkers stop at nodes without incoming edges. Graphs with cycles can keep
// a walker going forever, so SearchOptions.MaxHops bounds the path length of
// every walker and SearchOptions.MaxSteps bounds the total number of
// expansions. Hitting MaxSteps is not an error: Search returns the trees
// found so far with Result.Truncated set.
//
// # Thread Safety
//
// All search state lives in a per-call context. Any number of searches may
// run concurrently on one frozen graph.
package steiner
