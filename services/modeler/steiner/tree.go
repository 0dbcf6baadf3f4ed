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
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"slices"

	"lukechampine.com/blake3"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// CandidateTree is a set of edges connecting the origins of a mapping.
type CandidateTree struct {
	// Weight is the sum of the distinct edges' weights, or +Inf when some
	// origin is not connected.
	Weight float64

	// EdgeIDs is sorted ascending and free of duplicates.
	EdgeIDs []graph.ID

	// Coherence is set on ranked results only. See Coherence().
	Coherence float64

	// Digest identifies the edge set. Two trees with the same edges and
	// completeness have the same digest.
	Digest string

	seq uint64
}

// Complete reports whether the tree connects every origin.
func (t *CandidateTree) Complete() bool {
	return !math.IsInf(t.Weight, 1)
}

type candidateTreeJSON struct {
	Weight    *float64   `json:"weight"`
	EdgeIDs   []graph.ID `json:"edge_ids"`
	Coherence float64    `json:"coherence"`
	Digest    string     `json:"digest,omitempty"`
}

// MarshalJSON encodes an infinite weight as null.
func (t CandidateTree) MarshalJSON() ([]byte, error) {
	out := candidateTreeJSON{
		EdgeIDs:   t.EdgeIDs,
		Coherence: t.Coherence,
		Digest:    t.Digest,
	}
	if t.Complete() {
		w := t.Weight
		out.Weight = &w
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null weight as +Inf.
func (t *CandidateTree) UnmarshalJSON(data []byte) error {
	var in candidateTreeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.EdgeIDs = in.EdgeIDs
	t.Coherence = in.Coherence
	t.Digest = in.Digest
	t.Weight = math.Inf(1)
	if in.Weight != nil {
		t.Weight = *in.Weight
	}
	return nil
}

// Assemble unions the paths of a combination into a candidate tree.
//
// Description:
//
//	Each edge counts once no matter how many paths contain it. When the
//	combination misses an origin the weight is +Inf.
//
// Inputs:
//
//	combo - One visit per origin.
//
// Outputs:
//
//	*CandidateTree - The tree, with Digest set.
//
// Complexity: O(E log E) in the number of edges across all paths.
func Assemble(combo Combination) *CandidateTree {
	seen := make(map[graph.ID]bool)
	ids := make([]graph.ID, 0)
	weight := 0.0

	for i, v := range combo.Visits {
		if combo.Missing[i] {
			continue
		}
		for _, e := range v.Path {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			ids = append(ids, e.ID)
			weight += e.Weight
		}
	}

	complete := combo.Complete()
	if !complete {
		weight = math.Inf(1)
	}
	slices.Sort(ids)

	return &CandidateTree{
		Weight:  weight,
		EdgeIDs: ids,
		Digest:  TreeDigest(ids, complete),
	}
}

// TreeDigest hashes a sorted edge id set with BLAKE3.
func TreeDigest(sortedIDs []graph.ID, complete bool) string {
	h := blake3.New(32, nil)
	var buf [8]byte
	if complete {
		buf[0] = 1
	}
	_, _ = h.Write(buf[:1])
	for _, id := range sortedIDs {
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		_, _ = h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
