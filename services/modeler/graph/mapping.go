// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// NodePair matches an attribute's data-reference node U to the class node V
// it hangs off.
type NodePair struct {
	U ID `json:"u" yaml:"u"`
	V ID `json:"v" yaml:"v"`
}

// Mapping assigns one NodePair to each attribute. Attributes[i] is mapped by
// Nodes[i]; a mapping built by hand may leave Attributes empty.
type Mapping struct {
	Attributes []string   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Nodes      []NodePair `json:"nodes" yaml:"nodes"`
}

// Origins returns the U side of every pair, in order.
func (m Mapping) Origins() []ID {
	origins := make([]ID, len(m.Nodes))
	for i, p := range m.Nodes {
		origins[i] = p.U
	}
	return origins
}

// MappingFromOrigins builds a mapping with one pair per origin. V is left
// equal to U since only the origin matters to the search.
func MappingFromOrigins(origins ...ID) Mapping {
	m := Mapping{Nodes: make([]NodePair, len(origins))}
	for i, id := range origins {
		m.Nodes[i] = NodePair{U: id, V: id}
	}
	return m
}
