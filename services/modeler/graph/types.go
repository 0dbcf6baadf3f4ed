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

import (
	"fmt"
	"slices"
	"strings"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000

	// DefaultEdgeWeight is the weight given to edges created without one.
	DefaultEdgeWeight = 1.0
)

// ID identifies a node or an edge. Nodes and edges share one id space.
type ID int64

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddEdge calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// NodeKind is the closed set of node kinds.
type NodeKind int

const (
	// KindClass is an ontology class node.
	KindClass NodeKind = iota

	// KindDataReference is a node standing for an attribute's values.
	KindDataReference
)

// nodeKindNames maps NodeKind values to their string representations.
var nodeKindNames = map[NodeKind]string{
	KindClass:         "class",
	KindDataReference: "data_reference",
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	_, ok := nodeKindNames[k]
	return ok
}

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseNodeKind converts a textual kind into a NodeKind.
//
// Accepts "class" and "data_reference" (case-insensitive, "datareference"
// and "data" are accepted as aliases). Anything else yields ErrInvalidKind.
func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class", "":
		return KindClass, nil
	case "data_reference", "datareference", "data":
		return KindDataReference, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Element is implemented by Node and Edge so that Get() can return either.
type Element interface {
	ElementID() ID
}

// Node is a class or data-reference node in the graph.
//
// Nodes are owned by the graph and MUST NOT be mutated by callers once the
// graph is frozen. Search state is never attached to a Node.
type Node struct {
	// ID is assigned by the graph's IDAllocator.
	ID ID `json:"id"`

	// Kind is Class or DataReference.
	Kind NodeKind `json:"kind"`

	// Label is the class IRI for class nodes, or the attribute name for
	// data-reference nodes.
	Label string `json:"label,omitempty"`

	// Tags names the source models this node came from.
	Tags []string `json:"tags,omitempty"`

	// Weight is optional. Nil means unweighted.
	Weight *float64 `json:"weight,omitempty"`

	// Language and Datatype describe literal values of data-reference nodes.
	Language string `json:"language,omitempty"`
	Datatype string `json:"datatype,omitempty"`

	// Sample is an example value, passed through untouched.
	Sample string `json:"sample,omitempty"`
}

// ElementID implements Element.
func (n *Node) ElementID() ID { return n.ID }

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// JoinCondition is opaque join data carried on an edge. The search never
// looks at it.
type JoinCondition struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// Edge is a directed, weighted relation between two nodes.
//
// Multiple edges may share a source or a target, and two edges may connect
// the same pair of nodes with different labels.
type Edge struct {
	// ID is assigned by the graph's IDAllocator.
	ID ID `json:"id"`

	// Source is the id of the node the edge leaves.
	Source ID `json:"source"`

	// Target is the id of the node the edge enters.
	Target ID `json:"target"`

	// Label is the predicate IRI.
	Label string `json:"label,omitempty"`

	// Weight is non-negative. Lower means stronger evidence.
	Weight float64 `json:"weight"`

	// Tags names the source models that contributed this edge.
	Tags []string `json:"tags,omitempty"`

	// JoinConditions is pass-through data.
	JoinConditions []JoinCondition `json:"join_conditions,omitempty"`
}

// ElementID implements Element.
func (e *Edge) ElementID() ID { return e.ID }

// GraphStats summarizes graph contents.
type GraphStats struct {
	NodeCount          int        `json:"node_count"`
	EdgeCount          int        `json:"edge_count"`
	ClassCount         int        `json:"class_count"`
	DataReferenceCount int        `json:"data_reference_count"`
	MaxID              ID         `json:"max_id"`
	State              GraphState `json:"state"`
}
