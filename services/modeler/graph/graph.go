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
	"math"
	"slices"
	"time"
)

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int

	// FirstID is the first id the allocator hands out.
	// Default: 0
	FirstID ID
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// WithFirstID sets the first id handed out by the graph's allocator.
func WithFirstID(id ID) GraphOption {
	return func(o *GraphOptions) {
		o.FirstID = id
	}
}

// Graph is the weighted attribute graph.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use during building. It is designed
//	for single-writer access during build, then read-only after Freeze().
//	After Freeze() is called, the graph can be safely read from multiple
//	goroutines, but no further modifications are allowed.
type Graph struct {
	ids *IDAllocator

	// nodes and edges keep insertion order. Iteration order of AllEdges()
	// is what the search uses to break weight ties.
	nodes []*Node
	edges []*Edge

	nodeIndex map[ID]*Node
	edgeIndex map[ID]*Edge

	incoming map[ID][]*Edge
	outgoing map[ID][]*Edge

	// nodesByLabel indexes nodes by kind, then label.
	nodesByLabel map[NodeKind]map[string][]*Node

	state   GraphState
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was called.
	// Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph.
//
// Description:
//
//	Creates a graph in the Building state with its own IDAllocator.
//
// Example:
//
//	g := graph.NewGraph()
//	person, _ := g.AddNode(graph.Node{Kind: graph.KindClass, Label: "foaf:Person"})
//	name, _ := g.AddNode(graph.Node{Kind: graph.KindDataReference, Label: "name"})
//	_, _ = g.AddEdge(graph.Edge{Source: person.ID, Target: name.ID, Label: "foaf:name", Weight: 1})
//	g.Freeze()
func NewGraph(opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		ids:          NewIDAllocator(options.FirstID),
		nodes:        make([]*Node, 0),
		edges:        make([]*Edge, 0),
		nodeIndex:    make(map[ID]*Node),
		edgeIndex:    make(map[ID]*Edge),
		incoming:     make(map[ID][]*Edge),
		outgoing:     make(map[ID][]*Edge),
		nodesByLabel: make(map[NodeKind]map[string][]*Node),
		state:        GraphStateBuilding,
		options:      options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// After calling Freeze(), every mutating method returns ErrGraphFrozen.
// This operation is irreversible; use Clone() to get a writable copy.
func (g *Graph) Freeze() {
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode creates a node from the given template.
//
// Description:
//
//	The template's ID is ignored and replaced by a fresh id from the
//	graph's allocator. Tags are copied.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidKind - Kind is outside the closed enumeration
//	ErrMaxNodesExceeded - Graph is at node capacity
func (g *Graph) AddNode(tmpl Node) (*Node, error) {
	if g.state == GraphStateReadOnly {
		return nil, ErrGraphFrozen
	}
	if !tmpl.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(tmpl.Kind))
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return nil, ErrMaxNodesExceeded
	}

	node := tmpl
	node.ID = g.ids.Next()
	node.Tags = slices.Clone(tmpl.Tags)
	if tmpl.Weight != nil {
		w := *tmpl.Weight
		node.Weight = &w
	}

	g.insertNode(&node)
	return &node, nil
}

// AddEdge creates a directed edge from the given template.
//
// Description:
//
//	The template's ID is ignored and replaced by a fresh id. Source and
//	Target must name existing nodes.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrNodeNotFound - Source or target node doesn't exist
//	ErrNegativeWeight - Weight is negative or NaN
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddEdge(tmpl Edge) (*Edge, error) {
	if g.state == GraphStateReadOnly {
		return nil, ErrGraphFrozen
	}
	if len(g.edges) >= g.options.MaxEdges {
		return nil, ErrMaxEdgesExceeded
	}
	if _, ok := g.nodeIndex[tmpl.Source]; !ok {
		return nil, fmt.Errorf("%w: source %d", ErrNodeNotFound, tmpl.Source)
	}
	if _, ok := g.nodeIndex[tmpl.Target]; !ok {
		return nil, fmt.Errorf("%w: target %d", ErrNodeNotFound, tmpl.Target)
	}
	if tmpl.Weight < 0 || math.IsNaN(tmpl.Weight) {
		return nil, fmt.Errorf("%w: %v", ErrNegativeWeight, tmpl.Weight)
	}

	edge := tmpl
	edge.ID = g.ids.Next()
	edge.Tags = slices.Clone(tmpl.Tags)
	edge.JoinConditions = slices.Clone(tmpl.JoinConditions)

	g.insertEdge(&edge)
	return &edge, nil
}

// insertNode stores a node whose id is already set and keeps the allocator
// ahead of it.
func (g *Graph) insertNode(node *Node) {
	g.ids.Reserve(node.ID)
	g.nodes = append(g.nodes, node)
	g.nodeIndex[node.ID] = node

	byLabel, ok := g.nodesByLabel[node.Kind]
	if !ok {
		byLabel = make(map[string][]*Node)
		g.nodesByLabel[node.Kind] = byLabel
	}
	byLabel[node.Label] = append(byLabel[node.Label], node)
}

// insertEdge stores an edge whose id is already set.
func (g *Graph) insertEdge(edge *Edge) {
	g.ids.Reserve(edge.ID)
	g.edges = append(g.edges, edge)
	g.edgeIndex[edge.ID] = edge
	g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
	g.incoming[edge.Target] = append(g.incoming[edge.Target], edge)
}

// relabelNode changes a node's label and keeps the label index in sync.
func (g *Graph) relabelNode(node *Node, label string) {
	if node.Label == label {
		return
	}
	byLabel := g.nodesByLabel[node.Kind]
	byLabel[node.Label] = slices.DeleteFunc(byLabel[node.Label], func(n *Node) bool {
		return n == node
	})
	if len(byLabel[node.Label]) == 0 {
		delete(byLabel, node.Label)
	}
	node.Label = label
	byLabel[label] = append(byLabel[label], node)
}

// Node returns the node with the given id.
func (g *Graph) Node(id ID) (*Node, bool) {
	node, ok := g.nodeIndex[id]
	return node, ok
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id ID) (*Edge, bool) {
	edge, ok := g.edgeIndex[id]
	return edge, ok
}

// Get returns the node or edge with the given id.
func (g *Graph) Get(id ID) (Element, bool) {
	if node, ok := g.nodeIndex[id]; ok {
		return node, true
	}
	if edge, ok := g.edgeIndex[id]; ok {
		return edge, true
	}
	return nil, false
}

// AllNodes returns all nodes in insertion order.
//
// Callers should NOT modify the returned slice.
func (g *Graph) AllNodes() []*Node {
	return g.nodes
}

// AllEdges returns all edges in insertion order.
//
// Callers should NOT modify the returned slice.
func (g *Graph) AllEdges() []*Edge {
	return g.edges
}

// NodesByKind returns every node of the given kind in insertion order.
func (g *Graph) NodesByKind(kind NodeKind) ([]*Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	result := make([]*Node, 0)
	for _, n := range g.nodes {
		if n.Kind == kind {
			result = append(result, n)
		}
	}
	return result, nil
}

// NodesByLabel returns the nodes of the given kind carrying label.
//
// The returned slice is a copy and keeps insertion order.
func (g *Graph) NodesByLabel(kind NodeKind, label string) ([]*Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	return slices.Clone(g.nodesByLabel[kind][label]), nil
}

// EdgesByLabel returns all edges with the given label.
func (g *Graph) EdgesByLabel(label string) []*Edge {
	result := make([]*Edge, 0)
	for _, e := range g.edges {
		if e.Label == label {
			result = append(result, e)
		}
	}
	return result
}

// IncomingEdges returns the edges whose target is id, in insertion order.
//
// Callers should NOT modify the returned slice.
func (g *Graph) IncomingEdges(id ID) []*Edge {
	return g.incoming[id]
}

// OutgoingEdges returns the edges whose source is id, in insertion order.
//
// Callers should NOT modify the returned slice.
func (g *Graph) OutgoingEdges(id ID) []*Edge {
	return g.outgoing[id]
}

// OutgoingEdgeWithLabel returns the first edge leaving id with the given label.
func (g *Graph) OutgoingEdgeWithLabel(id ID, label string) (*Edge, bool) {
	for _, e := range g.outgoing[id] {
		if e.Label == label {
			return e, true
		}
	}
	return nil, false
}

// EdgesBetween returns edges from source to target. An empty label matches
// every edge.
func (g *Graph) EdgesBetween(source, target ID, label string) []*Edge {
	result := make([]*Edge, 0)
	for _, e := range g.outgoing[source] {
		if e.Target != target {
			continue
		}
		if label == "" || e.Label == label {
			result = append(result, e)
		}
	}
	return result
}

// EdgesBetweenKinds returns edges whose source has sourceKind and whose
// target has targetKind.
func (g *Graph) EdgesBetweenKinds(sourceKind, targetKind NodeKind) []*Edge {
	result := make([]*Edge, 0)
	for _, e := range g.edges {
		src := g.nodeIndex[e.Source]
		dst := g.nodeIndex[e.Target]
		if src.Kind == sourceKind && dst.Kind == targetKind {
			result = append(result, e)
		}
	}
	return result
}

// MaxID returns the largest id in use, or -1 for an empty graph.
func (g *Graph) MaxID() ID {
	return g.ids.Peek() - 1
}

// Stats returns a summary of the graph contents.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
		MaxID:     g.MaxID(),
		State:     g.state,
	}
	for _, n := range g.nodes {
		switch n.Kind {
		case KindClass:
			stats.ClassCount++
		case KindDataReference:
			stats.DataReferenceCount++
		}
	}
	return stats
}

// Clone creates a deep copy of the graph.
//
// Description:
//
//	Nodes and edges are copied with their ids preserved. The clone has its
//	own allocator positioned after the source's, and is in the Building
//	state so it can be augmented without touching the original.
func (g *Graph) Clone() *Graph {
	clone := NewGraph(
		WithMaxNodes(g.options.MaxNodes),
		WithMaxEdges(g.options.MaxEdges),
		WithFirstID(g.ids.Peek()),
	)
	clone.BuiltAtMilli = g.BuiltAtMilli

	for _, n := range g.nodes {
		cp := *n
		cp.Tags = slices.Clone(n.Tags)
		if n.Weight != nil {
			w := *n.Weight
			cp.Weight = &w
		}
		clone.insertNode(&cp)
	}
	for _, e := range g.edges {
		cp := *e
		cp.Tags = slices.Clone(e.Tags)
		cp.JoinConditions = slices.Clone(e.JoinConditions)
		clone.insertEdge(&cp)
	}
	return clone
}
