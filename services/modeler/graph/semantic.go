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

// SemanticType is a guess that an attribute holds values of Predicate on
// instances of Class.
type SemanticType struct {
	Class      string  `json:"class" yaml:"class" validate:"required"`
	Predicate  string  `json:"predicate" yaml:"predicate" validate:"required"`
	Attribute  string  `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
}

// Ontology reports which properties connect two classes.
type Ontology interface {
	// ConnectingProperties returns the property IRIs whose domain is
	// sourceClass and whose range is targetClass.
	ConnectingProperties(sourceClass, targetClass string) []string
}

// StaticOntology is an Ontology backed by a fixed table.
//
// Keys are source class, then target class.
type StaticOntology map[string]map[string][]string

// ConnectingProperties implements Ontology.
func (o StaticOntology) ConnectingProperties(sourceClass, targetClass string) []string {
	return o[sourceClass][targetClass]
}

// AddSemanticTypes makes sure every semantic type is represented by a
// class node with an outgoing predicate edge to a data-reference node.
//
// Description:
//
//	For each type a class node labelled Class is created if none exists.
//	Then every class node with that label gets an edge labelled Predicate
//	to a new data-reference node labelled Attribute, unless such an edge
//	already exists, in which case its target is relabelled to Attribute.
//	New edges weigh the number of edges the graph had when the call began,
//	so they rank behind any edge that was already learned.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrMaxNodesExceeded, ErrMaxEdgesExceeded - Capacity reached
func (g *Graph) AddSemanticTypes(types []SemanticType) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	weight := float64(len(g.edges))

	for _, st := range types {
		classes := g.nodesByLabel[KindClass][st.Class]
		if len(classes) == 0 {
			if _, err := g.AddNode(Node{Kind: KindClass, Label: st.Class}); err != nil {
				return err
			}
			classes = g.nodesByLabel[KindClass][st.Class]
		}

		// The loop below may append to the index slice when it creates nodes.
		for _, class := range append([]*Node(nil), classes...) {
			existing, ok := g.OutgoingEdgeWithLabel(class.ID, st.Predicate)
			if ok {
				g.relabelNode(g.nodeIndex[existing.Target], st.Attribute)
				continue
			}

			data, err := g.AddNode(Node{Kind: KindDataReference, Label: st.Attribute})
			if err != nil {
				return err
			}
			if _, err := g.AddEdge(Edge{
				Source: class.ID,
				Target: data.ID,
				Label:  st.Predicate,
				Weight: weight,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddOntologyPaths adds the ontology's properties between every ordered
// pair of distinct class nodes.
//
// Description:
//
//	A property is skipped when an edge with the same label already connects
//	the pair. New edges weigh the number of edges the graph had when the
//	call began.
//
// Outputs:
//
//	int - Number of edges added.
//	error - ErrGraphFrozen or a capacity error.
//
// Complexity: O(C^2 * P) where C is the class count and P the properties
// returned per pair.
func (g *Graph) AddOntologyPaths(ontology Ontology) (int, error) {
	if g.state == GraphStateReadOnly {
		return 0, ErrGraphFrozen
	}
	if ontology == nil {
		return 0, nil
	}

	classes, err := g.NodesByKind(KindClass)
	if err != nil {
		return 0, err
	}
	weight := float64(len(g.edges))
	added := 0

	for i, u := range classes {
		for j, v := range classes {
			if i == j {
				continue
			}
			for _, property := range ontology.ConnectingProperties(u.Label, v.Label) {
				if len(g.EdgesBetween(u.ID, v.ID, property)) > 0 {
					continue
				}
				if _, err := g.AddEdge(Edge{
					Source: u.ID,
					Target: v.ID,
					Label:  property,
					Weight: weight,
				}); err != nil {
					return added, err
				}
				added++
			}
		}
	}
	return added, nil
}
