// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scenario reads modeling scenarios from YAML.
//
// A scenario describes a weighted graph by node keys instead of ids, the
// semantic types and ontology used to augment it, the source attributes to
// map, and optionally the origins of a single search:
//
//	name: people
//	nodes:
//	  - {key: person, label: "foaf:Person", tags: [m1]}
//	  - {key: name, kind: data_reference, label: name}
//	edges:
//	  - {source: person, target: name, label: "foaf:name", weight: 1, tags: [m1]}
//	attributes:
//	  - name: name
//	    semantic_types:
//	      - {class: "foaf:Person", predicate: "foaf:name", confidence: 0.9}
//	origins: [name]
//
// Build turns a Document into a frozen graph. Watcher reloads a scenario
// file whenever it changes on disk.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// Sentinel errors for scenario loading.
var (
	// ErrInvalidScenario is returned when a document cannot be parsed or
	// fails validation.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrDuplicateKey is returned when two nodes share a key.
	ErrDuplicateKey = errors.New("duplicate node key")

	// ErrUnknownKey is returned when an edge or origin names a key that no
	// node has.
	ErrUnknownKey = errors.New("unknown node key")
)

var validate = validator.New()

// NodeSpec declares one node.
type NodeSpec struct {
	Key      string         `json:"key" yaml:"key" validate:"required"`
	Kind     graph.NodeKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Label    string         `json:"label" yaml:"label"`
	Tags     []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Weight   *float64       `json:"weight,omitempty" yaml:"weight,omitempty"`
	Language string         `json:"language,omitempty" yaml:"language,omitempty"`
	Datatype string         `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Sample   string         `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// EdgeSpec declares one edge between two node keys.
type EdgeSpec struct {
	Source         string                `json:"source" yaml:"source" validate:"required"`
	Target         string                `json:"target" yaml:"target" validate:"required"`
	Label          string                `json:"label" yaml:"label"`
	Weight         float64               `json:"weight" yaml:"weight" validate:"gte=0"`
	Tags           []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	JoinConditions []graph.JoinCondition `json:"join_conditions,omitempty" yaml:"join_conditions,omitempty"`
}

// Document is the serialized form of a scenario.
type Document struct {
	Name          string                `json:"name" yaml:"name"`
	Nodes         []NodeSpec            `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges         []EdgeSpec            `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
	SemanticTypes []graph.SemanticType  `json:"semantic_types,omitempty" yaml:"semantic_types,omitempty" validate:"dive"`
	Ontology      graph.StaticOntology  `json:"ontology,omitempty" yaml:"ontology,omitempty"`
	Attributes    []candidate.Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty" validate:"dive"`
	Origins       []string              `json:"origins,omitempty" yaml:"origins,omitempty"`
}

// Scenario is a built Document.
type Scenario struct {
	Name string

	// Graph is frozen.
	Graph *graph.Graph

	Attributes []candidate.Attribute

	// Keys maps node keys to graph ids.
	Keys map[string]graph.ID

	// Origins is Document.Origins resolved to ids.
	Origins []graph.ID
}

// Parse decodes and validates a YAML document. Unknown fields are errors.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML document from r.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks struct tags.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// Load reads, parses and builds the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(doc)
}

// Build creates the graph described by doc.
//
// Description:
//
//	Nodes are added in document order, so node ids follow the node list.
//	Edges come next, then semantic types are applied, then ontology
//	paths. The graph is frozen before it is returned.
//
// Outputs:
//
//	*Scenario - The built scenario.
//	error - ErrDuplicateKey, ErrUnknownKey, or a wrapped graph error.
func Build(doc *Document, opts ...graph.GraphOption) (*Scenario, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidScenario)
	}

	g := graph.NewGraph(opts...)
	keys := make(map[string]graph.ID, len(doc.Nodes))

	for _, ns := range doc.Nodes {
		if _, dup := keys[ns.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, ns.Key)
		}
		n, err := g.AddNode(graph.Node{
			Kind:     ns.Kind,
			Label:    ns.Label,
			Tags:     ns.Tags,
			Weight:   ns.Weight,
			Language: ns.Language,
			Datatype: ns.Datatype,
			Sample:   ns.Sample,
		})
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", ns.Key, err)
		}
		keys[ns.Key] = n.ID
	}

	for i, es := range doc.Edges {
		src, ok := keys[es.Source]
		if !ok {
			return nil, fmt.Errorf("edge %d: %w: %q", i, ErrUnknownKey, es.Source)
		}
		dst, ok := keys[es.Target]
		if !ok {
			return nil, fmt.Errorf("edge %d: %w: %q", i, ErrUnknownKey, es.Target)
		}
		if _, err := g.AddEdge(graph.Edge{
			Source:         src,
			Target:         dst,
			Label:          es.Label,
			Weight:         es.Weight,
			Tags:           es.Tags,
			JoinConditions: es.JoinConditions,
		}); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	if len(doc.SemanticTypes) > 0 {
		if err := g.AddSemanticTypes(doc.SemanticTypes); err != nil {
			return nil, fmt.Errorf("semantic types: %w", err)
		}
	}
	if len(doc.Ontology) > 0 {
		if _, err := g.AddOntologyPaths(doc.Ontology); err != nil {
			return nil, fmt.Errorf("ontology paths: %w", err)
		}
	}
	g.Freeze()

	s := &Scenario{
		Name:       doc.Name,
		Graph:      g,
		Attributes: doc.Attributes,
		Keys:       keys,
	}
	if len(doc.Origins) > 0 {
		origins, err := s.Resolve(doc.Origins)
		if err != nil {
			return nil, fmt.Errorf("origins: %w", err)
		}
		s.Origins = origins
	}
	return s, nil
}

// Resolve turns node keys into ids. A reference that is not a key but
// parses as an integer is taken as a raw id, which lets callers name nodes
// created by semantic types.
func (s *Scenario) Resolve(refs []string) ([]graph.ID, error) {
	out := make([]graph.ID, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if id, ok := s.Keys[ref]; ok {
			out = append(out, id)
			continue
		}
		n, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, ref)
		}
		if _, ok := s.Graph.Node(graph.ID(n)); !ok {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownKey, n)
		}
		out = append(out, graph.ID(n))
	}
	return out, nil
}

// Mapping returns the scenario's origins as a search mapping.
func (s *Scenario) Mapping() graph.Mapping {
	return graph.MappingFromOrigins(s.Origins...)
}

// KeyOf returns the key of node id, or "" when it has none.
func (s *Scenario) KeyOf(id graph.ID) string {
	for k, v := range s.Keys {
		if v == id {
			return k
		}
	}
	return ""
}
