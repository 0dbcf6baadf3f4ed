// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/SemanticModeler/pkg/ux"
	modeler "github.com/AleutianAI/SemanticModeler/services/modeler"
	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/scenario"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// nodeName is the node's scenario key, or label#id for nodes added by
// semantic types.
func nodeName(sc *scenario.Scenario, id graph.ID) string {
	if key := sc.KeyOf(id); key != "" {
		return key
	}
	if n, ok := sc.Graph.Node(id); ok && n.Label != "" {
		return n.Label + "#" + strconv.FormatInt(int64(id), 10)
	}
	return "#" + strconv.FormatInt(int64(id), 10)
}

// edgeText renders an edge as "source -label-> target".
func edgeText(sc *scenario.Scenario, id graph.ID) string {
	e, ok := sc.Graph.Edge(id)
	if !ok {
		return "#" + strconv.FormatInt(int64(id), 10)
	}
	return fmt.Sprintf("%s -%s-> %s", nodeName(sc, e.Source), e.Label, nodeName(sc, e.Target))
}

func formatWeight(t steiner.CandidateTree) string {
	if !t.Complete() {
		return "inf"
	}
	return strconv.FormatFloat(t.Weight, 'g', 6, 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func treeRows(sc *scenario.Scenario, trees []steiner.CandidateTree) [][]string {
	rows := make([][]string, 0, len(trees))
	for i, t := range trees {
		edges := make([]string, len(t.EdgeIDs))
		for j, id := range t.EdgeIDs {
			edges[j] = edgeText(sc, id)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatWeight(t),
			formatFloat(t.Coherence),
			strings.Join(edges, "; "),
		})
	}
	return rows
}

func renderSearch(p *ux.Printer, sc *scenario.Scenario, out *modeler.SearchOutcome) {
	p.Title("Search")
	p.KeyValue("origins", describeRefs(sc, out.Mapping.Origins()))
	p.KeyValue("steps", out.Result.Steps)
	if out.RunID != "" {
		p.KeyValue("run", out.RunID)
	}
	if out.Result.Truncated {
		p.Warning("search stopped after %d steps; results may not be optimal", out.Result.Steps)
	}
	if len(out.Result.Trees) == 0 {
		p.Warning("no tree connects the origins")
		return
	}
	p.Table([]string{"RANK", "WEIGHT", "COHERENCE", "EDGES"}, treeRows(sc, out.Result.Trees))
}

func mappingText(sc *scenario.Scenario, c candidate.Candidate) string {
	parts := make([]string, len(c.Nodes))
	for i, pair := range c.Nodes {
		name := ""
		if i < len(c.Attributes) {
			name = c.Attributes[i] + "="
		}
		parts[i] = name + nodeName(sc, pair.U) + "@" + nodeName(sc, pair.V)
	}
	return strings.Join(parts, ", ")
}

func renderCandidates(p *ux.Printer, sc *scenario.Scenario, cands []candidate.Candidate) {
	p.Title("Candidate mappings")
	if len(cands) == 0 {
		p.Warning("no attribute matched the graph")
		return
	}
	rows := make([][]string, len(cands))
	for i, c := range cands {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatFloat(c.Score),
			formatFloat(c.Confidence),
			formatFloat(c.Coherence),
			formatFloat(c.SizeReduction),
			mappingText(sc, c),
		}
	}
	p.Table([]string{"RANK", "SCORE", "CONFIDENCE", "COHERENCE", "SIZE", "MAPPING"}, rows)
}

func renderGenerate(p *ux.Printer, sc *scenario.Scenario, out *modeler.GenerateOutcome) {
	p.Title("Semantic models")
	p.KeyValue("candidates", len(out.Candidates))
	p.KeyValue("steps", out.Steps)
	if out.RunID != "" {
		p.KeyValue("run", out.RunID)
	}
	if out.Truncated {
		p.Warning("at least one search stopped early; results may not be optimal")
	}
	if len(out.Models) == 0 {
		p.Warning("no model found")
		return
	}

	rows := make([][]string, len(out.Models))
	for i, m := range out.Models {
		mapping := ""
		if m.MappingIndex < len(out.Candidates) {
			mapping = mappingText(sc, out.Candidates[m.MappingIndex])
		}
		edges := make([]string, len(m.Tree.EdgeIDs))
		for j, id := range m.Tree.EdgeIDs {
			edges[j] = edgeText(sc, id)
		}
		rows[i] = []string{
			strconv.Itoa(m.Rank),
			formatWeight(m.Tree),
			formatFloat(m.Tree.Coherence),
			mapping,
			strings.Join(edges, "; "),
		}
	}
	p.Table([]string{"RANK", "WEIGHT", "COHERENCE", "MAPPING", "EDGES"}, rows)
}

func renderRuns(p *ux.Printer, runs []storage.Run) {
	if len(runs) == 0 {
		p.Warning("no archived runs")
		return
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "error"
		}
		rows[i] = []string{
			r.ID,
			string(r.Kind),
			r.Scenario,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(len(r.Mappings)),
			strconv.Itoa(len(r.Trees)),
			strconv.FormatInt(r.DurationMs, 10) + "ms",
			status,
		}
	}
	p.Table([]string{"ID", "KIND", "SCENARIO", "CREATED", "MAPPINGS", "TREES", "DURATION", "STATUS"}, rows)
}

func renderRun(p *ux.Printer, r storage.Run) {
	p.Title("Run " + r.ID)
	p.KeyValue("kind", r.Kind)
	p.KeyValue("scenario", r.Scenario)
	p.KeyValue("graph", r.GraphID)
	p.KeyValue("created", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	p.KeyValue("mappings", len(r.Mappings))
	p.KeyValue("steps", r.Steps)
	p.KeyValue("duration", strconv.FormatInt(r.DurationMs, 10)+"ms")
	if r.Truncated {
		p.Warning("search stopped early")
	}
	if r.Error != "" {
		p.Error("%s", r.Error)
	}
	rows := make([][]string, len(r.Trees))
	for i, t := range r.Trees {
		ids := make([]string, len(t.EdgeIDs))
		for j, id := range t.EdgeIDs {
			ids[j] = strconv.FormatInt(int64(id), 10)
		}
		rows[i] = []string{strconv.Itoa(i + 1), formatWeight(t), formatFloat(t.Coherence), strings.Join(ids, ",")}
	}
	p.Table([]string{"RANK", "WEIGHT", "COHERENCE", "EDGE IDS"}, rows)
}
