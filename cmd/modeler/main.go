// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command modeler searches weighted attribute graphs for the semantic
// models that best connect a set of attributes.
//
// Usage:
//
//	modeler search --scenario people.yaml --origins name,org_name
//	modeler candidates --scenario people.yaml
//	modeler generate --scenario people.yaml --json
//	modeler serve --scenario people.yaml --watch
//	modeler runs list
//
// Example requests against a running server:
//
//	# Register a scenario
//	curl -X POST http://localhost:12230/v1/modeler/graphs \
//	  -H "Content-Type: application/yaml" --data-binary @people.yaml
//
//	# Run the whole pipeline
//	curl -X POST http://localhost:12230/v1/modeler/generate \
//	  -H "Content-Type: application/json" -d '{"graph_id": "..."}'
package main

import (
	"os"

	"github.com/AleutianAI/SemanticModeler/pkg/ux"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		ux.NewPrinter(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}
