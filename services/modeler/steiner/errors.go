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
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every error Search reports for a
// malformed call. Test with errors.Is(err, ErrInvalidInput).
var ErrInvalidInput = errors.New("invalid search input")

// Sentinel errors for search input validation.
var (
	// ErrNilGraph is returned when Search is given no graph.
	ErrNilGraph = fmt.Errorf("%w: graph must not be nil", ErrInvalidInput)

	// ErrEmptyMapping is returned when the mapping has no node pairs.
	ErrEmptyMapping = fmt.Errorf("%w: mapping has no origins", ErrInvalidInput)

	// ErrOriginNotFound is returned when an origin id is not a node of the graph.
	ErrOriginNotFound = fmt.Errorf("%w: origin not found", ErrInvalidInput)

	// ErrInvalidK is returned when k is below 1 or above the output heap size.
	ErrInvalidK = fmt.Errorf("%w: k must be between 1 and the output heap size", ErrInvalidInput)

	// ErrInvalidOptions is returned when a search limit is negative.
	ErrInvalidOptions = fmt.Errorf("%w: invalid search options", ErrInvalidInput)
)
