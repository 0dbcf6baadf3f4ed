// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
)

// ErrRunNotFound is returned when a run id is not in the archive.
var ErrRunNotFound = errors.New("run not found")

// RunKind says which operation produced a run.
type RunKind string

const (
	// RunSearch is a single Steiner search over one mapping.
	RunSearch RunKind = "search"

	// RunGenerate is a full pipeline run over generated candidate mappings.
	RunGenerate RunKind = "generate"
)

// runPrefix namespaces run records. Ids are UUIDv7, so keys sort by
// creation time.
const runPrefix = "run/"

// Run is one archived search or pipeline run.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	GraphID   string    `json:"graph_id,omitempty"`
	Scenario  string    `json:"scenario,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Mappings are the origin sets that were searched.
	Mappings []graph.Mapping `json:"mappings"`

	Options steiner.SearchOptions   `json:"options"`
	Trees   []steiner.CandidateTree `json:"trees"`

	Truncated  bool  `json:"truncated"`
	Steps      int   `json:"steps"`
	DurationMs int64 `json:"duration_ms"`

	// Error is set when the run failed.
	Error string `json:"error,omitempty"`
}

// RunStore archives runs in BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type RunStore struct {
	db  *DB
	now func() time.Time
}

// NewRunStore returns a store backed by db.
func NewRunStore(db *DB) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	return &RunStore{db: db, now: time.Now}, nil
}

// Save stores run. An empty ID is filled with a new UUIDv7 and a zero
// CreatedAt with the current time. The stored run is returned.
func (s *RunStore) Save(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Run{}, fmt.Errorf("new run id: %w", err)
		}
		run.ID = id.String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return Run{}, fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+run.ID), data)
	})
	if err != nil {
		return Run{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run, nil
}

// Get returns the run with id, or ErrRunNotFound.
func (s *RunStore) Get(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit below one returns
// every run.
func (s *RunStore) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key <= seek.
		for it.Seek([]byte(runPrefix + "\xff")); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var run Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Delete removes the run with id. Deleting a missing run is not an error.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(runPrefix + id))
	})
}
