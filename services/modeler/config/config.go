// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads modeler configuration.
//
// Values come from three layers, later ones winning: the defaults in
// Default(), an optional YAML file, and MODELER_* environment variables.
// The result is validated before it is returned.
//
// Thread Safety:
//
//	A loaded Config is a plain value and may be shared read-only.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/SemanticModeler/services/modeler/candidate"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
	"github.com/AleutianAI/SemanticModeler/services/modeler/storage"
	"github.com/AleutianAI/SemanticModeler/services/modeler/telemetry"
)

// MaxFileSize is the largest config file Load accepts (1MB).
const MaxFileSize = 1024 * 1024

// ErrInvalidConfig is returned when a config cannot be parsed or fails
// validation.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// PipelineConfig controls Service.Generate.
type PipelineConfig struct {
	// Concurrency bounds how many mappings are searched at once.
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=1,lte=256"`

	// CacheSize is the number of search results kept. Zero disables caching.
	CacheSize int `json:"cache_size" yaml:"cache_size" validate:"gte=0"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port  int  `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Debug bool `json:"debug" yaml:"debug"`

	// RateLimit is requests per second across the API. Zero disables it.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `json:"burst" yaml:"burst" validate:"gte=1"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" validate:"gte=1024"`
}

// LoggingConfig controls pkg/logging.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `json:"dir" yaml:"dir"`
	JSON  bool   `json:"json" yaml:"json"`
}

// Config is the complete modeler configuration.
type Config struct {
	Engine     steiner.SearchOptions `json:"engine" yaml:"engine"`
	Candidates candidate.Options     `json:"candidates" yaml:"candidates"`
	Pipeline   PipelineConfig        `json:"pipeline" yaml:"pipeline"`
	Server     ServerConfig          `json:"server" yaml:"server"`
	Storage    storage.Config        `json:"storage" yaml:"storage"`
	Telemetry  telemetry.Config      `json:"telemetry" yaml:"telemetry"`
	Logging    LoggingConfig         `json:"logging" yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:     steiner.DefaultSearchOptions(),
		Candidates: candidate.DefaultOptions(),
		Pipeline: PipelineConfig{
			Concurrency: 4,
			CacheSize:   256,
		},
		Server: ServerConfig{
			Port:            12230,
			RateLimit:       50,
			Burst:           100,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Storage:   storage.DefaultConfig(".modeler/runs"),
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over Default(), applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := decodeInto(&cfg, f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes data over Default() and validates it. The environment is
// not consulted.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decodeInto(&cfg, bytes.NewReader(data)); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeInto decodes one YAML document from r into cfg. Fields missing
// from the document keep their current values.
func decodeInto(cfg *Config, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidConfig, MaxFileSize)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks struct tags and the engine and candidate options.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: engine: %w", ErrInvalidConfig, err)
	}
	if err := c.Candidates.Validate(); err != nil {
		return fmt.Errorf("%w: candidates: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from MODELER_* variables.
//
// Recognized variables:
//
//	MODELER_PORT, MODELER_DEBUG, MODELER_RATE_LIMIT
//	MODELER_LOG_LEVEL, MODELER_LOG_DIR, MODELER_LOG_JSON
//	MODELER_STORAGE_PATH, MODELER_STORAGE_IN_MEMORY
//	MODELER_CONCURRENCY, MODELER_CACHE_SIZE
//	MODELER_K, MODELER_OUTPUT_HEAP_SIZE, MODELER_MAX_STEPS, MODELER_MAX_HOPS
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	integer("MODELER_PORT", &c.Server.Port)
	boolean("MODELER_DEBUG", &c.Server.Debug)
	float("MODELER_RATE_LIMIT", &c.Server.RateLimit)
	str("MODELER_LOG_LEVEL", &c.Logging.Level)
	str("MODELER_LOG_DIR", &c.Logging.Dir)
	boolean("MODELER_LOG_JSON", &c.Logging.JSON)
	str("MODELER_STORAGE_PATH", &c.Storage.Path)
	boolean("MODELER_STORAGE_IN_MEMORY", &c.Storage.InMemory)
	integer("MODELER_CONCURRENCY", &c.Pipeline.Concurrency)
	integer("MODELER_CACHE_SIZE", &c.Pipeline.CacheSize)
	integer("MODELER_K", &c.Engine.K)
	integer("MODELER_OUTPUT_HEAP_SIZE", &c.Engine.OutputHeapSize)
	integer("MODELER_MAX_STEPS", &c.Engine.MaxSteps)
	integer("MODELER_MAX_HOPS", &c.Engine.MaxHops)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
