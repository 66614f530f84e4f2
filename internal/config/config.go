// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and live-reloads the Zenus configuration file,
// ported from zenus_core/config/schema.py and adapted from
// cmd/aleutian/config/loader.go's Global-singleton/yaml.v3 pattern.
//
// # Description
//
// Config is stored at ~/.zenus/config.yaml and is created automatically,
// with sensible defaults, on first run. Provider credentials are never
// written to the file by this package; they come from environment
// variables (ZENUS_LLM, <PROVIDER>_API_KEY, <PROVIDER>_API_BASE_URL,
// OLLAMA_MODEL) and are overlaid onto the loaded file each time Load
// runs, so the YAML file only ever holds non-secret routing and policy
// fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is the non-secret portion of one LLM backend's
// configuration. APIKey is populated from the environment at Load
// time and is never marshaled back to disk.
type ProviderConfig struct {
	// Type selects the backend: "openai", "anthropic", or "ollama".
	Type string `yaml:"type"`

	// Model is the default model name for this provider.
	Model string `yaml:"model"`

	// BaseURL is loaded from the config file and from
	// <PROVIDER>_API_BASE_URL. The providers built in cmd/zenus do not
	// read it, so it does not change any provider's endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is never read from or written to config.yaml. It is
	// populated from <PROVIDER>_API_KEY at Load time.
	APIKey string `yaml:"-"`
}

// RoutingConfig controls how the provider router orders backends.
type RoutingConfig struct {
	// CheapOrder is the provider order tried for low-complexity tasks.
	CheapOrder []string `yaml:"cheap_order"`

	// PowerfulOrder is the provider order tried for high-complexity or
	// iterative/ReAct tasks.
	PowerfulOrder []string `yaml:"powerful_order"`
}

// SafetyConfig holds the policy knobs the CLI exposes without editing
// the compiled-in safety rule table.
type SafetyConfig struct {
	// ConfirmRiskAtOrAbove is a risk level (0-3) loaded from the config
	// file. No code path reads it; confirmation is decided by --confirm
	// and the safety rules alone.
	ConfirmRiskAtOrAbove int `yaml:"confirm_risk_at_or_above"`

	// DryRunDefault is loaded from the config file. No code path reads
	// it; a run is a dry run only when --dry-run is set.
	DryRunDefault bool `yaml:"dry_run_default"`
}

// ExecutorConfig mirrors the teacher's resource-limiter knobs, exposed
// for the dependency-aware executor's worker pool sizing.
type ExecutorConfig struct {
	// MaxParallel is loaded from the config file. No code path reads
	// it; the executor's wave concurrency comes from its own
	// MaxConcurrency setting, which defaults to runtime.NumCPU().
	MaxParallel int `yaml:"max_parallel"`

	// MaxRetries bounds per-step retry attempts before a step is
	// marked failed.
	MaxRetries int `yaml:"max_retries"`
}

// Config is the root configuration structure for the zenus CLI.
//
// # Example
//
//	cfg := config.DefaultConfig()
//	cfg.Routing.CheapOrder = []string{"ollama", "openai"}
type Config struct {
	// LogLevel is the slog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Providers maps provider name ("openai", "anthropic", "ollama")
	// to its configuration.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Routing configures cheap/powerful provider ordering.
	Routing RoutingConfig `yaml:"routing"`

	// Safety configures confirmation and dry-run policy.
	Safety SafetyConfig `yaml:"safety"`

	// Executor configures worker pool sizing and retries.
	Executor ExecutorConfig `yaml:"executor"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Providers: map[string]ProviderConfig{
			"ollama": {Type: "ollama", Model: "llama3"},
			"openai": {Type: "openai", Model: "gpt-4o-mini"},
		},
		Routing: RoutingConfig{
			CheapOrder:    []string{"ollama", "openai", "anthropic"},
			PowerfulOrder: []string{"anthropic", "openai", "ollama"},
		},
		Safety: SafetyConfig{
			ConfirmRiskAtOrAbove: 2,
			DryRunDefault:        false,
		},
		Executor: ExecutorConfig{
			MaxParallel: 0,
			MaxRetries:  2,
		},
	}
}

var (
	// Global is a singleton instance, set by Load.
	Global Config
	once   sync.Once
	loadMu sync.Mutex
)

// Load ensures Global is populated from ~/.zenus/config.yaml, creating
// the file with defaults on first run, then overlays environment
// variables. Safe to call repeatedly; the file is only read once per
// process via sync.Once.
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

// Path returns the on-disk location of the config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".zenus", "config.yaml"), nil
}

func loadInternal() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		fmt.Printf("first run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return err
		}
	}

	cfg, err := readFile(path)
	if err != nil {
		return err
	}

	applyEnvOverlay(&cfg)
	Global = cfg
	return nil
}

// Reload re-reads the config file and re-applies the environment
// overlay into Global, bypassing the sync.Once guard. Used by the
// fsnotify watcher created with NewWatcher.
func Reload() error {
	loadMu.Lock()
	defer loadMu.Unlock()

	path, err := Path()
	if err != nil {
		return err
	}
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	applyEnvOverlay(&cfg)
	Global = cfg
	return nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to unmarshal config file: %w", err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverlay overlays provider credentials and routing overrides
// from the environment onto cfg, matching cmd/aleutian/env_vars.go's
// convention of plain os.Getenv lookups rather than a config library.
func applyEnvOverlay(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	if llm := os.Getenv("ZENUS_LLM"); llm != "" {
		cfg.Routing.CheapOrder = prependUnique(cfg.Routing.CheapOrder, llm)
		cfg.Routing.PowerfulOrder = prependUnique(cfg.Routing.PowerfulOrder, llm)
	}

	for name, pc := range cfg.Providers {
		upper := envPrefix(name)
		if key := os.Getenv(upper + "_API_KEY"); key != "" {
			pc.APIKey = key
		}
		if base := os.Getenv(upper + "_API_BASE_URL"); base != "" {
			pc.BaseURL = base
		}
		cfg.Providers[name] = pc
	}

	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		pc := cfg.Providers["ollama"]
		pc.Type = "ollama"
		pc.Model = model
		cfg.Providers["ollama"] = pc
	}
}

func envPrefix(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI"
	case "anthropic":
		return "ANTHROPIC"
	case "ollama":
		return "OLLAMA"
	default:
		out := make([]byte, 0, len(provider))
		for _, r := range provider {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			out = append(out, byte(r))
		}
		return string(out)
	}
}

func prependUnique(order []string, name string) []string {
	for _, existing := range order {
		if existing == name {
			return order
		}
	}
	return append([]string{name}, order...)
}

// ParseBool interprets config-overlay environment flags that are
// conventionally "1"/"true"/"yes", mirroring the teacher's lenient
// environment-variable parsing in cmd/aleutian.
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
