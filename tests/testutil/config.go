// Package testutil provides shared helpers for maosec tests: configuration
// and roster builders, captured loggers, and environment setup.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/logging"
	"github.com/Activ8-AI/maosec/internal/roster"
)

// ConfigBuilder assembles a maosec.yaml plus roster.yaml in a temp dir.
type ConfigBuilder struct {
	t   *testing.T
	dir string
	def config.Definition
}

// NewConfig creates a builder with a minimal valid definition: one fake
// store entry and a static source. Tests override as needed.
func NewConfig(t *testing.T) *ConfigBuilder {
	t.Helper()
	b := &ConfigBuilder{
		t:   t,
		dir: t.TempDir(),
		def: config.Definition{
			Version: 0,
			Stores:  map[string]config.StoreConfig{},
			Source:  config.SourceConfig{Type: "static"},
		},
	}
	return b
}

// WithStore adds a store entry.
func (b *ConfigBuilder) WithStore(name, storeType string, cfg map[string]interface{}) *ConfigBuilder {
	b.def.Stores[name] = config.StoreConfig{Type: storeType, Config: cfg}
	return b
}

// WithDefaultStore sets default_store.
func (b *ConfigBuilder) WithDefaultStore(name string) *ConfigBuilder {
	b.def.DefaultStore = name
	return b
}

// WithSource replaces the source block.
func (b *ConfigBuilder) WithSource(src config.SourceConfig) *ConfigBuilder {
	b.def.Source = src
	return b
}

// WithRecords sets inline static source records.
func (b *ConfigBuilder) WithRecords(records ...config.StaticRecord) *ConfigBuilder {
	b.def.Source.Records = records
	return b
}

// WithRoster writes a roster.yaml with the given content and points the
// definition at it.
func (b *ConfigBuilder) WithRoster(content string) *ConfigBuilder {
	b.t.Helper()
	path := filepath.Join(b.dir, "roster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		b.t.Fatalf("failed to write roster: %v", err)
	}
	b.def.Roster = path
	return b
}

// WithChecks sets the verification checks.
func (b *ConfigBuilder) WithChecks(checks ...config.CheckConfig) *ConfigBuilder {
	b.def.Checks = checks
	return b
}

// WithPrefix overrides the hierarchy prefix.
func (b *ConfigBuilder) WithPrefix(prefix string) *ConfigBuilder {
	b.def.Prefix = prefix
	return b
}

// Write serializes the definition to maosec.yaml and returns a loaded
// Config ready for command construction.
func (b *ConfigBuilder) Write() *config.Config {
	b.t.Helper()

	data, err := yaml.Marshal(&b.def)
	if err != nil {
		b.t.Fatalf("failed to marshal config: %v", err)
	}
	path := filepath.Join(b.dir, "maosec.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		b.t.Fatalf("failed to write config: %v", err)
	}

	cfg := &config.Config{
		Path:           path,
		Logger:         logging.NewWithWriter(os.Stderr, false, true),
		NonInteractive: true,
	}
	if err := cfg.Load(); err != nil {
		b.t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Dir returns the builder's temp directory.
func (b *ConfigBuilder) Dir() string {
	return b.dir
}

// SampleRosterYAML is a two-tenant roster used across tests.
const SampleRosterYAML = `version: 0
envs:
  - prod
  - staging
tenants:
  activ8ai:
    systems:
      - codex_portal
      - codex-cloud
      - slack
    surfaces:
      portal:
        host: activ8ai.app
        systems:
          - codex_portal
  leverage:
    systems:
      - hubspot
      - clients_portal
    surfaces:
      clients:
        host: clients.leverageway.com
        systems:
          - clients_portal
`

// LoadSampleRoster writes SampleRosterYAML to a temp file and loads it.
func LoadSampleRoster(t *testing.T) *roster.Roster {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(SampleRosterYAML), 0o600); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
	r, err := roster.Load(path)
	if err != nil {
		t.Fatalf("failed to load roster: %v", err)
	}
	return r
}
