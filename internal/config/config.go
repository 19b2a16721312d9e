package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/logging"
)

// Config holds the runtime configuration shared by every command.
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition is the maosec.yaml structure.
type Definition struct {
	Version      int                    `yaml:"version"`
	Prefix       string                 `yaml:"prefix,omitempty"`
	Roster       string                 `yaml:"roster"`
	DefaultStore string                 `yaml:"default_store,omitempty"`
	Stores       map[string]StoreConfig `yaml:"stores"`
	Source       SourceConfig           `yaml:"source"`
	Checks       []CheckConfig          `yaml:"checks,omitempty"`
}

// StoreConfig holds one secret store target. Type selects the backend
// (gcp.secretmanager, aws.secretsmanager, aws.ssm, azure.keyvault); the
// remaining keys are backend-specific and passed through as-is.
type StoreConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// SourceConfig holds the credential source configuration.
type SourceConfig struct {
	Type       string `yaml:"type"`
	DatabaseID string `yaml:"database_id,omitempty"`
	TokenEnv   string `yaml:"token_env,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	TimeoutMs  int    `yaml:"timeout_ms,omitempty"`

	// Records inlines source rows for the static source type, mainly for
	// bootstrap and tests.
	Records []StaticRecord `yaml:"records,omitempty"`
}

// StaticRecord is one inline credential row for the static source.
type StaticRecord struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Tenant string `yaml:"tenant"`
	System string `yaml:"system"`
	Env    string `yaml:"env"`
}

// CheckConfig describes one post-sync verification check.
type CheckConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`             // sql or http
	Driver   string `yaml:"driver,omitempty"` // postgres or mysql, for sql checks
	DSNVar   string `yaml:"dsn_var,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	TokenVar string `yaml:"token_var,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Env      string `yaml:"env,omitempty"`
}

// Load reads and parses the maosec.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return maoserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a maosec.yaml or pass --config",
			}
		}
		return maoserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return maoserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}

	if def.Version != 0 {
		return maoserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your maosec.yaml file",
		}
	}

	if len(def.Stores) == 0 {
		return maoserrors.ConfigError{
			Field:      "stores",
			Message:    "no secret stores configured",
			Suggestion: "Add at least one store under 'stores:' (e.g. type: gcp.secretmanager)",
		}
	}

	if def.Source.Type == "" {
		return maoserrors.ConfigError{
			Field:      "source.type",
			Message:    "no credential source configured",
			Suggestion: "Set source.type to 'notion' or 'static'",
		}
	}

	c.Definition = &def
	return nil
}

// GetStore returns the configuration for a named store.
func (c *Config) GetStore(name string) (StoreConfig, error) {
	if c.Definition == nil {
		return StoreConfig{}, maoserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	if store, ok := c.Definition.Stores[name]; ok {
		return store, nil
	}

	available := c.StoreNames()
	suggestion := "Add the store to the 'stores:' section of your maosec.yaml"
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available stores: %s. %s", strings.Join(available, ", "), suggestion)
	}

	return StoreConfig{}, maoserrors.ConfigError{
		Field:      "store",
		Value:      name,
		Message:    "store not found in configuration",
		Suggestion: suggestion,
	}
}

// StoreNames returns the configured store names in sorted order.
func (c *Config) StoreNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Stores))
	for name := range c.Definition.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultStore returns the store name to use when none was passed: the
// configured default_store, or the only store, or an error.
func (c *Config) DefaultStore() (string, error) {
	if c.Definition == nil {
		return "", fmt.Errorf("configuration not loaded")
	}
	if c.Definition.DefaultStore != "" {
		if _, ok := c.Definition.Stores[c.Definition.DefaultStore]; !ok {
			return "", maoserrors.ConfigError{
				Field:      "default_store",
				Value:      c.Definition.DefaultStore,
				Message:    "default store is not defined under 'stores:'",
				Suggestion: "Point default_store at one of: " + strings.Join(c.StoreNames(), ", "),
			}
		}
		return c.Definition.DefaultStore, nil
	}
	names := c.StoreNames()
	if len(names) == 1 {
		return names[0], nil
	}
	return "", maoserrors.ConfigError{
		Field:      "default_store",
		Message:    "multiple stores configured and no default selected",
		Suggestion: "Set default_store or pass --store explicitly",
	}
}

// Prefix returns the configured hierarchy prefix, defaulting to maos.
func (c *Config) Prefix() string {
	if c.Definition == nil || c.Definition.Prefix == "" {
		return "maos"
	}
	return c.Definition.Prefix
}

// GetStoreTimeout returns the store timeout in milliseconds.
func (s StoreConfig) GetStoreTimeout() int {
	if s.TimeoutMs <= 0 {
		return 30000
	}
	return s.TimeoutMs
}
