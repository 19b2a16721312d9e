package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/credstore"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/roster"
	"github.com/Activ8-AI/maosec/internal/secure"
	"github.com/Activ8-AI/maosec/internal/source"
	"github.com/Activ8-AI/maosec/internal/store"
)

// defaultTokenEnv is consulted for the Notion token when the config does not
// name an env var.
const defaultTokenEnv = "NOTION_TOKEN"

// registry builds stores for every command. Tests register extra factories
// on it.
var registry = store.NewRegistry()

// loadRoster resolves the roster path relative to the config file and loads
// it.
func loadRoster(cfg *config.Config) (*roster.Roster, error) {
	path := cfg.Definition.Roster
	if path == "" {
		return nil, maoserrors.ConfigError{
			Field:      "roster",
			Message:    "no roster file configured",
			Suggestion: "Point 'roster:' at your roster.yaml",
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(cfg.Path), path)
	}
	return roster.Load(path)
}

// buildStore creates the named store, falling back to the configured default
// when name is empty.
func buildStore(cfg *config.Config, name string) (store.Store, error) {
	if name == "" {
		var err error
		name, err = cfg.DefaultStore()
		if err != nil {
			return nil, err
		}
	}
	storeConfig, err := cfg.GetStore(name)
	if err != nil {
		return nil, err
	}
	return registry.CreateStore(name, storeConfig)
}

// buildSource creates the configured credential source.
func buildSource(cfg *config.Config) (source.Source, error) {
	src := cfg.Definition.Source
	switch src.Type {
	case "static":
		records := make([]source.Record, 0, len(src.Records))
		for _, r := range src.Records {
			records = append(records, source.Record{
				Name:   r.Name,
				Value:  r.Value,
				Tenant: r.Tenant,
				System: r.System,
				Env:    r.Env,
			})
		}
		return source.NewStaticSource(records), nil
	case "notion":
		token, err := notionToken(src)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(src.TimeoutMs) * time.Millisecond
		return source.NewNotionSource(source.NotionOptions{
			DatabaseID: src.DatabaseID,
			Token:      token,
			BaseURL:    src.BaseURL,
			Timeout:    timeout,
		})
	default:
		return nil, maoserrors.ConfigError{
			Field:      "source.type",
			Value:      src.Type,
			Message:    "unknown source type",
			Suggestion: "Supported types: notion, static",
		}
	}
}

// notionToken resolves the Notion API token: the configured env var first,
// then the OS keychain entry written by 'maosec login notion'.
func notionToken(src config.SourceConfig) (*secure.Buffer, error) {
	envVar := src.TokenEnv
	if envVar == "" {
		envVar = defaultTokenEnv
	}
	if value := os.Getenv(envVar); value != "" {
		return secure.NewBufferFromString(value), nil
	}

	value, err := credstore.Keyring{}.Get("notion")
	if err == nil && value != "" {
		return secure.NewBufferFromString(value), nil
	}

	return nil, maoserrors.UserError{
		Message:    "No Notion token available",
		Details:    fmt.Sprintf("checked %s and the OS keychain", envVar),
		Suggestion: fmt.Sprintf("Export %s or run 'maosec login notion'", envVar),
	}
}
