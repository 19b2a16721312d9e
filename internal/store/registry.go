package store

import (
	"sort"
	"strings"

	"github.com/Activ8-AI/maosec/internal/config"
	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
)

// Factory creates a store instance from its configuration block.
type Factory func(name string, configMap map[string]interface{}) (Store, error)

// Registry manages store creation and registration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in backends registered.
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]Factory),
	}

	registry.RegisterFactory("gcp.secretmanager", func(name string, configMap map[string]interface{}) (Store, error) {
		return NewGCPStore(name, configMap)
	})
	registry.RegisterFactory("aws.secretsmanager", func(name string, configMap map[string]interface{}) (Store, error) {
		return NewAWSSecretsManagerStore(name, configMap)
	})
	registry.RegisterFactory("aws.ssm", func(name string, configMap map[string]interface{}) (Store, error) {
		return NewAWSSSMStore(name, configMap)
	})
	registry.RegisterFactory("azure.keyvault", func(name string, configMap map[string]interface{}) (Store, error) {
		return NewAzureKeyVaultStore(name, configMap)
	})

	return registry
}

// RegisterFactory registers a factory for a store type.
func (r *Registry) RegisterFactory(storeType string, factory Factory) {
	r.factories[storeType] = factory
}

// CreateStore builds a store from its configuration block.
func (r *Registry) CreateStore(name string, cfg config.StoreConfig) (Store, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, maoserrors.ConfigError{
			Field:      "stores." + name + ".type",
			Value:      cfg.Type,
			Message:    "unknown store type",
			Suggestion: "Supported types: " + strings.Join(r.SupportedTypes(), ", "),
		}
	}
	return factory(name, cfg.Config)
}

// SupportedTypes returns the registered store types, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}

// IsSupported reports whether a store type is registered.
func (r *Registry) IsSupported(storeType string) bool {
	_, exists := r.factories[storeType]
	return exists
}
