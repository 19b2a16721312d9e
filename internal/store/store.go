// Package store abstracts the secret store backends secrets are synced into.
// Secret IDs are the canonical slash-separated hierarchy paths
// (prefix/env/tenant/system/name); each backend maps them onto its own
// naming rules.
package store

import (
	"context"
	"time"
)

// Value is a retrieved secret payload with its version.
type Value struct {
	// Data is the raw secret payload. Callers must never log it.
	Data []byte

	// Version identifies the retrieved version. Format is backend-specific.
	Version string
}

// Info describes a secret without exposing its value.
type Info struct {
	Exists    bool
	ID        string
	Version   string
	UpdatedAt time.Time
	Labels    map[string]string
}

// Store is a secret store backend. Implementations must be safe for
// concurrent use.
type Store interface {
	// Name returns the configured store name (the key under 'stores:').
	Name() string

	// Type returns the backend type, e.g. gcp.secretmanager.
	Type() string

	// Get retrieves a secret value. An empty version means latest.
	// Returns NotFoundError when the secret or version does not exist.
	Get(ctx context.Context, id, version string) (Value, error)

	// Describe returns metadata without fetching the value. A missing secret
	// yields Info{Exists: false}, not an error.
	Describe(ctx context.Context, id string) (Info, error)

	// List returns the canonical IDs of all secrets under the given prefix.
	// An empty prefix lists every secret the store manages.
	List(ctx context.Context, prefix string) ([]string, error)

	// Upsert creates the secret if absent and adds a new version holding
	// value. Prior versions are retained for audit and rollback. Returns the
	// new version identifier. Labels are applied on creation.
	Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error)

	// Delete removes a secret and all its versions.
	Delete(ctx context.Context, id string) error

	// Validate checks connectivity and permissions with a minimal call.
	Validate(ctx context.Context) error
}

// NotFoundError indicates a secret (or version) does not exist.
type NotFoundError struct {
	Store string
	ID    string
}

func (e NotFoundError) Error() string {
	return "secret not found: " + e.ID + " in " + e.Store
}

// AuthError indicates the store rejected our credentials.
type AuthError struct {
	Store   string
	Message string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Store + ": " + e.Message
}
