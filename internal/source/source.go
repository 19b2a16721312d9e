// Package source defines where credential rows come from before they are
// written into a secret store. A row carries the base secret name, its value,
// and the tenant/system/env coordinates that place it in the hierarchy.
package source

import (
	"context"
	"strings"
)

// Record is one credential row from a source.
type Record struct {
	// RowID identifies the row in the source system, for skip reporting.
	RowID string

	Name   string
	Value  string
	Tenant string
	System string
	Env    string
}

// MissingFields returns the names of required fields that are empty. A record
// with missing fields is skipped by the sync engine, never synced partially.
func (r Record) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"Name", r.Name},
		{"Secret", r.Value},
		{"Tenant", r.Tenant},
		{"System", r.System},
		{"Env", r.Env},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether all required fields are present.
func (r Record) Complete() bool {
	return len(r.MissingFields()) == 0
}

// Source lists credential rows. Implementations must be safe for concurrent
// use and must never log record values.
type Source interface {
	// Name returns the source's identifier for logging and errors.
	Name() string

	// List returns all credential rows the source holds.
	List(ctx context.Context) ([]Record, error)

	// Validate checks connectivity and authentication without reading values.
	Validate(ctx context.Context) error
}
