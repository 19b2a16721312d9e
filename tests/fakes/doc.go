// Package fakes provides in-memory fakes for the cloud SDK clients and for
// the store and source interfaces, so command and syncer tests run without
// network access or credentials.
package fakes
