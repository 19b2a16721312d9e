// Package credstore persists maosec's own credentials (the Notion
// integration token) in the operating system keyring: Keychain on macOS,
// Secret Service on Linux, Credential Manager on Windows.
package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the keyring service name all maosec entries live under.
const service = "maosec"

// ErrNotFound is returned when no credential is stored for an account.
var ErrNotFound = errors.New("credential not found in keyring")

// Keyring reads and writes credentials in the OS keyring. The zero value is
// ready to use.
type Keyring struct{}

// Set stores a credential for the given account (e.g. "notion").
func (Keyring) Set(account, value string) error {
	if err := keyring.Set(service, account, value); err != nil {
		return fmt.Errorf("failed to store %s credential in keyring: %w", account, err)
	}
	return nil
}

// Get retrieves a credential, returning ErrNotFound when absent.
func (Keyring) Get(account string) (string, error) {
	value, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s credential from keyring: %w", account, err)
	}
	return value, nil
}

// Delete removes a credential. Deleting an absent credential is not an error.
func (Keyring) Delete(account string) error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s credential from keyring: %w", account, err)
	}
	return nil
}
