// Package secure wraps memguard enclaves for the handful of long-lived
// sensitive values maosec holds in memory, chiefly the source API token.
// Secret payloads flowing through the sync engine are short-lived and are
// handled as plain byte slices at the store boundary.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer stores a sensitive value encrypted at rest in memory. The enclave
// encrypts the data and attempts to mlock it so it cannot be swapped out.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer copies data into a protected memory region. The caller should
// zero its own copy afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString is a convenience wrapper for tokens read from flags or
// the environment.
func NewBufferFromString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Open decrypts the buffer. The caller must Destroy() the returned
// LockedBuffer when done to wipe the plaintext.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// String decrypts the buffer and returns the value as a string. Prefer Open
// for anything longer-lived than building a single request.
func (b *Buffer) String() (string, error) {
	locked, err := b.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Destroy marks the buffer unusable. Idempotent; after Destroy, Open returns
// an empty buffer.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
}

// Purge wipes all memguard-managed memory. Call once via defer in main.
func Purge() {
	memguard.Purge()
}
