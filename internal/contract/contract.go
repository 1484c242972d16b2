// Package contract implements the anchor record contract: the
// deterministic logic binding a file ID to the hash of its content.
// Every validating node executes these transitions identically; this is
// the only code path with write access to anchor records.
package contract

import (
	"bytes"
	"fmt"
)

// State is the world-state view the contract operates on.
// Absence is reported as a nil value, never as an empty one.
type State interface {
	// GetRecord returns the stored hash for fileID, or nil if no record exists.
	GetRecord(fileID string) ([]byte, error)

	// PutRecord writes hash as the current value for fileID, replacing
	// any prior value.
	PutRecord(fileID string, hash []byte) error
}

// Contract executes anchor record operations against a State.
type Contract struct {
	state State
}

// New creates a Contract over the given state.
func New(state State) *Contract {
	return &Contract{state: state}
}

// Init is the idempotent setup hook. It establishes no records.
func (c *Contract) Init() error {
	return nil
}

// Store unconditionally writes fileHash as the current value for fileID,
// replacing any prior value. The hash is content-agnostic: no format
// validation beyond non-emptiness. Returns a confirmation describing the
// stored key.
func (c *Contract) Store(fileID, fileHash string) (string, error) {
	if fileID == "" {
		return "", ErrEmptyFileID
	}
	if fileHash == "" {
		return "", ErrEmptyFileHash
	}

	if err := c.state.PutRecord(fileID, []byte(fileHash)); err != nil {
		return "", fmt.Errorf("put record %q:\n%w", fileID, err)
	}

	return "stored file hash for " + fileID, nil
}

// Query returns the stored hash for fileID verbatim.
// Absence is a coded ErrNotFound, never a default value.
func (c *Contract) Query(fileID string) (string, error) {
	if fileID == "" {
		return "", ErrEmptyFileID
	}

	stored, err := c.state.GetRecord(fileID)
	if err != nil {
		return "", fmt.Errorf("get record %q:\n%w", fileID, err)
	}

	if stored == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}

	return string(stored), nil
}

// Verify reports whether the stored hash for fileID exactly equals
// hashToCheck (byte-for-byte, no normalization). A file ID with no record
// fails with ErrNotFound, distinct from a false result.
func (c *Contract) Verify(fileID, hashToCheck string) (bool, error) {
	if fileID == "" {
		return false, ErrEmptyFileID
	}

	stored, err := c.state.GetRecord(fileID)
	if err != nil {
		return false, fmt.Errorf("get record %q:\n%w", fileID, err)
	}

	if stored == nil {
		return false, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}

	return bytes.Equal(stored, []byte(hashToCheck)), nil
}
