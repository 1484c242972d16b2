package ledger

import "errors"

var (
	// ErrClosed indicates the ledger has been closed and accepts no
	// further transactions.
	ErrClosed = errors.New("ledger: closed")

	// ErrReadOnly indicates a write was attempted through the evaluate path.
	ErrReadOnly = errors.New("ledger: evaluate path is read-only")

	// ErrNoHistory indicates no history entries exist for the file ID.
	ErrNoHistory = errors.New("ledger: no history for file ID")

	// ErrSealNotFound indicates no seal exists at the requested height.
	ErrSealNotFound = errors.New("ledger: seal not found")
)
