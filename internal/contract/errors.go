package contract

import "errors"

var (
	// ErrNotFound indicates no anchor record exists for the file ID.
	ErrNotFound = errors.New("contract: anchor record not found")

	// ErrEmptyFileID indicates the file ID argument is empty.
	ErrEmptyFileID = errors.New("contract: file ID must not be empty")

	// ErrEmptyFileHash indicates the file hash argument is empty.
	ErrEmptyFileHash = errors.New("contract: file hash must not be empty")
)
