package wallet

import "errors"

var (
	// ErrIdentityNotFound indicates no identity is enrolled under the label.
	ErrIdentityNotFound = errors.New("wallet: identity not found")

	// ErrIdentityExists indicates the label is already enrolled.
	ErrIdentityExists = errors.New("wallet: identity already enrolled")
)
