package gateway

import "errors"

// ErrProfile indicates the connection profile is missing or invalid.
// It is a server-side configuration error, never the caller's fault.
var ErrProfile = errors.New("gateway: connection profile unavailable")
