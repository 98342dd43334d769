package domain

import "errors"

// Sentinel errors for domain operations. Every failure path in the core is
// mapped to one of these kinds before it reaches the application layer.
var (
	// ErrNotSupported indicates the operation has no meaning in the
	// current (offline) mode
	ErrNotSupported = errors.New("operation not supported in this mode")

	// ErrNotFound indicates the requested item, source or manifest is
	// absent from the active data source
	ErrNotFound = errors.New("item not found")

	// ErrTransferFailed indicates the transfer engine reported a failed
	// or unknown transfer
	ErrTransferFailed = errors.New("transfer failed")

	// ErrRemoteUnavailable indicates the remote catalog service could not
	// be reached
	ErrRemoteUnavailable = errors.New("remote catalog is unreachable")

	// ErrStoreFailure indicates a persistence layer I/O error
	ErrStoreFailure = errors.New("cache store failure")

	// ErrAuthFailed indicates the access token was rejected by the server
	ErrAuthFailed = errors.New("authentication token is invalid")
)
