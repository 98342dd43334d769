package domain

import "context"

// TransferStatus is the state reported by the transfer engine for a transfer.
type TransferStatus int

// TransferStatusNone is the sentinel returned for a missing transfer id
const TransferStatusNone TransferStatus = -1

const (
	// TransferStatusUnknown means the engine has no record of the transfer
	TransferStatusUnknown TransferStatus = iota
	TransferStatusPending
	TransferStatusRunning
	TransferStatusPaused
	TransferStatusFailed
	TransferStatusSuccessful
)

// String returns the string representation of the status
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusNone:
		return "none"
	case TransferStatusUnknown:
		return "unknown"
	case TransferStatusPending:
		return "pending"
	case TransferStatusRunning:
		return "running"
	case TransferStatusPaused:
		return "paused"
	case TransferStatusFailed:
		return "failed"
	case TransferStatusSuccessful:
		return "successful"
	default:
		return "invalid"
	}
}

// IsTerminal reports whether the transfer reached a final state
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusFailed || s == TransferStatusSuccessful
}

// TransferRequest describes a file transfer to enqueue.
type TransferRequest struct {
	URI         string
	Destination string
	Title       string

	// RequireUnmetered restricts the transfer to unmetered networks
	RequireUnmetered bool
}

// TransferState is a point-in-time snapshot of a transfer.
type TransferState struct {
	Status          TransferStatus
	BytesTotal      int64
	BytesDownloaded int64
}

// TransferEngine is the external subsystem performing the actual network
// file download. Query for an id the engine does not know returns a state
// with TransferStatusUnknown, not an error.
type TransferEngine interface {
	Enqueue(ctx context.Context, req TransferRequest) (string, error)
	Query(ctx context.Context, transferID string) (TransferState, error)
	Cancel(ctx context.Context, transferID string) error
}
