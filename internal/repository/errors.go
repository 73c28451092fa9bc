package repository

import (
	"errors"
)

// Common repository errors
var (
	// ErrNotFound indicates the requested record does not exist. An empty
	// list result is not an error and never maps to ErrNotFound.
	ErrNotFound = errors.New("record not found")

	// ErrBackendUnavailable indicates the message source could not be
	// reached (network, protocol or auth failure). Callers must surface
	// this distinctly from an empty mailbox.
	ErrBackendUnavailable = errors.New("message backend unavailable")

	// ErrReadOnlyBackend indicates the backend does not accept local
	// ingestion (the live mailbox is fed by upstream SMTP delivery).
	ErrReadOnlyBackend = errors.New("message backend is read-only")
)
