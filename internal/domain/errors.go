package domain

import "errors"

var (
	// ErrNotConnected rejects a dispatch attempted before the session is
	// connected. No sends happen in that case.
	ErrNotConnected = errors.New("session is not connected")

	// ErrInvalidAddress marks an address that is empty after stripping
	// non-digits. Recorded per recipient, never raised batch-level.
	ErrInvalidAddress = errors.New("address is empty after normalization")

	ErrNoRecipients = errors.New("bulk job has no recipients")
	ErrEmptyPayload = errors.New("bulk job needs a text body or an image")
)
