package domain

// SessionState describes where the single WhatsApp session currently is in
// its lifecycle. StateLoggedOut is transient: the manager wipes credentials
// and immediately re-enters initializing so the operator can pair again.
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateInitializing  SessionState = "initializing"
	StateAwaitingPair  SessionState = "awaiting_pairing"
	StateConnected     SessionState = "connected"
	StateClosing       SessionState = "closing"
	StateLoggedOut     SessionState = "logged_out"
)

// CloseReason classifies a transport close signal.
type CloseReason int

const (
	// CloseRecoverable covers every close except explicit revocation:
	// the manager backs off and reconnects with the same credentials.
	CloseRecoverable CloseReason = iota
	// CloseLoggedOut means the session was revoked remotely; persisted
	// credentials are stale and must be wiped.
	CloseLoggedOut
)

// TransportEventKind is the type tag of a TransportEvent.
type TransportEventKind int

const (
	// EventPairing carries a fresh pairing credential for the operator.
	EventPairing TransportEventKind = iota
	// EventOpened means the session is authenticated and usable.
	EventOpened
	// EventClosed means the connection dropped; Reason says how.
	EventClosed
)

// TransportEvent is a low-level connection lifecycle signal. Only the
// lifecycle manager consumes these, never callers of send.
type TransportEvent struct {
	Kind    TransportEventKind
	Pairing string // data URI, set for EventPairing
	Reason  CloseReason
	Detail  string
}
