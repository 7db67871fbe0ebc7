package ports

import "context"

// AuthStore persists the opaque session credential for the fixed client
// identifier. The on-disk layout belongs to the network library; only these
// three operations are part of the contract.
type AuthStore interface {
	// Restore reports whether a persisted credential exists.
	Restore(ctx context.Context) (bool, error)
	// Persist flushes the credential after a successful pairing.
	Persist(ctx context.Context) error
	// Wipe irreversibly deletes the credential on logout.
	Wipe(ctx context.Context) error
}
