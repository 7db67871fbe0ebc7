package ports

import (
	"context"
	"log/slog"

	"github.com/kittylabs/wasender/internal/domain"
)

// Transport is the lowest-level abstraction over the messaging network.
// Implemented by the whatsmeow adapter; tests use a fake.
//
// Addresses are normalized digit strings; the implementation joins them
// with the network-specific server suffix itself.
type Transport interface {
	// SendText delivers a plain text message to one recipient.
	SendText(ctx context.Context, address, body string) error
	// SendImage delivers an image with an optional caption.
	SendImage(ctx context.Context, address string, data []byte, caption string) error
	// Events returns the connection lifecycle signal stream. The channel
	// closes when the transport is closed.
	Events() <-chan domain.TransportEvent
	Close()
}

// TransportFactory acquires a fresh transport. The lifecycle manager owns
// the returned handle exclusively.
type TransportFactory func(ctx context.Context, log *slog.Logger) (Transport, error)
