package wa

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylabs/wasender/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEmitClient() *Client {
	return &Client{
		log:    testLogger(),
		events: make(chan domain.TransportEvent, 8),
	}
}

func TestEmitKeepsCloseSignalUnderBurst(t *testing.T) {
	c := newEmitClient()

	// burst past the queue capacity: overflow is droppable
	for i := 0; i < 20; i++ {
		c.emit(domain.TransportEvent{Kind: domain.EventOpened})
	}

	done := make(chan struct{})
	go func() {
		c.emit(domain.TransportEvent{Kind: domain.EventClosed, Reason: domain.CloseRecoverable, Detail: "socket gone"})
		close(done)
	}()

	var got []domain.TransportEvent
	for ev := range c.events {
		got = append(got, ev)
	}
	<-done

	// the close signal survives the full queue and ends the stream
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, domain.EventClosed, last.Kind)
	assert.Equal(t, domain.CloseRecoverable, last.Reason)
	assert.Len(t, got, 9, "buffered events plus the close signal")
}

func TestEmitAfterCloseSignalIsSuppressed(t *testing.T) {
	c := newEmitClient()

	c.emit(domain.TransportEvent{Kind: domain.EventClosed, Reason: domain.CloseRecoverable})
	for range c.events {
	}

	// late whatsmeow callbacks after the stream ended must be no-ops
	c.emit(domain.TransportEvent{Kind: domain.EventOpened})
	c.emit(domain.TransportEvent{Kind: domain.EventClosed, Reason: domain.CloseLoggedOut})

	_, open := <-c.events
	assert.False(t, open)
}
