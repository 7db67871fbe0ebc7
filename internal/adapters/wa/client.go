package wa

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/kittylabs/wasender/internal/domain"
)

// Client implements ports.Transport over whatsmeow. It owns one underlying
// connection and translates whatsmeow events into transport signals for the
// lifecycle manager.
type Client struct {
	wac *whatsmeow.Client
	log *slog.Logger

	mu     sync.Mutex
	closed bool
	events chan domain.TransportEvent
}

// NewClient acquires a connection using the device stored in container.
// A fresh device (no stored credential) starts the QR pairing flow; pairing
// credentials surface as EventPairing on the event stream.
func NewClient(ctx context.Context, container *sqlstore.Container, log *slog.Logger) (*Client, error) {
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("device store: %w", err)
	}

	c := &Client{
		wac:    whatsmeow.NewClient(device, waLog.Noop),
		log:    log,
		events: make(chan domain.TransportEvent, 8),
	}
	c.wac.AddEventHandler(c.handleEvent)
	// reconnection is the lifecycle manager's job, not the library's
	c.wac.EnableAutoReconnect = false

	if c.wac.Store.ID == nil {
		// anonymous session: the QR channel must be requested before Connect
		qrCh, err := c.wac.GetQRChannel(ctx)
		if err != nil {
			return nil, fmt.Errorf("qr channel: %w", err)
		}
		if err := c.wac.Connect(); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		go c.pumpQR(qrCh)
		return c, nil
	}

	if err := c.wac.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return c, nil
}

// Events returns the connection signal stream. Closed by Close.
func (c *Client) Events() <-chan domain.TransportEvent {
	return c.events
}

// SendText delivers one text message. The address is a normalized digit
// string; the WhatsApp user server suffix is applied here.
func (c *Client) SendText(ctx context.Context, address, body string) error {
	jid := types.NewJID(address, types.DefaultUserServer)
	if _, err := c.wac.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(body),
	}); err != nil {
		return fmt.Errorf("send text to %s: %w", address, err)
	}
	return nil
}

// SendImage uploads the image and delivers it with the caption.
func (c *Client) SendImage(ctx context.Context, address string, data []byte, caption string) error {
	up, err := c.wac.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("upload image for %s: %w", address, err)
	}

	mime := http.DetectContentType(data[:min(512, len(data))])
	msg := &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
		Caption:       proto.String(caption),
		Mimetype:      proto.String(mime),
		URL:           proto.String(up.URL),
		DirectPath:    proto.String(up.DirectPath),
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    proto.Uint64(up.FileLength),
	}}

	jid := types.NewJID(address, types.DefaultUserServer)
	if _, err := c.wac.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send image to %s: %w", address, err)
	}
	return nil
}

// Close disconnects and ends the event stream. Idempotent. The stream may
// already have been ended by a close signal from emit.
func (c *Client) Close() {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	c.wac.Disconnect()
	if !alreadyClosed {
		close(c.events)
	}
}

func (c *Client) pumpQR(qrCh <-chan whatsmeow.QRChannelItem) {
	for item := range qrCh {
		switch item.Event {
		case whatsmeow.QRChannelSuccess.Event:
			c.log.Info("pairing approved by operator")
		case "code":
			uri, err := RenderQRDataURI(item.Code)
			if err != nil {
				c.log.Error("qr render failed", "error", err)
				continue
			}
			c.emit(domain.TransportEvent{Kind: domain.EventPairing, Pairing: uri})
		default:
			// timeout / error items are followed by a disconnect, which the
			// regular event handler reports as a recoverable close
			c.log.Debug("qr channel item", "event", item.Event)
		}
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.log.Info("authenticated", "jid", e.ID.String())
	case *events.Connected:
		c.emit(domain.TransportEvent{Kind: domain.EventOpened})
	case *events.LoggedOut:
		c.emit(domain.TransportEvent{
			Kind:   domain.EventClosed,
			Reason: domain.CloseLoggedOut,
			Detail: fmt.Sprintf("remote logout (reason %d)", int(e.Reason)),
		})
	case *events.StreamReplaced:
		c.emit(domain.TransportEvent{
			Kind:   domain.EventClosed,
			Reason: domain.CloseRecoverable,
			Detail: "stream replaced by another client",
		})
	case *events.ConnectFailure:
		c.emit(domain.TransportEvent{
			Kind:   domain.EventClosed,
			Reason: domain.CloseRecoverable,
			Detail: fmt.Sprintf("connect failure (reason %d)", int(e.Reason)),
		})
	case *events.Disconnected:
		c.emit(domain.TransportEvent{
			Kind:   domain.EventClosed,
			Reason: domain.CloseRecoverable,
			Detail: "disconnected",
		})
	}
}

// emit forwards a signal to the lifecycle manager. Safe after Close: late
// whatsmeow callbacks must never panic on the closed channel.
//
// A close signal is the one event the manager cannot afford to miss (a
// dropped close wedges the session with no reconnect), so it is delivered
// with a blocking send and terminates the stream. Everything else is
// droppable under burst.
func (c *Client) emit(ev domain.TransportEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if ev.Kind == domain.EventClosed {
		c.closed = true
		c.mu.Unlock()
		c.events <- ev
		close(c.events)
		return
	}

	defer c.mu.Unlock()
	select {
	case c.events <- ev:
	default:
		c.log.Warn("transport event queue full, dropping", "kind", ev.Kind)
	}
}
