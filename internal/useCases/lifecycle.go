package useCases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kittylabs/wasender/internal/domain"
	"github.com/kittylabs/wasender/internal/ports"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultInitRetryDelay = 5 * time.Second
)

// Lifecycle owns the single session and drives it through
// uninitialized → initializing → awaiting_pairing → connected, reconnecting
// on recoverable closes and wiping credentials on logout. The transport
// handle never leaves this type except for the duration of one send.
type Lifecycle struct {
	log      *slog.Logger
	factory  ports.TransportFactory
	auth     ports.AuthStore
	notifier ports.Notifier

	reconnectDelay time.Duration
	initRetryDelay time.Duration

	mu        sync.Mutex
	state     domain.SessionState
	pairing   string
	transport ports.Transport
	starting  bool // one initialize in flight at a time
	gen       int  // bumped on credential wipe; stale acquisitions are discarded
}

func NewLifecycle(
	log *slog.Logger,
	factory ports.TransportFactory,
	auth ports.AuthStore,
	notifier ports.Notifier,
) *Lifecycle {
	return &Lifecycle{
		log:            log,
		factory:        factory,
		auth:           auth,
		notifier:       notifier,
		reconnectDelay: defaultReconnectDelay,
		initRetryDelay: defaultInitRetryDelay,
		state:          domain.StateUninitialized,
	}
}

// SetDelays overrides the backoff policy. Used by tests and config wiring.
func (m *Lifecycle) SetDelays(reconnect, initRetry time.Duration) {
	m.reconnectDelay = reconnect
	m.initRetryDelay = initRetry
}

// Start brings the session up. Idempotent: a no-op while an initialize is
// already in flight or the session is live.
func (m *Lifecycle) Start(ctx context.Context) {
	m.mu.Lock()
	if m.starting || m.state == domain.StateInitializing ||
		m.state == domain.StateAwaitingPair || m.state == domain.StateConnected {
		state := m.state
		m.mu.Unlock()
		m.log.Debug("start ignored", "state", state)
		return
	}
	m.starting = true
	m.mu.Unlock()

	go m.initialize(ctx)
}

// Logout closes the current connection, wipes the persisted credential and
// re-enters initializing as a fresh anonymous session.
func (m *Lifecycle) Logout(ctx context.Context) {
	m.mu.Lock()
	tr := m.transport
	m.transport = nil
	m.state = domain.StateClosing
	m.mu.Unlock()

	m.notifier.SessionState(domain.StateClosing)
	if tr != nil {
		tr.Close()
	}
	m.logout(ctx, "logout requested")
}

// State returns the current session state.
func (m *Lifecycle) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pairing returns the pending pairing credential, empty once connected.
func (m *Lifecycle) Pairing() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairing
}

// Transport hands out the live transport for one send. Fails with
// ErrNotConnected unless the session is connected.
func (m *Lifecycle) Transport() (ports.Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != domain.StateConnected || m.transport == nil {
		return nil, domain.ErrNotConnected
	}
	return m.transport, nil
}

// initialize acquires a transport, retrying on the init backoff until it
// succeeds or ctx ends. Runs with m.starting held true.
func (m *Lifecycle) initialize(ctx context.Context) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	m.setState(domain.StateInitializing)

	restored, err := m.auth.Restore(ctx)
	if err != nil {
		m.log.Warn("auth restore failed", "error", err)
	}
	m.log.Info("initializing session", "restored", restored)

	for {
		tr, err := m.factory(ctx, m.log)
		if err == nil {
			m.mu.Lock()
			if m.gen != gen {
				// a logout wiped credentials while this acquire was in
				// flight; the handle came from the pre-wipe store
				gen = m.gen
				m.mu.Unlock()
				m.log.Warn("discarding transport acquired before logout")
				tr.Close()
				m.setState(domain.StateInitializing)
				continue
			}
			m.transport = tr
			m.starting = false
			m.mu.Unlock()
			go m.pump(ctx, tr)
			return
		}

		m.log.Error("transport acquire failed", "error", err, "retry_in", m.initRetryDelay)
		m.notifier.LogLine("error", "session init failed: "+err.Error())

		if !sleepCtx(ctx, m.initRetryDelay) {
			m.mu.Lock()
			m.starting = false
			m.mu.Unlock()
			return
		}
	}
}

// pump consumes connection signals until the transport closes.
func (m *Lifecycle) pump(ctx context.Context, tr ports.Transport) {
	for ev := range tr.Events() {
		switch ev.Kind {
		case domain.EventPairing:
			m.mu.Lock()
			m.pairing = ev.Pairing
			m.state = domain.StateAwaitingPair
			m.mu.Unlock()
			m.log.Info("pairing credential received")
			m.notifier.SessionState(domain.StateAwaitingPair)
			m.notifier.PairingCredential(ev.Pairing)

		case domain.EventOpened:
			if err := m.auth.Persist(ctx); err != nil {
				m.log.Error("auth persist failed", "error", err)
			}
			m.mu.Lock()
			m.pairing = ""
			m.state = domain.StateConnected
			m.mu.Unlock()
			m.log.Info("session ready")
			m.notifier.SessionState(domain.StateConnected)
			m.notifier.LogLine("info", "session ready")

		case domain.EventClosed:
			m.handleClose(ctx, tr, ev)
			return
		}
	}
}

func (m *Lifecycle) handleClose(ctx context.Context, tr ports.Transport, ev domain.TransportEvent) {
	m.mu.Lock()
	if m.transport != tr {
		// already detached by an explicit logout
		m.mu.Unlock()
		return
	}
	m.transport = nil
	m.mu.Unlock()

	tr.Close()

	if ev.Reason == domain.CloseLoggedOut {
		m.logout(ctx, "session revoked: "+ev.Detail)
		return
	}

	m.log.Warn("session closed, reconnecting", "detail", ev.Detail, "backoff", m.reconnectDelay)
	m.notifier.LogLine("warn", "connection lost: "+ev.Detail)
	// leave connected right away so observers never see a live state on a
	// dead connection during the backoff window
	m.setState(domain.StateInitializing)
	m.restart(ctx, m.reconnectDelay)
}

// logout wipes the credential and schedules a fresh anonymous session.
// logged_out is transient, not sticky.
func (m *Lifecycle) logout(ctx context.Context, why string) {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()

	m.setState(domain.StateLoggedOut)
	m.notifier.LogLine("warn", why)

	if err := m.auth.Wipe(ctx); err != nil {
		m.log.Error("auth wipe failed", "error", err)
	}
	m.restart(ctx, m.reconnectDelay)
}

func (m *Lifecycle) restart(ctx context.Context, delay time.Duration) {
	m.mu.Lock()
	if m.starting {
		m.mu.Unlock()
		return
	}
	m.starting = true
	m.mu.Unlock()

	go func() {
		if !sleepCtx(ctx, delay) {
			m.mu.Lock()
			m.starting = false
			m.mu.Unlock()
			return
		}
		m.initialize(ctx)
	}()
}

func (m *Lifecycle) setState(s domain.SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.notifier.SessionState(s)
}
