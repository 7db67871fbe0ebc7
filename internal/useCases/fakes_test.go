package useCases

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/kittylabs/wasender/internal/domain"
	"github.com/kittylabs/wasender/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sendCall struct {
	address string
	body    string
	caption string
}

// fakeTransport counts sends and lets tests inject per-address failures and
// push lifecycle events.
type fakeTransport struct {
	mu         sync.Mutex
	events     chan domain.TransportEvent
	textCalls  []sendCall
	imageCalls []sendCall
	failWith   map[string]error // keyed by normalized address
	closed     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:   make(chan domain.TransportEvent, 8),
		failWith: make(map[string]error),
	}
}

func (f *fakeTransport) SendText(ctx context.Context, address, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, sendCall{address: address, body: body})
	return f.failWith[address]
}

func (f *fakeTransport) SendImage(ctx context.Context, address string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, sendCall{address: address, caption: caption})
	return f.failWith[address]
}

func (f *fakeTransport) Events() <-chan domain.TransportEvent {
	return f.events
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

func (f *fakeTransport) push(ev domain.TransportEvent) {
	f.events <- ev
}

func (f *fakeTransport) calls() (texts, images []sendCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.textCalls...), append([]sendCall(nil), f.imageCalls...)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeFactory hands out fake transports, failing the first len(errs) calls.
// A non-nil gate makes every acquisition block until a token is sent.
type fakeFactory struct {
	mu         sync.Mutex
	callCount  int
	errs       []error
	transports []*fakeTransport
	gate       chan struct{}
}

func (f *fakeFactory) make(ctx context.Context, log *slog.Logger) (ports.Transport, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	ft := newFakeTransport()
	f.transports = append(f.transports, ft)
	return ft, nil
}

func (f *fakeFactory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakeFactory) transport(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.transports) {
		return nil
	}
	return f.transports[i]
}

// fakeAuth is an in-memory credential store double.
type fakeAuth struct {
	mu       sync.Mutex
	blob     []byte
	persists int
	wipes    int
}

func (a *fakeAuth) Restore(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blob != nil, nil
}

func (a *fakeAuth) Persist(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blob = []byte("credential")
	a.persists++
	return nil
}

func (a *fakeAuth) Wipe(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blob = nil
	a.wipes++
	return nil
}

func (a *fakeAuth) snapshot() (blob []byte, persists, wipes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blob, a.persists, a.wipes
}

type progressEvent struct {
	sent, failed, total int
	detail              string
}

// recordingNotifier captures everything pushed through the bridge port.
type recordingNotifier struct {
	mu        sync.Mutex
	states    []domain.SessionState
	creds     []string
	logs      []string
	progress  []progressEvent
	completes [][2]int
}

func (n *recordingNotifier) SessionState(state domain.SessionState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
}

func (n *recordingNotifier) PairingCredential(credential string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.creds = append(n.creds, credential)
}

func (n *recordingNotifier) LogLine(level, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, level+": "+text)
}

func (n *recordingNotifier) BulkProgress(sent, failed, total int, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, progressEvent{sent: sent, failed: failed, total: total, detail: detail})
}

func (n *recordingNotifier) BulkComplete(success, failure int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completes = append(n.completes, [2]int{success, failure})
}

func (n *recordingNotifier) progressEvents() []progressEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]progressEvent(nil), n.progress...)
}

func (n *recordingNotifier) lastState() (domain.SessionState, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.states) == 0 {
		return "", false
	}
	return n.states[len(n.states)-1], true
}

func (n *recordingNotifier) credentials() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.creds...)
}

// fakeGate pins the session state the dispatcher sees and counts how many
// times the transport handle is requested.
type fakeGate struct {
	mu             sync.Mutex
	state          domain.SessionState
	tr             ports.Transport
	transportCalls int
}

func (g *fakeGate) State() domain.SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *fakeGate) Transport() (ports.Transport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transportCalls++
	if g.state != domain.StateConnected || g.tr == nil {
		return nil, domain.ErrNotConnected
	}
	return g.tr, nil
}

func (g *fakeGate) handleRequests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transportCalls
}
