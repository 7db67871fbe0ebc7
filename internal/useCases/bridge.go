package useCases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kittylabs/wasender/internal/domain"
	"github.com/kittylabs/wasender/internal/ports"
)

// observerBuffer bounds the per-observer event queue. A full queue drops
// events for that observer instead of stalling dispatch.
const observerBuffer = 64

// Event is one frame pushed to attached front-ends.
type Event struct {
	Type       string              `json:"type"` // state | qr | log | progress | complete
	State      domain.SessionState `json:"state,omitempty"`
	Credential string              `json:"credential,omitempty"`
	Level      string              `json:"level,omitempty"`
	Text       string              `json:"text,omitempty"`
	Sent       int                 `json:"sent,omitempty"`
	Failed     int                 `json:"failed,omitempty"`
	Total      int                 `json:"total,omitempty"`
	Success    int                 `json:"success"`
	Failure    int                 `json:"failure"`
}

// SessionControl is the command surface the hub forwards to the lifecycle
// manager.
type SessionControl interface {
	Start(ctx context.Context)
	Logout(ctx context.Context)
	State() domain.SessionState
	Pairing() string
}

// BulkDispatcher runs one bulk job to completion.
type BulkDispatcher interface {
	Dispatch(ctx context.Context, job domain.BulkJob) (domain.BulkResult, error)
}

// Hub multiplexes front-end observers over the single session. It holds no
// business state beyond the observer set; a freshly attached observer
// immediately gets the current state so reconnecting UIs never show a stale
// view.
type Hub struct {
	log *slog.Logger

	mu        sync.Mutex
	observers map[string]chan Event
	dropped   int

	session    SessionControl
	dispatcher BulkDispatcher
	tasks      ports.TaskLogRepo
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:       log,
		observers: make(map[string]chan Event),
	}
}

// Bind wires the command targets. Separate from NewHub because the
// lifecycle and dispatcher take the hub as their notifier.
func (h *Hub) Bind(session SessionControl, dispatcher BulkDispatcher, tasks ports.TaskLogRepo) {
	h.session = session
	h.dispatcher = dispatcher
	h.tasks = tasks
}

// Attach registers an observer and replays the current session snapshot.
func (h *Hub) Attach() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, observerBuffer)

	// registration and snapshot are atomic with respect to broadcast, so
	// the new observer can never receive a state older than its snapshot
	h.mu.Lock()
	h.observers[id] = ch
	ch <- Event{Type: "state", State: h.session.State()}
	if cred := h.session.Pairing(); cred != "" {
		ch <- Event{Type: "qr", Credential: cred}
	}
	h.mu.Unlock()

	h.log.Debug("observer attached", "observer", id)
	return id, ch
}

// Detach removes an observer and closes its channel.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	ch, ok := h.observers[id]
	if ok {
		delete(h.observers, id)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
		h.log.Debug("observer detached", "observer", id)
	}
}

// RequestConnect forwards an idempotent connect command.
func (h *Hub) RequestConnect(ctx context.Context) {
	h.session.Start(ctx)
}

// RequestLogout forwards a logout command.
func (h *Hub) RequestLogout(ctx context.Context) {
	h.session.Logout(ctx)
}

// RequestBulkSend validates the job and runs it on its own goroutine,
// streaming progress through the hub and finishing with one terminal
// complete event. Returns the job id for correlation.
func (h *Hub) RequestBulkSend(ctx context.Context, job domain.BulkJob) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	started := time.Now()

	go func() {
		res, err := h.dispatcher.Dispatch(ctx, job)
		if err != nil {
			h.log.Error("bulk dispatch rejected", "job", jobID, "error", err)
			h.LogLine("error", "bulk send rejected: "+err.Error())
			return
		}

		h.BulkComplete(res.SuccessCount, res.FailureCount)

		if h.tasks != nil {
			rec := ports.TaskRecord{
				JobID:      jobID,
				StartedAt:  started,
				FinishedAt: time.Now(),
				Success:    res.SuccessCount,
				Failure:    res.FailureCount,
				Outcomes:   res.Outcomes,
			}
			if err := h.tasks.Record(ctx, rec); err != nil {
				h.log.Error("task log record failed", "job", jobID, "error", err)
			}
		}
	}()

	return jobID, nil
}

// ports.Notifier implementation. Broadcast never blocks: observers that
// cannot keep up lose events.

func (h *Hub) SessionState(state domain.SessionState) {
	h.broadcast(Event{Type: "state", State: state})
}

func (h *Hub) PairingCredential(credential string) {
	h.broadcast(Event{Type: "qr", Credential: credential})
}

func (h *Hub) LogLine(level, text string) {
	h.broadcast(Event{Type: "log", Level: level, Text: text})
}

func (h *Hub) BulkProgress(sent, failed, total int, detail string) {
	h.broadcast(Event{Type: "progress", Sent: sent, Failed: failed, Total: total, Text: detail})
}

func (h *Hub) BulkComplete(success, failure int) {
	h.broadcast(Event{Type: "complete", Success: success, Failure: failure})
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.observers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.log.Warn("observer queue full, event dropped", "observer", id, "type", ev.Type, "dropped_total", h.dropped)
		}
	}
}
