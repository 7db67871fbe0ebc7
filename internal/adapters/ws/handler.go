package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kittylabs/wasender/internal/domain"
	"github.com/kittylabs/wasender/internal/useCases"
)

// command is the wire shape of a front-end request.
type command struct {
	Action     string        `json:"action"` // connect | logout | send_bulk
	Recipients []string      `json:"recipients,omitempty"`
	Message    string        `json:"message,omitempty"`
	Image      *imagePayload `json:"image,omitempty"`
}

type imagePayload struct {
	Data    string `json:"data"` // base64
	Caption string `json:"caption,omitempty"`
}

// Handler serves the websocket bridge endpoint: hub events out as JSON
// frames, commands in. Bulk jobs run on the application context, not the
// connection context, so a UI disconnect never kills a running batch.
type Handler struct {
	appCtx   context.Context
	log      *slog.Logger
	hub      *useCases.Hub
	upgrader websocket.Upgrader
}

func NewHandler(appCtx context.Context, log *slog.Logger, hub *useCases.Hub) *Handler {
	return &Handler{
		appCtx: appCtx,
		log:    log,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id, events := h.hub.Attach()
	h.log.Info("front-end attached", "observer", id, "remote", r.RemoteAddr)

	go func() {
		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug("observer write failed", "observer", id, "error", err)
				_ = conn.Close()
				return
			}
		}
		_ = conn.Close()
	}()

	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		h.handleCommand(cmd)
	}

	h.hub.Detach(id)
	_ = conn.Close()
	h.log.Info("front-end detached", "observer", id)
}

func (h *Handler) handleCommand(cmd command) {
	switch cmd.Action {
	case "connect":
		h.hub.RequestConnect(h.appCtx)
	case "logout":
		h.hub.RequestLogout(h.appCtx)
	case "send_bulk":
		job, err := cmd.toJob()
		if err != nil {
			h.log.Warn("bulk command rejected", "error", err)
			h.hub.LogLine("error", "invalid bulk request: "+err.Error())
			return
		}
		jobID, err := h.hub.RequestBulkSend(h.appCtx, job)
		if err != nil {
			h.hub.LogLine("error", "invalid bulk request: "+err.Error())
			return
		}
		h.log.Info("bulk send accepted", "job", jobID, "recipients", len(job.Recipients))
	default:
		h.log.Warn("unknown action", "action", cmd.Action)
		h.hub.LogLine("error", "unknown action: "+cmd.Action)
	}
}

// toJob validates the payload variants at the bridge boundary before a
// BulkJob is constructed.
func (c command) toJob() (domain.BulkJob, error) {
	job := domain.BulkJob{Recipients: c.Recipients, TextBody: c.Message}

	if c.Image != nil {
		data, err := base64.StdEncoding.DecodeString(c.Image.Data)
		if err != nil {
			return domain.BulkJob{}, fmt.Errorf("image data is not valid base64: %w", err)
		}
		if len(data) == 0 {
			return domain.BulkJob{}, errors.New("image data is empty")
		}
		job.Image = &domain.ImagePayload{Data: data, Caption: c.Image.Caption}
	}

	if err := job.Validate(); err != nil {
		return domain.BulkJob{}, err
	}
	return job, nil
}

// Health returns a handler reporting liveness and the session state.
func Health(state func() domain.SessionState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"session": string(state()),
		})
	}
}
