package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kittylabs/wasender/internal/domain"
	"github.com/kittylabs/wasender/internal/ports"
)

const (
	defaultMinSendDelay = 500 * time.Millisecond
	defaultMaxSendDelay = 1000 * time.Millisecond
	defaultSendTimeout  = 60 * time.Second
)

// SessionGate is the slice of the lifecycle manager the dispatcher needs:
// the current state check and one transport handle per send.
type SessionGate interface {
	State() domain.SessionState
	Transport() (ports.Transport, error)
}

// Dispatcher runs one bulk job at a time: strictly sequential, jittered
// between recipients, one outcome per input recipient no matter what. The
// remote channel penalizes bursts, so there is deliberately no concurrency
// across recipients.
type Dispatcher struct {
	log      *slog.Logger
	session  SessionGate
	notifier ports.Notifier

	minDelay    time.Duration
	maxDelay    time.Duration
	sendTimeout time.Duration
}

func NewDispatcher(log *slog.Logger, session SessionGate, notifier ports.Notifier) *Dispatcher {
	return &Dispatcher{
		log:         log,
		session:     session,
		notifier:    notifier,
		minDelay:    defaultMinSendDelay,
		maxDelay:    defaultMaxSendDelay,
		sendTimeout: defaultSendTimeout,
	}
}

// SetThrottle overrides the inter-recipient delay bounds and per-send
// timeout. Used by tests and config wiring.
func (d *Dispatcher) SetThrottle(min, max, sendTimeout time.Duration) {
	d.minDelay = min
	d.maxDelay = max
	d.sendTimeout = sendTimeout
}

// Dispatch processes job recipients in input order and returns the tally.
// Refuses with ErrNotConnected before any side effect when the session is
// not connected. Per-recipient failures never abort the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.BulkJob) (domain.BulkResult, error) {
	if err := job.Validate(); err != nil {
		return domain.BulkResult{}, err
	}
	if d.session.State() != domain.StateConnected {
		return domain.BulkResult{}, domain.ErrNotConnected
	}

	total := len(job.Recipients)
	d.log.Info("bulk dispatch started", "recipients", total, "has_image", job.Image != nil)

	res := domain.BulkResult{Outcomes: make([]domain.RecipientOutcome, 0, total)}
	for _, raw := range job.Recipients {
		out := d.sendOne(ctx, job, raw)

		if out.Kind == domain.OutcomeSent {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
		res.Outcomes = append(res.Outcomes, out)
		d.notifier.BulkProgress(res.SuccessCount, res.FailureCount, total, out.Detail)

		// Throttle between network attempts. Invalid addresses never
		// reached the network, so they earn no delay. Images are heavier
		// on the remote side and get double the jitter window.
		if out.Kind != domain.OutcomeInvalidAddress {
			min, max := d.minDelay, d.maxDelay
			if job.Image != nil {
				min *= 2
				max *= 2
			}
			if err := randomDelay(ctx, min, max); err != nil {
				d.log.Warn("throttle interrupted, continuing without delay", "error", err)
			}
		}
	}

	d.log.Info("bulk dispatch finished", "success", res.SuccessCount, "failure", res.FailureCount)
	return res, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, job domain.BulkJob, raw string) domain.RecipientOutcome {
	addr, err := domain.NormalizeAddress(raw)
	if err != nil {
		d.log.Warn("invalid address, skipping", "address", raw)
		return domain.RecipientOutcome{
			Address: raw,
			Kind:    domain.OutcomeInvalidAddress,
			Detail:  fmt.Sprintf("invalid address %q", raw),
		}
	}

	// one handle per send: the connection is owned by the lifecycle manager
	// and may be swapped by a mid-batch reconnect
	tr, err := d.session.Transport()
	if err != nil {
		d.log.Error("send skipped, session down", "address", addr, "error", err)
		return domain.RecipientOutcome{
			Address: raw,
			Kind:    domain.OutcomeTransportError,
			Detail:  fmt.Sprintf("failed to %s: %v", addr, err),
		}
	}

	sctx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	if job.Image != nil {
		// When both payloads are present the text rides as the caption,
		// so each recipient gets exactly one message.
		caption := job.TextBody
		if caption == "" {
			caption = job.Image.Caption
		}
		err = tr.SendImage(sctx, addr, job.Image.Data, caption)
	} else {
		err = tr.SendText(sctx, addr, job.TextBody)
	}
	if err != nil {
		kind := domain.OutcomeTransportError
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.OutcomeTimeout
		}
		d.log.Error("send failed", "address", addr, "kind", kind, "error", err)
		return domain.RecipientOutcome{
			Address: raw,
			Kind:    kind,
			Detail:  fmt.Sprintf("failed to %s: %v", addr, err),
		}
	}

	d.log.Debug("sent", "address", addr)
	return domain.RecipientOutcome{
		Address: raw,
		Kind:    domain.OutcomeSent,
		Detail:  "sent to " + addr,
	}
}
