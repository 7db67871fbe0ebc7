package domain

// ImagePayload is an optional image attachment for a bulk job.
type ImagePayload struct {
	Data    []byte
	Caption string
}

// BulkJob is one request to message a list of recipients with a shared
// payload. It lives only for the duration of a single dispatch call.
// At least one of TextBody/Image must be set and Recipients non-empty;
// Validate enforces both.
type BulkJob struct {
	Recipients []string // raw, unnormalized
	TextBody   string
	Image      *ImagePayload
}

// Validate checks the job invariants at the bridge boundary.
func (j BulkJob) Validate() error {
	if len(j.Recipients) == 0 {
		return ErrNoRecipients
	}
	if j.TextBody == "" && j.Image == nil {
		return ErrEmptyPayload
	}
	return nil
}

// OutcomeKind classifies the result of one recipient attempt.
type OutcomeKind string

const (
	OutcomeSent           OutcomeKind = "sent"
	OutcomeInvalidAddress OutcomeKind = "invalid_address"
	OutcomeTimeout        OutcomeKind = "timeout"
	OutcomeTransportError OutcomeKind = "transport_error"
)

// RecipientOutcome records what happened for a single recipient.
type RecipientOutcome struct {
	Address string // raw input address
	Kind    OutcomeKind
	Detail  string
}

// BulkResult is the accumulated tally of one dispatch run. Outcomes keep
// input order; every input recipient produces exactly one entry.
type BulkResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []RecipientOutcome
}
