package ports

import (
	"context"
	"time"

	"github.com/kittylabs/wasender/internal/domain"
)

// TaskRecord is the audit entry written after a bulk job finishes.
type TaskRecord struct {
	JobID      string                    `json:"job_id"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Success    int                       `json:"success"`
	Failure    int                       `json:"failure"`
	Outcomes   []domain.RecipientOutcome `json:"outcomes"`
}

// TaskLogRepo stores finished bulk jobs for audit. Write failures are
// logged by the caller, never propagated to the dispatch path.
type TaskLogRepo interface {
	Record(ctx context.Context, rec TaskRecord) error
}
