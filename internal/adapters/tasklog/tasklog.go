package tasklog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kittylabs/wasender/internal/ports"
)

const (
	taskKeyPrefix = "wasender:task:"
	recentKey     = "wasender:tasks"
	recentMax     = 100
)

// Repo stores finished bulk jobs in redis for audit: the full record under a
// per-job key with TTL, plus a capped recency list of job ids.
type Repo struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Repo {
	return &Repo{rdb: rdb, ttl: ttl}
}

func (r *Repo) Record(ctx context.Context, rec ports.TaskRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, TaskKey(rec.JobID), data, r.ttl)
	pipe.LPush(ctx, recentKey, rec.JobID)
	pipe.LTrim(ctx, recentKey, 0, recentMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record task %s: %w", rec.JobID, err)
	}
	return nil
}

// TaskKey builds the redis key for one job record.
func TaskKey(jobID string) string {
	return taskKeyPrefix + jobID
}

// EncodeRecord marshals a task record to its stored JSON form.
func EncodeRecord(rec ports.TaskRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal task %s: %w", rec.JobID, err)
	}
	return data, nil
}
