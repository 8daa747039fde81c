package jobs

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrSkipped, wrapped by an Executor error, marks the job skipped instead of failed.
var ErrSkipped = errors.New("job skipped")

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

// JobPayload names the files a translation job works on. CheckpointID keys
// the job's checkpoint, so reruns of the same segments file share it.
type JobPayload struct {
	SegmentsFile string `json:"segments_file"`
	OutputFile   string `json:"output_file,omitempty"`
	CheckpointID string `json:"checkpoint_id"`
}

type TranslationJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j *TranslationJob) Active() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}
