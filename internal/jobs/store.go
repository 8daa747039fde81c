package jobs

import "context"

// Store persists job states so pending work survives a restart.
type Store interface {
	LoadJobs(ctx context.Context) ([]*TranslationJob, error)
	UpsertJob(ctx context.Context, job *TranslationJob) error
	DeleteJob(ctx context.Context, jobID string) error
	// DeleteJobData removes the job's checkpoint unless another job still uses it.
	DeleteJobData(ctx context.Context, jobID string) error
}
