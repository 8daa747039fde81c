package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	jobs     map[string]*TranslationJob
	dataDels []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]*TranslationJob)}
}

func (m *memoryStore) LoadJobs(_ context.Context) ([]*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*TranslationJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		ret = append(ret, cloneJob(j))
	}
	return ret, nil
}

func (m *memoryStore) UpsertJob(_ context.Context, job *TranslationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *memoryStore) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func (m *memoryStore) DeleteJobData(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataDels = append(m.dataDels, jobID)
	return nil
}

func (m *memoryStore) get(id string) (*TranslationJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return cloneJob(j), ok
}

func waitStatus(t *testing.T, q *Queue, id string, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, ok := q.Get(id)
		return ok && got.Status == want
	}, 2*time.Second, 10*time.Millisecond)
}

func segmentsRequest(name string) EnqueueRequest {
	path := "/videos/" + name + "_segments.json"
	return EnqueueRequest{
		Source:    "watch",
		DedupeKey: path,
		Payload:   JobPayload{SegmentsFile: path, CheckpointID: name + "_segments"},
	}
}

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(nil)

	jobA, createdA := q.Enqueue(segmentsRequest("ep1"))
	jobB, createdB := q.Enqueue(EnqueueRequest{Source: "manual", DedupeKey: "/videos/ep1_segments.json"})

	require.True(t, createdA)
	require.False(t, createdB)
	assert.Equal(t, jobA.ID, jobB.ID)
	assert.Equal(t, "watch", jobB.Source)
	assert.Equal(t, "ep1_segments", jobB.Payload.CheckpointID)
}

func TestQueue_Worker_TransitionsStatus(t *testing.T) {
	q := NewQueue(nil)
	var seen *TranslationJob
	q.Start(func(_ context.Context, job *TranslationJob) error {
		seen = job
		return nil
	})
	defer q.Stop()

	job, _ := q.Enqueue(segmentsRequest("ep1"))
	waitStatus(t, q, job.ID, StatusSuccess)

	require.NotNil(t, seen)
	assert.Equal(t, StatusRunning, seen.Status)
	assert.Equal(t, "/videos/ep1_segments.json", seen.Payload.SegmentsFile)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(nil)

	var attempts atomic.Int32
	q.Start(func(_ context.Context, _ *TranslationJob) error {
		if attempts.Add(1) == 1 {
			return assert.AnError
		}
		return nil
	})
	defer q.Stop()

	first, created := q.Enqueue(segmentsRequest("ep1"))
	require.True(t, created)
	waitStatus(t, q, first.ID, StatusFailed)

	got, _ := q.Get(first.ID)
	assert.Equal(t, assert.AnError.Error(), got.Error)

	second, created := q.Enqueue(segmentsRequest("ep1"))
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	waitStatus(t, q, second.ID, StatusSuccess)
}

func TestQueue_SkippedJobs(t *testing.T) {
	q := NewQueue(nil)
	q.Start(func(_ context.Context, _ *TranslationJob) error {
		return fmt.Errorf("no segments: %w", ErrSkipped)
	})
	defer q.Stop()

	job, _ := q.Enqueue(segmentsRequest("silent"))
	waitStatus(t, q, job.ID, StatusSkipped)
	assert.Equal(t, 1, q.Counts()[StatusSkipped])
}

func TestQueue_RunsOneJobAtATime(t *testing.T) {
	q := NewQueue(nil)

	var running, maxRunning atomic.Int32
	q.Start(func(_ context.Context, _ *TranslationJob) error {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	defer q.Stop()

	for i := range 5 {
		q.Enqueue(segmentsRequest(fmt.Sprintf("ep%d", i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Equal(t, 5, q.Counts()[StatusSuccess])
}

func TestQueue_StopRequeuesInterruptedJob(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(store)

	started := make(chan struct{})
	q.Start(func(ctx context.Context, _ *TranslationJob) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	job, _ := q.Enqueue(segmentsRequest("long"))
	<-started
	q.Stop()

	got, ok := q.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)

	stored, ok := store.get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestQueue_RecoversPendingAndRunningJobsFromStore(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.jobs["job-1"] = &TranslationJob{
		ID:        "job-1",
		Source:    "watch",
		DedupeKey: "/videos/ep1_segments.json",
		Status:    StatusPending,
		Payload:   JobPayload{SegmentsFile: "/videos/ep1_segments.json"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.jobs["job-7"] = &TranslationJob{
		ID:        "job-7",
		Source:    "watch",
		DedupeKey: "/videos/ep2_segments.json",
		Status:    StatusRunning,
		Payload:   JobPayload{SegmentsFile: "/videos/ep2_segments.json"},
		CreatedAt: now.Add(time.Second),
		UpdatedAt: now,
	}

	q := NewQueue(store)

	jobs := q.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, StatusPending, jobs[1].Status)

	// dedupe survives the restart
	_, created := q.Enqueue(EnqueueRequest{DedupeKey: "/videos/ep2_segments.json"})
	assert.False(t, created)

	// ids continue after the highest recovered one
	fresh, created := q.Enqueue(segmentsRequest("ep3"))
	require.True(t, created)
	assert.Equal(t, "job-8", fresh.ID)

	q.Start(func(_ context.Context, _ *TranslationJob) error { return nil })
	defer q.Stop()

	waitStatus(t, q, "job-1", StatusSuccess)
	waitStatus(t, q, "job-7", StatusSuccess)
	waitStatus(t, q, "job-8", StatusSuccess)
}

func TestQueue_PrunesOldestFinishedJobs(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(store, WithMaxJobs(2))
	q.Start(func(_ context.Context, _ *TranslationJob) error { return nil })
	defer q.Stop()

	for i := range 4 {
		job, _ := q.Enqueue(segmentsRequest(fmt.Sprintf("ep%d", i)))
		waitStatus(t, q, job.ID, StatusSuccess)
	}

	assert.Len(t, q.List(), 2)
	_, ok := q.Get("job-1")
	assert.False(t, ok)
	_, ok = store.get("job-1")
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return assert.ObjectsAreEqual([]string{"job-1", "job-2"}, store.dataDels)
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_DrainHonorsContext(t *testing.T) {
	q := NewQueue(nil)
	q.Enqueue(segmentsRequest("never-started"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Drain(ctx), context.DeadlineExceeded)
}
