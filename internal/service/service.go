package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/video-subtitles/internal/jobs"
	"github.com/MimeLyc/video-subtitles/internal/library"
	"github.com/MimeLyc/video-subtitles/pkg/file"
	"github.com/MimeLyc/video-subtitles/pkg/icron"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

// SegmentsTranslator is the part of Pipeline the watch service drives.
type SegmentsTranslator interface {
	TranslateSegmentsFile(ctx context.Context, segmentsPath, outputPath string) (string, error)
}

// WatchService periodically sweeps the watched directories for transcripts
// without a translated subtitle and queues them for translation.
type WatchService struct {
	translator SegmentsTranslator
	scanner    *library.Scanner
	queue      *jobs.Queue
	cron       *cron.Cron
	cronExpr   string

	group singleflight.Group
}

func NewWatchService(
	translator SegmentsTranslator,
	scanner *library.Scanner,
	queue *jobs.Queue,
	cron *cron.Cron,
	cronExpr string,
) *WatchService {
	return &WatchService{
		translator: translator,
		scanner:    scanner,
		queue:      queue,
		cron:       cron,
		cronExpr:   cronExpr,
	}
}

// Schedule registers the sweep on the cron scheduler. The caller starts it.
func (s *WatchService) Schedule(ctx context.Context) error {
	log.Info("Schedule watch sweep with %q", s.cronExpr)

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error("Watch sweep failed: %v", err)
		}
		s.logNextTrigger()
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.cronExpr, err)
	}
	s.logNextTrigger()
	return nil
}

func (s *WatchService) logNextTrigger() {
	info, err := icron.GetTriggerInfo(s.cronExpr, time.Now())
	if err != nil {
		return
	}
	log.Info("Next sweep at %s (in %s)", info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
}

// Sweep scans the library and enqueues every transcript that still needs a
// target subtitle. Concurrent calls share one scan. It returns the number of
// newly created jobs.
func (s *WatchService) Sweep(ctx context.Context) (int, error) {
	v, err, _ := s.group.Do("sweep", func() (any, error) {
		lib, err := s.scanner.Scan(ctx)
		if err != nil {
			return 0, err
		}

		created := 0
		for _, entry := range lib.Pending() {
			job, isNew := s.queue.Enqueue(jobs.EnqueueRequest{
				Source:    entry.SourceID,
				DedupeKey: entry.SegmentsPath,
				Payload: jobs.JobPayload{
					SegmentsFile: entry.SegmentsPath,
					OutputFile:   entry.OutputPath,
					CheckpointID: JobID(entry.SegmentsPath),
				},
			})
			if isNew {
				created++
				log.Info("Queued %s for %s", job.ID, entry.SegmentsPath)
			}
		}
		for _, entry := range lib.Entries {
			if entry.Error != "" {
				log.Warn("Unreadable transcript %s: %s", entry.SegmentsPath, entry.Error)
			}
		}
		if len(lib.Untranscribed) > 0 {
			log.Info("%d videos have no transcript yet", len(lib.Untranscribed))
		}
		return created, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Execute is the queue executor: it translates one transcript.
func (s *WatchService) Execute(ctx context.Context, job *jobs.TranslationJob) error {
	defer s.scanner.Invalidate()

	if job.Payload.OutputFile != "" && file.Exists(job.Payload.OutputFile) {
		return fmt.Errorf("%w: %s already exists", jobs.ErrSkipped, job.Payload.OutputFile)
	}

	out, err := s.translator.TranslateSegmentsFile(ctx, job.Payload.SegmentsFile, job.Payload.OutputFile)
	if err != nil {
		if IsErrorType(err, ErrEmptyResult) || IsErrorType(err, ErrNotFound) {
			return fmt.Errorf("%w: %v", jobs.ErrSkipped, err)
		}
		return err
	}
	log.Info("Job %s wrote %s", job.ID, out)
	return nil
}

// Start runs the queue worker and the scheduler until Stop.
func (s *WatchService) Start(ctx context.Context) error {
	s.queue.Start(s.Execute)
	if err := s.Schedule(ctx); err != nil {
		s.queue.Stop()
		return err
	}
	s.cron.Start()
	return nil
}

// RunOnce performs a single sweep and waits until the queue is empty.
func (s *WatchService) RunOnce(ctx context.Context) error {
	s.queue.Start(s.Execute)
	defer s.queue.Stop()

	created, err := s.Sweep(ctx)
	if err != nil {
		return err
	}
	log.Info("Sweep queued %d jobs", created)
	return s.queue.Drain(ctx)
}

// Stop waits for a running sweep and stops the worker. An interrupted job
// stays pending and resumes from its checkpoint next time.
func (s *WatchService) Stop() {
	<-s.cron.Stop().Done()
	s.queue.Stop()
}
