package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/jobs"
	"github.com/MimeLyc/video-subtitles/internal/library"
)

// Sweeper triggers a library sweep; service.WatchService implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// CheckpointOpener returns the checkpoint store of a job so its progress can
// be reported.
type CheckpointOpener func(checkpointID string) (checkpoint.Store, error)

// Server exposes the watch mode state over HTTP.
type Server struct {
	scanner     *library.Scanner
	queue       *jobs.Queue
	sweeper     Sweeper
	checkpoints CheckpointOpener

	streamInterval time.Duration

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithSweeper(sweeper Sweeper) Option {
	return func(s *Server) {
		s.sweeper = sweeper
	}
}

func WithCheckpoints(open CheckpointOpener) Option {
	return func(s *Server) {
		s.checkpoints = open
	}
}

func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(scanner *library.Scanner, queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		scanner:        scanner,
		queue:          queue,
		streamInterval: time.Second,
		router:         chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/library", s.handleLibrary)
		r.Get("/library/sources", s.handleListSources)
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/stream", s.handleJobStream)
		r.Get("/jobs/{id}", s.handleJobDetail)
		r.Post("/scan", s.handleScan)
	})
}
