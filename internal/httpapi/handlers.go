package httpapi

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/jobs"
	"github.com/MimeLyc/video-subtitles/internal/library"
	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/internal/service"
	"github.com/MimeLyc/video-subtitles/pkg/file"
)

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.scanner.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, libraryResponse{
		TargetLanguage: s.scanner.TargetLanguage().String(),
		Library:        lib,
	})
}

type libraryResponse struct {
	TargetLanguage string `json:"target_language"`
	*library.Library
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	lib, err := s.scanner.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lib.Sources)
}

type enqueueJobRequest struct {
	Source       string `json:"source"`
	SegmentsPath string `json:"segments_path"`
	OutputPath   string `json:"output_path"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.List())
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}
	if req.SegmentsPath == "" {
		writeError(w, http.StatusBadRequest, "segments_path is required")
		return
	}
	segmentsPath, err := filepath.Abs(req.SegmentsPath)
	if err != nil || !file.Exists(segmentsPath) {
		writeError(w, http.StatusBadRequest, "segments_path does not exist")
		return
	}

	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		Source:    req.Source,
		DedupeKey: segmentsPath,
		Payload: jobs.JobPayload{
			SegmentsFile: segmentsPath,
			OutputFile:   req.OutputPath,
			CheckpointID: service.JobID(segmentsPath),
		},
	})
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

type jobDetailResponse struct {
	Job      *jobs.TranslationJob `json:"job"`
	Progress *jobProgress         `json:"progress,omitempty"`
}

// jobProgress is read from the job's checkpoint. A finished job has no
// checkpoint, so Completed is only meaningful while the job is active.
type jobProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	ret := jobDetailResponse{Job: job}
	if s.checkpoints != nil && job.Active() {
		progress, err := s.progress(r, job)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ret.Progress = progress
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) progress(r *http.Request, job *jobs.TranslationJob) (*jobProgress, error) {
	store, err := s.checkpoints(job.Payload.CheckpointID)
	if err != nil {
		return nil, err
	}
	cp, err := store.Load(r.Context())
	if err != nil {
		return nil, err
	}

	total := 0
	if segments, _, err := segment.Load(job.Payload.SegmentsFile); err == nil {
		total = len(segments)
	}
	return &jobProgress{Total: total, Completed: completed(cp, total)}, nil
}

func completed(cp checkpoint.Checkpoint, total int) int {
	n := cp.LastCompleted + 1
	if total > 0 && n > total {
		return total
	}
	return n
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.scanner.Invalidate()
	if s.sweeper == nil {
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
		return
	}
	created, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok":      true,
		"created": created,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
