package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/config"
	"github.com/MimeLyc/video-subtitles/internal/library"
	"github.com/MimeLyc/video-subtitles/internal/media"
	"github.com/MimeLyc/video-subtitles/internal/persistence"
	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/internal/subtitle"
	"github.com/MimeLyc/video-subtitles/internal/transcribe"
	"github.com/MimeLyc/video-subtitles/internal/translator"
	"github.com/MimeLyc/video-subtitles/pkg/file"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

// Pipeline drives video -> transcript -> translated subtitle.
type Pipeline struct {
	cfg         config.Config
	audio       AudioProcessor
	transcriber Transcriber
	translator  translator.Translator
	writer      subtitle.Writer
	reader      subtitle.Reader
	rows        checkpoint.RowStore
}

func NewPipeline(cfg config.Config, deps Dependencies) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		audio:       deps.Audio,
		transcriber: deps.Transcriber,
		translator:  deps.Translator,
		writer:      deps.Writer,
		reader:      deps.Reader,
		rows:        deps.Rows,
	}
	if p.audio == nil {
		p.audio = media.NewFFmpeg(media.WithBinaries(cfg.Media.FFmpegPath, cfg.Media.FFprobePath))
	}
	if p.transcriber == nil {
		base, _ := cfg.Translate.SourceLanguage.Base()
		p.transcriber = transcribe.NewWhisper(
			transcribe.WithCommand(cfg.Media.WhisperCommand),
			transcribe.WithModel(cfg.Media.WhisperModel),
			transcribe.WithLanguage(base.String()),
		)
	}
	if p.writer == nil {
		p.writer = subtitle.NewWriter()
	}
	if p.reader == nil {
		p.reader = subtitle.NewReader()
	}
	return p
}

// JobID names the checkpoint of a segments file: its stem plus a short hash
// of the absolute path. Reruns against the same file share it; files with
// the same name in different directories do not.
func JobID(segmentsPath string) string {
	abs, err := filepath.Abs(segmentsPath)
	if err != nil {
		abs = filepath.Clean(segmentsPath)
	}
	sum := sha256.Sum256([]byte(abs))
	return file.Stem(abs) + "-" + hex.EncodeToString(sum[:4])
}

// Transcribe produces the segments file and the source-language subtitle of
// videoPath. Nothing is persisted when no speech is found.
func (p *Pipeline) Transcribe(ctx context.Context, videoPath string) (*TranscribeResult, error) {
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, WrapError(err, ErrNotFound, "invalid video path").WithContext("path", videoPath)
	}
	if !file.Exists(abs) {
		return nil, NewError(ErrNotFound, "video file not found").WithContext("path", abs)
	}

	workDir := filepath.Join(filepath.Dir(abs), file.Stem(abs)+"_work")
	chunkDir := filepath.Join(workDir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, WrapError(err, ErrFileWrite, "create work directory").WithContext("path", workDir)
	}

	log.Info("Extracting audio from %s", abs)
	audio, err := p.audio.ExtractAudio(ctx, abs, workDir)
	if err != nil {
		return nil, WrapError(err, ErrExternal, "audio extraction failed").WithContext("video", abs)
	}

	length := time.Duration(p.cfg.Media.ChunkMinutes) * time.Minute
	chunks, err := p.audio.ChunkAudio(ctx, audio, chunkDir, length)
	if err != nil {
		return nil, WrapError(err, ErrExternal, "audio chunking failed").WithContext("audio", audio)
	}
	if len(chunks) == 0 {
		return nil, NewError(ErrEmptyResult, "no audio chunks produced").WithContext("video", abs)
	}
	log.Info("Transcribing %d chunks of %s", len(chunks), length)

	segments, err := p.transcriber.TranscribeChunks(ctx, chunks)
	if err != nil {
		return nil, WrapError(err, ErrExternal, "transcription failed").WithContext("video", abs)
	}
	if len(segments) == 0 {
		return nil, NewError(ErrEmptyResult, "no segments produced").WithContext("video", abs)
	}
	p.warnOnLanguageMismatch(segments)

	segmentsPath := library.SegmentsPath(abs)
	if _, err := segment.Save(segmentsPath, segments, abs); err != nil {
		return nil, WrapError(err, ErrFileWrite, "save segments").WithContext("path", segmentsPath)
	}

	srtPath := file.Sibling(abs, library.LanguageSuffix(p.cfg.Translate.SourceLanguage), ".srt")
	if _, err := p.writer.Write(srtPath, segments); err != nil {
		return nil, WrapError(err, ErrFileWrite, "write transcript subtitle").WithContext("path", srtPath)
	}
	log.Info("Transcribed %d segments: %s, %s", len(segments), segmentsPath, srtPath)

	return &TranscribeResult{
		VideoPath:    abs,
		SegmentsPath: segmentsPath,
		SubtitlePath: srtPath,
		Segments:     segments,
	}, nil
}

func (p *Pipeline) warnOnLanguageMismatch(segments []segment.Segment) {
	detected := segment.DetectLanguage(segments)
	if detected == language.Und {
		return
	}
	got, _ := detected.Base()
	want, _ := p.cfg.Translate.SourceLanguage.Base()
	if got != want {
		log.Warn("Transcript looks like %s, expected %s", got, want)
	}
}

// TranslateSegmentsFile translates a saved transcript and writes the target
// subtitle. A failed run leaves its checkpoint behind; calling again with the
// same file resumes after the last completed batch. An empty outputPath
// places the subtitle next to the source video.
func (p *Pipeline) TranslateSegmentsFile(ctx context.Context, segmentsPath, outputPath string) (string, error) {
	abs, err := filepath.Abs(segmentsPath)
	if err != nil {
		return "", WrapError(err, ErrNotFound, "invalid segments path").WithContext("path", segmentsPath)
	}
	if !file.Exists(abs) {
		return "", NewError(ErrNotFound, "segments file not found").WithContext("path", abs)
	}

	segments, sourceVideo, err := p.loadSegments(abs)
	if err != nil {
		return "", WrapError(err, ErrFormat, "cannot read segments file").WithContext("path", abs)
	}
	if len(segments) == 0 {
		return "", NewError(ErrEmptyResult, "segments file has no segments").WithContext("path", abs)
	}
	if outputPath == "" {
		outputPath = library.TargetSubtitlePath(abs, sourceVideo, p.cfg.Translate.TargetLanguage)
	}

	tr := p.translator
	if tr == nil {
		tr, err = NewTranslator(p.cfg)
		if err != nil {
			return "", WrapError(err, ErrConfig, "cannot create translator")
		}
	}

	jobID := JobID(abs)
	store, release, err := p.checkpointStore(jobID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return "", WrapError(err, ErrTranslation, "another run is translating this file").WithContext("job", jobID)
		}
		return "", WrapError(err, ErrConfig, "cannot open checkpoint store").WithContext("job", jobID)
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn("Release checkpoint of %s: %v", jobID, err)
		}
	}()

	runID := uuid.NewString()
	log.Info("[%s] Translating %d segments of %s (%s -> %s, batch %d)", runID, len(segments), abs,
		p.cfg.Translate.SourceLanguage, p.cfg.Translate.TargetLanguage, p.cfg.Translate.BatchSize)

	engine := translator.NewBatchEngine(tr, store,
		translator.WithBatchSize(p.cfg.Translate.BatchSize),
		translator.WithProgress(func(pr translator.Progress) {
			if pr.Resumed > 0 && pr.BatchStart == pr.Resumed {
				log.Info("[%s] Resumed from checkpoint at segment %d", runID, pr.Resumed)
			}
			log.Info("[%s] Translated segments %d-%d of %d", runID, pr.BatchStart+1, pr.BatchEnd, pr.Total)
		}),
	)

	translated, err := engine.TranslateSegments(ctx, segments)
	if err != nil {
		message := "translation failed, rerun to resume"
		if ctx.Err() != nil {
			message = "translation interrupted, rerun to resume"
		}
		return "", WrapError(err, ErrTranslation, message).WithContext("job", jobID)
	}

	written, err := p.writer.Write(outputPath, translated)
	if err != nil {
		return "", WrapError(err, ErrFileWrite, "write translated subtitle").WithContext("path", outputPath)
	}
	log.Info("[%s] Wrote %s", runID, written)
	return written, nil
}

// loadSegments accepts a segments file or, for .srt input, a subtitle.
func (p *Pipeline) loadSegments(path string) ([]segment.Segment, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".srt") {
		segments, err := p.reader.Read(path)
		return segments, "", err
	}
	return segment.Load(path)
}

func (p *Pipeline) checkpointStore(jobID string) (checkpoint.Store, func() error, error) {
	switch p.cfg.Translate.CheckpointBackend {
	case config.BackendSQLite:
		rows := p.rows
		release := func() error { return nil }
		if rows == nil {
			db, err := persistence.NewSQLiteStore(p.cfg.DBPath())
			if err != nil {
				return nil, nil, err
			}
			rows = db
			release = db.Close
		}
		store, err := checkpoint.NewDBStore(rows, jobID)
		if err != nil {
			_ = release()
			return nil, nil, err
		}
		return store, release, nil
	default:
		store := checkpoint.NewFileStore(checkpoint.PathFor(p.cfg.Translate.CheckpointDir, jobID))
		unlock, err := store.Lock()
		if err != nil {
			return nil, nil, err
		}
		return store, unlock, nil
	}
}

// OpenCheckpoint returns the checkpoint store of jobID without locking it,
// for progress reporting.
func (p *Pipeline) OpenCheckpoint(jobID string) (checkpoint.Store, error) {
	if p.cfg.Translate.CheckpointBackend == config.BackendSQLite {
		return checkpoint.NewDBStore(p.rows, jobID)
	}
	return checkpoint.NewFileStore(checkpoint.PathFor(p.cfg.Translate.CheckpointDir, jobID)), nil
}

// Run transcribes videoPath and, unless opts.SkipTranslation is set,
// translates the new transcript.
func (p *Pipeline) Run(ctx context.Context, videoPath string, opts RunOptions) (*RunResult, error) {
	transcript, err := p.Transcribe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Transcript: transcript}
	if opts.SkipTranslation {
		log.Info("Skipping translation; run with --translate-segments %s later", transcript.SegmentsPath)
		return result, nil
	}

	result.TranslatedPath, err = p.TranslateSegmentsFile(ctx, transcript.SegmentsPath, opts.OutputPath)
	if err != nil {
		return nil, err
	}
	return result, nil
}
