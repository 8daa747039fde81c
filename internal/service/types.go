package service

import (
	"context"
	"time"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/media"
	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/internal/subtitle"
	"github.com/MimeLyc/video-subtitles/internal/translator"
)

// AudioProcessor turns a video into transcription-sized audio chunks.
type AudioProcessor interface {
	ExtractAudio(ctx context.Context, video, outDir string) (string, error)
	ChunkAudio(ctx context.Context, audio, dir string, length time.Duration) ([]media.Chunk, error)
}

type Transcriber interface {
	TranscribeChunks(ctx context.Context, chunks []media.Chunk) ([]segment.Segment, error)
}

// Dependencies are the collaborators of a Pipeline. Nil fields are built
// from the configuration.
type Dependencies struct {
	Audio       AudioProcessor
	Transcriber Transcriber
	Translator  translator.Translator
	Writer      subtitle.Writer
	Reader      subtitle.Reader
	// Rows backs checkpoints when the sqlite backend is configured. When nil
	// the pipeline opens the database at config.DBPath() per run.
	Rows checkpoint.RowStore
}

type TranscribeResult struct {
	VideoPath    string
	SegmentsPath string
	SubtitlePath string
	Segments     []segment.Segment
}

type RunOptions struct {
	SkipTranslation bool
	// OutputPath overrides where the translated subtitle is written.
	OutputPath string
}

type RunResult struct {
	Transcript     *TranscribeResult
	TranslatedPath string
}
