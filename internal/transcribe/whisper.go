package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/video-subtitles/internal/media"
	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/pkg/file"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

const DefaultModel = "small"

type Option func(*Whisper)

func WithCommand(cmd string) Option {
	return func(w *Whisper) {
		if cmd != "" {
			w.command = cmd
		}
	}
}

func WithModel(model string) Option {
	return func(w *Whisper) {
		if model != "" {
			w.model = model
		}
	}
}

func WithLanguage(lang string) Option {
	return func(w *Whisper) {
		if lang != "" {
			w.language = lang
		}
	}
}

func WithRunner(r media.Runner) Option {
	return func(w *Whisper) {
		if r != nil {
			w.runner = r
		}
	}
}

// Whisper drives the openai-whisper command line tool.
type Whisper struct {
	command  string
	model    string
	language string
	runner   media.Runner
}

func NewWhisper(opts ...Option) *Whisper {
	w := &Whisper{
		command:  "whisper",
		model:    DefaultModel,
		language: "ja",
		runner:   media.ExecRunner{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Whisper) Model() string {
	return w.model
}

// whisper's --output_format json document; only the fields we read.
type whisperOutput struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// TranscribeChunks transcribes every chunk in order and returns the segments
// on the original timeline. Empty texts are dropped.
func (w *Whisper) TranscribeChunks(ctx context.Context, chunks []media.Chunk) ([]segment.Segment, error) {
	ret := make([]segment.Segment, 0)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("Transcribing chunk %d/%d (%s, offset %.1fs)", i+1, len(chunks), filepath.Base(chunk.Path), chunk.Start)

		segments, err := w.transcribeChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		ret = append(ret, segments...)
	}
	return ret, nil
}

func (w *Whisper) transcribeChunk(ctx context.Context, chunk media.Chunk) ([]segment.Segment, error) {
	outDir := filepath.Dir(chunk.Path)
	args := []string{
		chunk.Path,
		"--model", w.model,
		"--language", w.language,
		"--task", "transcribe",
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if _, err := w.runner.Run(ctx, w.command, args...); err != nil {
		return nil, fmt.Errorf("whisper on %s: %w", filepath.Base(chunk.Path), err)
	}

	resultPath := filepath.Join(outDir, file.Stem(chunk.Path)+".json")
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output %s: %w", resultPath, err)
	}

	segments := make([]segment.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, segment.Segment{
			Start: chunk.Start + s.Start,
			End:   chunk.Start + s.End,
			Text:  text,
		})
	}
	return segments, nil
}
