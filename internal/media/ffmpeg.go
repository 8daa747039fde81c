package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MimeLyc/video-subtitles/pkg/file"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

// Chunk is a slice of the extracted audio and its offset on the original
// timeline in seconds.
type Chunk struct {
	Path  string
	Start float64
}

type Option func(*FFmpeg)

func WithBinaries(ffmpegCmd, ffprobeCmd string) Option {
	return func(f *FFmpeg) {
		if ffmpegCmd != "" {
			f.ffmpegCmd = ffmpegCmd
		}
		if ffprobeCmd != "" {
			f.ffprobeCmd = ffprobeCmd
		}
	}
}

func WithRunner(r Runner) Option {
	return func(f *FFmpeg) {
		if r != nil {
			f.runner = r
		}
	}
}

type FFmpeg struct {
	ffmpegCmd  string
	ffprobeCmd string
	runner     Runner
}

func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpegCmd:  "ffmpeg",
		ffprobeCmd: "ffprobe",
		runner:     ExecRunner{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ExtractAudio writes the video's audio track as mono 16 kHz PCM WAV to
// <outDir>/<stem>_audio.wav, overwriting an earlier extraction.
func (f *FFmpeg) ExtractAudio(ctx context.Context, video, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	output := filepath.Join(outDir, file.Stem(video)+"_audio.wav")

	if _, err := f.runner.Run(ctx, f.ffmpegCmd, extractArgs(video, output)...); err != nil {
		return "", fmt.Errorf("extract audio from %s: %w", video, err)
	}
	return output, nil
}

func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := f.runner.Run(ctx, f.ffprobeCmd, "-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// ChunkAudio cuts audio into sequential chunk_0001.wav, chunk_0002.wav, ...
// files of the given length inside dir. Chunks left over from an earlier run
// are removed first.
func (f *FFmpeg) ChunkAudio(ctx context.Context, audio, dir string, length time.Duration) ([]Chunk, error) {
	if length <= 0 {
		return nil, fmt.Errorf("chunk length must be positive, got %s", length)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	if err := removeStaleChunks(dir); err != nil {
		return nil, err
	}

	duration, err := f.ProbeDuration(ctx, audio)
	if err != nil {
		return nil, err
	}
	count := int(math.Ceil(duration.Seconds() / length.Seconds()))
	log.Debug("Audio %s is %s long, cutting %d chunk(s)", filepath.Base(audio), duration, count)

	chunks := make([]Chunk, 0, count)
	for i := range count {
		start := time.Duration(i) * length
		path := filepath.Join(dir, fmt.Sprintf("chunk_%04d.wav", i+1))

		args := []string{
			"-y",
			"-ss", formatSeconds(start),
			"-t", formatSeconds(length),
			"-i", audio,
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			path,
		}
		if _, err := f.runner.Run(ctx, f.ffmpegCmd, args...); err != nil {
			return nil, fmt.Errorf("cut chunk %d: %w", i+1, err)
		}
		chunks = append(chunks, Chunk{Path: path, Start: start.Seconds()})
	}
	return chunks, nil
}

func extractArgs(video, output string) []string {
	return []string{
		"-y",
		"-i", video,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		output,
	}
}

func removeStaleChunks(dir string) error {
	stale, err := filepath.Glob(filepath.Join(dir, "chunk_*.wav"))
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale chunk: %w", err)
		}
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
