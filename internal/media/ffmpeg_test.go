package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations, answers ffprobe with probeOutput and creates
// the output file (last argument) for ffmpeg calls.
type fakeRunner struct {
	calls       []call
	probeOutput string
	err         error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(name, "ffprobe") {
		return []byte(f.probeOutput), nil
	}
	if len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], []byte("RIFF"), 0644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestExtractAudio(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	ff := NewFFmpeg(WithRunner(runner), WithBinaries("/opt/ffmpeg", ""))

	out, err := ff.ExtractAudio(context.Background(), "/videos/ep01.mp4", filepath.Join(dir, "ep01_work"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ep01_work", "ep01_audio.wav"), out)
	assert.FileExists(t, out)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/opt/ffmpeg", runner.calls[0].name)
	assert.Equal(t, []string{"-y", "-i", "/videos/ep01.mp4", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", out}, runner.calls[0].args)
}

func TestExtractAudioError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	ff := NewFFmpeg(WithRunner(runner))

	_, err := ff.ExtractAudio(context.Background(), "/videos/ep01.mp4", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract audio")
}

func TestProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", `{"format": {"duration": "754.250000"}}`, 754250 * time.Millisecond, false},
		{"missing duration", `{"format": {}}`, 0, false},
		{"bad number", `{"format": {"duration": "n/a"}}`, 0, true},
		{"not json", `oops`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{probeOutput: tt.output}
			got, err := NewFFmpeg(WithRunner(runner)).ProbeDuration(context.Background(), "a.wav")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "ffprobe", runner.calls[0].name)
			assert.Contains(t, runner.calls[0].args, "-show_format")
		})
	}
}

func TestChunkAudio(t *testing.T) {
	dir := t.TempDir()
	chunkDir := filepath.Join(dir, "chunks")
	require.NoError(t, os.MkdirAll(chunkDir, 0755))
	stale := filepath.Join(chunkDir, "chunk_0009.wav")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	runner := &fakeRunner{probeOutput: `{"format": {"duration": "660.5"}}`}
	ff := NewFFmpeg(WithRunner(runner))

	chunks, err := ff.ChunkAudio(context.Background(), "/work/ep01_audio.wav", chunkDir, 5*time.Minute)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Path: filepath.Join(chunkDir, "chunk_0001.wav"), Start: 0}, chunks[0])
	assert.Equal(t, Chunk{Path: filepath.Join(chunkDir, "chunk_0002.wav"), Start: 300}, chunks[1])
	assert.Equal(t, Chunk{Path: filepath.Join(chunkDir, "chunk_0003.wav"), Start: 600}, chunks[2])
	assert.NoFileExists(t, stale)

	// probe + 3 cuts
	require.Len(t, runner.calls, 4)
	assert.Equal(t, []string{
		"-y", "-ss", "300.000", "-t", "300.000", "-i", "/work/ep01_audio.wav",
		"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", chunks[1].Path,
	}, runner.calls[2].args)
}

func TestChunkAudioSilentInput(t *testing.T) {
	runner := &fakeRunner{probeOutput: `{"format": {"duration": "0.000"}}`}

	chunks, err := NewFFmpeg(WithRunner(runner)).ChunkAudio(context.Background(), "a.wav", t.TempDir(), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkAudioRejectsZeroLength(t *testing.T) {
	_, err := NewFFmpeg(WithRunner(&fakeRunner{})).ChunkAudio(context.Background(), "a.wav", t.TempDir(), 0)
	assert.Error(t, err)
}
