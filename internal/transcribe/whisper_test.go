package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/video-subtitles/internal/media"
	"github.com/MimeLyc/video-subtitles/internal/segment"
)

// fakeWhisper writes a canned result next to the chunk, keyed by chunk file name.
type fakeWhisper struct {
	results map[string]string
	args    [][]string
	err     error
}

func (f *fakeWhisper) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	chunk := args[0]
	body, ok := f.results[filepath.Base(chunk)]
	if !ok {
		return nil, nil
	}
	out := filepath.Join(filepath.Dir(chunk), stemOf(chunk)+".json")
	return nil, os.WriteFile(out, []byte(body), 0644)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func TestTranscribeChunksOffsetsAndFilters(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeWhisper{results: map[string]string{
		"chunk_0001.wav": `{"text": "...", "language": "ja", "segments": [
			{"id": 0, "start": 0.0, "end": 2.5, "text": " こんにちは "},
			{"id": 1, "start": 2.5, "end": 3.0, "text": "   "}
		]}`,
		"chunk_0002.wav": `{"segments": [{"start": 1.25, "end": 4.0, "text": "さようなら"}]}`,
	}}
	w := NewWhisper(WithRunner(runner), WithModel("medium"))

	got, err := w.TranscribeChunks(context.Background(), []media.Chunk{
		{Path: filepath.Join(dir, "chunk_0001.wav"), Start: 0},
		{Path: filepath.Join(dir, "chunk_0002.wav"), Start: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, []segment.Segment{
		{Start: 0, End: 2.5, Text: "こんにちは"},
		{Start: 301.25, End: 304, Text: "さようなら"},
	}, got)

	require.Len(t, runner.args, 2)
	assert.Equal(t, []string{
		filepath.Join(dir, "chunk_0001.wav"),
		"--model", "medium",
		"--language", "ja",
		"--task", "transcribe",
		"--output_format", "json",
		"--output_dir", dir,
		"--verbose", "False",
	}, runner.args[0])
}

func TestTranscribeChunksNoSpeech(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeWhisper{results: map[string]string{"chunk_0001.wav": `{"segments": []}`}}

	got, err := NewWhisper(WithRunner(runner)).TranscribeChunks(context.Background(), []media.Chunk{
		{Path: filepath.Join(dir, "chunk_0001.wav")},
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTranscribeChunksErrors(t *testing.T) {
	dir := t.TempDir()
	chunks := []media.Chunk{{Path: filepath.Join(dir, "chunk_0001.wav")}}

	_, err := NewWhisper(WithRunner(&fakeWhisper{err: errors.New("killed")})).TranscribeChunks(context.Background(), chunks)
	assert.ErrorContains(t, err, "killed")

	// command succeeded but produced no json
	_, err = NewWhisper(WithRunner(&fakeWhisper{})).TranscribeChunks(context.Background(), chunks)
	assert.ErrorContains(t, err, "read whisper output")

	runner := &fakeWhisper{results: map[string]string{"chunk_0001.wav": `{"segments": [`}}
	_, err = NewWhisper(WithRunner(runner)).TranscribeChunks(context.Background(), chunks)
	assert.ErrorContains(t, err, "parse whisper output")
}

func TestNewWhisperDefaults(t *testing.T) {
	w := NewWhisper(WithModel(""), WithCommand(""))
	assert.Equal(t, DefaultModel, w.Model())
	assert.Equal(t, "whisper", w.command)
	assert.Equal(t, "ja", w.language)
}
