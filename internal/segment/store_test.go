package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		segments []Segment
		video    string
	}{
		{
			name: "with source video",
			segments: []Segment{
				{Start: 0, End: 2.48, Text: "こんにちは"},
				{Start: 2.48, End: 5.1234567, Text: "今日はいい天気ですね"},
			},
			video: "/videos/episode01.mp4",
		},
		{
			name:     "without source video",
			segments: []Segment{{Start: 300.02, End: 301, Text: "<b>&</b>"}},
		},
		{
			name:     "empty list",
			segments: []Segment{},
			video:    "/videos/silent.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "segments.json")
			got, err := Save(path, tt.segments, tt.video)
			require.NoError(t, err)
			assert.Equal(t, path, got)

			segments, video, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.segments, segments)
			assert.Equal(t, tt.video, video)
		})
	}
}

func TestSave_WritesReadableDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.json")
	_, err := Save(path, []Segment{{Start: 1, End: 2, Text: "日本語"}}, "")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "日本語")
	assert.Contains(t, string(data), `"meta": {}`)
	assert.NotContains(t, string(data), "source_video")
}

func TestSave_NilListWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.json")
	_, err := Save(path, nil, "")
	require.NoError(t, err)

	segments, _, err := Load(path)
	require.NoError(t, err)
	assert.NotNil(t, segments)
	assert.Empty(t, segments)
}

func TestSave_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Save(filepath.Join(blocker, "segments.json"), []Segment{{Start: 0, End: 1, Text: "a"}}, "")
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{segments: oops"},
		{name: "wrong type", content: `{"segments": "nope"}`},
		{name: "end before start", content: `{"segments": [{"start": 2, "end": 1, "text": "a"}], "meta": {}}`},
		{name: "negative start", content: `{"segments": [{"start": -1, "end": 1, "text": "a"}], "meta": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "segments.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, _, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoad_MissingSegmentsField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"meta": {"source_video": "/v.mp4"}}`), 0o644))

	segments, video, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, segments)
	assert.Equal(t, "/v.mp4", video)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetectLanguage(t *testing.T) {
	segments := []Segment{
		{Text: "Hello, how are you doing today?"},
		{Text: "今日はとてもいい天気ですね。散歩に行きましょう。"},
		{Text: "これは日本語の文章です。よろしくお願いします。"},
	}
	assert.Equal(t, language.Japanese, DetectLanguage(segments))
	assert.Equal(t, language.Und, DetectLanguage(nil))
}
