package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/video-subtitles/internal/segment"
)

func TestParseSRT(t *testing.T) {
	data := []byte("\xef\xbb\xbf1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\nthere\r\n\r\n2\r\n00:00:03.000 --> 00:00:04.000\r\nWorld\r\n")

	got, err := ParseSRT(data)
	require.NoError(t, err)
	assert.Equal(t, []segment.Segment{
		{Start: 1, End: 2.5, Text: "Hello there"},
		{Start: 3, End: 4, Text: "World"},
	}, got)
}

func TestParseSRT_InvalidTime(t *testing.T) {
	_, err := ParseSRT([]byte("1\nnot a time\nHello\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time range")
}

func TestParseSRT_Empty(t *testing.T) {
	got, err := ParseSRT(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseSRT_KeepsCueWithoutText(t *testing.T) {
	segments := []segment.Segment{
		{Start: 0, End: 1, Text: "하나"},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "셋"},
	}

	got, err := ParseSRT([]byte(Render(segments)))
	require.NoError(t, err)
	assert.Equal(t, segments, got)
}
