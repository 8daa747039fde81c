package subtitle

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MimeLyc/video-subtitles/internal/segment"
)

// SRTWriter writes SubRip files.
type SRTWriter struct{}

func NewWriter() Writer {
	return &SRTWriter{}
}

func (w *SRTWriter) Write(path string, segments []segment.Segment) (string, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(Render(segments)), 0o644); err != nil {
		return "", fmt.Errorf("write subtitle file: %w", err)
	}
	return path, nil
}

// Render converts segments to SRT text: a 1-based index, the time range, the
// text and a blank line between entries.
func Render(segments []segment.Segment) string {
	lines := make([]string, 0, len(segments)*4)
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			FormatTimestamp(seg.Start)+" --> "+FormatTimestamp(seg.End),
			seg.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm, rounding to the nearest millisecond.
func FormatTimestamp(seconds float64) string {
	totalMs := int64(math.Round(seconds * 1000))
	if totalMs < 0 {
		totalMs = 0
	}
	hours := totalMs / 3_600_000
	minutes := (totalMs % 3_600_000) / 60_000
	secs := (totalMs % 60_000) / 1000
	millis := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
