package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/MimeLyc/video-subtitles/internal/segment"
)

var timeRangePattern = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`)

// SRTReader reads SubRip files.
type SRTReader struct{}

func NewReader() Reader {
	return &SRTReader{}
}

func (r *SRTReader) Read(path string) ([]segment.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	return ParseSRT(data)
}

// ParseSRT parses SRT content. Multi-line cue text is joined with a space so
// every segment stays on one line. A cue with a time line but no text is kept
// with empty text.
func ParseSRT(data []byte) ([]segment.Segment, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	scanner := bufio.NewScanner(bytes.NewReader(data))

	ret := make([]segment.Segment, 0)
	var current segment.Segment
	var textLines []string
	state := "index" // index, time, text

	flush := func() {
		current.Text = strings.Join(textLines, " ")
		ret = append(ret, current)
		current = segment.Segment{}
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch state {
		case "index":
			if line == "" {
				continue
			}
			if _, err := strconv.Atoi(line); err != nil {
				continue
			}
			state = "time"
		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseTimeRange(line)
			if err != nil {
				return nil, err
			}
			current.Start = start
			current.End = end
			state = "text"
		case "text":
			if line == "" {
				flush()
				state = "index"
				continue
			}
			textLines = append(textLines, line)
		}
	}
	if state == "text" {
		flush()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan subtitle content: %w", err)
	}
	return ret, nil
}

func parseTimeRange(line string) (float64, float64, error) {
	m := timeRangePattern.FindStringSubmatch(line)
	if len(m) != 9 {
		return 0, 0, fmt.Errorf("invalid time range: %s", line)
	}
	return toSeconds(m[1], m[2], m[3], m[4]), toSeconds(m[5], m[6], m[7], m[8]), nil
}

func toSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	secs, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	totalMs := ((hours*60+minutes)*60+secs)*1000 + millis
	return float64(totalMs) / 1000
}
