package subtitle

import "github.com/MimeLyc/video-subtitles/internal/segment"

// Writer renders segments to a subtitle file and returns the written path.
type Writer interface {
	Write(path string, segments []segment.Segment) (string, error)
}

// Reader parses a subtitle file back into segments.
type Reader interface {
	Read(path string) ([]segment.Segment, error)
}
