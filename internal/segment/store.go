package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MimeLyc/video-subtitles/pkg/file"
)

// ErrMalformed marks a segments file whose content cannot be parsed or violates segment invariants.
var ErrMalformed = errors.New("malformed segments file")

// Save writes segments and the optional source video path to path and returns path.
func Save(path string, segments []Segment, sourceVideo string) (string, error) {
	if segments == nil {
		segments = []Segment{}
	}
	doc := Document{
		Segments: segments,
		Meta:     Meta{SourceVideo: sourceVideo},
	}

	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	if err := file.WriteAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write segments file %s: %w", path, err)
	}
	return path, nil
}

// Load reads a segments file written by Save. A legitimately empty list loads
// as an empty, non-nil slice.
func Load(path string) ([]Segment, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read segments file %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return doc.Segments, doc.Meta.SourceVideo, nil
}

// Encode renders doc as indented JSON with non-ASCII text left unescaped.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates a segments document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Segments == nil {
		doc.Segments = []Segment{}
	}
	for i, seg := range doc.Segments {
		if err := Validate(seg); err != nil {
			return Document{}, fmt.Errorf("%w: segment %d: %v", ErrMalformed, i, err)
		}
	}
	return doc, nil
}

// Validate checks the timing invariants of a single segment.
func Validate(seg Segment) error {
	if seg.Start < 0 {
		return fmt.Errorf("negative start %v", seg.Start)
	}
	if seg.End < seg.Start {
		return fmt.Errorf("end %v before start %v", seg.End, seg.Start)
	}
	return nil
}
