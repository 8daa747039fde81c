package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned when another process already owns a checkpoint.
var ErrLocked = errors.New("checkpoint is locked by another run")

// Checkpoint records how far a batch translation job has progressed.
// LastCompleted is -1 until the first batch completes. SegmentCount is the
// length of the segment list the job was started with; zero means unknown.
type Checkpoint struct {
	LastCompleted int
	SegmentCount  int
	Translations  map[int]string
}

// Fresh returns the state of a job that has not completed any batch.
func Fresh() Checkpoint {
	return Checkpoint{
		LastCompleted: -1,
		Translations:  make(map[int]string),
	}
}

// Clone returns a deep copy so stores never share the caller's map.
func (c Checkpoint) Clone() Checkpoint {
	ret := Checkpoint{
		LastCompleted: c.LastCompleted,
		SegmentCount:  c.SegmentCount,
		Translations:  make(map[int]string, len(c.Translations)),
	}
	for k, v := range c.Translations {
		ret.Translations[k] = v
	}
	return ret
}

// Store persists the checkpoint of a single translation job.
//
// Load returns Fresh() when nothing is stored or the stored state cannot be
// parsed. Save replaces the stored state atomically. Clear is idempotent.
type Store interface {
	Load(ctx context.Context) (Checkpoint, error)
	Save(ctx context.Context, cp Checkpoint) error
	Clear(ctx context.Context) error
}

// Summary describes an outstanding checkpoint for status listings.
type Summary struct {
	JobID         string
	LastCompleted int
	Translated    int
	UpdatedAt     time.Time
}

// document is the persisted form. JSON turns the int keys into strings.
type document struct {
	LastCompletedIndex int            `json:"last_completed_index"`
	SegmentCount       int            `json:"segment_count,omitempty"`
	Translations       map[int]string `json:"translations"`
}

// Encode serializes cp for storage.
func Encode(cp Checkpoint) ([]byte, error) {
	translations := cp.Translations
	if translations == nil {
		translations = map[int]string{}
	}
	return json.MarshalIndent(document{
		LastCompletedIndex: cp.LastCompleted,
		SegmentCount:       cp.SegmentCount,
		Translations:       translations,
	}, "", "  ")
}

// Decode parses stored bytes. Any error means the state is corrupt.
func Decode(data []byte) (Checkpoint, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Checkpoint{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	if doc.LastCompletedIndex < -1 {
		return Checkpoint{}, fmt.Errorf("invalid last_completed_index %d", doc.LastCompletedIndex)
	}
	for idx := range doc.Translations {
		if idx < 0 {
			return Checkpoint{}, fmt.Errorf("invalid translation index %d", idx)
		}
	}
	if doc.SegmentCount < 0 {
		return Checkpoint{}, fmt.Errorf("invalid segment_count %d", doc.SegmentCount)
	}
	if doc.Translations == nil {
		doc.Translations = make(map[int]string)
	}
	return Checkpoint{
		LastCompleted: doc.LastCompletedIndex,
		SegmentCount:  doc.SegmentCount,
		Translations:  doc.Translations,
	}, nil
}
