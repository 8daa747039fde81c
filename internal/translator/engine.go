package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/video-subtitles/internal/checkpoint"
	"github.com/MimeLyc/video-subtitles/internal/segment"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

const lineBreaker = "\n"

type EngineOption func(*BatchEngine)

func WithBatchSize(size int) EngineOption {
	return func(e *BatchEngine) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

func WithProgress(fn func(Progress)) EngineOption {
	return func(e *BatchEngine) {
		e.progress = fn
	}
}

// BatchEngine translates a segment list in fixed-size batches and checkpoints
// after every batch so an interrupted job resumes where it stopped.
// Batches run strictly in ascending order; one engine owns a store at a time.
type BatchEngine struct {
	translator Translator
	store      checkpoint.Store
	batchSize  int
	progress   func(Progress)
}

func NewBatchEngine(t Translator, store checkpoint.Store, opts ...EngineOption) *BatchEngine {
	e := &BatchEngine{
		translator: t,
		store:      store,
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BatchEngine) BatchSize() int {
	return e.batchSize
}

// TranslateSegments returns a new list with the same length, order and timings
// as segments and every text replaced by its translation. The checkpoint is
// cleared once every segment has been translated.
func (e *BatchEngine) TranslateSegments(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error) {
	if e.translator == nil {
		return nil, fmt.Errorf("translator not set")
	}
	if e.store == nil {
		return nil, fmt.Errorf("checkpoint store not set")
	}

	total := len(segments)
	cp, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp.SegmentCount != 0 && cp.SegmentCount != total {
		log.Warn("Checkpoint was saved for %d segments, got %d; starting over", cp.SegmentCount, total)
		cp = checkpoint.Fresh()
	}
	if cp.Translations == nil {
		cp.Translations = make(map[int]string)
	}
	cp.SegmentCount = total

	startIndex := min(cp.LastCompleted+1, total)
	if startIndex < 0 {
		startIndex = 0
	}

	results := make([]string, total)
	resumed := 0
	for idx, text := range cp.Translations {
		if idx >= 0 && idx < total {
			results[idx] = text
			resumed++
		}
	}
	if startIndex > 0 {
		log.Info("Resuming translation at segment %d/%d (%d translations restored)", startIndex, total, resumed)
	}

	for batchStart := startIndex; batchStart < total; batchStart += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchEnd := min(batchStart+e.batchSize, total)

		lines, fallback, err := e.translateBatch(ctx, segments[batchStart:batchEnd])
		if err != nil {
			return nil, fmt.Errorf("%w for segments %d-%d: %w", ErrTranslationFailed, batchStart, batchEnd-1, err)
		}
		for i, line := range lines {
			results[batchStart+i] = line
			cp.Translations[batchStart+i] = line
		}

		cp.LastCompleted = batchEnd - 1
		if err := e.store.Save(ctx, cp); err != nil {
			return nil, fmt.Errorf("save checkpoint after segment %d: %w", cp.LastCompleted, err)
		}

		log.Debug("Translated segments %d-%d of %d", batchStart, batchEnd-1, total)
		if e.progress != nil {
			e.progress(Progress{
				BatchStart: batchStart,
				BatchEnd:   batchEnd,
				Total:      total,
				Resumed:    resumed,
				Fallback:   fallback,
			})
		}
	}

	if err := e.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear checkpoint: %w", err)
	}

	ret := make([]segment.Segment, total)
	for i, seg := range segments {
		ret[i] = segment.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  results[i],
		}
	}
	return ret, nil
}

// translateBatch sends the batch as one newline-joined request. When the reply
// does not have one line per segment the batch is retried one segment at a
// time instead of guessing how lines map to segments.
func (e *BatchEngine) translateBatch(ctx context.Context, batch []segment.Segment) ([]string, bool, error) {
	texts := make([]string, len(batch))
	for i, seg := range batch {
		texts[i] = flattenLine(seg.Text)
	}

	reply, err := e.translator.Translate(ctx, strings.Join(texts, lineBreaker))
	if err != nil {
		return nil, false, err
	}
	if len(batch) == 1 {
		return []string{strings.TrimSpace(reply)}, false, nil
	}

	lines := splitLines(reply)
	if len(lines) == len(batch) {
		return lines, false, nil
	}

	log.Warn("Translation returned %d lines for %d segments, translating the batch one segment at a time", len(lines), len(batch))
	ret := make([]string, len(batch))
	for i, text := range texts {
		translated, err := e.translator.Translate(ctx, text)
		if err != nil {
			return nil, true, err
		}
		ret[i] = strings.TrimSpace(translated)
	}
	return ret, true, nil
}

// flattenLine keeps a segment on a single line of the batch request.
func flattenLine(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}

func splitLines(reply string) []string {
	reply = strings.ReplaceAll(reply, "\r\n", "\n")
	reply = strings.TrimRight(reply, "\n")
	parts := strings.Split(reply, "\n")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
