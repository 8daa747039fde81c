package translator

import (
	"context"
	"errors"
)

// DefaultBatchSize is the number of segments sent per Translate call.
const DefaultBatchSize = 10

// ErrTranslationFailed wraps capability errors returned by the batch engine.
var ErrTranslationFailed = errors.New("translation failed")

// Translator converts text from a source language to a target language fixed
// at construction. Multi-line input is expected to come back with the same
// number of lines, but callers must not rely on it.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Progress is reported after every checkpointed batch.
type Progress struct {
	BatchStart int // first index of the batch
	BatchEnd   int // exclusive
	Total      int
	Resumed    int // segments restored from the checkpoint when the run started
	Fallback   bool
}
