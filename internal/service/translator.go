package service

import (
	"fmt"

	"github.com/MimeLyc/video-subtitles/internal/config"
	"github.com/MimeLyc/video-subtitles/internal/llm"
	"github.com/MimeLyc/video-subtitles/internal/translator"
)

// NewTranslator builds the translation capability named by
// cfg.Translate.Provider for the configured language pair.
func NewTranslator(cfg config.Config) (translator.Translator, error) {
	source := cfg.Translate.SourceLanguage
	target := cfg.Translate.TargetLanguage

	switch cfg.Translate.Provider {
	case config.ProviderGoogle, "":
		return translator.NewGoogleTranslator(source, target), nil
	case config.ProviderLLM:
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		return translator.NewLLMTranslator(client, source, target), nil
	default:
		return nil, fmt.Errorf("unknown translator provider %q", cfg.Translate.Provider)
	}
}
