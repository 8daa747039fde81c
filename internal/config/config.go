package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/MimeLyc/video-subtitles/internal/llm"
	"github.com/MimeLyc/video-subtitles/pkg/icron"
)

// Config holds all application configuration.
// Values come from defaults, then an optional TOML file, then environment
// variables, then Options.
//
// Environment Variables:
// Translation:
// - TRANSLATE_SOURCE_LANG: transcript language (default: ja)
// - TRANSLATE_TARGET_LANG: subtitle translation language (default: ko)
// - TRANSLATOR_PROVIDER: google or llm (default: google)
// - TRANSLATE_BATCH_SIZE: segments per translation request (default: 10)
// - CHECKPOINT_DIR: directory of file checkpoints (default: working directory)
// - CHECKPOINT_BACKEND: file or sqlite (default: file)
//
// LLM (provider llm): LLM_API_KEY, LLM_API_URL, LLM_MODEL, LLM_MAX_TOKENS,
// LLM_TEMPERATURE, LLM_TIMEOUT, LLM_SITE_URL, LLM_APP_NAME
//
// Media:
// - FFMPEG_PATH, FFPROBE_PATH: binaries (default: ffmpeg, ffprobe from PATH)
// - WHISPER_COMMAND: whisper CLI (default: whisper)
// - WHISPER_MODEL: whisper model (default: small)
// - AUDIO_CHUNK_MINUTES: transcription chunk length (default: 5)
//
// Watch:
// - CRON_EXPR: sweep schedule (default: */30 * * * *)
// - WATCH_DIRS: comma separated directories to sweep
//
// System:
// - DATA_DIR: database directory (default: ./data)
// - LOG_LEVEL: debug, info, warn, error (default: info)
type Config struct {
	Translate TranslateConfig `toml:"translate"`
	LLM       llm.Config      `toml:"llm"`
	Media     MediaConfig     `toml:"media"`
	Watch     WatchConfig     `toml:"watch"`
	System    SystemConfig    `toml:"system"`
}

const (
	ProviderGoogle = "google"
	ProviderLLM    = "llm"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type TranslateConfig struct {
	SourceLanguage    language.Tag `toml:"source_lang"`
	TargetLanguage    language.Tag `toml:"target_lang"`
	Provider          string       `toml:"provider"`
	BatchSize         int          `toml:"batch_size"`
	CheckpointDir     string       `toml:"checkpoint_dir"`
	CheckpointBackend string       `toml:"checkpoint_backend"`
}

type MediaConfig struct {
	FFmpegPath     string `toml:"ffmpeg_path"`
	FFprobePath    string `toml:"ffprobe_path"`
	WhisperCommand string `toml:"whisper_command"`
	WhisperModel   string `toml:"whisper_model"`
	ChunkMinutes   int    `toml:"chunk_minutes"`
}

type WatchConfig struct {
	CronExpr string   `toml:"cron_expr"`
	Dirs     []string `toml:"dirs"`
}

type SystemConfig struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

// DBPath is the SQLite database holding queue jobs and checkpoint rows.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "vidsub.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithWhisperModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Media.WhisperModel = model
		}
	}
}

func WithProvider(provider string) Option {
	return func(c *Config) {
		if provider != "" {
			c.Translate.Provider = provider
		}
	}
}

func WithCheckpointBackend(backend string) Option {
	return func(c *Config) {
		if backend != "" {
			c.Translate.CheckpointBackend = backend
		}
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Translate: TranslateConfig{
			SourceLanguage:    language.Japanese,
			TargetLanguage:    language.Korean,
			Provider:          ProviderGoogle,
			BatchSize:         10,
			CheckpointDir:     ".",
			CheckpointBackend: BackendFile,
		},
		LLM: llm.DefaultConfig(),
		Media: MediaConfig{
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
			WhisperCommand: "whisper",
			WhisperModel:   "small",
			ChunkMinutes:   5,
		},
		Watch: WatchConfig{
			CronExpr: "*/30 * * * *",
		},
		System: SystemConfig{
			DataDir:  "./data",
			LogLevel: "info",
		},
	}
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// NewFromEnv builds the configuration from defaults, the TOML file named by
// VIDSUB_CONFIG (if any), environment variables and opts.
func NewFromEnv(opts ...Option) (*Config, error) {
	return Load(os.Getenv("VIDSUB_CONFIG"), opts...)
}

// Load is NewFromEnv with an explicit TOML file path. An empty path skips
// the file.
func Load(path string, opts ...Option) (*Config, error) {
	config := Default()

	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, &config); err != nil {
			return nil, err
		}
	}

	applyEnv(&config)

	for _, opt := range opts {
		opt(&config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeFile(path string, config *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	decoder := toml.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Translate.SourceLanguage = getEnvTag("TRANSLATE_SOURCE_LANG", c.Translate.SourceLanguage)
	c.Translate.TargetLanguage = getEnvTag("TRANSLATE_TARGET_LANG", c.Translate.TargetLanguage)
	c.Translate.Provider = strings.ToLower(getEnvString("TRANSLATOR_PROVIDER", c.Translate.Provider))
	c.Translate.BatchSize = getEnvInt("TRANSLATE_BATCH_SIZE", c.Translate.BatchSize)
	c.Translate.CheckpointDir = getEnvString("CHECKPOINT_DIR", c.Translate.CheckpointDir)
	c.Translate.CheckpointBackend = strings.ToLower(getEnvString("CHECKPOINT_BACKEND", c.Translate.CheckpointBackend))

	c.LLM.APIKey = getEnvString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.APIURL = getEnvString("LLM_API_URL", c.LLM.APIURL)
	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvInt("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.SiteURL = getEnvString("LLM_SITE_URL", c.LLM.SiteURL)
	c.LLM.AppName = getEnvString("LLM_APP_NAME", c.LLM.AppName)

	c.Media.FFmpegPath = getEnvString("FFMPEG_PATH", c.Media.FFmpegPath)
	c.Media.FFprobePath = getEnvString("FFPROBE_PATH", c.Media.FFprobePath)
	c.Media.WhisperCommand = getEnvString("WHISPER_COMMAND", c.Media.WhisperCommand)
	c.Media.WhisperModel = getEnvString("WHISPER_MODEL", c.Media.WhisperModel)
	c.Media.ChunkMinutes = getEnvInt("AUDIO_CHUNK_MINUTES", c.Media.ChunkMinutes)

	c.Watch.CronExpr = getEnvString("CRON_EXPR", c.Watch.CronExpr)
	c.Watch.Dirs = getEnvList("WATCH_DIRS", c.Watch.Dirs)

	c.System.DataDir = getEnvString("DATA_DIR", c.System.DataDir)
	c.System.LogLevel = getEnvString("LOG_LEVEL", c.System.LogLevel)
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("TRANSLATE_BATCH_SIZE must be positive, got %d", c.Translate.BatchSize)
	}
	if c.Media.ChunkMinutes <= 0 {
		return fmt.Errorf("AUDIO_CHUNK_MINUTES must be positive, got %d", c.Media.ChunkMinutes)
	}
	if c.Translate.SourceLanguage == language.Und || c.Translate.TargetLanguage == language.Und {
		return fmt.Errorf("source and target languages are required")
	}
	switch c.Translate.Provider {
	case ProviderGoogle:
	case ProviderLLM:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when TRANSLATOR_PROVIDER is %q", ProviderLLM)
		}
	default:
		return fmt.Errorf("unknown TRANSLATOR_PROVIDER %q (want %q or %q)", c.Translate.Provider, ProviderGoogle, ProviderLLM)
	}
	switch c.Translate.CheckpointBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown CHECKPOINT_BACKEND %q (want %q or %q)", c.Translate.CheckpointBackend, BackendFile, BackendSQLite)
	}
	if err := icron.Validate(c.Watch.CronExpr); err != nil {
		return fmt.Errorf("CRON_EXPR: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvTag parses a BCP 47 tag; an unparseable value yields language.Und so
// validation reports it.
func getEnvTag(key string, defaultValue language.Tag) language.Tag {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und
	}
	return tag
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	ret := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
