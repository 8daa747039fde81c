package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VIDSUB_CONFIG",
		"TRANSLATE_SOURCE_LANG", "TRANSLATE_TARGET_LANG", "TRANSLATOR_PROVIDER", "TRANSLATE_BATCH_SIZE",
		"CHECKPOINT_DIR", "CHECKPOINT_BACKEND",
		"LLM_API_KEY", "LLM_API_URL", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_TIMEOUT",
		"LLM_SITE_URL", "LLM_APP_NAME",
		"FFMPEG_PATH", "FFPROBE_PATH", "WHISPER_COMMAND", "WHISPER_MODEL", "AUDIO_CHUNK_MINUTES",
		"CRON_EXPR", "WATCH_DIRS", "DATA_DIR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, language.Japanese, cfg.Translate.SourceLanguage)
	assert.Equal(t, language.Korean, cfg.Translate.TargetLanguage)
	assert.Equal(t, ProviderGoogle, cfg.Translate.Provider)
	assert.Equal(t, 10, cfg.Translate.BatchSize)
	assert.Equal(t, ".", cfg.Translate.CheckpointDir)
	assert.Equal(t, BackendFile, cfg.Translate.CheckpointBackend)
	assert.Equal(t, "small", cfg.Media.WhisperModel)
	assert.Equal(t, 5, cfg.Media.ChunkMinutes)
	assert.Equal(t, filepath.Join("./data", "vidsub.db"), cfg.DBPath())
}

func TestNewFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSLATE_BATCH_SIZE", "25")
	t.Setenv("TRANSLATOR_PROVIDER", "LLM")
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("WATCH_DIRS", "/videos/a, /videos/b ,,")
	t.Setenv("DATA_DIR", "/tmp/vidsub-data")
	t.Setenv("TRANSLATE_TARGET_LANG", "en")

	cfg, err := NewFromEnv(WithWhisperModel("medium"))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Translate.BatchSize)
	assert.Equal(t, ProviderLLM, cfg.Translate.Provider)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, []string{"/videos/a", "/videos/b"}, cfg.Watch.Dirs)
	assert.Equal(t, filepath.Join("/tmp/vidsub-data", "vidsub.db"), cfg.DBPath())
	assert.Equal(t, language.English, cfg.Translate.TargetLanguage)
	assert.Equal(t, "medium", cfg.Media.WhisperModel)
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "vidsub.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[translate]
batch_size = 4
target_lang = "ko-KR"
checkpoint_backend = "sqlite"

[watch]
cron_expr = "@hourly"
dirs = ["/srv/videos"]

[llm]
model = "openai/gpt-4o-mini"
`), 0o644))
	t.Setenv("TRANSLATE_BATCH_SIZE", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Translate.BatchSize, "env wins over the file")
	assert.Equal(t, "ko-KR", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, BackendSQLite, cfg.Translate.CheckpointBackend)
	assert.Equal(t, "@hourly", cfg.Watch.CronExpr)
	assert.Equal(t, []string{"/srv/videos"}, cfg.Watch.Dirs)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "small", cfg.Media.WhisperModel, "unset keys keep defaults")
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "open config")

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[translate]\nbatchsize = 3\n"), 0o644))
	_, err = Load(unknown)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"zero batch", map[string]string{"TRANSLATE_BATCH_SIZE": "0"}, "TRANSLATE_BATCH_SIZE"},
		{"negative chunk", map[string]string{"AUDIO_CHUNK_MINUTES": "-1"}, "AUDIO_CHUNK_MINUTES"},
		{"unknown provider", map[string]string{"TRANSLATOR_PROVIDER": "deepl"}, "TRANSLATOR_PROVIDER"},
		{"llm without key", map[string]string{"TRANSLATOR_PROVIDER": "llm"}, "LLM_API_KEY"},
		{"bad backend", map[string]string{"CHECKPOINT_BACKEND": "redis"}, "CHECKPOINT_BACKEND"},
		{"bad cron", map[string]string{"CRON_EXPR": "every minute"}, "CRON_EXPR"},
		{"bad language", map[string]string{"TRANSLATE_TARGET_LANG": "not a tag!"}, "languages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WHISPER_MODEL=large-v3\nLOG_LEVEL=debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")
	// godotenv only fills unset variables; t.Setenv("", ...) leaves WHISPER_MODEL set but empty
	require.NoError(t, os.Unsetenv("WHISPER_MODEL"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	t.Cleanup(func() { _ = os.Unsetenv("WHISPER_MODEL") })

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "large-v3", cfg.Media.WhisperModel)
	assert.Equal(t, "warn", cfg.System.LogLevel)
}
