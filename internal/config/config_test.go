package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "DATABASE_URI", "MONGODB_URI", "MONGODB_DATABASE",
	"GOOGLE_APPLICATION_CREDENTIALS", "TRANSCRIBE_PROVIDER", "TRANSCRIBE_MODEL",
	"TRANSCRIBE_LANGUAGE", "TRANSCRIBE_SMART_FORMAT", "DEEPGRAM_API_KEY", "DEEPGRAM_BASE_URL",
	"TRANSCRIBE_TIMEOUT", "TRANSCRIBE_MAX_RETRIES", "TRANSCRIBE_RETRY_BACKOFF",
	"TRANSCRIBE_BREAKER_FAILURES", "TRANSCRIBE_BREAKER_COOLDOWN", "TTS_ENABLED", "TTS_VOICE",
	"STAGING_DIR", "CORS_ALLOWED_ORIGINS",
}

// clearEnv blanks every variable Load reads; Load treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("DEEPGRAM_API_KEY", "  dg-key  ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "mongodb://localhost:27017", cfg.DatabaseURI)
	assert.Empty(t, cfg.MongoDatabase, "database comes from the URI unless MONGODB_DATABASE is set")
	assert.Equal(t, "deepgram", cfg.Transcribe.Provider)
	assert.Equal(t, "nova-2", cfg.Transcribe.Model)
	assert.Equal(t, "en-US", cfg.Transcribe.Language)
	assert.True(t, cfg.Transcribe.SmartFormat)
	assert.Equal(t, "dg-key", cfg.Transcribe.DeepgramAPIKey)
	assert.Equal(t, 30*time.Second, cfg.Transcribe.Timeout)
	assert.Equal(t, 1, cfg.Transcribe.MaxRetries)
	assert.EqualValues(t, 5, cfg.Transcribe.BreakerFailures)
	assert.False(t, cfg.TTS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URI", "sqlite:./tasks.db")
	t.Setenv("MONGODB_URI", "mongodb://ignored")
	t.Setenv("PORT", "8081")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("TRANSCRIBE_PROVIDER", "Google")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	t.Setenv("TRANSCRIBE_SMART_FORMAT", "false")
	t.Setenv("TRANSCRIBE_TIMEOUT", "5s")
	t.Setenv("TRANSCRIBE_MAX_RETRIES", "3")
	t.Setenv("TTS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite:./tasks.db", cfg.DatabaseURI)
	assert.Equal(t, ":8081", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "google", cfg.Transcribe.Provider)
	assert.Equal(t, "latest_long", cfg.Transcribe.Model)
	assert.False(t, cfg.Transcribe.SmartFormat)
	assert.Equal(t, 5*time.Second, cfg.Transcribe.Timeout)
	assert.Equal(t, 3, cfg.Transcribe.MaxRetries)
	assert.True(t, cfg.TTS.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MissingCredential(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPGRAM_API_KEY")
}

func TestLoad_MissingDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URI")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:        "5000",
			DatabaseURI: "sqlite:x.db",
			Transcribe:  TranscribeConfig{Provider: "deepgram", DeepgramAPIKey: "k"},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Port = "http"
	assert.ErrorContains(t, cfg.Validate(), "PORT")

	cfg = valid()
	cfg.Transcribe.Provider = "whisper"
	assert.ErrorContains(t, cfg.Validate(), "not supported")

	cfg = valid()
	cfg.TTS.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "TTS_ENABLED")

	cfg = valid()
	cfg.Transcribe.MaxRetries = -1
	assert.ErrorContains(t, cfg.Validate(), "TRANSCRIBE_MAX_RETRIES")
}

func TestLoad_RejectsUnparseableValues(t *testing.T) {
	cases := map[string]string{
		"TRANSCRIBE_TIMEOUT":          "30",
		"TRANSCRIBE_RETRY_BACKOFF":    "soon",
		"TRANSCRIBE_MAX_RETRIES":      "two",
		"TRANSCRIBE_BREAKER_FAILURES": "-1",
		"TRANSCRIBE_SMART_FORMAT":     "maybe",
		"TTS_ENABLED":                 "yes please",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
			t.Setenv("DEEPGRAM_API_KEY", "key")
			t.Setenv(key, value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), key)
			assert.Contains(t, err.Error(), value)
		})
	}
}

func TestLoad_BreakerFailuresBounds(t *testing.T) {
	for _, value := range []string{"-1", "4294967296", "1e3"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
			t.Setenv("DEEPGRAM_API_KEY", "key")
			t.Setenv("TRANSCRIBE_BREAKER_FAILURES", value)

			_, err := Load()
			assert.ErrorContains(t, err, "TRANSCRIBE_BREAKER_FAILURES")
		})
	}

	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("DEEPGRAM_API_KEY", "key")
	t.Setenv("TRANSCRIBE_BREAKER_FAILURES", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Transcribe.BreakerFailures)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSCRIBE_TIMEOUT", "30")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRANSCRIBE_TIMEOUT")
	assert.Contains(t, err.Error(), "DATABASE_URI")
	assert.Contains(t, err.Error(), "DEEPGRAM_API_KEY")
}

func TestValidate_CredentialNamesComeFromProvider(t *testing.T) {
	cfg := &Config{
		Port:        "5000",
		DatabaseURI: "sqlite:x.db",
		Transcribe:  TranscribeConfig{Provider: "google"},
	}
	assert.ErrorContains(t, cfg.Validate(), "GOOGLE_APPLICATION_CREDENTIALS is required for the google provider")

	cfg.Transcribe.Provider = "deepgram"
	assert.ErrorContains(t, cfg.Validate(), "DEEPGRAM_API_KEY is required for the deepgram provider")
}
