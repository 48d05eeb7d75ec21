package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"VoiceTaskManager_Backend/internal/transcribe"
)

type TranscribeConfig struct {
	Provider    string
	Model       string
	Language    string
	SmartFormat bool

	DeepgramAPIKey  string
	DeepgramBaseURL string

	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type TTSConfig struct {
	Enabled bool
	Voice   string
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURI   string
	MongoDatabase string

	// GoogleCredentialsFile is shared by Speech-to-Text and Text-to-Speech.
	GoogleCredentialsFile string

	Transcribe TranscribeConfig
	TTS        TTSConfig

	StagingDir         string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Load reads configuration from the environment and validates it.
// Unparseable values are reported rather than replaced by defaults.
func Load() (*Config, error) {
	var env envReader

	provider := strings.ToLower(env.str("TRANSCRIBE_PROVIDER", transcribe.ProviderDeepgram))
	defaultModel := ""
	if p, ok := transcribe.GetProvider(provider); ok {
		defaultModel = p.DefaultModel
	}

	cfg := &Config{
		Port:        env.str("PORT", "5000"),
		Environment: env.str("ENVIRONMENT", "production"),
		LogLevel:    env.str("LOG_LEVEL", "info"),

		DatabaseURI:   env.str("DATABASE_URI", env.str("MONGODB_URI", "")),
		MongoDatabase: env.str("MONGODB_DATABASE", ""),

		GoogleCredentialsFile: env.str("GOOGLE_APPLICATION_CREDENTIALS", ""),

		Transcribe: TranscribeConfig{
			Provider:    provider,
			Model:       env.str("TRANSCRIBE_MODEL", defaultModel),
			Language:    env.str("TRANSCRIBE_LANGUAGE", "en-US"),
			SmartFormat: env.boolean("TRANSCRIBE_SMART_FORMAT", true),

			DeepgramAPIKey:  strings.TrimSpace(env.str("DEEPGRAM_API_KEY", "")),
			DeepgramBaseURL: env.str("DEEPGRAM_BASE_URL", transcribe.DefaultDeepgramBaseURL),

			Timeout:         env.duration("TRANSCRIBE_TIMEOUT", 30*time.Second),
			MaxRetries:      env.integer("TRANSCRIBE_MAX_RETRIES", 1),
			RetryBackoff:    env.duration("TRANSCRIBE_RETRY_BACKOFF", 500*time.Millisecond),
			BreakerFailures: env.count("TRANSCRIBE_BREAKER_FAILURES", 5),
			BreakerCooldown: env.duration("TRANSCRIBE_BREAKER_COOLDOWN", 30*time.Second),
		},
		TTS: TTSConfig{
			Enabled: env.boolean("TTS_ENABLED", false),
			Voice:   env.str("TTS_VOICE", "en-US-Wavenet-D"),
		},

		StagingDir:         env.str("STAGING_DIR", filepath.Join(os.TempDir(), "voicetasks")),
		CORSAllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout:    10 * time.Second,
	}

	if err := errors.Join(env.err(), cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the process cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI (or MONGODB_URI) is required"))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port))
	}

	if p, ok := transcribe.GetProvider(c.Transcribe.Provider); !ok {
		errs = append(errs, fmt.Errorf("TRANSCRIBE_PROVIDER %q is not supported", c.Transcribe.Provider))
	} else if c.providerCredential() == "" {
		errs = append(errs, fmt.Errorf("%s is required for the %s provider", p.CredentialEnv, c.Transcribe.Provider))
	}

	if c.TTS.Enabled && c.GoogleCredentialsFile == "" {
		google, _ := transcribe.GetProvider(transcribe.ProviderGoogle)
		errs = append(errs, fmt.Errorf("%s is required when TTS_ENABLED is set", google.CredentialEnv))
	}
	if c.Transcribe.MaxRetries < 0 {
		errs = append(errs, errors.New("TRANSCRIBE_MAX_RETRIES must not be negative"))
	}
	if c.Transcribe.Timeout < 0 || c.Transcribe.RetryBackoff < 0 || c.Transcribe.BreakerCooldown < 0 {
		errs = append(errs, errors.New("transcription durations must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) providerCredential() string {
	switch c.Transcribe.Provider {
	case transcribe.ProviderDeepgram:
		return c.Transcribe.DeepgramAPIKey
	case transcribe.ProviderGoogle:
		return c.GoogleCredentialsFile
	}
	return ""
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// envReader reads typed variables and remembers every value it could
// not parse. Empty and unset are both treated as unset.
type envReader struct {
	errs []error
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}

func (e *envReader) fail(key, value, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s must be %s, got %q", key, want, value))
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) boolean(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, "a boolean")
		return def
	}
	return b
}

func (e *envReader) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "an integer")
		return def
	}
	return i
}

// count reads a non-negative integer that fits in uint32.
func (e *envReader) count(key string, def uint32) uint32 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 || n > math.MaxUint32 {
		e.fail(key, v, "a non-negative integer")
		return def
	}
	return uint32(n)
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, `a duration such as "30s"`)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
