/**
* Name: 			app.go
* Description: 		Process wiring and lifecycle
* Workflow: 		config -> store, transcriber, feed -> router -> http.Server -> graceful shutdown
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"VoiceTaskManager_Backend/internal/config"
	"VoiceTaskManager_Backend/internal/feed"
	"VoiceTaskManager_Backend/internal/handler"
	"VoiceTaskManager_Backend/internal/metrics"
	"VoiceTaskManager_Backend/internal/staging"
	"VoiceTaskManager_Backend/internal/storage"
	"VoiceTaskManager_Backend/internal/transcribe"
	"VoiceTaskManager_Backend/internal/tts"

	"go.uber.org/zap"
)

const metricsNamespace = "voicetasks"

type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server
	hub     *feed.Hub
	closers []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := storage.Open(ctx, cfg.DatabaseURI, storage.Options{MongoDatabase: cfg.MongoDatabase})
	if err != nil {
		return nil, fmt.Errorf("app.New(): failed to open task store: %w", err)
	}
	a.closers = append(a.closers, store)

	provider, closer, err := newProvider(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	transcriber := transcribe.NewResilient(cfg.Transcribe.Provider, provider, transcribe.Policy{
		Timeout:         cfg.Transcribe.Timeout,
		MaxRetries:      cfg.Transcribe.MaxRetries,
		Backoff:         cfg.Transcribe.RetryBackoff,
		BreakerFailures: cfg.Transcribe.BreakerFailures,
		BreakerCooldown: cfg.Transcribe.BreakerCooldown,
	}, logger.Named("transcribe"))

	stager, err := staging.NewStager(cfg.StagingDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("app.New(): failed to prepare staging directory: %w", err)
	}

	var synth tts.Synthesizer
	if cfg.TTS.Enabled {
		g, err := tts.NewGoogleSynthesizer(ctx, cfg.GoogleCredentialsFile,
			tts.Voice{LanguageCode: cfg.Transcribe.Language, Name: cfg.TTS.Voice}, logger.Named("tts"))
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, g)
		synth = g
	}

	if p, ok := transcribe.GetProvider(cfg.Transcribe.Provider); ok {
		logger.Info("app.New(): transcription configured",
			zap.String("provider", p.Name),
			zap.String("description", p.Description),
			zap.String("model", cfg.Transcribe.Model),
			zap.String("staging_dir", stager.Dir()))
	}

	a.hub = feed.NewHub(logger.Named("feed"))
	collector := metrics.NewCollector(metricsNamespace)

	h := handler.New(handler.Deps{
		Store:       store,
		Transcriber: transcriber,
		Breaker:     transcriber,
		Provider:    cfg.Transcribe.Provider,
		Options: transcribe.Options{
			Model:       cfg.Transcribe.Model,
			Language:    cfg.Transcribe.Language,
			SmartFormat: cfg.Transcribe.SmartFormat,
		},
		Stager:      stager,
		Synthesizer: synth,
		Feed:        a.hub,
		Metrics:     collector,
		Logger:      logger,
	})

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(h, collector, logger, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout(cfg.Transcribe),
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func newProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (transcribe.Transcriber, io.Closer, error) {
	switch cfg.Transcribe.Provider {
	case transcribe.ProviderDeepgram:
		client, err := transcribe.NewDeepgramClient(cfg.Transcribe.DeepgramAPIKey, cfg.Transcribe.DeepgramBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("app.New(): %w", err)
		}
		return client, nil, nil
	case transcribe.ProviderGoogle:
		client, err := transcribe.NewGoogleClient(ctx, cfg.GoogleCredentialsFile, logger.Named("speech"))
		if err != nil {
			return nil, nil, fmt.Errorf("app.New(): %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("app.New(): unsupported transcription provider %q", cfg.Transcribe.Provider)
	}
}

// writeTimeout leaves room for every transcription attempt plus the
// backoff between them.
func writeTimeout(tc config.TranscribeConfig) time.Duration {
	if tc.Timeout <= 0 {
		return 0
	}
	attempts := time.Duration(tc.MaxRetries + 1)
	return attempts*(tc.Timeout+tc.RetryBackoff) + 30*time.Second
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	serveErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	a.logger.Info("Run(): listening",
		zap.String("addr", a.server.Addr),
		zap.String("environment", a.cfg.Environment),
		zap.String("transcribe_provider", a.cfg.Transcribe.Provider),
		zap.Bool("tts_enabled", a.cfg.TTS.Enabled),
	)

	select {
	case err := <-serveErr:
		return fmt.Errorf("Run(): http server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Run(): shutting down", zap.Duration("timeout", a.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Run(): graceful shutdown failed: %w", err)
	}
	return nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close(): failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
}
