package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"audio-translation-service/internal/config"
	"audio-translation-service/internal/domain/ports/adapter"
	sttAdapters "audio-translation-service/internal/infra/adapters/stt"
	trAdapters "audio-translation-service/internal/infra/adapters/translate"
	ttsAdapters "audio-translation-service/internal/infra/adapters/tts"
	pg "audio-translation-service/internal/infra/db/postgres"
	"audio-translation-service/internal/infra/logging"
	"audio-translation-service/internal/infra/metrics"
	red "audio-translation-service/internal/infra/redis"
	"audio-translation-service/internal/infra/web"
	"audio-translation-service/internal/pipeline"
	"audio-translation-service/internal/storage"
	"audio-translation-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: noop providers, header auth")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled: providers are noops, X-Owner-ID auth accepted")
	}

	// ---- Storage ----
	store, err := storage.NewStore(cfg.Storage.Root)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema")
	}
	jobRepo := pg.NewJobRepo(pool)

	// ---- Redis (optional) ----
	var (
		locker      pipeline.Locker
		rateLimiter ttsAdapters.RateLimiter
		redisClient *red.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewJobLocker(redisClient, cfg.Redis.LockTTL)
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Info().Msg("redis not configured, using in-process lock and no provider rate limit")
		locker = pipeline.NewMemoryLocker()
	}

	// ---- Providers ----
	stt, translator, tts := buildProviders(ctx, cfg, logger)
	stt = sttAdapters.NewLimitedSTT(stt, cfg.Pipeline.STTConcurrency)
	translator = trAdapters.NewLimitedTranslator(translator, cfg.Pipeline.TranslateConcurrency)
	tts = ttsAdapters.NewRateLimitedTTS(tts, rateLimiter, red.TTSRequestKey, cfg.Pipeline.TTSRequestsPerMinute)
	if redisClient != nil {
		tts = red.NewCachedTTS(tts, redisClient, time.Hour)
	}
	tts = ttsAdapters.NewLimitedTTS(tts, cfg.Pipeline.TTSConcurrency)

	// ---- Pipeline ----
	var counter pipeline.TokenCounter
	if tk, err := pipeline.NewTiktokenCounter(); err == nil {
		counter = tk
	} else {
		logger.Warn().Err(err).Msg("tiktoken unavailable, using heuristic token counts")
		counter = pipeline.HeuristicCounter{}
	}

	synth := pipeline.NewSynthesizeStage(tts, cfg.Storage.FFmpeg, cfg.Pipeline.SpeakingRate, cfg.Pipeline.SynthesizeTimeout)
	stages := []pipeline.Stage{
		pipeline.NewPreprocessStage(cfg.Storage.FFmpeg),
		pipeline.NewTranscribeStage(stt, cfg.Pipeline.TranscribeTimeout),
		pipeline.NewFormatStage(),
		pipeline.NewTranslateStage(translator, counter, cfg.Pipeline.ChunkTokens),
		pipeline.NewMergeStage(),
		pipeline.NewCleanStage(),
		synth,
	}

	workers := pipeline.NewPool(cfg.Pipeline.Workers, logger)
	workers.Start(ctx)
	defer workers.Stop()

	orch := pipeline.NewOrchestrator(jobRepo, store, workers, locker, stages, logger)
	versions := pipeline.NewVersionManager(jobRepo, store, workers, locker, synth, tts, logger)

	var injector *pipeline.Injector
	if cfg.Pipeline.TestMode {
		logger.Warn().Msg("test mode enabled: fault injection route registered")
		injector = pipeline.NewInjector(jobRepo, logger)
	}

	// ---- Web ----
	uc := usecase.NewTranslationUseCase(jobRepo, store, orch, versions, tts, logger)
	srv := web.NewServer(uc, injector, cfg.Server.AuthSecret, cfg.Runtime.Dev, cfg.Server.MaxUploadMB, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildProviders selects real or noop provider adapters. Dev mode always runs
// on noops; outside dev mode every provider key is required.
func buildProviders(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.SpeechToText, adapter.Translator, adapter.TextToSpeech) {
	if cfg.Runtime.Dev {
		return sttAdapters.NewNoopSTT(), trAdapters.NewNoopTranslator(), ttsAdapters.NewNoopTTS()
	}
	stt, err := sttAdapters.NewAssemblyAIAdapter(cfg.Providers.AssemblyAIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("assemblyai adapter")
	}
	translator, err := trAdapters.NewGeminiTranslator(ctx, cfg.Providers.GeminiKey, cfg.Providers.GeminiURL, cfg.Providers.GeminiModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini adapter")
	}
	tts, err := ttsAdapters.NewGoogleTTSAdapter(cfg.Providers.GoogleTTSKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("google tts adapter")
	}
	if cfg.Providers.OpenAIKey == "" {
		return stt, translator, tts
	}
	whisper, err := sttAdapters.NewWhisperAdapter(cfg.Providers.OpenAIKey, cfg.Providers.OpenAIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("whisper adapter")
	}
	openaiTTS, err := ttsAdapters.NewOpenAITTSAdapter(cfg.Providers.OpenAIKey, cfg.Providers.OpenAIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("openai tts adapter")
	}
	return sttAdapters.NewFallbackSTT(stt, whisper),
		translator,
		ttsAdapters.NewFallbackTTS(tts, openaiTTS)
}
