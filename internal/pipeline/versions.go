package pipeline

import (
	"context"
	"fmt"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/domain/ports/repository"
	"audio-translation-service/internal/infra/logging"
	"audio-translation-service/internal/infra/metrics"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

// RegenerateParams are the caller-chosen knobs for one regeneration.
// Zero-valued fields fall back to defaults: rate to the configured default,
// transcript source to TARGET.
type RegenerateParams struct {
	VoiceMappings    map[string]string
	SpeakingRate     float64
	TranscriptSource model.TranscriptSource
}

// VersionManager regenerates audio for completed jobs. Each successful run
// appends one AudioVersion; failed runs append nothing, so version numbers
// count successful regenerations only.
type VersionManager struct {
	repo   repository.JobRepository
	store  *storage.Store
	pool   *Pool
	locker Locker
	synth  *SynthesizeStage
	tts    adapter.TextToSpeech
	log    *zerolog.Logger
}

func NewVersionManager(repo repository.JobRepository, store *storage.Store, pool *Pool, locker Locker, synth *SynthesizeStage, tts adapter.TextToSpeech, log *zerolog.Logger) *VersionManager {
	return &VersionManager{repo: repo, store: store, pool: pool, locker: locker, synth: synth, tts: tts, log: log}
}

// Regenerate validates the request, takes the job lock and launches the
// synthesis run in the background. The returned version number is the one the
// run will carry if it succeeds.
func (m *VersionManager) Regenerate(ctx context.Context, jobID string, params RegenerateParams) (int, error) {
	job, err := m.repo.FindByID(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != model.StatusCompleted {
		return 0, fmt.Errorf("job %s is %s; audio can only be regenerated after completion: %w", jobID, job.Status, domain.ErrInvalidState)
	}
	if params.TranscriptSource == "" {
		params.TranscriptSource = model.TranscriptTarget
	}
	if err := m.validate(ctx, job, params); err != nil {
		return 0, err
	}

	token, err := m.locker.TryLock(ctx, jobID)
	if err != nil {
		return 0, err
	}

	version := job.NextVersion()
	job.Message = fmt.Sprintf("Regenerating audio (version %d)...", version)
	job.UpdatedAt = time.Now()
	if err := m.repo.Save(ctx, job); err != nil {
		m.locker.Unlock(ctx, jobID, token)
		return 0, fmt.Errorf("save regeneration message: %w", err)
	}

	task := func(runCtx context.Context) error {
		defer m.locker.Unlock(context.Background(), jobID, token)
		holdCtx, stopHold := context.WithCancel(runCtx)
		defer stopHold()
		go holdLock(holdCtx, m.locker, jobID, token, lockRefreshInterval, m.log)
		return m.run(runCtx, job, version, params)
	}
	if err := m.pool.Submit(task); err != nil {
		m.locker.Unlock(ctx, jobID, token)
		return 0, fmt.Errorf("submit regeneration: %w", err)
	}
	return version, nil
}

func (m *VersionManager) validate(ctx context.Context, job *model.TranslationJob, params RegenerateParams) error {
	if !params.TranscriptSource.Valid() {
		return fmt.Errorf("unknown transcript source %q: %w", params.TranscriptSource, domain.ErrValidation)
	}
	if r := params.SpeakingRate; r != 0 && (r < model.SpeakingRateMin || r > model.SpeakingRateMax) {
		return fmt.Errorf("speaking rate %.2f outside [%.1f, %.1f]: %w", r, model.SpeakingRateMin, model.SpeakingRateMax, domain.ErrValidation)
	}
	if len(params.VoiceMappings) == 0 {
		return nil
	}

	// Mappings always resolve against the target catalog; regenerating from
	// the source transcript changes the text, not the voice bank.
	language := job.TargetLanguage
	catalog, err := m.tts.ListVoices(ctx, language)
	if err != nil {
		return fmt.Errorf("list voices for %q: %w", language, err)
	}
	known := make(map[string]bool, len(catalog))
	for _, v := range catalog {
		known[v.Name] = true
	}
	for speaker, voice := range params.VoiceMappings {
		if !job.HasSpeaker(speaker) {
			return fmt.Errorf("unknown speaker %q: %w", speaker, domain.ErrValidation)
		}
		if !known[voice] {
			return fmt.Errorf("unknown voice %q for language %q: %w", voice, language, domain.ErrValidation)
		}
	}
	return nil
}

func (m *VersionManager) run(ctx context.Context, job *model.TranslationJob, version int, params RegenerateParams) error {
	log := logging.With(logging.WithJobID(ctx, job.ID), m.log)
	jc := &JobContext{
		Job:              job,
		Store:            m.store,
		Log:              log,
		Version:          version,
		VoiceMappings:    params.VoiceMappings,
		SpeakingRate:     params.SpeakingRate,
		TranscriptSource: params.TranscriptSource,
	}

	synthCtx := ctx
	var cancel context.CancelFunc
	if d := m.synth.Timeout(); d > 0 {
		synthCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	err := m.synth.Run(synthCtx, jc)

	job.UpdatedAt = time.Now()
	if err != nil {
		job.Message = fmt.Sprintf("Audio regeneration (version %d) failed.", version)
		job.Error = err.Error()
		if saveErr := m.repo.Save(context.Background(), job); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to persist regeneration failure")
		}
		metrics.IncRegeneration("failed")
		return fmt.Errorf("regenerate version %d: %w", version, err)
	}

	rate := params.SpeakingRate
	if rate == 0 {
		rate = m.synth.rate
	}
	job.AudioVersions = append(job.AudioVersions, model.AudioVersion{
		Version:          version,
		VoiceMappings:    params.VoiceMappings,
		SpeakingRate:     rate,
		TranscriptSource: params.TranscriptSource,
		Available:        true,
		CreatedAt:        time.Now(),
	})
	job.Message = fmt.Sprintf("Audio version %d ready.", version)
	job.Error = ""
	if err := m.repo.Save(context.Background(), job); err != nil {
		return fmt.Errorf("save audio version: %w", err)
	}
	metrics.IncRegeneration("completed")
	log.Info().Int("version", version).Msg("audio regeneration completed")
	return nil
}
