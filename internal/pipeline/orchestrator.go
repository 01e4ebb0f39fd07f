package pipeline

import (
	"context"
	"fmt"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/repository"
	"audio-translation-service/internal/infra/logging"
	"audio-translation-service/internal/infra/metrics"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

// Orchestrator drives pipeline runs. Start and Retry acquire the job lock
// synchronously, so a second writer gets domain.ErrConflict at the API
// boundary instead of queueing behind the first; the run itself then executes
// on the worker pool and releases the lock when it finishes.
type Orchestrator struct {
	repo   repository.JobRepository
	store  *storage.Store
	pool   *Pool
	locker Locker
	stages []Stage
	log    *zerolog.Logger
}

func NewOrchestrator(repo repository.JobRepository, store *storage.Store, pool *Pool, locker Locker, stages []Stage, log *zerolog.Logger) *Orchestrator {
	return &Orchestrator{repo: repo, store: store, pool: pool, locker: locker, stages: stages, log: log}
}

// Start launches the pipeline for a freshly uploaded job.
func (o *Orchestrator) Start(ctx context.Context, jobID string) error {
	job, err := o.repo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.StatusUploaded {
		return fmt.Errorf("job %s is %s, not %s: %w", jobID, job.Status, model.StatusUploaded, domain.ErrInvalidState)
	}
	return o.launch(ctx, job)
}

// Retry relaunches a failed job. The run walks the full stage order and skips
// every stage whose artifact survives on disk, so execution resumes at the
// first stage with genuinely missing output regardless of which status the
// failure was recorded under.
func (o *Orchestrator) Retry(ctx context.Context, jobID string) error {
	job, err := o.repo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsFailed() {
		return fmt.Errorf("job %s is %s; only failed jobs can be retried: %w", jobID, job.Status, domain.ErrInvalidState)
	}
	return o.launch(ctx, job)
}

func (o *Orchestrator) launch(ctx context.Context, job *model.TranslationJob) error {
	token, err := o.locker.TryLock(ctx, job.ID)
	if err != nil {
		return err
	}
	task := func(runCtx context.Context) error {
		defer o.locker.Unlock(context.Background(), job.ID, token)
		holdCtx, stopHold := context.WithCancel(runCtx)
		defer stopHold()
		go holdLock(holdCtx, o.locker, job.ID, token, lockRefreshInterval, o.log)
		return o.run(runCtx, job)
	}
	if err := o.pool.Submit(task); err != nil {
		o.locker.Unlock(ctx, job.ID, token)
		return fmt.Errorf("submit pipeline run: %w", err)
	}
	return nil
}

// run executes the stage order for one job, holding the job's lock.
func (o *Orchestrator) run(ctx context.Context, job *model.TranslationJob) error {
	log := logging.With(logging.WithJobID(ctx, job.ID), o.log)
	jc := &JobContext{
		Job:              job,
		Store:            o.store,
		Log:              log,
		TranscriptSource: model.TranscriptTarget,
	}

	for _, stage := range o.stages {
		if _, ok := o.store.StageArtifact(job.ID, stage.ID()); ok {
			metrics.IncStageSkip(stage.ID().String())
			log.Info().Str("stage", stage.ID().String()).Msg("artifact present, stage skipped")
			continue
		}

		job.Status = stage.ID().Status()
		job.Message = job.Status.Display() + "..."
		job.Error = ""
		job.UpdatedAt = time.Now()
		if err := o.repo.Save(ctx, job); err != nil {
			return o.fail(job, stage.ID(), fmt.Errorf("save status: %w", err))
		}

		stageCtx := ctx
		var cancel context.CancelFunc
		if d := stage.Timeout(); d > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, d)
		}
		start := time.Now()
		err := stage.Run(stageCtx, jc)
		if cancel != nil {
			cancel()
		}
		metrics.ObserveStage(stage.ID().String(), time.Since(start).Seconds(), err == nil)
		if err != nil {
			return o.fail(job, stage.ID(), err)
		}
		log.Info().Str("stage", stage.ID().String()).Dur("elapsed", time.Since(start)).Msg("stage completed")
	}

	now := time.Now()
	job.Status = model.StatusCompleted
	job.Message = "Translation completed successfully."
	job.Error = ""
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := o.repo.Save(context.Background(), job); err != nil {
		return fmt.Errorf("save completion: %w", err)
	}
	metrics.IncJobFinished(string(model.StatusCompleted))
	log.Info().Msg("pipeline completed")
	return nil
}

// fail records a stage failure. The save uses a fresh context so a cancelled
// run (timeout, shutdown) still leaves a consistent failed record behind.
func (o *Orchestrator) fail(job *model.TranslationJob, stage model.Stage, cause error) error {
	job.Status = stage.FailedStatus()
	job.Message = job.Status.Display()
	job.Error = cause.Error()
	job.UpdatedAt = time.Now()
	if err := o.repo.Save(context.Background(), job); err != nil {
		o.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist failure status")
	}
	metrics.IncJobFinished(string(job.Status))
	return fmt.Errorf("stage %s: %w", stage, cause)
}
