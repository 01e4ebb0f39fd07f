package pipeline

import (
	"context"
	"fmt"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Injector forces jobs into failure states for exercising the retry paths.
// It is only constructed in test mode and only flips the job record: artifacts
// on disk are untouched, so a subsequent retry resumes exactly where the real
// artifacts end.
type Injector struct {
	repo repository.JobRepository
	log  *zerolog.Logger
}

func NewInjector(repo repository.JobRepository, log *zerolog.Logger) *Injector {
	return &Injector{repo: repo, log: log}
}

// ForceFail marks a job failed at the named stage. The name "generic" selects
// the stage-less FAILED status.
func (i *Injector) ForceFail(ctx context.Context, jobID, stageName string) (model.JobStatus, error) {
	var status model.JobStatus
	if stageName == "generic" {
		status = model.StatusFailed
	} else {
		stage, ok := model.StageByName(stageName)
		if !ok {
			return "", fmt.Errorf("unknown stage %q: %w", stageName, domain.ErrValidation)
		}
		status = stage.FailedStatus()
	}

	job, err := i.repo.FindByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	job.Status = status
	job.Message = status.Display()
	job.Error = fmt.Sprintf("forced failure at %s", stageName)
	job.UpdatedAt = time.Now()
	if err := i.repo.Save(ctx, job); err != nil {
		return "", err
	}
	i.log.Warn().Str("job_id", jobID).Str("stage", stageName).Msg("forced job failure")
	return status, nil
}
