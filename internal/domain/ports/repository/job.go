package repository

import (
	"context"

	"audio-translation-service/internal/domain/model"
)

// JobRepository is the durable store of translation job records. Every
// mutation of a given job happens under that job's lock, so Save is a plain
// whole-record upsert.
type JobRepository interface {
	Save(ctx context.Context, job *model.TranslationJob) error
	FindByID(ctx context.Context, id string) (*model.TranslationJob, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.TranslationJob, error)
}
