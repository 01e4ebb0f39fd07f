package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobRepository = (*jobRepo)(nil)

// jobRepo persists translation jobs. Speakers and audio versions ride along
// as jsonb: they are only ever read and written with their job, never
// queried independently.
type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Save(ctx context.Context, job *model.TranslationJob) error {
	speakers, err := json.Marshal(job.Speakers)
	if err != nil {
		return fmt.Errorf("marshal speakers: %w", err)
	}
	versions, err := json.Marshal(job.AudioVersions)
	if err != nil {
		return fmt.Errorf("marshal audio versions: %w", err)
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}

	const q = `
INSERT INTO translation_jobs
	(id, owner_id, original_filename, source_language, target_language,
	 status, message, error, speakers, audio_versions, created_at, completed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	message = EXCLUDED.message,
	error = EXCLUDED.error,
	speakers = EXCLUDED.speakers,
	audio_versions = EXCLUDED.audio_versions,
	completed_at = EXCLUDED.completed_at,
	updated_at = EXCLUDED.updated_at;`

	_, err = r.pool.Exec(ctx, q,
		job.ID, job.OwnerID, job.OriginalFilename, job.SourceLanguage, job.TargetLanguage,
		string(job.Status), job.Message, job.Error, speakers, versions,
		job.CreatedAt, job.CompletedAt, job.UpdatedAt)
	return err
}

const selectColumns = `
id, owner_id, original_filename, source_language, target_language,
status, message, error, speakers, audio_versions, created_at, completed_at, updated_at`

func (r *jobRepo) FindByID(ctx context.Context, id string) (*model.TranslationJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM translation_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.TranslationJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM translation_jobs WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.TranslationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.TranslationJob, error) {
	var (
		job      model.TranslationJob
		status   string
		speakers []byte
		versions []byte
	)
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.OriginalFilename, &job.SourceLanguage, &job.TargetLanguage,
		&status, &job.Message, &job.Error, &speakers, &versions,
		&job.CreatedAt, &job.CompletedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal(speakers, &job.Speakers); err != nil {
		return nil, fmt.Errorf("unmarshal speakers: %w", err)
	}
	if err := json.Unmarshal(versions, &job.AudioVersions); err != nil {
		return nil, fmt.Errorf("unmarshal audio versions: %w", err)
	}
	return &job, nil
}
