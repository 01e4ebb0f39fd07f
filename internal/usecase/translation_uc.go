package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/domain/ports/repository"
	"audio-translation-service/internal/pipeline"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ TranslationUseCase = (*translationUC)(nil)

// JobFile is one downloadable artifact of a job, as reported by Status. Type
// doubles as the file_type path segment of the download route.
type JobFile struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
}

// JobView is the owner-facing projection of a job record.
type JobView struct {
	ID               string               `json:"job_id"`
	OriginalFilename string               `json:"original_filename"`
	SourceLanguage   string               `json:"source_language"`
	TargetLanguage   string               `json:"target_language"`
	Status           model.JobStatus      `json:"status"`
	StatusDisplay    string               `json:"status_display"`
	Progress         int                  `json:"progress"`
	Message          string               `json:"message"`
	Error            string               `json:"error,omitempty"`
	Speakers         []string             `json:"speakers,omitempty"`
	AudioVersions    []model.AudioVersion `json:"audio_versions,omitempty"`
	Files            []JobFile            `json:"files"`
	CreatedAt        string               `json:"created_at"`
	CompletedAt      string               `json:"completed_at,omitempty"`
}

type TranslationUseCase interface {
	Upload(ctx context.Context, ownerID int64, filename string, content io.Reader, sourceLang, targetLang string) (*JobView, error)
	Status(ctx context.Context, ownerID int64, jobID string) (*JobView, error)
	List(ctx context.Context, ownerID int64) ([]*JobView, error)
	Retry(ctx context.Context, ownerID int64, jobID string) (*JobView, error)
	Regenerate(ctx context.Context, ownerID int64, jobID string, params pipeline.RegenerateParams) (int, error)
	Speakers(ctx context.Context, ownerID int64, jobID string) ([]string, error)
	Voices(ctx context.Context, language string) ([]adapter.Voice, error)
	DownloadPath(ctx context.Context, ownerID int64, jobID, fileKey string) (path, name string, err error)
}

type translationUC struct {
	repo     repository.JobRepository
	store    *storage.Store
	orch     *pipeline.Orchestrator
	versions *pipeline.VersionManager
	tts      adapter.TextToSpeech
	log      *zerolog.Logger
}

func NewTranslationUseCase(
	repo repository.JobRepository,
	store *storage.Store,
	orch *pipeline.Orchestrator,
	versions *pipeline.VersionManager,
	tts adapter.TextToSpeech,
	log *zerolog.Logger,
) *translationUC {
	return &translationUC{repo: repo, store: store, orch: orch, versions: versions, tts: tts, log: log}
}

// allowedExtensions are the upload formats ffmpeg is known to handle here.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
}

var languageRe = regexp.MustCompile(`^[a-zA-Z-]{2,16}$`)

func (u *translationUC) Upload(ctx context.Context, ownerID int64, filename string, content io.Reader, sourceLang, targetLang string) (*JobView, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q: %w", ext, domain.ErrUnsupportedMedia)
	}
	if !languageRe.MatchString(sourceLang) || !languageRe.MatchString(targetLang) {
		return nil, fmt.Errorf("invalid language pair %q -> %q: %w", sourceLang, targetLang, domain.ErrValidation)
	}
	if strings.EqualFold(sourceLang, targetLang) {
		return nil, fmt.Errorf("source and target language are both %q: %w", sourceLang, domain.ErrValidation)
	}

	job := model.NewTranslationJob(ownerID, filepath.Base(filename), sourceLang, targetLang)
	if _, err := u.store.SaveUpload(job.ID, job.OriginalFilename, content); err != nil {
		return nil, err
	}
	if err := u.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	if err := u.orch.Start(ctx, job.ID); err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to start pipeline after upload")
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Int64("owner_id", ownerID).Str("file", job.OriginalFilename).Msg("upload accepted")
	return u.view(job), nil
}

func (u *translationUC) Status(ctx context.Context, ownerID int64, jobID string) (*JobView, error) {
	job, err := u.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return u.view(job), nil
}

func (u *translationUC) List(ctx context.Context, ownerID int64) ([]*JobView, error) {
	jobs, err := u.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]*JobView, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, u.view(job))
	}
	return out, nil
}

func (u *translationUC) Retry(ctx context.Context, ownerID int64, jobID string) (*JobView, error) {
	job, err := u.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if err := u.orch.Retry(ctx, jobID); err != nil {
		return nil, err
	}
	job.Message = "Retry accepted. Resuming from the last completed step."
	return u.view(job), nil
}

func (u *translationUC) Regenerate(ctx context.Context, ownerID int64, jobID string, params pipeline.RegenerateParams) (int, error) {
	if _, err := u.owned(ctx, ownerID, jobID); err != nil {
		return 0, err
	}
	return u.versions.Regenerate(ctx, jobID, params)
}

func (u *translationUC) Speakers(ctx context.Context, ownerID int64, jobID string) ([]string, error) {
	job, err := u.owned(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	return job.Speakers, nil
}

func (u *translationUC) Voices(ctx context.Context, language string) ([]adapter.Voice, error) {
	if !languageRe.MatchString(language) {
		return nil, fmt.Errorf("invalid language %q: %w", language, domain.ErrValidation)
	}
	return u.tts.ListVoices(ctx, language)
}

// versionFileRe matches the versioned download keys (target_audio_v1, ...).
var versionFileRe = regexp.MustCompile(`^target_audio_v(\d+)$`)

// DownloadPath resolves a download key to a filesystem path, trusting only
// what is on disk right now.
func (u *translationUC) DownloadPath(ctx context.Context, ownerID int64, jobID, fileKey string) (string, string, error) {
	job, err := u.owned(ctx, ownerID, jobID)
	if err != nil {
		return "", "", err
	}

	var path string
	var ok bool
	switch fileKey {
	case "source_transcript":
		path, ok = u.store.StageArtifact(job.ID, model.StageFormat)
	case "target_transcript":
		path, ok = u.store.StageArtifact(job.ID, model.StageClean)
	case "target_audio":
		path, ok = u.store.VersionArtifact(job.ID, 0)
	default:
		m := versionFileRe.FindStringSubmatch(fileKey)
		if m == nil {
			return "", "", fmt.Errorf("unknown file key %q: %w", fileKey, domain.ErrNotFound)
		}
		n, _ := strconv.Atoi(m[1])
		path, ok = u.store.VersionArtifact(job.ID, n)
	}
	if !ok {
		return "", "", fmt.Errorf("artifact %q for job %s: %w", fileKey, jobID, domain.ErrArtifactMissing)
	}
	return path, downloadName(job, fileKey), nil
}

func downloadName(job *model.TranslationJob, fileKey string) string {
	base := strings.TrimSuffix(job.OriginalFilename, filepath.Ext(job.OriginalFilename))
	switch fileKey {
	case "source_transcript":
		return base + "_" + job.SourceLanguage + ".txt"
	case "target_transcript":
		return base + "_" + job.TargetLanguage + ".txt"
	case "target_audio":
		return base + "_" + job.TargetLanguage + ".mp3"
	default:
		return base + "_" + job.TargetLanguage + "_" + fileKey[len("target_audio_"):] + ".mp3"
	}
}

// owned loads a job and hides it from non-owners. A wrong owner gets the same
// ErrNotFound as a missing job, so job ids cannot be probed.
func (u *translationUC) owned(ctx context.Context, ownerID int64, jobID string) (*model.TranslationJob, error) {
	job, err := u.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// view projects a job record plus the current filesystem truth.
func (u *translationUC) view(job *model.TranslationJob) *JobView {
	v := &JobView{
		ID:               job.ID,
		OriginalFilename: job.OriginalFilename,
		SourceLanguage:   job.SourceLanguage,
		TargetLanguage:   job.TargetLanguage,
		Status:           job.Status,
		StatusDisplay:    job.Status.Display(),
		Progress:         job.Progress(),
		Message:          job.Message,
		Error:            job.Error,
		Speakers:         job.Speakers,
		AudioVersions:    job.AudioVersions,
		Files:            []JobFile{},
		CreatedAt:        job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.CompletedAt != nil {
		v.CompletedAt = job.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	if _, ok := u.store.StageArtifact(job.ID, model.StageFormat); ok {
		v.Files = append(v.Files, JobFile{Type: "source_transcript", Available: true})
	}
	if _, ok := u.store.StageArtifact(job.ID, model.StageClean); ok {
		v.Files = append(v.Files, JobFile{Type: "target_transcript", Available: true})
	}
	if _, ok := u.store.VersionArtifact(job.ID, 0); ok {
		v.Files = append(v.Files, JobFile{Type: "target_audio", Available: true})
	}
	for _, av := range job.AudioVersions {
		if _, ok := u.store.VersionArtifact(job.ID, av.Version); ok {
			v.Files = append(v.Files, JobFile{Type: fmt.Sprintf("target_audio_v%d", av.Version), Available: true})
		}
	}
	return v
}
