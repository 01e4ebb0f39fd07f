package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/pipeline"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]model.TranslationJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]model.TranslationJob)}
}

func (r *memJobRepo) Save(ctx context.Context, job *model.TranslationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobRepo) FindByID(ctx context.Context, id string) (*model.TranslationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := job
	return &cp, nil
}

func (r *memJobRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.TranslationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TranslationJob
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			cp := job
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fixedTTS struct{}

func (fixedTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	return []byte("audio"), nil
}

func (fixedTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return []adapter.Voice{{Name: language + "-Test-A", Gender: "FEMALE", SampleRateHertz: 24000}}, nil
}

// passStage completes instantly and leaves a valid artifact behind.
type passStage struct{ id model.Stage }

func (s passStage) ID() model.Stage        { return s.id }
func (s passStage) Timeout() time.Duration { return 0 }

func (s passStage) Run(ctx context.Context, jc *pipeline.JobContext) error {
	path := jc.Store.StagePath(jc.Job.ID, s.id)
	switch s.id {
	case model.StagePreprocess, model.StageTranslate:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		if s.id == model.StageTranslate {
			return os.WriteFile(path+"/"+storage.TranslateManifest, []byte("{}"), 0o644)
		}
		return os.WriteFile(path+"/chunk_000.wav", []byte("x"), 0o644)
	default:
		return jc.Store.WriteFileAtomic(path, []byte("Speaker A: hello\n"))
	}
}

type fixture struct {
	uc    *translationUC
	repo  *memJobRepo
	store *storage.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	repo := newMemJobRepo()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pool := pipeline.NewPool(2, &log)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	var stages []pipeline.Stage
	for i := 0; i < model.StageCount; i++ {
		stages = append(stages, passStage{id: model.Stage(i)})
	}
	locker := pipeline.NewMemoryLocker()
	orch := pipeline.NewOrchestrator(repo, store, pool, locker, stages, &log)
	synth := pipeline.NewSynthesizeStage(fixedTTS{}, "ffmpeg-unavailable", 1.2, time.Minute)
	versions := pipeline.NewVersionManager(repo, store, pool, locker, synth, fixedTTS{}, &log)
	uc := NewTranslationUseCase(repo, store, orch, versions, fixedTTS{}, &log)
	return &fixture{uc: uc, repo: repo, store: store}
}

func (f *fixture) waitCompleted(t *testing.T, jobID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.repo.FindByID(context.Background(), jobID)
		if err == nil && job.Status == model.StatusCompleted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never completed", jobID)
}

func TestUploadStartsPipeline(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	view, err := f.uc.Upload(context.Background(), 7, "podcast.mp3", strings.NewReader("audio-bytes"), "en", "ja")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if view.Status != model.StatusUploaded || view.Progress != 0 {
		t.Errorf("fresh job = %s/%d, want UPLOADED/0", view.Status, view.Progress)
	}
	f.waitCompleted(t, view.ID)

	done, err := f.uc.Status(context.Background(), 7, view.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if done.Progress != 100 {
		t.Errorf("progress = %d, want 100", done.Progress)
	}
	types := make(map[string]bool)
	for _, file := range done.Files {
		types[file.Type] = file.Available
	}
	for _, want := range []string{"source_transcript", "target_transcript", "target_audio"} {
		if !types[want] {
			t.Errorf("file type %q missing or unavailable in %v", want, done.Files)
		}
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Upload(ctx, 7, "document.pdf", strings.NewReader("x"), "en", "ja"); !errors.Is(err, domain.ErrUnsupportedMedia) {
		t.Errorf("pdf upload: got %v, want ErrUnsupportedMedia", err)
	}
	if _, err := f.uc.Upload(ctx, 7, "a.mp3", strings.NewReader("x"), "en", "en"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("same-language upload: got %v, want ErrValidation", err)
	}
	if _, err := f.uc.Upload(ctx, 7, "a.mp3", strings.NewReader("x"), "e!", "ja"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad language: got %v, want ErrValidation", err)
	}
}

func TestStatusHidesForeignJobs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	view, err := f.uc.Upload(context.Background(), 7, "a.mp3", strings.NewReader("x"), "en", "ja")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := f.uc.Status(context.Background(), 8, view.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign owner got %v, want ErrNotFound", err)
	}
}

func TestDownloadPathResolvesArtifacts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.uc.Upload(ctx, 7, "podcast.mp3", strings.NewReader("x"), "en", "ja")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	f.waitCompleted(t, view.ID)

	path, name, err := f.uc.DownloadPath(ctx, 7, view.ID, "target_audio")
	if err != nil {
		t.Fatalf("DownloadPath: %v", err)
	}
	if name != "podcast_ja.mp3" {
		t.Errorf("download name = %q", name)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("resolved path does not exist: %v", err)
	}

	if _, _, err := f.uc.DownloadPath(ctx, 7, view.ID, "target_audio_v1"); !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("missing version: got %v, want ErrArtifactMissing", err)
	}
	if _, _, err := f.uc.DownloadPath(ctx, 7, view.ID, "secrets"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown key: got %v, want ErrNotFound", err)
	}
}

func TestRegenerateRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.uc.Upload(ctx, 7, "podcast.mp3", strings.NewReader("x"), "en", "ja")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	f.waitCompleted(t, view.ID)

	version, err := f.uc.Regenerate(ctx, 7, view.ID, pipeline.RegenerateParams{SpeakingRate: 1.0})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := f.uc.Status(ctx, 7, view.ID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if len(status.AudioVersions) == 1 {
			for _, file := range status.Files {
				if file.Type == "target_audio_v1" && file.Available {
					return
				}
			}
			t.Fatalf("version 1 recorded but not downloadable: %v", status.Files)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("regenerated version never appeared")
}

func TestRetryOnlyFailedJobs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.uc.Upload(ctx, 7, "a.mp3", strings.NewReader("x"), "en", "ja")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	f.waitCompleted(t, view.ID)

	if _, err := f.uc.Retry(ctx, 7, view.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("retry of completed job: got %v, want ErrInvalidState", err)
	}
}

func TestVoicesValidatesLanguage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	voices, err := f.uc.Voices(context.Background(), "ja")
	if err != nil || len(voices) == 0 {
		t.Fatalf("Voices: %v, %v", voices, err)
	}
	if _, err := f.uc.Voices(context.Background(), "ja;drop"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}
