package web

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/pipeline"
	"audio-translation-service/internal/storage"
	"audio-translation-service/internal/usecase"

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

type stubTTS struct{}

func (stubTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	return []byte("audio"), nil
}

func (stubTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return []adapter.Voice{
		{Name: language + "-Test-A", Gender: "FEMALE", SampleRateHertz: 24000},
		{Name: language + "-Test-B", Gender: "MALE", SampleRateHertz: 24000},
	}, nil
}

// passStage completes instantly leaving a valid artifact, so API-level tests
// can drive whole pipeline runs without providers.
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
	case model.StageFormat:
		jc.Job.Speakers = []string{"Speaker A", "Speaker B"}
		return jc.Store.WriteFileAtomic(path, []byte("Speaker A: hello\n\nSpeaker B: hi\n"))
	default:
		return jc.Store.WriteFileAtomic(path, []byte("Speaker A: hello\n"))
	}
}

const testSecret = "web-test-secret"

func newTestServer(t *testing.T, testMode bool) (*Server, *memJobRepo) {
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
	synth := pipeline.NewSynthesizeStage(stubTTS{}, "ffmpeg-unavailable", 1.2, time.Minute)
	versions := pipeline.NewVersionManager(repo, store, pool, locker, synth, stubTTS{}, &log)
	uc := usecase.NewTranslationUseCase(repo, store, orch, versions, stubTTS{}, &log)

	var injector *pipeline.Injector
	if testMode {
		injector = pipeline.NewInjector(repo, &log)
	}
	return NewServer(uc, injector, testSecret, false, 50, &log), repo
}
