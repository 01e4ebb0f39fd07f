package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

// memJobRepo is an in-memory JobRepository; it stores copies so tests observe
// only persisted state, not the orchestrator's working pointer.
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

// fakeStage counts its runs and writes a real artifact on success so the
// orchestrator's skip logic sees the same filesystem truth production stages
// produce.
type fakeStage struct {
	id   model.Stage
	runs atomic.Int32
	fail atomic.Bool
}

func newFakeStage(id model.Stage) *fakeStage { return &fakeStage{id: id} }

func (s *fakeStage) ID() model.Stage        { return s.id }
func (s *fakeStage) Timeout() time.Duration { return 0 }

func (s *fakeStage) Run(ctx context.Context, jc *JobContext) error {
	s.runs.Add(1)
	if s.fail.Load() {
		return fmt.Errorf("forced %s failure", s.id)
	}
	return writeStageArtifact(jc.Store, jc.Job.ID, s.id)
}

// writeStageArtifact produces a minimal valid artifact for a stage: content
// for file stages, a populated directory (plus manifest for translation) for
// directory stages.
func writeStageArtifact(store *storage.Store, jobID string, stage model.Stage) error {
	path := store.StagePath(jobID, stage)
	switch stage {
	case model.StagePreprocess:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(path, "chunk_000.wav"), []byte("wav"), 0o644)
	case model.StageTranslate:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(path, "chunk_000.txt"), []byte("Speaker A: hola\n"), 0o644); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(path, storage.TranslateManifest), []byte("{}"), 0o644)
	default:
		return store.WriteFileAtomic(path, []byte("Speaker A: hello\n"))
	}
}

func fakeStages() ([]Stage, []*fakeStage) {
	var stages []Stage
	var fakes []*fakeStage
	for i := 0; i < model.StageCount; i++ {
		f := newFakeStage(model.Stage(i))
		fakes = append(fakes, f)
		stages = append(stages, f)
	}
	return stages, fakes
}

// stubTTS serves a fixed voice catalog and counts synthesis calls.
type stubTTS struct {
	voices []adapter.Voice
	calls  atomic.Int32
	err    error
}

func newStubTTS(names ...string) *stubTTS {
	s := &stubTTS{}
	for _, n := range names {
		s.voices = append(s.voices, adapter.Voice{Name: n, Gender: "NEUTRAL", SampleRateHertz: 24000})
	}
	return s
}

func (s *stubTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3:" + req.Voice + ":" + req.Text), nil
}

func (s *stubTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return s.voices, nil
}

// catalogTTS serves a distinct voice catalog per language code.
type catalogTTS struct {
	stubTTS
	byLanguage map[string][]adapter.Voice
}

func (c *catalogTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return c.byLanguage[language], nil
}

// stubTranslator echoes input with a marker prefix per call.
type stubTranslator struct {
	calls atomic.Int32
	err   error
}

func (s *stubTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return text, nil
}

func startedPool(t *testing.T) *Pool {
	t.Helper()
	pool := NewPool(2, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})
	return pool
}

func waitForStatus(t *testing.T, repo *memJobRepo, id string, want model.JobStatus) *model.TranslationJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.FindByID(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := repo.FindByID(context.Background(), id)
	t.Fatalf("job %s never reached %s, last seen: %+v", id, want, job)
	return nil
}
