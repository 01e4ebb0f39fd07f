package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audio-translation-service/internal/domain/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveUploadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path, err := s.SaveUpload("job-1", "sample.mp3", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(b) != "audio-bytes" {
		t.Fatalf("upload content = %q", b)
	}
	if filepath.Base(path) != "original_sample.mp3" {
		t.Fatalf("upload filename = %q", filepath.Base(path))
	}
}

func TestStageArtifactChecksFilesystem(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	const job = "job-2"

	if _, ok := s.StageArtifact(job, model.StageTranscribe); ok {
		t.Fatal("artifact reported before anything was written")
	}

	path := s.StagePath(job, model.StageTranscribe)
	if err := s.WriteFileAtomic(path, []byte("Speaker A: hello\n")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if _, ok := s.StageArtifact(job, model.StageTranscribe); !ok {
		t.Fatal("artifact not reported after write")
	}

	// Out-of-band removal must flip the answer back; no flag is cached.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := s.StageArtifact(job, model.StageTranscribe); ok {
		t.Fatal("artifact still reported after removal")
	}
}

func TestEmptyFileIsNotAnArtifact(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	const job = "job-3"
	path := s.StagePath(job, model.StageClean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.StageArtifact(job, model.StageClean); ok {
		t.Fatal("zero-byte file must not count as a durable artifact")
	}
}

func TestTranslateArtifactRequiresManifest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	const job = "job-4"
	dir := s.StagePath(job, model.StageTranslate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chunk_001.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.StageArtifact(job, model.StageTranslate); ok {
		t.Fatal("partial chunk dir must not count as complete")
	}
	if err := os.WriteFile(filepath.Join(dir, TranslateManifest), []byte(`{"chunks":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.StageArtifact(job, model.StageTranslate); !ok {
		t.Fatal("manifest should mark the chunk dir complete")
	}
}

func TestVersionArtifactPaths(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	const job = "job-5"
	if p := s.VersionPath(job, 0); p != s.StagePath(job, model.StageSynthesize) {
		t.Fatalf("version 0 path %q must equal the synthesis stage artifact %q", p, s.StagePath(job, model.StageSynthesize))
	}
	if filepath.Base(s.VersionPath(job, 2)) != "target_audio_v2.mp3" {
		t.Fatalf("version 2 path = %q", s.VersionPath(job, 2))
	}
	if _, ok := s.VersionArtifact(job, 2); ok {
		t.Fatal("missing version reported available")
	}
	if err := s.WriteFileAtomic(s.VersionPath(job, 2), []byte("mp3")); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.VersionArtifact(job, 2); !ok {
		t.Fatal("written version not reported")
	}
}
