package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
)

func seedCleanTranscript(t *testing.T, jc *JobContext, content string) {
	t.Helper()
	if err := jc.Store.WriteFileAtomic(jc.Store.StagePath(jc.Job.ID, model.StageClean), []byte(content)); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
}

func TestSynthesizeStageWritesSegmentsAndFinal(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	job := model.NewTranslationJob(42, "a.mp3", "en", "ja")
	tts := newStubTTS("ja-JP-A", "ja-JP-B")
	stage := NewSynthesizeStage(tts, "ffmpeg-unavailable", 1.2, time.Minute)
	jc := &JobContext{Job: job, Store: store, Log: testLogger(), TranscriptSource: model.TranscriptTarget}
	seedCleanTranscript(t, jc, "Speaker A: こんにちは。\n\nSpeaker B: はじめまして。\n\nSpeaker A: よろしく。\n")

	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(store.SegmentsDir(job.ID, 0))
	if err != nil || len(entries) != 3 {
		t.Fatalf("segments dir: %v entries, err %v", len(entries), err)
	}
	if _, ok := store.StageArtifact(job.ID, model.StageSynthesize); !ok {
		t.Error("final audio missing")
	}
	if got := tts.calls.Load(); got != 3 {
		t.Errorf("synthesize called %d times, want 3", got)
	}
}

func TestSynthesizeStageSkipsExistingSegments(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	job := model.NewTranslationJob(42, "a.mp3", "en", "ja")
	tts := newStubTTS("ja-JP-A")
	stage := NewSynthesizeStage(tts, "ffmpeg-unavailable", 1.2, time.Minute)
	jc := &JobContext{Job: job, Store: store, Log: testLogger(), TranscriptSource: model.TranscriptTarget}
	seedCleanTranscript(t, jc, "Speaker A: 一つ目。\n\nSpeaker B: 二つ目。\n")

	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := tts.calls.Load()

	// A rerun with every segment on disk performs no provider calls.
	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := tts.calls.Load(); got != first {
		t.Errorf("rerun made %d extra provider calls", got-first)
	}
}

func TestSynthesizeStageVoiceAssignment(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	job := model.NewTranslationJob(42, "a.mp3", "en", "ja")
	tts := newStubTTS("ja-JP-A", "ja-JP-B")
	stage := NewSynthesizeStage(tts, "ffmpeg-unavailable", 1.2, time.Minute)
	jc := &JobContext{
		Job: job, Store: store, Log: testLogger(),
		TranscriptSource: model.TranscriptTarget,
		VoiceMappings:    map[string]string{"Speaker B": "ja-JP-B"},
	}
	seedCleanTranscript(t, jc, "Speaker A: 一。\n\nSpeaker B: 二。\n")

	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The stub embeds the voice name in the payload; the mapped speaker's
	// segment must use the mapped voice, the unmapped one a catalog voice.
	b, err := os.ReadFile(store.VersionPath(job.ID, 0))
	if err != nil {
		t.Fatalf("read final audio: %v", err)
	}
	if want := "mp3:ja-JP-B:二。"; !bytes.Contains(b, []byte(want)) {
		t.Errorf("mapped voice not used: %s", b)
	}
	if want := "mp3:ja-JP-A:一。"; !bytes.Contains(b, []byte(want)) {
		t.Errorf("catalog voice not used for unmapped speaker: %s", b)
	}
}

func TestSynthesizeStageSourceTranscript(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	job := model.NewTranslationJob(42, "a.mp3", "en", "ja")
	tts := &catalogTTS{byLanguage: map[string][]adapter.Voice{
		"en": {{Name: "en-US-Standard-A"}},
		"ja": {{Name: "ja-JP-Standard-A"}},
	}}
	stage := NewSynthesizeStage(tts, "ffmpeg-unavailable", 1.2, time.Minute)
	jc := &JobContext{
		Job: job, Store: store, Log: testLogger(),
		Version:          1,
		TranscriptSource: model.TranscriptSourceLang,
	}
	if err := store.WriteFileAtomic(store.StagePath(job.ID, model.StageFormat), []byte("Speaker A: Hello again.\n")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	path, ok := store.VersionArtifact(job.ID, 1)
	if !ok {
		t.Fatal("target_audio_v1.mp3 missing")
	}
	// The source text is voiced through the target language's catalog.
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read final audio: %v", err)
	}
	if want := "mp3:ja-JP-Standard-A:Hello again."; !bytes.Contains(b, []byte(want)) {
		t.Errorf("source transcript not voiced with target catalog: %s", b)
	}
	if _, err := os.Stat(store.SegmentsDir(job.ID, 1)); err != nil {
		t.Errorf("segments_v1 missing: %v", err)
	}
	// The pipeline's own output is untouched.
	if _, ok := store.StageArtifact(job.ID, model.StageSynthesize); ok {
		t.Error("versioned run overwrote the pipeline artifact")
	}
}

func TestSynthesizeStageConcatUsesFFmpeg(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	job := model.NewTranslationJob(42, "a.mp3", "en", "ja")
	tts := newStubTTS("ja-JP-A")

	// A stand-in for ffmpeg that writes a marker to its output argument.
	script := filepath.Join(t.TempDir(), "fake-ffmpeg")
	body := "#!/bin/sh\nfor a in \"$@\"; do out=$a; done\nprintf 'joined-by-ffmpeg' > \"$out\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	stage := NewSynthesizeStage(tts, script, 1.2, time.Minute)
	jc := &JobContext{Job: job, Store: store, Log: testLogger(), TranscriptSource: model.TranscriptTarget}
	seedCleanTranscript(t, jc, "Speaker A: 一。\n\nSpeaker B: 二。\n")

	if err := stage.Run(context.Background(), jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := os.ReadFile(store.VersionPath(job.ID, 0))
	if err != nil {
		t.Fatalf("read final audio: %v", err)
	}
	if string(b) != "joined-by-ffmpeg" {
		t.Errorf("final audio = %q, want the ffmpeg output", b)
	}
}
