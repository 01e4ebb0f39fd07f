package model

import "testing"

func TestStageStatusOrderAndCheckpoints(t *testing.T) {
	t.Parallel()

	want := []struct {
		stage      Stage
		status     JobStatus
		checkpoint int
	}{
		{StagePreprocess, StatusPreprocessing, 10},
		{StageTranscribe, StatusTranscribing, 30},
		{StageFormat, StatusFormatting, 50},
		{StageTranslate, StatusTranslating, 65},
		{StageMerge, StatusMerging, 78},
		{StageClean, StatusCleaning, 83},
		{StageSynthesize, StatusSynthesizing, 95},
	}

	prev := StatusUploaded.Checkpoint()
	for _, w := range want {
		if got := w.stage.Status(); got != w.status {
			t.Fatalf("stage %v status = %s, want %s", w.stage, got, w.status)
		}
		cp := w.status.Checkpoint()
		if cp != w.checkpoint {
			t.Fatalf("%s checkpoint = %d, want %d", w.status, cp, w.checkpoint)
		}
		if cp <= prev {
			t.Fatalf("checkpoints must strictly increase through the stage order, got %d after %d", cp, prev)
		}
		prev = cp
	}
	if StatusCompleted.Checkpoint() != 100 {
		t.Fatalf("COMPLETED checkpoint = %d, want 100", StatusCompleted.Checkpoint())
	}
}

func TestFailedVariantsCarryStageCheckpoint(t *testing.T) {
	t.Parallel()

	for i := 0; i < StageCount; i++ {
		st := Stage(i)
		failed := st.FailedStatus()
		if !failed.IsFailed() {
			t.Fatalf("%s should report failed", failed)
		}
		if failed.Checkpoint() != st.Status().Checkpoint() {
			t.Fatalf("%s checkpoint = %d, want %d", failed, failed.Checkpoint(), st.Status().Checkpoint())
		}
		back, ok := failed.FailedStage()
		if !ok || back != st {
			t.Fatalf("FailedStage(%s) = %v,%v want %v,true", failed, back, ok, st)
		}
	}

	if _, ok := StatusFailed.FailedStage(); ok {
		t.Fatal("generic FAILED must not resolve to a stage")
	}
	if !StatusFailed.IsFailed() {
		t.Fatal("generic FAILED should report failed")
	}
}

func TestStageByName(t *testing.T) {
	t.Parallel()

	st, ok := StageByName("translation")
	if !ok || st != StageTranslate {
		t.Fatalf("StageByName(translation) = %v,%v", st, ok)
	}
	if _, ok := StageByName("nope"); ok {
		t.Fatal("unknown stage name must not resolve")
	}
}

func TestNextVersionNeverRepeats(t *testing.T) {
	t.Parallel()

	j := NewTranslationJob(1, "sample.mp3", "en", "ja")
	if j.Status != StatusUploaded || j.Progress() != 0 {
		t.Fatalf("new job status=%s progress=%d", j.Status, j.Progress())
	}
	if n := j.NextVersion(); n != 1 {
		t.Fatalf("NextVersion of fresh job = %d, want 1", n)
	}
	j.AudioVersions = append(j.AudioVersions, AudioVersion{Version: 1}, AudioVersion{Version: 2})
	if n := j.NextVersion(); n != 3 {
		t.Fatalf("NextVersion = %d, want 3", n)
	}
}
