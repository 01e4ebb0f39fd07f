package pipeline

import (
	"context"
	"time"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/storage"

	"github.com/rs/zerolog"
)

// Stage is one ordered pipeline step producing exactly one artifact. The
// orchestrator is stage-count-agnostic: it walks whatever ordered list it was
// constructed with, which is also how tests substitute fake capabilities.
type Stage interface {
	// ID places the stage in the fixed pipeline order and binds it to its
	// status vocabulary and artifact location.
	ID() model.Stage
	// Timeout bounds one Run. Zero means no bound; only the network-bound
	// stages (transcription, synthesis) need one.
	Timeout() time.Duration
	Run(ctx context.Context, jc *JobContext) error
}

// JobContext carries everything a stage needs for one run of one job.
type JobContext struct {
	Job   *model.TranslationJob
	Store *storage.Store
	Log   *zerolog.Logger

	// Synthesis parameters. The orchestrator fills defaults for pipeline
	// runs; the version manager passes caller-chosen values.
	Version          int
	VoiceMappings    map[string]string
	SpeakingRate     float64
	TranscriptSource model.TranscriptSource
}
