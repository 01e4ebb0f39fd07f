package model

// Stage identifies one step of the translation pipeline, in execution order.
type Stage int

const (
	StagePreprocess Stage = iota
	StageTranscribe
	StageFormat
	StageTranslate
	StageMerge
	StageClean
	StageSynthesize

	StageCount = int(StageSynthesize) + 1
)

var stageNames = [...]string{
	StagePreprocess:  "preprocessing",
	StageTranscribe:  "transcription",
	StageFormat:      "formatting",
	StageTranslate:   "translation",
	StageMerge:       "merging",
	StageClean:       "cleaning",
	StageSynthesize:  "synthesis",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= StageCount {
		return "unknown"
	}
	return stageNames[s]
}

// StageByName resolves the short operator-facing stage name ("translation",
// "synthesis", ...). The second return is false for unknown names.
func StageByName(name string) (Stage, bool) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), true
		}
	}
	return 0, false
}

// JobStatus is the canonical wire-level job status vocabulary. Earlier
// revisions of the system carried language-specific names ("transcribing_en");
// here roles are generic source/target, and every property of a status
// (display name, progress checkpoint, failed variant) is table data rather
// than something parsed out of the name.
type JobStatus string

const (
	StatusUploaded      JobStatus = "UPLOADED"
	StatusPreprocessing JobStatus = "PREPROCESSING_AUDIO"
	StatusTranscribing  JobStatus = "TRANSCRIBING_SOURCE"
	StatusFormatting    JobStatus = "FORMATTING_SOURCE_TEXT"
	StatusTranslating   JobStatus = "TRANSLATING_TO_TARGET"
	StatusMerging       JobStatus = "MERGING_TARGET_CHUNKS"
	StatusCleaning      JobStatus = "CLEANING_TARGET_TEXT"
	StatusSynthesizing  JobStatus = "GENERATING_TARGET_AUDIO"
	StatusCompleted     JobStatus = "COMPLETED"

	StatusFailed              JobStatus = "FAILED"
	StatusFailedPreprocessing JobStatus = "FAILED_PREPROCESSING_AUDIO"
	StatusFailedTranscribing  JobStatus = "FAILED_TRANSCRIBING_SOURCE"
	StatusFailedFormatting    JobStatus = "FAILED_FORMATTING_SOURCE_TEXT"
	StatusFailedTranslating   JobStatus = "FAILED_TRANSLATING_TO_TARGET"
	StatusFailedMerging       JobStatus = "FAILED_MERGING_TARGET_CHUNKS"
	StatusFailedCleaning      JobStatus = "FAILED_CLEANING_TARGET_TEXT"
	StatusFailedSynthesizing  JobStatus = "FAILED_GENERATING_TARGET_AUDIO"
)

type statusInfo struct {
	display    string
	checkpoint int
	stage      Stage
	hasStage   bool
	failed     bool
}

var statusTable = map[JobStatus]statusInfo{
	StatusUploaded:      {display: "Uploaded", checkpoint: 0},
	StatusPreprocessing: {display: "Preprocessing audio", checkpoint: 10, stage: StagePreprocess, hasStage: true},
	StatusTranscribing:  {display: "Transcribing source audio", checkpoint: 30, stage: StageTranscribe, hasStage: true},
	StatusFormatting:    {display: "Formatting source transcript", checkpoint: 50, stage: StageFormat, hasStage: true},
	StatusTranslating:   {display: "Translating to target language", checkpoint: 65, stage: StageTranslate, hasStage: true},
	StatusMerging:       {display: "Merging translated chunks", checkpoint: 78, stage: StageMerge, hasStage: true},
	StatusCleaning:      {display: "Cleaning target transcript", checkpoint: 83, stage: StageClean, hasStage: true},
	StatusSynthesizing:  {display: "Generating target audio", checkpoint: 95, stage: StageSynthesize, hasStage: true},
	StatusCompleted:     {display: "Completed", checkpoint: 100},

	StatusFailed:              {display: "Failed", checkpoint: 50, failed: true},
	StatusFailedPreprocessing: {display: "Audio preprocessing failed", checkpoint: 10, stage: StagePreprocess, hasStage: true, failed: true},
	StatusFailedTranscribing:  {display: "Transcription failed", checkpoint: 30, stage: StageTranscribe, hasStage: true, failed: true},
	StatusFailedFormatting:    {display: "Transcript formatting failed", checkpoint: 50, stage: StageFormat, hasStage: true, failed: true},
	StatusFailedTranslating:   {display: "Translation failed", checkpoint: 65, stage: StageTranslate, hasStage: true, failed: true},
	StatusFailedMerging:       {display: "Chunk merging failed", checkpoint: 78, stage: StageMerge, hasStage: true, failed: true},
	StatusFailedCleaning:      {display: "Text cleaning failed", checkpoint: 83, stage: StageClean, hasStage: true, failed: true},
	StatusFailedSynthesizing:  {display: "Audio generation failed", checkpoint: 95, stage: StageSynthesize, hasStage: true, failed: true},
}

var stageStatus = [...]JobStatus{
	StagePreprocess: StatusPreprocessing,
	StageTranscribe: StatusTranscribing,
	StageFormat:     StatusFormatting,
	StageTranslate:  StatusTranslating,
	StageMerge:      StatusMerging,
	StageClean:      StatusCleaning,
	StageSynthesize: StatusSynthesizing,
}

var stageFailedStatus = [...]JobStatus{
	StagePreprocess: StatusFailedPreprocessing,
	StageTranscribe: StatusFailedTranscribing,
	StageFormat:     StatusFailedFormatting,
	StageTranslate:  StatusFailedTranslating,
	StageMerge:      StatusFailedMerging,
	StageClean:      StatusFailedCleaning,
	StageSynthesize: StatusFailedSynthesizing,
}

// Status returns the status a job carries while this stage is executing.
func (s Stage) Status() JobStatus { return stageStatus[s] }

// FailedStatus returns the status recorded when this stage reports an error.
func (s Stage) FailedStatus() JobStatus { return stageFailedStatus[s] }

// Checkpoint is the progress percentage bound to this status. Checkpoints are
// front-loaded to stage boundaries; within a stage progress does not move.
func (s JobStatus) Checkpoint() int {
	if info, ok := statusTable[s]; ok {
		return info.checkpoint
	}
	return 0
}

// Display is the human-readable name used in job messages.
func (s JobStatus) Display() string {
	if info, ok := statusTable[s]; ok {
		return info.display
	}
	return string(s)
}

// IsFailed reports whether this is FAILED or any FAILED_<stage> variant.
func (s JobStatus) IsFailed() bool {
	info, ok := statusTable[s]
	return ok && info.failed
}

// FailedStage returns the stage that was executing when a FAILED_<stage>
// status was recorded. The second return is false for the generic FAILED and
// for non-failure statuses.
func (s JobStatus) FailedStage() (Stage, bool) {
	info, ok := statusTable[s]
	if !ok || !info.failed || !info.hasStage {
		return 0, false
	}
	return info.stage, true
}

// Valid reports whether s belongs to the canonical vocabulary.
func (s JobStatus) Valid() bool {
	_, ok := statusTable[s]
	return ok
}
