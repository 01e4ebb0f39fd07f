package model

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptSource names which transcript a synthesis run reads.
type TranscriptSource string

const (
	// TranscriptTarget synthesizes the translated (target-language) transcript.
	TranscriptTarget TranscriptSource = "TARGET"
	// TranscriptSourceLang synthesizes the source-language transcript with the
	// target voice catalog, which is how accent mixing is expressed.
	TranscriptSourceLang TranscriptSource = "SOURCE"
)

func (t TranscriptSource) Valid() bool {
	return t == TranscriptTarget || t == TranscriptSourceLang
}

// SpeakingRateMin and SpeakingRateMax bound the accepted speaking rate domain.
const (
	SpeakingRateMin = 0.5
	SpeakingRateMax = 2.0
)

// AudioVersion is one independently generated synthesis output. Versions are
// append-only: regeneration never deletes or overwrites an earlier one.
type AudioVersion struct {
	Version          int               `json:"version"`
	VoiceMappings    map[string]string `json:"voice_mappings"`
	SpeakingRate     float64           `json:"speaking_rate"`
	TranscriptSource TranscriptSource  `json:"transcript_source"`
	Available        bool              `json:"available"`
	CreatedAt        time.Time         `json:"created_at"`
}

// TranslationJob is the durable record of one audio translation.
type TranslationJob struct {
	ID               string
	OwnerID          int64
	OriginalFilename string
	SourceLanguage   string
	TargetLanguage   string
	Status           JobStatus
	Message          string
	Error            string
	// Speakers is the stable, ordered label list ("Speaker A", "Speaker B", ...)
	// emitted while formatting the source transcript. Voice mappings for
	// regeneration are validated against it verbatim.
	Speakers      []string
	AudioVersions []AudioVersion
	CreatedAt     time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

// NewTranslationJob creates a job in the UPLOADED state.
func NewTranslationJob(ownerID int64, filename, sourceLang, targetLang string) *TranslationJob {
	now := time.Now()
	return &TranslationJob{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		OriginalFilename: filename,
		SourceLanguage:   sourceLang,
		TargetLanguage:   targetLang,
		Status:           StatusUploaded,
		Message:          "File uploaded successfully. Processing started.",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Progress is a pure function of status; it never regresses because status
// only moves forward through the stage order.
func (j *TranslationJob) Progress() int { return j.Status.Checkpoint() }

// NextVersion returns the version number the next successful regeneration
// will carry. Numbers never repeat or skip downward.
func (j *TranslationJob) NextVersion() int {
	max := 0
	for _, v := range j.AudioVersions {
		if v.Version > max {
			max = v.Version
		}
	}
	return max + 1
}

// Version looks up an audio version by number.
func (j *TranslationJob) Version(n int) (AudioVersion, bool) {
	for _, v := range j.AudioVersions {
		if v.Version == n {
			return v, true
		}
	}
	return AudioVersion{}, false
}

// HasSpeaker reports whether label is in the job's known speaker list.
func (j *TranslationJob) HasSpeaker(label string) bool {
	for _, s := range j.Speakers {
		if s == label {
			return true
		}
	}
	return false
}
