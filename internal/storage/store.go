// Package storage owns the on-disk artifact layout. The layout is part of the
// retry contract: its presence or absence is exactly what the orchestrator
// inspects when deciding where to resume a job.
//
// Layout, one directory per job:
//
//	<root>/<job_id>/
//	    original_<filename>
//	    processed/chunks/chunk_NNN.wav
//	    transcript_source_raw.txt
//	    transcript_source_formatted.txt
//	    translation_chunks/chunk_NNN.txt (+ manifest.json when complete)
//	    transcript_target_merged.txt
//	    transcript_target_clean.txt
//	    segments/segment_NNNN_<speaker>.mp3
//	    target_audio.mp3
//	    segments_v<n>/..., target_audio_v<n>.mp3 (regenerated versions)
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"audio-translation-service/internal/domain/model"
)

// TranslateManifest marks a translation chunk directory as complete. Chunk
// files land in the directory one at a time (resume happens per chunk), so a
// bare non-empty directory does not prove the stage finished.
const TranslateManifest = "manifest.json"

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) JobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *Store) EnsureJobDir(jobID string) (string, error) {
	dir := s.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// UploadPath is where the original upload lives.
func (s *Store) UploadPath(jobID, filename string) string {
	return filepath.Join(s.JobDir(jobID), "original_"+filepath.Base(filename))
}

// SaveUpload streams the uploaded bytes to disk before the job record is
// created; the upload itself follows the same write-then-advance discipline
// as stage artifacts.
func (s *Store) SaveUpload(jobID, filename string, r io.Reader) (string, error) {
	if _, err := s.EnsureJobDir(jobID); err != nil {
		return "", err
	}
	dst := s.UploadPath(jobID, filename)
	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return dst, nil
}

var stagePaths = [...]string{
	model.StagePreprocess: filepath.Join("processed", "chunks"),
	model.StageTranscribe: "transcript_source_raw.txt",
	model.StageFormat:     "transcript_source_formatted.txt",
	model.StageTranslate:  "translation_chunks",
	model.StageMerge:      "transcript_target_merged.txt",
	model.StageClean:      "transcript_target_clean.txt",
	model.StageSynthesize: "target_audio.mp3",
}

// StagePath is the canonical location of a stage's primary artifact.
func (s *Store) StagePath(jobID string, stage model.Stage) string {
	return filepath.Join(s.JobDir(jobID), stagePaths[stage])
}

// StageArtifact reports whether a stage's artifact exists, checking the
// filesystem at call time. Job-record availability flags are never consulted:
// an operator may have removed a file out of band, and retry must then
// re-execute the stage rather than trust a stale flag.
func (s *Store) StageArtifact(jobID string, stage model.Stage) (string, bool) {
	path := s.StagePath(jobID, stage)
	fi, err := os.Stat(path)
	if err != nil {
		return path, false
	}
	if !fi.IsDir() {
		return path, fi.Size() > 0
	}
	switch stage {
	case model.StageTranslate:
		// Complete only once the manifest landed.
		if _, err := os.Stat(filepath.Join(path, TranslateManifest)); err != nil {
			return path, false
		}
		return path, true
	default:
		entries, err := os.ReadDir(path)
		return path, err == nil && len(entries) > 0
	}
}

// VersionPath is the final audio artifact of one regenerated synthesis
// version. Version 0 is the pipeline's own unversioned output; regenerated
// versions count from 1 and never overwrite each other.
func (s *Store) VersionPath(jobID string, version int) string {
	if version <= 0 {
		return s.StagePath(jobID, model.StageSynthesize)
	}
	return filepath.Join(s.JobDir(jobID), fmt.Sprintf("target_audio_v%d.mp3", version))
}

// VersionArtifact checks the filesystem for a version's audio file.
func (s *Store) VersionArtifact(jobID string, version int) (string, bool) {
	path := s.VersionPath(jobID, version)
	fi, err := os.Stat(path)
	return path, err == nil && fi.Size() > 0
}

// SegmentsDir holds the per-segment synthesis outputs of one version.
func (s *Store) SegmentsDir(jobID string, version int) string {
	if version <= 0 {
		return filepath.Join(s.JobDir(jobID), "segments")
	}
	return filepath.Join(s.JobDir(jobID), fmt.Sprintf("segments_v%d", version))
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place, so an artifact is never observable half-written.
func (s *Store) WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}
