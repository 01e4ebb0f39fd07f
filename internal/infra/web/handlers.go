package web

import (
	"encoding/json"
	"net/http"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid or oversized multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	sourceLang := r.FormValue("source_language")
	targetLang := r.FormValue("target_language")

	view, err := s.uc.Upload(r.Context(), ownerID(r), header.Filename, file, sourceLang, targetLang)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  view.ID,
		"status":  view.Status,
		"message": view.Message,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.uc.List(r.Context(), ownerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.uc.Status(r.Context(), ownerID(r), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	view, err := s.uc.Retry(r.Context(), ownerID(r), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  view.ID,
		"status":  view.Status,
		"message": view.Message,
	})
}

type regenerateRequest struct {
	VoiceMappings    map[string]string `json:"voice_mappings"`
	SpeakingRate     float64           `json:"speaking_rate"`
	TranscriptSource string            `json:"transcript_source"`
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	version, err := s.uc.Regenerate(r.Context(), ownerID(r), chi.URLParam(r, "jobID"), pipeline.RegenerateParams{
		VoiceMappings:    req.VoiceMappings,
		SpeakingRate:     req.SpeakingRate,
		TranscriptSource: model.TranscriptSource(req.TranscriptSource),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	// Regeneration is only accepted for COMPLETED jobs, so the job status is
	// known without a second repository read.
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  chi.URLParam(r, "jobID"),
		"version": version,
		"status":  model.StatusCompleted,
		"message": "Audio regeneration started.",
	})
}

func (s *Server) handleSpeakers(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	speakers, err := s.uc.Speakers(r.Context(), ownerID(r), jobID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	view, err := s.uc.Status(r.Context(), ownerID(r), jobID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"speakers":        speakers,
		"source_language": view.SourceLanguage,
		"target_language": view.TargetLanguage,
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.uc.Voices(r.Context(), chi.URLParam(r, "language"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, name, err := s.uc.DownloadPath(r.Context(), ownerID(r), chi.URLParam(r, "jobID"), chi.URLParam(r, "fileType"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

type forceFailRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleForceFail(w http.ResponseWriter, r *http.Request) {
	var req forceFailRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Stage == "" {
		req.Stage = "generic"
	}

	status, err := s.injector.ForceFail(r.Context(), chi.URLParam(r, "jobID"), req.Stage)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": chi.URLParam(r, "jobID"),
		"status": status,
	})
}
