package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"audio-translation-service/internal/domain"
	"audio-translation-service/internal/pipeline"
	"audio-translation-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the HTTP surface of the translation service.
type Server struct {
	uc          usecase.TranslationUseCase
	injector    *pipeline.Injector
	secret      []byte
	devMode     bool
	maxUploadMB int64
	log         *zerolog.Logger
}

// NewServer wires the API. injector may be nil; the fault-injection route is
// then never registered and 404s like any unknown path.
func NewServer(uc usecase.TranslationUseCase, injector *pipeline.Injector, authSecret string, devMode bool, maxUploadMB int64, log *zerolog.Logger) *Server {
	return &Server{
		uc:          uc,
		injector:    injector,
		secret:      []byte(authSecret),
		devMode:     devMode,
		maxUploadMB: maxUploadMB,
		log:         log,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/translation", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/upload", s.handleUpload)
		r.Get("/jobs", s.handleList)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Post("/retry/{jobID}", s.handleRetry)
		r.Post("/regenerate/{jobID}", s.handleRegenerate)
		r.Get("/speakers/{jobID}", s.handleSpeakers)
		r.Get("/voices/{language}", s.handleVoices)
		r.Get("/download/{jobID}/{fileType}", s.handleDownload)

		if s.injector != nil {
			r.Post("/test/fail/{jobID}", s.handleForceFail)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrArtifactMissing):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnsupportedMedia):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
