// Package httpapi exposes transcription jobs over HTTP: upload, status,
// transcript download and a websocket stream of progress events.
package httpapi

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/jobs"
)

const defaultMaxUploadBytes int64 = 2 << 30

// Options configures the API handler.
type Options struct {
	UploadDir      string // empty means os.TempDir()
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// Server routes the transcription API.
type Server struct {
	jobs           *jobs.Manager
	uploadDir      string
	maxUploadBytes int64
	logger         zerolog.Logger
	mux            *http.ServeMux
}

// New builds the API handler around a job manager.
func New(manager *jobs.Manager, opts Options) *Server {
	s := &Server{
		jobs:           manager,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         opts.Logger,
		mux:            http.NewServeMux(),
	}
	if s.uploadDir == "" {
		s.uploadDir = os.TempDir()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}

	s.mux.HandleFunc("POST /api/transcriptions", s.handleUpload)
	s.mux.HandleFunc("GET /api/transcriptions/{id}", s.handleGet)
	s.mux.HandleFunc("DELETE /api/transcriptions/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /api/transcriptions/{id}/transcript", s.handleTranscript)
	s.mux.HandleFunc("GET /api/transcriptions/{id}/events", s.handleEvents)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.mux).ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}
