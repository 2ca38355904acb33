package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lexiqai/transcript-gateway/internal/jobs"
)

// TranscriptFilename derives the download name from the uploaded file name,
// e.g. "meeting.m4a" becomes "meeting_transcript.md".
func TranscriptFilename(original, ext string) string {
	base := filepath.Base(original)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "transcript"
	}
	return base + "_transcript." + ext
}

var transcriptFormats = map[string]string{
	"txt": "text/plain; charset=utf-8",
	"md":  "text/markdown; charset=utf-8",
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(r.PathValue("id")); err != nil {
		writeJobError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "txt"
	}
	contentType, ok := transcriptFormats[format]
	if !ok {
		writeError(w, http.StatusBadRequest, "Поддерживаются форматы txt и md.")
		return
	}

	transcript, snap, err := s.jobs.Transcript(r.PathValue("id"))
	if err != nil {
		writeJobError(w, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": TranscriptFilename(snap.Filename, format),
	})
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(transcript))
}

func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "Задача не найдена.")
	case errors.Is(err, jobs.ErrNotReady):
		writeError(w, http.StatusConflict, "Транскрипт ещё не готов.")
	default:
		writeError(w, http.StatusInternalServerError, "Произошла ошибка при обработке.")
	}
}
