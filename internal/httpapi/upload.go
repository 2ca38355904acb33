package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/lexiqai/transcript-gateway/internal/jobs"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

const (
	fileField     = "file"
	mimeTypeField = "mime_type"
)

type uploadResponse struct {
	ID     string      `json:"id"`
	Status jobs.Status `json:"status"`
}

type savedUpload struct {
	path     string
	filename string
	size     int64
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ожидается multipart/form-data с полем file.")
		return
	}

	var (
		upload   *savedUpload
		declared string
	)
	discard := func() {
		if upload != nil {
			os.Remove(upload.path)
		}
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			discard()
			s.writeUploadError(w, err)
			return
		}

		switch part.FormName() {
		case fileField:
			if upload != nil {
				part.Close()
				continue
			}
			upload, err = s.saveUpload(part)
			if err != nil {
				part.Close()
				s.writeUploadError(w, err)
				return
			}
		case mimeTypeField:
			raw, err := io.ReadAll(io.LimitReader(part, 256))
			if err != nil {
				part.Close()
				discard()
				s.writeUploadError(w, err)
				return
			}
			declared = string(raw)
		}
		part.Close()
	}

	if upload == nil {
		writeError(w, http.StatusBadRequest, "Поле file не найдено.")
		return
	}
	if upload.size == 0 {
		discard()
		writeError(w, http.StatusBadRequest, "Файл пуст: нечего транскрибировать.")
		return
	}
	observability.RecordUploadBytes(upload.size)

	src, f, err := transcription.OpenFileSource(upload.path)
	if err != nil {
		discard()
		s.logger.Error().Err(err).Msg("Failed to reopen upload")
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить файл.")
		return
	}
	cleanup := func() {
		f.Close()
		os.Remove(upload.path)
	}

	mimeType := transcription.NormalizeMIMEType(upload.filename, declared)
	snap, err := s.jobs.Submit(jobs.Input{
		Filename: upload.filename,
		MIMEType: mimeType,
		Source:   src,
		Cleanup:  cleanup,
	})
	if err != nil {
		cleanup()
		if errors.Is(err, jobs.ErrShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, "Сервис останавливается.")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to submit job")
		writeError(w, http.StatusInternalServerError, "Не удалось создать задачу.")
		return
	}

	s.logger.Info().
		Str("job_id", snap.ID).
		Str("filename", upload.filename).
		Str("size", humanize.IBytes(uint64(upload.size))).
		Str("mime_type", mimeType).
		Msg("Upload accepted")

	w.Header().Set("Location", "/api/transcriptions/"+snap.ID)
	writeJSON(w, http.StatusAccepted, uploadResponse{ID: snap.ID, Status: snap.Status})
}

// saveUpload streams the file part to a temp file in the upload dir.
func (s *Server) saveUpload(part *multipart.Part) (*savedUpload, error) {
	filename := filepath.Base(part.FileName())
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}

	f, err := os.CreateTemp(s.uploadDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, part)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write upload: %w", err)
	}
	return &savedUpload{path: f.Name(), filename: filename, size: n}, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Файл больше допустимых %s.", humanize.IBytes(uint64(tooLarge.Limit))))
		return
	}
	observability.RecordError("upload", "httpapi")
	s.logger.Warn().Err(err).Msg("Upload failed")
	writeError(w, http.StatusBadRequest, "Не удалось прочитать загруженный файл.")
}
