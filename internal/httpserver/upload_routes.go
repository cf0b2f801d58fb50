package httpserver

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wachat/internal/domain"
)

const maxUploadBytes = 50 << 20

// UploadRoutes returns a sub-router mounted at /api/uploads.
//   - POST /          stores a multipart "file" field and returns its file_url
//   - GET /{filename} serves a stored file
func UploadRoutes(dir string, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Post("/", handleUpload(dir, log))
	r.Get("/{filename}", handleServeUpload(dir))

	return r
}

// @Summary      Upload an attachment
// @Description  Stores a multipart "file" field and returns its file_url and message type
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Attachment"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /uploads [post]
func handleUpload(dir string, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to parse multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing file"))
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("file must have an extension"))
			return
		}

		filename := uuid.NewString() + ext
		out, err := os.Create(filepath.Join(dir, filename))
		if err != nil {
			log.Error().Err(err).Msg("create upload file")
			writeJSON(w, http.StatusInternalServerError, errorBody("could not create file"))
			return
		}
		defer out.Close()

		if _, err := io.Copy(out, file); err != nil {
			log.Error().Err(err).Msg("write upload file")
			writeJSON(w, http.StatusInternalServerError, errorBody("could not save file"))
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"file_url":     "/api/uploads/" + filename,
			"message_type": kindForExt(ext),
			"filename":     filename,
		})
	}
}

// @Summary      Download an attachment
// @Tags         uploads
// @Security     BearerAuth
// @Param        filename path string true "Stored file name"
// @Success      200
// @Failure      400  {object}  map[string]string
// @Router       /uploads/{filename} [get]
func handleServeUpload(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" || filepath.Base(filename) != filename {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, filename))
	}
}

// kindForExt picks the message type an attachment should be sent as.
func kindForExt(ext string) domain.MessageKind {
	switch ext {
	case ".mp3", ".ogg", ".oga", ".opus", ".wav", ".m4a", ".aac":
		return domain.MessageAudio
	}
	ct := mime.TypeByExtension(ext)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.MessageImage
	case strings.HasPrefix(ct, "audio/"):
		return domain.MessageAudio
	default:
		return domain.MessageFile
	}
}
