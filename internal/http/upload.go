package httpapi

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"dpgdoc-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

var screenshotExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".avi": true,
}

func formFile(r *http.Request, maxBytes int64) ([]byte, string, bool, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, "", false, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", false, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", true, err
	}
	return data, header.Filename, true, nil
}

func uploaderID(r *http.Request) *string {
	if user, ok := CurrentUser(r); ok {
		id := user.ID
		return &id
	}
	return nil
}

// UploadScreenshot accepts an image, recompresses it to JPEG (downscaling
// anything wider than the resize bound) and stores the result.
func (s *Server) UploadScreenshot(w http.ResponseWriter, r *http.Request) {
	data, filename, hadFile, err := formFile(r, services.MaxScreenshotBytes)
	if err != nil {
		if hadFile {
			WriteError(w, http.StatusBadRequest, "Could not read uploaded file")
		} else {
			WriteError(w, http.StatusBadRequest, "A file upload is required")
		}
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !screenshotExtensions[ext] {
		WriteError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}
	if len(data) > services.MaxScreenshotBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	compressed, err := services.CompressScreenshot(data, services.ScreenshotMaxWidth())
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	assetID, url, err := services.SaveMediaAsset(
		s.DB, s.Config.MediaStoragePath, services.BucketScreenshots,
		"image/jpeg", filename, "screenshot", uploaderID(r), bytes.NewReader(compressed))
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	ratio := 0.0
	if len(data) > 0 {
		ratio = float64(len(compressed)) / float64(len(data))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"url":               url,
		"public_id":         assetID,
		"original_size":     len(data),
		"compressed_size":   len(compressed),
		"compression_ratio": ratio,
	})
}

// UploadVideo stores the file as-is; no transcoding happens server-side.
func (s *Server) UploadVideo(w http.ResponseWriter, r *http.Request) {
	data, filename, hadFile, err := formFile(r, services.MaxVideoBytes)
	if err != nil {
		if hadFile {
			WriteError(w, http.StatusBadRequest, "Could not read uploaded file")
		} else {
			WriteError(w, http.StatusBadRequest, "A file upload is required")
		}
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !videoExtensions[ext] {
		WriteError(w, http.StatusBadRequest, "Unsupported video format")
		return
	}
	if len(data) > services.MaxVideoBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	contentType := http.DetectContentType(data)
	assetID, url, err := services.SaveMediaAsset(
		s.DB, s.Config.MediaStoragePath, services.BucketVideos,
		contentType, filename, "video", uploaderID(r), bytes.NewReader(data))
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"url":       url,
		"public_id": assetID,
		"file_size": len(data),
	})
}

func (s *Server) DeleteScreenshot(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetId")
	found, err := services.DeleteAsset(s.DB, s.Config.MediaStoragePath, assetID, "screenshot")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !found {
		WriteError(w, http.StatusNotFound, "Screenshot not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Screenshot deleted"})
}

func (s *Server) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetId")
	found, err := services.DeleteAsset(s.DB, s.Config.MediaStoragePath, assetID, "video")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !found {
		WriteError(w, http.StatusNotFound, "Video not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Video deleted"})
}

// MediaContent streams a stored asset back with its recorded content type.
func (s *Server) MediaContent(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetId")
	row := struct {
		Bucket      string `db:"bucket"`
		StorageKey  string `db:"storage_key"`
		ContentType string `db:"content_type"`
	}{}
	err := s.DB.Get(&row, `SELECT bucket, storage_key, content_type FROM media_assets WHERE id = $1`, assetID)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, http.StatusNotFound, "Asset not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	path := filepath.Join(s.Config.MediaStoragePath, row.Bucket, row.StorageKey)
	file, err := os.Open(path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Asset not found")
		return
	}
	defer file.Close()
	w.Header().Set("Content-Type", row.ContentType)
	_, _ = io.Copy(w, file)
}
