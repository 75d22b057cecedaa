package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	backgroundDir  = "backgrounds"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AssetHandler serves and accepts background images. Uploads land in a
// backgrounds/ directory under the library root so drafts can reference
// them by path.
type AssetHandler struct {
	libraryRoot string
}

// NewAssetHandler creates a handler rooted at the library directory.
func NewAssetHandler(libraryRoot string) *AssetHandler {
	return &AssetHandler{libraryRoot: libraryRoot}
}

// backgroundPath returns the absolute path to the backgrounds directory.
func (h *AssetHandler) backgroundPath() string {
	return filepath.Join(h.libraryRoot, backgroundDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the backgrounds dir.
func (h *AssetHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	// Reject anything with path separators or traversal.
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	ext := strings.ToLower(filepath.Ext(cleaned))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return "", fmt.Errorf("unsupported image type: %s", ext)
	}
	abs := filepath.Join(h.backgroundPath(), cleaned)
	// Double-check the resolved path is under the backgrounds dir.
	if !strings.HasPrefix(abs, h.backgroundPath()+string(os.PathSeparator)) && abs != h.backgroundPath() {
		return "", fmt.Errorf("path escapes backgrounds directory")
	}
	return abs, nil
}

// ServeFile handles GET /backgrounds/{filename}.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/backgrounds (multipart/form-data, field "file").
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Ensure the backgrounds directory exists.
	if err := os.MkdirAll(h.backgroundPath(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create backgrounds dir"))
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, AssetUploadResponse{
		Filename: header.Filename,
		Size:     written,
		Path:     abs,
		URL:      "/backgrounds/" + header.Filename,
	})
}
