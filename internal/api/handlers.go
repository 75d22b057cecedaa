package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mitsuha/setforge/internal/apperr"
	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/setservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *setservice.Service
	db  index.BeatmapIndex
}

// NewHandler creates a new Handler.
func NewHandler(svc *setservice.Service, db index.BeatmapIndex) *Handler {
	return &Handler{svc: svc, db: db}
}

// beatmapPath extracts the beatmap path from the URL (everything after
// /api/beatmaps/). Supports encoded slashes from OpenAPI clients
// (e.g. pack%2Fmap.osu).
func beatmapPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListBeatmaps handles GET /api/beatmaps.
//
//	@Summary		List indexed beatmaps with optional pagination and filtering
//	@Tags			library
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			artist	query		string	false	"Filter by exact artist"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, artist)
//	@Success		200		{object}	BeatmapListResponse
//	@Security		BearerAuth
//	@Router			/beatmaps [get]
func (h *Handler) ListBeatmaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	artist := q.Get("artist")
	sort := q.Get("sort")

	rows, total, err := h.db.List(limit, offset, artist, sort)
	if err != nil {
		slog.Error("list beatmaps failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if rows == nil {
		rows = []index.BeatmapRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"beatmaps": rows,
		"total":    total,
	})
}

// GetBeatmap handles GET /api/beatmaps/*.
//
//	@Summary		Get a single indexed beatmap by library path
//	@Tags			library
//	@Produce		json
//	@Param			path	path		string	true	"Beatmap path"
//	@Success		200		{object}	index.BeatmapRow
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/beatmaps/{path} [get]
func (h *Handler) GetBeatmap(w http.ResponseWriter, r *http.Request) {
	path := beatmapPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	row, err := h.db.Get(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get beatmap failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across beatmap metadata
//	@Tags			library
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// GetDraft handles GET /api/draft.
//
//	@Summary		Get the current draft snapshot
//	@Tags			draft
//	@Produce		json
//	@Success		200	{object}	Draft
//	@Security		BearerAuth
//	@Router			/draft [get]
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot(r.Context()))
}

// ClearDraft handles DELETE /api/draft.
//
//	@Summary		Reset the draft to its empty state
//	@Tags			draft
//	@Success		204	"Draft cleared"
//	@Security		BearerAuth
//	@Router			/draft [delete]
func (h *Handler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// AddDifficulty handles POST /api/draft/difficulties.
//
//	@Summary		Add a .osu file to the draft
//	@Tags			draft
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddDifficultyRequest	true	"Difficulty to add"
//	@Success		201		{object}	Difficulty
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/difficulties [post]
func (h *Handler) AddDifficulty(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	d, err := h.svc.AddDifficulty(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("difficulty already in draft"))
		} else {
			slog.Error("add difficulty failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// RemoveDifficulty handles DELETE /api/draft/difficulties/{id}.
//
//	@Summary		Remove a difficulty from the draft
//	@Tags			draft
//	@Param			id	path	string	true	"Difficulty id"
//	@Success		204	"Difficulty removed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/difficulties/{id} [delete]
func (h *Handler) RemoveDifficulty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.RemoveDifficulty(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameDifficulty handles PUT /api/draft/difficulties/{id}.
//
//	@Summary		Rename a draft difficulty
//	@Tags			draft
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Difficulty id"
//	@Param			body	body		RenameDifficultyRequest	true	"New display name"
//	@Success		200		{object}	Difficulty
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/difficulties/{id} [put]
func (h *Handler) RenameDifficulty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RenameDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	d, err := h.svc.RenameDifficulty(r.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrPrecondition):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("rename difficulty failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Renumber handles POST /api/draft/renumber.
//
//	@Summary		Rename every difficulty to its 1-based position
//	@Tags			draft
//	@Produce		json
//	@Success		200	{array}	Difficulty
//	@Security		BearerAuth
//	@Router			/draft/renumber [post]
func (h *Handler) Renumber(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Renumber(r.Context()))
}

// SetMetadata handles PUT /api/draft/metadata.
//
//	@Summary		Replace the common set metadata
//	@Tags			draft
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MetadataRequest	true	"Common metadata"
//	@Success		200		{object}	models.CommonMetadata
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/metadata [put]
func (h *Handler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	var req MetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	meta := h.svc.SetMetadata(r.Context(), metadataFromRequest(req))
	writeJSON(w, http.StatusOK, meta)
}

// SetBackground handles PUT /api/draft/background.
//
//	@Summary		Point the draft at a background image
//	@Tags			draft
//	@Accept			json
//	@Param			body	body	BackgroundRequest	true	"Background image path"
//	@Success		204		"Background set"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/background [put]
func (h *Handler) SetBackground(w http.ResponseWriter, r *http.Request) {
	var req BackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.SetBackground(r.Context(), req.Path); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPreview handles PUT /api/draft/preview.
//
//	@Summary		Set or clear the preview point
//	@Tags			draft
//	@Accept			json
//	@Param			body	body	PreviewRequest	true	"Preview point in milliseconds (null clears)"
//	@Success		204		"Preview set"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft/preview [put]
func (h *Handler) SetPreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetPreview(r.Context(), req.PreviewMS); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles POST /api/export.
//
//	@Summary		Build the draft into an .osz archive
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ExportRequest	true	"Optional explicit target path"
//	@Success		201		{object}	BuildResult
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	res, err := h.svc.Export(r.Context(), req.Target)
	if err != nil {
		if errors.Is(err, apperr.ErrPrecondition) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		} else {
			slog.Error("export failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
