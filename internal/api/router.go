package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/setservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// libraryRoot is used to resolve the backgrounds directory.
func NewRouter(svc *setservice.Service, db index.BeatmapIndex, authEnabled bool, token string, sseHandler http.Handler, libraryRoot string) chi.Router {
	h := NewHandler(svc, db)
	ah := NewAssetHandler(libraryRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/beatmaps", h.ListBeatmaps)
	r.Get("/beatmaps/*", h.GetBeatmap)
	r.Get("/search", h.Search)

	// Draft.
	r.Get("/draft", h.GetDraft)
	r.Delete("/draft", h.ClearDraft)
	r.Post("/draft/difficulties", h.AddDifficulty)
	r.Put("/draft/difficulties/{id}", h.RenameDifficulty)
	r.Delete("/draft/difficulties/{id}", h.RemoveDifficulty)
	r.Post("/draft/renumber", h.Renumber)
	r.Put("/draft/metadata", h.SetMetadata)
	r.Put("/draft/background", h.SetBackground)
	r.Put("/draft/preview", h.SetPreview)

	// Export.
	r.Post("/export", h.Export)

	// Background upload (auth-protected).
	r.Post("/backgrounds", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
