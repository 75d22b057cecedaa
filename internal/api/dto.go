package api

import (
	"github.com/mitsuha/setforge/internal/builder"
	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/models"
	"github.com/mitsuha/setforge/internal/setservice"
)

// AddDifficultyRequest is the request body for adding a difficulty to the draft.
type AddDifficultyRequest struct {
	Path string `json:"path" example:"songs/123 foo/map.osu" validate:"required"`
}

// RenameDifficultyRequest is the request body for renaming a draft entry.
type RenameDifficultyRequest struct {
	Name string `json:"name" example:"Insane" validate:"required"`
}

// MetadataRequest is the request body for replacing the common metadata.
type MetadataRequest struct {
	Title   string `json:"title" example:"Wonder Stella"`
	Artist  string `json:"artist" example:"fhana"`
	Creator string `json:"creator" example:"mapper"`
	Source  string `json:"source" example:"Witch Craft Works"`
	Tags    string `json:"tags" example:"anime opening"`
}

// BackgroundRequest points the draft at a background image on disk.
type BackgroundRequest struct {
	Path string `json:"path" example:"/home/me/backgrounds/cover.jpg" validate:"required"`
}

// PreviewRequest sets or clears the preview point.
type PreviewRequest struct {
	PreviewMS *int `json:"preview_ms" example:"42000"`
}

// ExportRequest triggers a build of the current draft.
type ExportRequest struct {
	Target string `json:"target,omitempty" example:"/home/me/exports/set.osz"`
}

// Draft is the working-set snapshot (aliased from the domain layer).
type Draft = setservice.Draft

// Difficulty is one draft entry (aliased from the domain layer).
type Difficulty = setservice.Difficulty

// BuildResult reports a finished export (aliased from the domain layer).
type BuildResult = builder.Result

// BeatmapListResponse wraps paginated library listings.
type BeatmapListResponse struct {
	Beatmaps []index.BeatmapRow `json:"beatmaps" validate:"required"`
	Total    int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// AssetUploadResponse is returned after a successful background upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"cover.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Path     string `json:"path" example:"/library/backgrounds/cover.png" validate:"required"`
	URL      string `json:"url" example:"/backgrounds/cover.png" validate:"required"`
}

func metadataFromRequest(r MetadataRequest) models.CommonMetadata {
	return models.CommonMetadata{
		Title:   r.Title,
		Artist:  r.Artist,
		Creator: r.Creator,
		Source:  r.Source,
		Tags:    r.Tags,
	}
}
