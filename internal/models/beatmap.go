// Package models defines the domain types for Setforge.
package models

import "time"

// Beatmap represents one parsed .osu difficulty file.
type Beatmap struct {
	Path       string            `json:"path"`
	Lines      []string          `json:"-"`
	Meta       map[string]string `json:"meta,omitempty"`
	Difficulty string            `json:"difficulty"`
	Audio      string            `json:"audio,omitempty"`
	Background string            `json:"background,omitempty"`
}

// CommonMetadata holds the fields shared by every difficulty in a set.
type CommonMetadata struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Creator string `json:"creator"`
	Source  string `json:"source"`
	Tags    string `json:"tags"`
}

// Lookup returns the value for one of the recognized .osu metadata keys
// (Title, Artist, Creator, Source, Tags).
func (m CommonMetadata) Lookup(key string) (string, bool) {
	switch key {
	case "Title":
		return m.Title, true
	case "Artist":
		return m.Artist, true
	case "Creator":
		return m.Creator, true
	case "Source":
		return m.Source, true
	case "Tags":
		return m.Tags, true
	}
	return "", false
}

// BeatmapMetadata is a lightweight representation returned by list operations.
type BeatmapMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
