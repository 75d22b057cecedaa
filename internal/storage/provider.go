// Package storage defines the songs-library file-system abstraction.
package storage

import "github.com/mitsuha/setforge/internal/models"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every .osu file under dir (relative to library root).
	List(dir string) ([]models.BeatmapMetadata, error)
	// Read returns the raw bytes of the file at path (relative to library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to library root).
	Delete(path string) error
	// Abs resolves a relative library path to an absolute one, rejecting
	// paths that escape the root.
	Abs(path string) (string, error)
}
