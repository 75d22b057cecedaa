// Package testutil provides shared test helpers for setting up libraries and databases.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "setforge-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary songs library with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}
	return libDir, store
}

// WriteBeatmap drops a minimal difficulty file into dir and returns its path.
func WriteBeatmap(t *testing.T, dir, name, title, artist, version string) string {
	t.Helper()
	content := fmt.Sprintf(
		"osu file format v14\n\n[General]\nAudioFilename: song.mp3\n\n[Metadata]\nTitle:%s\nArtist:%s\nVersion:%s\n\n[Events]\n0,0,\"bg.jpg\",0,0\n",
		title, artist, version)
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
