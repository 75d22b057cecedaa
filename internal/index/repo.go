package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mitsuha/setforge/internal/apperr"
)

// BeatmapRow represents a row in the beatmaps table.
type BeatmapRow struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Creator    string    `json:"creator"`
	Version    string    `json:"version"`
	Source     string    `json:"source,omitempty"`
	Tags       string    `json:"tags,omitempty"`
	Audio      string    `json:"audio,omitempty"`
	Background string    `json:"background,omitempty"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Version string `json:"version"`
	Snippet string `json:"snippet,omitempty"`
}

const beatmapColumns = `path, title, artist, creator, version, source, tags, audio, background, checksum, updated_at`

// Upsert inserts or replaces a beatmap row and its FTS entry within a transaction.
func (db *DB) Upsert(r BeatmapRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO beatmaps (`+beatmapColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			artist     = excluded.artist,
			creator    = excluded.creator,
			version    = excluded.version,
			source     = excluded.source,
			tags       = excluded.tags,
			audio      = excluded.audio,
			background = excluded.background,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.Path, r.Title, r.Artist, r.Creator, r.Version, r.Source, r.Tags, r.Audio, r.Background, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert beatmap: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a beatmap row and its FTS entry.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM beatmaps WHERE path = ?`, path)

	return tx.Commit()
}

// Get returns one indexed beatmap, or apperr.ErrNotFound.
func (db *DB) Get(path string) (*BeatmapRow, error) {
	var r BeatmapRow
	err := db.conn.QueryRow(`SELECT `+beatmapColumns+` FROM beatmaps WHERE path = ?`, path).Scan(
		&r.Path, &r.Title, &r.Artist, &r.Creator, &r.Version, &r.Source, &r.Tags,
		&r.Audio, &r.Background, &r.Checksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get beatmap: %w", err)
	}
	return &r, nil
}

// GetChecksum returns the stored checksum for a beatmap, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM beatmaps WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// List returns paginated beatmaps with an optional exact artist filter.
// sort is one of "updated" (default), "title", "artist".
func (db *DB) List(limit, offset int, artist, sort string) ([]BeatmapRow, int, error) {
	if limit <= 0 {
		limit = 50
	}

	where := ""
	args := []any{}
	if artist != "" {
		where = ` WHERE artist = ?`
		args = append(args, artist)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM beatmaps`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count beatmaps: %w", err)
	}

	order := ` ORDER BY updated_at DESC`
	switch sort {
	case "title":
		order = ` ORDER BY title COLLATE NOCASE ASC`
	case "artist":
		order = ` ORDER BY artist COLLATE NOCASE ASC, title COLLATE NOCASE ASC`
	}

	args = append(args, limit, offset)
	rows, err := db.conn.Query(`SELECT `+beatmapColumns+` FROM beatmaps`+where+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list beatmaps: %w", err)
	}
	defer rows.Close()

	var out []BeatmapRow
	for rows.Next() {
		var r BeatmapRow
		if err := rows.Scan(&r.Path, &r.Title, &r.Artist, &r.Creator, &r.Version, &r.Source,
			&r.Tags, &r.Audio, &r.Background, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllPaths returns every indexed beatmap path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM beatmaps`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns a path → checksum map for every indexed beatmap.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM beatmaps`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
