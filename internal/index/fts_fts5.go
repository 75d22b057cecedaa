//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS beatmaps_fts USING fts5(
			path UNINDEXED,
			title,
			artist,
			creator,
			version,
			source,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, r BeatmapRow) error {
	_, _ = tx.Exec(`DELETE FROM beatmaps_fts WHERE path = ?`, r.Path)
	_, err := tx.Exec(`INSERT INTO beatmaps_fts (path, title, artist, creator, version, source, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Path, r.Title, r.Artist, r.Creator, r.Version, r.Source, r.Tags)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM beatmaps_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search across beatmap metadata.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       artist,
		       version,
		       snippet(beatmaps_fts, 6, '<b>', '</b>', '...', 32)
		FROM beatmaps_fts
		WHERE beatmaps_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Artist, &r.Version, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
