package index

import (
	"log/slog"
	"time"

	"github.com/mitsuha/setforge/internal/checksum"
	"github.com/mitsuha/setforge/internal/osu"
	"github.com/mitsuha/setforge/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed .osu files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	b, err := osu.Parse(data, path)
	if err != nil {
		return err
	}

	return db.Upsert(BeatmapRow{
		Path:       path,
		Title:      b.Meta["Title"],
		Artist:     b.Meta["Artist"],
		Creator:    b.Meta["Creator"],
		Version:    b.Difficulty,
		Source:     b.Meta["Source"],
		Tags:       b.Meta["Tags"],
		Audio:      b.Audio,
		Background: b.Background,
		Checksum:   checksum.Sum(data),
		UpdatedAt:  time.Now(),
	})
}
