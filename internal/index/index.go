package index

// BeatmapIndex defines the interface for beatmap indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type BeatmapIndex interface {
	Upsert(row BeatmapRow) error
	Delete(path string) error
	Get(path string) (*BeatmapRow, error)
	GetChecksum(path string) (string, error)
	List(limit, offset int, artist, sort string) ([]BeatmapRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies BeatmapIndex at compile time.
var _ BeatmapIndex = (*DB)(nil)
