// Package setservice holds the in-progress set draft and coordinates
// exports through the builder.
package setservice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mitsuha/setforge/internal/apperr"
	"github.com/mitsuha/setforge/internal/builder"
	"github.com/mitsuha/setforge/internal/models"
	"github.com/mitsuha/setforge/internal/osu"
)

// Difficulty is one row of the draft as exposed to clients.
type Difficulty struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Name      string `json:"name"`
	Audio     string `json:"audio"`
	Formatted bool   `json:"formatted"`
}

// Draft is a point-in-time snapshot of the whole working set.
type Draft struct {
	Meta         models.CommonMetadata `json:"meta"`
	Difficulties []Difficulty          `json:"difficulties"`
	Background   string                `json:"background,omitempty"`
	PreviewMS    *int                  `json:"preview_ms,omitempty"`
}

type entry struct {
	id        string
	beatmap   *models.Beatmap
	name      string
	formatted bool
}

// Service owns the draft state. All methods are safe for concurrent use.
type Service struct {
	mu         sync.Mutex
	meta       models.CommonMetadata
	entries    []*entry
	background string
	previewMS  *int

	builder   *builder.Builder
	exportDir string
	log       *slog.Logger
	onChange  func(Draft)
}

// NewService creates an empty draft. Exports without an explicit target
// land in exportDir.
func NewService(b *builder.Builder, exportDir string, log *slog.Logger) *Service {
	return &Service{builder: b, exportDir: exportDir, log: log}
}

// SetOnChange registers a callback invoked with a fresh snapshot after
// every draft mutation. The callback runs with the draft lock held, so it
// must not call back into the service. Must be set before the service is
// shared across goroutines.
func (s *Service) SetOnChange(fn func(Draft)) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshotLocked())
	}
}

// AddDifficulty reads and parses the .osu file at path and appends it to
// the draft. Adding the same file twice returns apperr.ErrAlreadyExists.
// When the file follows the standard "Artist - Title (Creator) [Diff].osu"
// naming, its metadata seeds any still-empty common metadata fields.
func (s *Service) AddDifficulty(_ context.Context, path string) (*Difficulty, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("setservice: resolve path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("setservice: read difficulty: %w", err)
	}
	b, err := osu.Parse(data, abs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.beatmap.Path == abs {
			return nil, apperr.ErrAlreadyExists
		}
	}

	formatted := osu.IsFormattedName(filepath.Base(abs))
	if formatted {
		s.seedMetadata(b.Meta)
	}

	e := &entry{
		id:        uuid.NewString(),
		beatmap:   b,
		name:      b.Difficulty,
		formatted: formatted,
	}
	s.entries = append(s.entries, e)
	s.log.Info("difficulty added", "path", abs, "name", e.name)
	s.changed()
	return e.toDifficulty(), nil
}

// seedMetadata fills empty common metadata fields from a formatted file.
// Fields the user already set are never overwritten.
func (s *Service) seedMetadata(meta map[string]string) {
	if s.meta.Title == "" {
		s.meta.Title = meta["Title"]
	}
	if s.meta.Artist == "" {
		s.meta.Artist = meta["Artist"]
	}
	if s.meta.Creator == "" {
		s.meta.Creator = meta["Creator"]
	}
	if s.meta.Source == "" {
		s.meta.Source = meta["Source"]
	}
	if s.meta.Tags == "" {
		s.meta.Tags = meta["Tags"]
	}
}

// RemoveDifficulty drops the entry with the given id.
func (s *Service) RemoveDifficulty(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.changed()
			return nil
		}
	}
	return apperr.ErrNotFound
}

// RenameDifficulty sets the display name of one entry.
func (s *Service) RenameDifficulty(_ context.Context, id, name string) (*Difficulty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("setservice: %w: difficulty name must not be empty", apperr.ErrPrecondition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.id == id {
			e.name = name
			s.changed()
			return e.toDifficulty(), nil
		}
	}
	return nil, apperr.ErrNotFound
}

// Renumber renames every difficulty to its 1-based position.
func (s *Service) Renumber(_ context.Context) []Difficulty {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		e.name = strconv.Itoa(i + 1)
	}
	s.changed()
	return s.difficulties()
}

// SetMetadata replaces the common metadata. Values are trimmed.
func (s *Service) SetMetadata(_ context.Context, meta models.CommonMetadata) models.CommonMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta = models.CommonMetadata{
		Title:   strings.TrimSpace(meta.Title),
		Artist:  strings.TrimSpace(meta.Artist),
		Creator: strings.TrimSpace(meta.Creator),
		Source:  strings.TrimSpace(meta.Source),
		Tags:    strings.TrimSpace(meta.Tags),
	}
	s.changed()
	return s.meta
}

// imageExts are the accepted background formats.
var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// SetBackground points the draft at a background image on disk.
func (s *Service) SetBackground(_ context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("setservice: resolve background: %w", err)
	}
	if _, ok := imageExts[strings.ToLower(filepath.Ext(abs))]; !ok {
		return fmt.Errorf("setservice: %w: background must be png, jpg, or jpeg", apperr.ErrPrecondition)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("setservice: background image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = abs
	s.changed()
	return nil
}

// SetPreview sets the preview point in milliseconds; nil clears it.
func (s *Service) SetPreview(_ context.Context, ms *int) error {
	if ms != nil && *ms < 0 {
		return fmt.Errorf("setservice: %w: preview time must not be negative", apperr.ErrPrecondition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewMS = ms
	s.changed()
	return nil
}

// Clear resets the draft to its initial empty state.
func (s *Service) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta = models.CommonMetadata{}
	s.entries = nil
	s.background = ""
	s.previewMS = nil
	s.changed()
}

// Snapshot returns a copy of the current draft.
func (s *Service) Snapshot(_ context.Context) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Draft {
	d := Draft{
		Meta:         s.meta,
		Difficulties: s.difficulties(),
		Background:   s.background,
	}
	if s.previewMS != nil {
		ms := *s.previewMS
		d.PreviewMS = &ms
	}
	return d
}

func (s *Service) difficulties() []Difficulty {
	out := make([]Difficulty, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e.toDifficulty()
	}
	return out
}

// Export builds the draft into an .osz archive. An empty target resolves
// to "<Artist> - <Title>.osz" inside the configured export directory.
func (s *Service) Export(_ context.Context, target string) (*builder.Result, error) {
	s.mu.Lock()
	m := s.manifestLocked()
	meta := s.meta
	s.mu.Unlock()

	if target == "" {
		target = filepath.Join(s.exportDir, osu.SetFilename(meta))
	}
	return s.builder.Build(m, target)
}

func (s *Service) manifestLocked() builder.Manifest {
	m := builder.Manifest{
		Meta:       s.meta,
		Background: s.background,
	}
	if s.previewMS != nil {
		ms := *s.previewMS
		m.PreviewMS = &ms
	}
	for _, e := range s.entries {
		m.Entries = append(m.Entries, builder.Entry{Beatmap: e.beatmap, Name: e.name})
	}
	return m
}

func (e *entry) toDifficulty() *Difficulty {
	return &Difficulty{
		ID:        e.id,
		Path:      e.beatmap.Path,
		Filename:  filepath.Base(e.beatmap.Path),
		Name:      e.name,
		Audio:     e.beatmap.Audio,
		Formatted: e.formatted,
	}
}
