// Package builder assembles rewritten difficulties, audio, and a shared
// background into a flat .osz archive.
package builder

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mitsuha/setforge/internal/apperr"
	"github.com/mitsuha/setforge/internal/models"
	"github.com/mitsuha/setforge/internal/osu"
)

// Entry pairs a parsed source difficulty with the display name it gets in
// the output set.
type Entry struct {
	Beatmap *models.Beatmap
	Name    string
}

// Manifest describes one set to build: the shared metadata, the source
// difficulties with their display names, the background image path, and an
// optional preview point applied to every difficulty.
type Manifest struct {
	Meta       models.CommonMetadata
	Entries    []Entry
	Background string
	PreviewMS  *int
}

// Validate checks the build preconditions.
func (m Manifest) Validate() error {
	if err := validation.ValidateStruct(&m,
		validation.Field(&m.Entries,
			validation.Required.Error("at least one difficulty is required"),
			validation.By(uniqueEntryNames)),
		validation.Field(&m.Background,
			validation.Required.Error("a background image must be chosen")),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&m.Meta,
		validation.Field(&m.Meta.Title, validation.Required),
		validation.Field(&m.Meta.Artist, validation.Required),
	)
}

func uniqueEntryNames(value any) error {
	entries, _ := value.([]Entry)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return errors.New("difficulty name must not be empty")
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("duplicate difficulty name %q", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// Result reports what a successful build produced.
type Result struct {
	Path  string   `json:"path"`
	Files []string `json:"files"`
}

// Builder stages set contents in a scratch directory and zips them.
type Builder struct {
	log *slog.Logger
}

// New creates a Builder.
func New(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// Build writes the .osz archive for m at target. The archive appears at
// target only after it has been fully written; a failed build leaves no
// partial file behind. Validation failures wrap apperr.ErrPrecondition.
func (b *Builder) Build(m Manifest, target string) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("builder: %w: %v", apperr.ErrPrecondition, err)
	}

	scratch, err := os.MkdirTemp("", "setforge-build-*")
	if err != nil {
		return nil, fmt.Errorf("builder: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := b.stageAudio(m, scratch); err != nil {
		return nil, err
	}

	bgName := osu.SanitizeFilename(filepath.Base(m.Background))
	if err := copyFile(m.Background, filepath.Join(scratch, bgName)); err != nil {
		return nil, fmt.Errorf("builder: copy background: %w", err)
	}

	if err := b.stageDifficulties(m, scratch, bgName); err != nil {
		return nil, err
	}

	files, err := writeArchive(scratch, target)
	if err != nil {
		return nil, err
	}
	b.log.Info("set built", "target", target, "files", len(files))
	return &Result{Path: target, Files: files}, nil
}

// stageAudio copies each difficulty's audio file into the scratch
// directory. Files are deduplicated by base name, first occurrence wins;
// missing sources are skipped with a warning so a set can still be built
// from incomplete source folders.
func (b *Builder) stageAudio(m Manifest, scratch string) error {
	copied := make(map[string]struct{})
	for _, e := range m.Entries {
		if e.Beatmap.Audio == "" {
			continue
		}
		name := filepath.Base(e.Beatmap.Audio)
		if _, done := copied[name]; done {
			continue
		}
		src := filepath.Join(filepath.Dir(e.Beatmap.Path), e.Beatmap.Audio)
		if err := copyFile(src, filepath.Join(scratch, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				b.log.Warn("audio file missing, skipped", "path", src)
				continue
			}
			return fmt.Errorf("builder: copy audio %s: %w", src, err)
		}
		copied[name] = struct{}{}
	}
	return nil
}

func (b *Builder) stageDifficulties(m Manifest, scratch, bgName string) error {
	for _, e := range m.Entries {
		audioName := ""
		if e.Beatmap.Audio != "" {
			audioName = filepath.Base(e.Beatmap.Audio)
		}
		lines := osu.Rewrite(e.Beatmap.Lines, osu.RewriteParams{
			Meta:       m.Meta,
			Difficulty: e.Name,
			Audio:      audioName,
			Background: bgName,
			PreviewMS:  m.PreviewMS,
		})
		name := osu.DifficultyFilename(m.Meta, e.Name)
		dst := filepath.Join(scratch, name)
		if err := os.WriteFile(dst, []byte(osu.Render(lines)), 0o644); err != nil {
			return fmt.Errorf("builder: write difficulty %s: %w", name, err)
		}
	}
	return nil
}

// writeArchive zips every file in scratch (flat, no directories) into a
// temp file next to target and renames it into place.
func writeArchive(scratch, target string) ([]string, error) {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, fmt.Errorf("builder: read scratch: %w", err)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("builder: mkdir target dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".setforge-osz-*")
	if err != nil {
		return nil, fmt.Errorf("builder: create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addToArchive(zw, scratch, entry.Name()); err != nil {
			return nil, err
		}
		files = append(files, entry.Name())
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("builder: close archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("builder: fsync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("builder: close temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return nil, fmt.Errorf("builder: rename archive: %w", err)
	}
	success = true
	return files, nil
}

func addToArchive(zw *zip.Writer, scratch, name string) error {
	src, err := os.Open(filepath.Join(scratch, name))
	if err != nil {
		return fmt.Errorf("builder: open %s: %w", name, err)
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("builder: archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("builder: compress %s: %w", name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
