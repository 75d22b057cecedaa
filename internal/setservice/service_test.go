package setservice

import (
	"archive/zip"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitsuha/setforge/internal/apperr"
	"github.com/mitsuha/setforge/internal/builder"
	"github.com/mitsuha/setforge/internal/models"
)

const osuTemplate = `osu file format v14

[General]
AudioFilename: song.mp3

[Metadata]
Title:Seed Title
Artist:Seed Artist
Creator:seed mapper
Version:Hyper
Source:Seed Game
Tags:seed tags

[Events]
0,0,"old.jpg",0,0
`

func testService(t *testing.T) *Service {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	return NewService(builder.New(log), t.TempDir(), log)
}

// writeFormatted writes a difficulty file with the standard name shape and
// its audio file alongside.
func writeFormatted(t *testing.T, dir string) string {
	t.Helper()
	return writeOsu(t, dir, "Seed Artist - Seed Title (seed mapper) [Hyper].osu")
}

func writeOsu(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(osuTemplate), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "song.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestAddDifficulty(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	d, err := s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	if err != nil {
		t.Fatalf("AddDifficulty: %v", err)
	}
	if d.Name != "Hyper" {
		t.Errorf("name = %q, want Hyper", d.Name)
	}
	if d.Audio != "song.mp3" {
		t.Errorf("audio = %q", d.Audio)
	}
	if !d.Formatted {
		t.Error("formatted name not detected")
	}
	if d.ID == "" {
		t.Error("id not assigned")
	}
}

func TestAddDifficulty_DuplicatePath(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	path := writeFormatted(t, t.TempDir())

	if _, err := s.AddDifficulty(ctx, path); err != nil {
		t.Fatalf("AddDifficulty: %v", err)
	}
	if _, err := s.AddDifficulty(ctx, path); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	if got := len(s.Snapshot(ctx).Difficulties); got != 1 {
		t.Errorf("difficulties = %d, want 1", got)
	}
}

func TestAddDifficulty_SeedsEmptyMetadata(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	s.SetMetadata(ctx, models.CommonMetadata{Title: "Mine"})
	if _, err := s.AddDifficulty(ctx, writeFormatted(t, t.TempDir())); err != nil {
		t.Fatalf("AddDifficulty: %v", err)
	}

	meta := s.Snapshot(ctx).Meta
	if meta.Title != "Mine" {
		t.Errorf("title overwritten: %q", meta.Title)
	}
	if meta.Artist != "Seed Artist" {
		t.Errorf("artist = %q, want seeded value", meta.Artist)
	}
	if meta.Tags != "seed tags" {
		t.Errorf("tags = %q, want seeded value", meta.Tags)
	}
}

func TestAddDifficulty_UnformattedDoesNotSeed(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.AddDifficulty(ctx, writeOsu(t, t.TempDir(), "plain.osu")); err != nil {
		t.Fatalf("AddDifficulty: %v", err)
	}
	if meta := s.Snapshot(ctx).Meta; meta.Title != "" {
		t.Errorf("metadata seeded from unformatted file: %+v", meta)
	}
}

func TestRemoveDifficulty(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	d, _ := s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	if err := s.RemoveDifficulty(ctx, d.ID); err != nil {
		t.Fatalf("RemoveDifficulty: %v", err)
	}
	if got := len(s.Snapshot(ctx).Difficulties); got != 0 {
		t.Errorf("difficulties = %d, want 0", got)
	}
	if err := s.RemoveDifficulty(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRenameDifficulty(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	d, _ := s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	got, err := s.RenameDifficulty(ctx, d.ID, "  Lunatic  ")
	if err != nil {
		t.Fatalf("RenameDifficulty: %v", err)
	}
	if got.Name != "Lunatic" {
		t.Errorf("name = %q, want Lunatic", got.Name)
	}

	if _, err := s.RenameDifficulty(ctx, d.ID, "   "); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("blank rename err = %v, want ErrPrecondition", err)
	}
	if _, err := s.RenameDifficulty(ctx, "nope", "X"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestRenumber(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	dir := t.TempDir()
	_, _ = s.AddDifficulty(ctx, writeOsu(t, dir, "a.osu"))
	_, _ = s.AddDifficulty(ctx, writeOsu(t, dir, "b.osu"))
	_, _ = s.AddDifficulty(ctx, writeOsu(t, dir, "c.osu"))

	diffs := s.Renumber(ctx)
	for i, d := range diffs {
		want := []string{"1", "2", "3"}[i]
		if d.Name != want {
			t.Errorf("diff %d name = %q, want %q", i, d.Name, want)
		}
	}
}

func TestSetBackground(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := s.SetBackground(ctx, writeImage(t, dir, "bg.jpg")); err != nil {
		t.Fatalf("SetBackground: %v", err)
	}
	if bg := s.Snapshot(ctx).Background; filepath.Base(bg) != "bg.jpg" {
		t.Errorf("background = %q", bg)
	}

	if err := s.SetBackground(ctx, writeImage(t, dir, "bg.gif")); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("gif err = %v, want ErrPrecondition", err)
	}
	if err := s.SetBackground(ctx, filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSetPreview(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	ms := 42000
	if err := s.SetPreview(ctx, &ms); err != nil {
		t.Fatalf("SetPreview: %v", err)
	}
	if got := s.Snapshot(ctx).PreviewMS; got == nil || *got != 42000 {
		t.Errorf("preview = %v, want 42000", got)
	}

	neg := -1
	if err := s.SetPreview(ctx, &neg); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("negative err = %v, want ErrPrecondition", err)
	}

	if err := s.SetPreview(ctx, nil); err != nil {
		t.Fatalf("SetPreview nil: %v", err)
	}
	if got := s.Snapshot(ctx).PreviewMS; got != nil {
		t.Errorf("preview = %v, want nil", got)
	}
}

func TestClear(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	_ = s.SetBackground(ctx, writeImage(t, t.TempDir(), "bg.png"))
	s.Clear(ctx)

	d := s.Snapshot(ctx)
	if len(d.Difficulties) != 0 || d.Background != "" || d.Meta.Title != "" || d.PreviewMS != nil {
		t.Errorf("draft not cleared: %+v", d)
	}
}

func TestOnChange(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	calls := 0
	var last Draft
	s.SetOnChange(func(d Draft) {
		calls++
		last = d
	})

	_, _ = s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	s.SetMetadata(ctx, models.CommonMetadata{Title: "t", Artist: "a"})
	s.Clear(ctx)
	if calls != 3 {
		t.Errorf("onChange calls = %d, want 3", calls)
	}
	if last.Meta.Title != "" || len(last.Difficulties) != 0 {
		t.Errorf("last snapshot should be the cleared draft: %+v", last)
	}
}

func TestExport(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.AddDifficulty(ctx, writeFormatted(t, t.TempDir()))
	_ = s.SetBackground(ctx, writeImage(t, t.TempDir(), "cover.png"))

	res, err := s.Export(ctx, "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(res.Path) != "Seed Artist - Seed Title.osz" {
		t.Errorf("archive name = %q", filepath.Base(res.Path))
	}

	zr, err := zip.OpenReader(res.Path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 3 {
		t.Errorf("archive entries = %d, want 3", len(zr.File))
	}
}

func TestExport_EmptyDraft(t *testing.T) {
	s := testService(t)
	if _, err := s.Export(context.Background(), ""); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("err = %v, want ErrPrecondition", err)
	}
}
