package builder

import (
	"archive/zip"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitsuha/setforge/internal/apperr"
	"github.com/mitsuha/setforge/internal/models"
	"github.com/mitsuha/setforge/internal/osu"
)

const diffTemplate = `osu file format v14

[General]
AudioFilename: song.mp3
PreviewTime: 100

[Metadata]
Title:Source Title
Artist:Source Artist
Version:Source Diff
BeatmapID:42
BeatmapSetID:77

[Events]
0,0,"source-bg.jpg",0,0

[HitObjects]
256,192,1000,1,0,0:0:0:0:
`

func testBuilder() *Builder {
	return New(slog.New(slog.DiscardHandler))
}

func testMeta() models.CommonMetadata {
	return models.CommonMetadata{Title: "Set Title", Artist: "Set Artist", Creator: "mapper"}
}

// writeDifficulty drops a .osu file plus its audio next to it and parses it.
func writeDifficulty(t *testing.T, dir, osuName, audioName string) *models.Beatmap {
	t.Helper()
	content := strings.ReplaceAll(diffTemplate, "song.mp3", audioName)
	path := filepath.Join(dir, osuName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", osuName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, audioName), []byte("audio:"+audioName), 0o644); err != nil {
		t.Fatalf("write %s: %v", audioName, err)
	}
	b, err := osu.Parse([]byte(content), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return b
}

func writeBackground(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(path, []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("write background: %v", err)
	}
	return path
}

func archiveNames(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestBuild_ArchiveContents(t *testing.T) {
	src := t.TempDir()
	easy := writeDifficulty(t, src, "easy.osu", "song.mp3")
	hard := writeDifficulty(t, src, "hard.osu", "song.mp3")

	preview := 9000
	m := Manifest{
		Meta: testMeta(),
		Entries: []Entry{
			{Beatmap: easy, Name: "Easy"},
			{Beatmap: hard, Name: "Hard"},
		},
		Background: writeBackground(t, t.TempDir()),
		PreviewMS:  &preview,
	}

	target := filepath.Join(t.TempDir(), "out.osz")
	res, err := testBuilder().Build(m, target)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Path != target {
		t.Errorf("result path = %q, want %q", res.Path, target)
	}

	files := archiveNames(t, target)
	wantNames := []string{
		"song.mp3",
		"cover.jpg",
		"Set Artist - Set Title (mapper) [Easy].osu",
		"Set Artist - Set Title (mapper) [Hard].osu",
	}
	if len(files) != len(wantNames) {
		t.Errorf("archive has %d entries, want %d: %v", len(files), len(wantNames), res.Files)
	}
	for _, name := range wantNames {
		if _, ok := files[name]; !ok {
			t.Errorf("archive missing %q", name)
		}
	}

	easyText := files["Set Artist - Set Title (mapper) [Easy].osu"]
	for _, want := range []string{
		"Title: Set Title",
		"Artist: Set Artist",
		"Version: Easy",
		"PreviewTime: 9000",
		`0,0,"cover.jpg",0,0`,
		"BeatmapID: 0",
		"BeatmapSetID: -1",
	} {
		if !strings.Contains(easyText, want) {
			t.Errorf("rewritten difficulty missing %q", want)
		}
	}
}

func TestBuild_AudioDeduplicatedByBaseName(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	a := writeDifficulty(t, srcA, "a.osu", "shared.mp3")
	b := writeDifficulty(t, srcB, "b.osu", "shared.mp3")

	m := Manifest{
		Meta: testMeta(),
		Entries: []Entry{
			{Beatmap: a, Name: "A"},
			{Beatmap: b, Name: "B"},
		},
		Background: writeBackground(t, t.TempDir()),
	}

	target := filepath.Join(t.TempDir(), "out.osz")
	if _, err := testBuilder().Build(m, target); err != nil {
		t.Fatalf("Build: %v", err)
	}

	files := archiveNames(t, target)
	// First difficulty's copy wins; both were written with the same bytes
	// keyed by name so just check there is exactly one.
	count := 0
	for name := range files {
		if name == "shared.mp3" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared.mp3 entries = %d, want 1", count)
	}
}

func TestBuild_MissingAudioSkipped(t *testing.T) {
	src := t.TempDir()
	b := writeDifficulty(t, src, "a.osu", "song.mp3")
	if err := os.Remove(filepath.Join(src, "song.mp3")); err != nil {
		t.Fatalf("remove audio: %v", err)
	}

	m := Manifest{
		Meta:       testMeta(),
		Entries:    []Entry{{Beatmap: b, Name: "Solo"}},
		Background: writeBackground(t, t.TempDir()),
	}
	target := filepath.Join(t.TempDir(), "out.osz")
	if _, err := testBuilder().Build(m, target); err != nil {
		t.Fatalf("Build: %v", err)
	}

	files := archiveNames(t, target)
	if _, ok := files["song.mp3"]; ok {
		t.Error("missing audio should not appear in archive")
	}
	if _, ok := files["Set Artist - Set Title (mapper) [Solo].osu"]; !ok {
		t.Error("difficulty missing from archive")
	}
}

func TestBuild_PreconditionFailures(t *testing.T) {
	src := t.TempDir()
	b := writeDifficulty(t, src, "a.osu", "song.mp3")
	bg := writeBackground(t, t.TempDir())

	tests := []struct {
		name string
		m    Manifest
	}{
		{"no entries", Manifest{Meta: testMeta(), Background: bg}},
		{"no background", Manifest{Meta: testMeta(), Entries: []Entry{{Beatmap: b, Name: "X"}}}},
		{"missing title", Manifest{
			Meta:       models.CommonMetadata{Artist: "a"},
			Entries:    []Entry{{Beatmap: b, Name: "X"}},
			Background: bg,
		}},
		{"missing artist", Manifest{
			Meta:       models.CommonMetadata{Title: "t"},
			Entries:    []Entry{{Beatmap: b, Name: "X"}},
			Background: bg,
		}},
		{"duplicate names", Manifest{
			Meta: testMeta(),
			Entries: []Entry{
				{Beatmap: b, Name: "Same"},
				{Beatmap: b, Name: "Same"},
			},
			Background: bg,
		}},
		{"empty name", Manifest{
			Meta:       testMeta(),
			Entries:    []Entry{{Beatmap: b, Name: ""}},
			Background: bg,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out.osz")
			_, err := testBuilder().Build(tt.m, target)
			if !errors.Is(err, apperr.ErrPrecondition) {
				t.Fatalf("err = %v, want ErrPrecondition", err)
			}
			if _, statErr := os.Stat(target); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("failed build left a file at %s", target)
			}
		})
	}
}

func TestBuild_NoPartialFileOnFailure(t *testing.T) {
	src := t.TempDir()
	b := writeDifficulty(t, src, "a.osu", "song.mp3")

	m := Manifest{
		Meta:       testMeta(),
		Entries:    []Entry{{Beatmap: b, Name: "X"}},
		Background: filepath.Join(t.TempDir(), "nope.jpg"),
	}
	outDir := t.TempDir()
	target := filepath.Join(outDir, "out.osz")
	if _, err := testBuilder().Build(m, target); err == nil {
		t.Fatal("expected error for missing background")
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("output dir not empty after failed build: %v", entries)
	}
}
