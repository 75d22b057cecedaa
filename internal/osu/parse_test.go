package osu

import (
	"strings"
	"testing"
)

const sampleOsu = `osu file format v14

[General]
AudioFilename: song.mp3
PreviewTime: 4500
Mode: 0

[Metadata]
Title:Old Name
Artist:Old Artist
Creator:mapper
Version:Insane
Source:Some Game
Tags:touhou stream
BeatmapID:123456
BeatmapSetID:7890

[Difficulty]
HPDrainRate:6

[Events]
//Background and Video events
0,0,"old-bg.jpg",0,0
//Break Periods

[HitObjects]
256,192,1000,1,0,0:0:0:0:
`

func TestParse_Metadata(t *testing.T) {
	b, err := Parse([]byte(sampleOsu), "map.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string]string{
		"Title":   "Old Name",
		"Artist":  "Old Artist",
		"Creator": "mapper",
		"Source":  "Some Game",
		"Tags":    "touhou stream",
	}
	for k, v := range want {
		if b.Meta[k] != v {
			t.Errorf("Meta[%q] = %q, want %q", k, b.Meta[k], v)
		}
	}
	if b.Difficulty != "Insane" {
		t.Errorf("difficulty = %q, want Insane", b.Difficulty)
	}
	if b.Audio != "song.mp3" {
		t.Errorf("audio = %q, want song.mp3", b.Audio)
	}
	if b.Background != "old-bg.jpg" {
		t.Errorf("background = %q, want old-bg.jpg", b.Background)
	}
}

func TestParse_KeepsAllLines(t *testing.T) {
	b, err := Parse([]byte(sampleOsu), "map.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantLines := len(strings.Split(strings.TrimSuffix(sampleOsu, "\n"), "\n"))
	if len(b.Lines) != wantLines {
		t.Errorf("len(Lines) = %d, want %d", len(b.Lines), wantLines)
	}
}

func TestParse_DifficultyFallsBackToStem(t *testing.T) {
	input := "[Metadata]\nTitle:Something\n"
	b, err := Parse([]byte(input), "songs/pack/My Difficulty.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Difficulty != "My Difficulty" {
		t.Errorf("difficulty = %q, want file stem", b.Difficulty)
	}
}

func TestParse_FirstAudioWins(t *testing.T) {
	input := "[General]\nAudioFilename: first.mp3\nAudioFilename: second.mp3\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Audio != "first.mp3" {
		t.Errorf("audio = %q, want first.mp3", b.Audio)
	}
}

func TestParse_AudioIgnoredInsideMetadata(t *testing.T) {
	input := "[Metadata]\nAudioFilename: wrong.mp3\n\n[General]\nAudioFilename: right.mp3\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Audio != "right.mp3" {
		t.Errorf("audio = %q, want right.mp3", b.Audio)
	}
}

func TestParse_FirstBackgroundWins(t *testing.T) {
	input := "[Events]\n0,0,\"one.jpg\",0,0\n0,0,\"two.jpg\",0,0\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Background != "one.jpg" {
		t.Errorf("background = %q, want one.jpg", b.Background)
	}
}

func TestParse_BackgroundOnlyInEvents(t *testing.T) {
	input := "0,0,\"stray.jpg\",0,0\n[General]\n0,0,\"also-stray.jpg\",0,0\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Background != "" {
		t.Errorf("background = %q, want empty", b.Background)
	}
}

func TestParse_UnknownSectionClosesMetadata(t *testing.T) {
	input := "[Metadata]\nTitle:Inside\n[Difficulty]\nArtist:Outside\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Meta["Title"] != "Inside" {
		t.Errorf("Title = %q", b.Meta["Title"])
	}
	if _, ok := b.Meta["Artist"]; ok {
		t.Error("Artist captured outside [Metadata]")
	}
}

func TestParse_CRLF(t *testing.T) {
	input := "[Metadata]\r\nTitle:Windows\r\n"
	b, err := Parse([]byte(input), "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Meta["Title"] != "Windows" {
		t.Errorf("Title = %q, want Windows", b.Meta["Title"])
	}
}

func TestDecodeText_InvalidBytesDropped(t *testing.T) {
	// "Title:Caf<invalid>e"; the stray 0xFF byte is dropped.
	input := append([]byte("[Metadata]\nTitle:Caf"), 0xFF)
	input = append(input, []byte("e\n")...)
	b, err := Parse(input, "a.osu")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Meta["Title"] != "Cafe" {
		t.Errorf("Title = %q, want Cafe", b.Meta["Title"])
	}
}

func TestDecodeText_Latin1Fallback(t *testing.T) {
	// A run of high bytes that is not valid UTF-8 anywhere decodes via the
	// Latin-1 fallback rather than being dropped to nothing.
	data := []byte{0xE9, 0xE8, 0xE7}
	text, err := decodeText(data)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if text != "éèç" {
		t.Errorf("text = %q, want éèç", text)
	}
}
