// Package osu parses and rewrites .osu difficulty files.
package osu

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitsuha/setforge/internal/models"
)

// section is the parser/rewriter section state. The format interleaves
// [General], [Metadata], and [Events] with sections we pass through
// untouched; exactly one section (or none) is active at a time.
type section int

const (
	sectionNone section = iota
	sectionGeneral
	sectionMetadata
	sectionEvents
)

var (
	metaKeyRe = regexp.MustCompile(`^(\w+):(.*)$`)
	audioRe   = regexp.MustCompile(`^AudioFilename:(.*)$`)
	versionRe = regexp.MustCompile(`^Version:(.*)$`)
	bgEventRe = regexp.MustCompile(`^0,0,"([^"]+)".*$`)
)

// metaKeys is the recognized set of [Metadata] keys shared across a set.
var metaKeys = map[string]struct{}{
	"Title":   {},
	"Artist":  {},
	"Creator": {},
	"Source":  {},
	"Tags":    {},
}

// sectionFor returns the section opened by a trimmed header line, or
// (sectionNone, false) when the line is not one of the tracked headers.
func sectionFor(trimmed string) (section, bool) {
	switch trimmed {
	case "[General]":
		return sectionGeneral, true
	case "[Metadata]":
		return sectionMetadata, true
	case "[Events]":
		return sectionEvents, true
	}
	return sectionNone, false
}

// Parse decodes data and extracts the metadata record for one difficulty
// file. The full line sequence is retained on the returned Beatmap so the
// file can later be rewritten without re-reading it.
//
// Capture policy: recognized metadata keys and the Version line are taken
// from [Metadata]; the first AudioFilename line outside [Metadata] wins;
// the first background event inside [Events] wins. Later duplicates are
// ignored. If no Version line is present the difficulty name falls back to
// the file's base name without extension.
func Parse(data []byte, path string) (*models.Beatmap, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	b := &models.Beatmap{
		Path:  path,
		Lines: splitLines(text),
		Meta:  make(map[string]string),
	}

	sec := sectionNone
	for _, line := range b.Lines {
		trimmed := strings.TrimSpace(line)
		if s, ok := sectionFor(trimmed); ok {
			sec = s
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			sec = sectionNone
		}

		switch sec {
		case sectionMetadata:
			if m := metaKeyRe.FindStringSubmatch(line); m != nil {
				if _, ok := metaKeys[m[1]]; ok {
					b.Meta[m[1]] = strings.TrimSpace(m[2])
					continue
				}
			}
			if m := versionRe.FindStringSubmatch(line); m != nil {
				b.Difficulty = strings.TrimSpace(m[1])
			}
			continue

		case sectionEvents:
			if b.Background == "" {
				if m := bgEventRe.FindStringSubmatch(line); m != nil {
					b.Background = m[1]
					continue
				}
			}
		}

		if b.Audio == "" {
			if m := audioRe.FindStringSubmatch(line); m != nil {
				b.Audio = strings.TrimSpace(m[1])
			}
		}
	}

	if b.Difficulty == "" {
		b.Difficulty = fileStem(path)
	}
	return b, nil
}

// splitLines splits text into lines, accepting both LF and CRLF endings.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	// A trailing newline produces one empty final element; drop it so that
	// rewriting joins back without growing the file.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// fileStem returns the base name of path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
