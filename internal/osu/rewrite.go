package osu

import (
	"fmt"
	"strings"

	"github.com/mitsuha/setforge/internal/models"
)

// RewriteParams carries the replacement values applied to a difficulty's
// original line sequence.
type RewriteParams struct {
	Meta       models.CommonMetadata
	Difficulty string
	Audio      string
	Background string
	// PreviewMS is the audio preview point in milliseconds; nil leaves any
	// existing PreviewTime line untouched and synthesizes none.
	PreviewMS *int
}

// Rewrite produces a new line sequence from the original lines with
// metadata, audio, background, and preview-time substitutions applied.
// Lines that match no recognized pattern are copied through unchanged in
// their original order.
//
// Missing lines are synthesized at section boundaries: a PreviewTime line
// at the end of [General] when a preview was supplied but the section had
// none, and a background event at the end of [Events] when a background
// was supplied but the section had none. When the file has no [Events]
// section at all and a background must be written, a new section is
// appended at the end.
func Rewrite(lines []string, p RewriteParams) []string {
	out := make([]string, 0, len(lines)+4)
	sec := sectionNone
	previewWritten := false
	bgWritten := false

	// closeSection emits any line the ending section still owes.
	closeSection := func() {
		switch sec {
		case sectionGeneral:
			if p.PreviewMS != nil && !previewWritten {
				out = append(out, previewLine(*p.PreviewMS))
				previewWritten = true
			}
		case sectionEvents:
			if p.Background != "" && !bgWritten {
				out = append(out, backgroundEvent(p.Background))
				bgWritten = true
			}
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			closeSection()
			sec, _ = sectionFor(trimmed)
			out = append(out, line)
			continue
		}

		switch sec {
		case sectionGeneral:
			switch {
			case strings.HasPrefix(trimmed, "PreviewTime:"):
				previewWritten = true
				if p.PreviewMS != nil {
					out = append(out, previewLine(*p.PreviewMS))
				} else {
					out = append(out, line)
				}
			case strings.HasPrefix(trimmed, "AudioFilename:"):
				out = append(out, "AudioFilename: "+p.Audio)
			default:
				out = append(out, line)
			}

		case sectionMetadata:
			switch {
			case strings.HasPrefix(trimmed, "Version:"):
				out = append(out, "Version: "+p.Difficulty)
			case strings.HasPrefix(trimmed, "BeatmapID:"):
				out = append(out, "BeatmapID: 0")
			case strings.HasPrefix(trimmed, "BeatmapSetID:"):
				out = append(out, "BeatmapSetID: -1")
			default:
				if m := metaKeyRe.FindStringSubmatch(line); m != nil {
					if v, ok := p.Meta.Lookup(m[1]); ok {
						out = append(out, m[1]+": "+v)
						continue
					}
				}
				out = append(out, line)
			}

		case sectionEvents:
			if p.Background != "" && bgEventRe.MatchString(line) {
				// First event is replaced; later duplicates are dropped.
				if !bgWritten {
					out = append(out, backgroundEvent(p.Background))
					bgWritten = true
				}
			} else {
				out = append(out, line)
			}

		default:
			if strings.HasPrefix(trimmed, "AudioFilename:") {
				out = append(out, "AudioFilename: "+p.Audio)
			} else {
				out = append(out, line)
			}
		}
	}

	closeSection()

	if p.Background != "" && !bgWritten {
		// No [Events] section anywhere in the file.
		out = append(out, "", "[Events]", backgroundEvent(p.Background))
	}

	return out
}

// Render joins rewritten lines into the file's textual form. No trailing
// newline is added beyond the join.
func Render(lines []string) string {
	return strings.Join(lines, "\n")
}

func previewLine(ms int) string {
	return fmt.Sprintf("PreviewTime: %d", ms)
}

func backgroundEvent(name string) string {
	return fmt.Sprintf("0,0,%q,0,0", name)
}
