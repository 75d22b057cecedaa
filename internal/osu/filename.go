package osu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mitsuha/setforge/internal/models"
)

// formattedNameRe matches the standard osu! difficulty filename shape:
// "Artist - Title (Creator) [Difficulty].osu".
var formattedNameRe = regexp.MustCompile(`(?i)^.+ - .+ \(.+\) \[.+\]\.osu$`)

var filenameSanitizer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// IsFormattedName reports whether name follows the standard osu! difficulty
// filename shape. Files named this way carry trustworthy metadata, so their
// fields may be used to seed the common metadata of a new set.
func IsFormattedName(name string) bool {
	return formattedNameRe.MatchString(name)
}

// SanitizeFilename replaces characters that are invalid in filenames with
// underscores and strips leading/trailing spaces and dots.
func SanitizeFilename(name string) string {
	return strings.Trim(filenameSanitizer.Replace(name), " .")
}

// DifficultyFilename builds the output filename for one rewritten
// difficulty, sanitized for filesystem safety.
func DifficultyFilename(meta models.CommonMetadata, difficulty string) string {
	return SanitizeFilename(fmt.Sprintf("%s - %s (%s) [%s].osu",
		meta.Artist, meta.Title, meta.Creator, difficulty))
}

// SetFilename builds the default archive filename for a set.
func SetFilename(meta models.CommonMetadata) string {
	return SanitizeFilename(fmt.Sprintf("%s - %s.osz", meta.Artist, meta.Title))
}
