package osu

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeText converts raw file bytes to a string. Valid UTF-8 passes
// through; otherwise invalid byte sequences are dropped. If dropping
// discards everything from a non-empty input, the file is assumed to be in
// a single-byte legacy encoding and is decoded as Latin-1 instead.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	cleaned := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		cleaned = append(cleaned, data[i:i+size]...)
		i += size
	}
	if len(cleaned) > 0 {
		return string(cleaned), nil
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("osu: decode: %w", err)
	}
	return string(out), nil
}
