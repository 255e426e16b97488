// Package platform wraps mime type detection, which depends on
// libraries that aren't on every machine.
package platform

import (
	"regexp"
	"strings"
)

// DefaultMimeType is what we say when we can't tell.
const DefaultMimeType = "application/octet-stream"

var validMimeType = regexp.MustCompile(`^[\w.+-]+/[\w.+-]+$`)

// cleanMimeType drops parameters like "; charset=utf-8". Detectors
// sometimes return an empty string, and in rare cases (about 1 in
// 10000) unprintable characters, so anything that doesn't look like
// a mime type becomes DefaultMimeType.
func cleanMimeType(guessedType string) string {
	if idx := strings.Index(guessedType, ";"); idx >= 0 {
		guessedType = guessedType[:idx]
	}
	guessedType = strings.TrimSpace(guessedType)
	if guessedType == "" || !validMimeType.MatchString(guessedType) {
		return DefaultMimeType
	}
	return guessedType
}
