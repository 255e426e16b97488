//go:build nomime
// +build nomime

// Mime type guessing without libmagic. This only knows the types
// net/http can sniff, and calls most binary formats
// application/octet-stream.
package platform

import (
	"net/http"
)


func GuessMimeTypeByBuffer(buf []byte) (mimeType string, err error) {
	return cleanMimeType(http.DetectContentType(buf)), nil
}
