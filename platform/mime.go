//go:build !nomime
// +build !nomime

// This requires libmagic. Build with -tags=nomime on machines that
// don't have it.
package platform

import (
	"fmt"
	"github.com/rakyll/magicmime"
	"sync"
)


// magicMime is the MimeMagic database. We want
// just one copy of this open at a time.
var magicMime *magicmime.Magic

// libmagic sometimes fails or returns nonsense (unprintable
// characters) when several goroutines use it at once, and the
// characterizer runs jobs concurrently, so all access goes through
// this mutex. The calls are fast.
var mutex = &sync.Mutex{}

func openMagic() error {
	if magicMime != nil {
		return nil
	}
	var err error
	magicMime, err = magicmime.New(magicmime.MAGIC_MIME_TYPE)
	if err != nil {
		return fmt.Errorf("Error opening MimeMagic database: %v", err)
	}
	return nil
}

// GuessMimeTypeByBuffer returns the mime type of content that
// starts with buf. The first 512 bytes are usually enough.
func GuessMimeTypeByBuffer(buf []byte) (mimeType string, err error) {
	mutex.Lock()
	defer mutex.Unlock()
	if err = openMagic(); err != nil {
		return "", err
	}
	guessedType, _ := magicMime.TypeByBuffer(buf)
	return cleanMimeType(guessedType), nil
}
