package network

import (
	"fmt"
	"github.com/dataconservancy/ingest/util"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ContentFetcher reads external file content from http, https and
// file URLs.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher returns a fetcher whose http requests give up
// after timeout. Zero means no timeout.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	return &ContentFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch opens the content at uri. The returned size is -1 when the
// server doesn't say. The caller must close the reader.
func (fetcher *ContentFetcher) Fetch(uri string) (io.ReadCloser, int64, error) {
	if !util.IsDereferenceable(uri) {
		return nil, 0, fmt.Errorf("Cannot dereference '%s'", uri)
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, 0, err
	}
	if parsed.Scheme == "file" {
		file, err := os.Open(parsed.Path)
		if err != nil {
			return nil, 0, err
		}
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, 0, err
		}
		if stat.IsDir() {
			file.Close()
			return nil, 0, fmt.Errorf("'%s' is a directory", uri)
		}
		return file, stat.Size(), nil
	}
	resp, err := fetcher.client.Get(uri)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("GET %s returned status %d", uri, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// OpenContent is Fetch without the size.
func (fetcher *ContentFetcher) OpenContent(uri string) (io.ReadCloser, error) {
	reader, _, err := fetcher.Fetch(uri)
	return reader, err
}
