package staging

import (
	"fmt"
	"io"
)

// Opener opens content that lives outside the staging service.
type Opener interface {
	OpenContent(uri string) (io.ReadCloser, error)
}

// ContentSource opens file content wherever it is: in the staging
// service if the URI is one of its reference or access URIs, and
// through Remote otherwise. The archive, characterizers and virus
// scanners read content through it.
type ContentSource struct {
	Staging Service
	Remote  Opener
}

func NewContentSource(stagingService Service, remote Opener) *ContentSource {
	return &ContentSource{Staging: stagingService, Remote: remote}
}

func (source *ContentSource) OpenContent(uri string) (io.ReadCloser, error) {
	if source.Staging != nil && source.Staging.Contains(uri) {
		return source.Staging.Open(uri)
	}
	if source.Remote == nil {
		return nil, fmt.Errorf("Cannot open '%s': not staged", uri)
	}
	return source.Remote.OpenContent(uri)
}
