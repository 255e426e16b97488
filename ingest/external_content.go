package ingest

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/dustin/go-humanize"
	"io"
	"net/url"
	"path"
	"strings"
)

/*
ExternalContentResolver downloads the content of extant files whose
source is an http, https or file URL, and stages it. The file's source
becomes the staged reference URI, which StagedContentResolver later
turns into an access URI.

If any download fails, everything this run staged is retired and the
package is left as it was.
*/
type ExternalContentResolver struct {
	stageBase
}

func NewExternalContentResolver(_context *context.Context) *ExternalContentResolver {
	return &ExternalContentResolver{stageBase{name: constants.StageExternalContent, context: _context}}
}

func (resolver *ExternalContentResolver) Execute(packageRef string) error {
	resolver.logStart(packageRef)
	staged := make([]string, 0)
	err := resolver.withPackage(packageRef, func(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
		return resolver.resolve(ref, pkg, &staged)
	})
	if err != nil {
		// Either resolve or the commit failed, so nothing staged by
		// this run is referenced from the stored package.
		for _, referenceURI := range staged {
			if retireErr := resolver.context.Staging.Retire(referenceURI); retireErr != nil {
				resolver.context.MessageLog.Warning("Cannot retire %s: %v", referenceURI, retireErr)
			}
		}
	}
	return err
}

func (resolver *ExternalContentResolver) needsResolution(file *models.File) bool {
	return file.Extant &&
		!file.IsStaged() &&
		util.IsDereferenceable(file.Source) &&
		!resolver.context.Staging.Contains(file.Source)
}

// resolve appends the reference URI of everything it stages to
// staged, so Execute can retire it if the run fails.
func (resolver *ExternalContentResolver) resolve(ref string, pkg *models.Package, staged *[]string) (*models.Package, []*models.Event, error) {
	events := make([]*models.Event, 0)
	for _, file := range pkg.Files {
		if !resolver.needsResolution(file) {
			continue
		}
		source := file.Source
		if err := resolver.checkLocalSource(ref, file); err != nil {
			return nil, nil, err
		}
		stagedFile, digester, err := resolver.download(ref, file)
		if err != nil {
			return nil, nil, err
		}
		*staged = append(*staged, stagedFile.ReferenceURI)

		digests := digester.Digests()
		computed := make([]*models.Fixity, 0, len(digests))
		for _, alg := range digester.Algorithms() {
			computed = append(computed, &models.Fixity{Algorithm: alg, Value: digests[alg]})
		}
		merged, err := models.MergeFixity(file.Fixity, computed)
		if err != nil {
			return nil, nil, resolver.validationError(ref, err, "fixity of downloaded file %s", file.Id)
		}
		file.Fixity = merged
		file.Source = stagedFile.ReferenceURI
		if file.Name == "" {
			file.Name = stagedFile.Name
		}
		if file.SizeBytes == 0 {
			file.SizeBytes = stagedFile.SizeBytes
		}

		download, err := resolver.newEvent(ref, constants.EventFileDownload, file.Id)
		if err != nil {
			return nil, nil, err
		}
		download.Outcome = fmt.Sprintf("%d", stagedFile.SizeBytes)
		download.Detail = fmt.Sprintf("Downloaded %s", source)
		events = append(events, download)
		for _, fixity := range computed {
			digestEvent, err := resolver.newEvent(ref, constants.EventFixityDigest, file.Id)
			if err != nil {
				return nil, nil, err
			}
			digestEvent.Outcome = fmt.Sprintf("%s:%s", fixity.Algorithm, fixity.Value)
			digestEvent.Detail = "Calculated while downloading " + source
			events = append(events, digestEvent)
		}
		resolution, err := resolver.newEvent(ref, constants.EventFileResolutionStaged, file.Id)
		if err != nil {
			return nil, nil, err
		}
		resolution.Outcome = source
		resolution.Detail = stagedFile.ReferenceURI
		events = append(events, resolution)
		resolver.context.MessageLog.Info("Downloaded %s (%s) for file %s",
			source, humanize.Bytes(uint64(stagedFile.SizeBytes)), file.Id)
	}
	if len(events) == 0 {
		return nil, nil, nil
	}
	resolver.logDone(ref, "staged %d external files", len(*staged))
	return pkg, events, nil
}

// checkLocalSource compares the content of a file: source with the
// file's declared fixity, so a bad file is rejected before it is
// staged.
func (resolver *ExternalContentResolver) checkLocalSource(ref string, file *models.File) error {
	u, err := url.Parse(file.Source)
	if err != nil || u.Scheme != "file" {
		return nil
	}
	for _, fixity := range file.Fixity {
		if fixity == nil {
			continue
		}
		alg := strings.ToLower(fixity.Algorithm)
		if !util.StringListContains(constants.ChecksumAlgorithms, alg) {
			continue
		}
		digest, err := fileutil.CalculateChecksum(u.Path, alg)
		if err != nil {
			return resolver.transientError(ref, err, "cannot read %s for file %s", file.Source, file.Id)
		}
		if !strings.EqualFold(digest, fixity.Value) {
			conflict := &models.FixityConflictError{Algorithm: alg, Existing: fixity.Value, Incoming: digest}
			return resolver.validationError(ref, conflict, "fixity of local file %s", file.Id)
		}
	}
	return nil
}

// download fetches the file's content into the staging service,
// calculating the configured digests on the way.
func (resolver *ExternalContentResolver) download(ref string, file *models.File) (*models.StagedFile, *fileutil.Digester, error) {
	digester, err := fileutil.NewDigester(resolver.context.Config.DigestAlgorithms...)
	if err != nil {
		return nil, nil, resolver.configurationError(ref, err, "bad digest algorithms")
	}
	reader, _, err := resolver.context.Fetcher.Fetch(file.Source)
	if err != nil {
		return nil, nil, resolver.transientError(ref, err, "cannot download %s for file %s", file.Source, file.Id)
	}
	defer reader.Close()
	meta := &models.StagedFileMetadata{
		Name:   file.Name,
		Source: file.Source,
	}
	if meta.Name == "" {
		meta.Name = nameFromURL(file.Source)
	}
	stagedFile, err := resolver.context.Staging.Add(io.TeeReader(reader, digester), meta)
	if err != nil {
		return nil, nil, resolver.transientError(ref, err, "cannot stage %s for file %s", file.Source, file.Id)
	}
	return stagedFile, digester, nil
}

func nameFromURL(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return path.Base(u.Path)
}
