package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"strings"
)

/*
StagedContentResolver resolves files whose source is a staged
reference URI. It carries the staged copy's upload and fixity events
over to the package file, merges the staged copy's fixity into the
file's, fills in the name, size and mime type if the file doesn't
have them, and points the file's source at the staged access URI.

A fixity value that disagrees with the staged copy's value for the
same algorithm fails the package.
*/
type StagedContentResolver struct {
	stageBase
}

func NewStagedContentResolver(_context *context.Context) *StagedContentResolver {
	return &StagedContentResolver{stageBase{name: constants.StageStagedContent, context: _context}}
}

func (resolver *StagedContentResolver) Execute(packageRef string) error {
	resolver.logStart(packageRef)
	return resolver.withPackage(packageRef, resolver.resolve)
}

func (resolver *StagedContentResolver) resolve(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	digests, err := resolver.context.EventLog.GetEvents(ref, constants.EventFixityDigest)
	if err != nil {
		return nil, nil, resolver.transientError(ref, err, "cannot read event log")
	}
	events := make([]*models.Event, 0)
	resolved := 0
	for _, file := range pkg.Files {
		if !file.IsStaged() {
			continue
		}
		fileEvents, err := resolver.resolveFile(ref, file, digests)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, fileEvents...)
		resolved++
	}
	if resolved == 0 {
		return nil, nil, nil
	}
	resolver.logDone(ref, "resolved %d staged files", resolved)
	return pkg, events, nil
}

// resolveFile resolves one staged file. Param digests holds the
// fixity.digest events already logged for the package.
func (resolver *StagedContentResolver) resolveFile(ref string, file *models.File, digests []*models.Event) ([]*models.Event, error) {
	referenceURI := file.Source
	stagedFile, err := resolver.context.Staging.Get(referenceURI)
	if err != nil {
		return nil, resolver.transientError(ref, err, "cannot read staged file %s", referenceURI)
	}
	if stagedFile == nil {
		return nil, resolver.validationError(ref, nil,
			"file %s refers to staged content %s, which does not exist", file.Id, referenceURI)
	}
	shadow, err := resolver.context.PackageStore.Get(stagedFile.SipRef)
	if err != nil {
		return nil, resolver.transientError(ref, err, "cannot read staging package for %s", referenceURI)
	}
	var shadowFile *models.File
	if shadow != nil {
		shadowFile = shadow.FindFile(referenceURI)
	}
	if shadowFile == nil {
		return nil, resolver.consistencyError(ref, nil, "staged content %s has no staging package", referenceURI)
	}

	merged, err := models.MergeFixity(file.Fixity, shadowFile.Fixity)
	if err != nil {
		return nil, resolver.validationError(ref, err, "fixity of file %s disagrees with staged copy", file.Id)
	}
	file.Fixity = merged
	if file.Name == "" {
		file.Name = shadowFile.Name
	}
	if file.SizeBytes == 0 {
		file.SizeBytes = shadowFile.SizeBytes
	}
	if !file.HasFormatScheme(constants.FormatSchemeMime) {
		for _, format := range shadowFile.Formats {
			if format.Scheme == constants.FormatSchemeMime {
				file.Formats = append(file.Formats, &models.Format{Scheme: format.Scheme, Value: format.Value})
			}
		}
	}

	stagingEvents, err := resolver.context.EventLog.GetEvents(stagedFile.SipRef,
		constants.EventFileUpload, constants.EventFixityDigest)
	if err != nil {
		return nil, resolver.transientError(ref, err, "cannot read staging events for %s", referenceURI)
	}
	events := make([]*models.Event, 0, len(stagingEvents)+1)
	for _, stagingEvent := range stagingEvents {
		if stagingEvent.Type == constants.EventFixityDigest && digestLogged(digests, file.Id, stagingEvent.Outcome) {
			continue
		}
		id, err := resolver.context.Identifiers.Create(constants.IdTypeEvent)
		if err != nil {
			return nil, resolver.transientError(ref, err, "cannot mint event id")
		}
		events = append(events, stagingEvent.Copy(id, file.Id))
	}
	resolution, err := resolver.newEvent(ref, constants.EventFileResolutionStaged, file.Id)
	if err != nil {
		return nil, err
	}
	resolution.Outcome = stagedFile.AccessURI
	resolution.Detail = referenceURI
	events = append(events, resolution)

	file.Source = stagedFile.AccessURI
	return events, nil
}

// digestLogged returns true if digests has an event for fileId with
// the same "algorithm:value" outcome, as the external content
// resolver records for content it downloads.
func digestLogged(digests []*models.Event, fileId, outcome string) bool {
	for _, event := range digests {
		if event.HasTarget(fileId) && strings.EqualFold(event.Outcome, outcome) {
			return true
		}
	}
	return false
}
