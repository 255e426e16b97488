// Package staging holds file content that has been submitted or
// downloaded but not yet resolved into a package.
package staging

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/dataconservancy/ingest/util/storage"
	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"
	"github.com/satori/go.uuid"
	"io"
	"strings"
	"time"
)

// Service is the file content staging service. Content added to the
// service stays there, along with a shadow package describing it,
// until it is retired.
type Service interface {
	Add(reader io.Reader, meta *models.StagedFileMetadata) (*models.StagedFile, error)

	// Get returns the staged file with the specified reference URI,
	// or nil and no error if there isn't one.
	Get(referenceURI string) (*models.StagedFile, error)

	// Contains returns true if uri is the reference URI or access
	// URI of content the service holds.
	Contains(uri string) bool

	// Retire deletes the staged file, its content, and its shadow
	// package. Retiring something already retired is not an error.
	Retire(referenceURI string) error

	// Open returns a reader over the staged content. Param uri may
	// be a reference URI or an access URI.
	Open(uri string) (io.ReadCloser, error)
}

// StagedDigestAlgorithms are calculated for all staged content.
var StagedDigestAlgorithms = []string{constants.AlgMd5, constants.AlgSha256}

// FileStagingService keeps content in a ContentStore, and keeps
// StagedFile records and shadow packages in the same bolt database
// as the package store.
type FileStagingService struct {
	AccessBaseURL string
	content       ContentStore
	db            *storage.BoltDB
	packages      *storage.PackageStore
	events        *storage.EventLog
	log           *logging.Logger
}

func NewFileStagingService(accessBaseURL string, content ContentStore, db *storage.BoltDB,
	packages *storage.PackageStore, events *storage.EventLog, log *logging.Logger) (*FileStagingService, error) {
	if accessBaseURL == "" {
		return nil, fmt.Errorf("Param accessBaseURL cannot be empty.")
	}
	if err := db.CreateBuckets(storage.STAGED_FILE_BUCKET); err != nil {
		return nil, err
	}
	return &FileStagingService{
		AccessBaseURL: strings.TrimRight(accessBaseURL, "/"),
		content:       content,
		db:            db,
		packages:      packages,
		events:        events,
		log:           log,
	}, nil
}

// Add stores the content from reader and creates its shadow package:
// one File whose id is the reference URI, with file.upload and
// fixity.digest events in the package's event log.
func (svc *FileStagingService) Add(reader io.Reader, meta *models.StagedFileMetadata) (*models.StagedFile, error) {
	if reader == nil {
		return nil, fmt.Errorf("Param reader cannot be nil.")
	}
	if meta == nil {
		meta = &models.StagedFileMetadata{}
	}
	digester, err := fileutil.NewDigester(StagedDigestAlgorithms...)
	if err != nil {
		return nil, err
	}
	key := uuid.NewV4().String()
	size, err := svc.content.Put(key, io.TeeReader(reader, digester), -1)
	if err != nil {
		svc.content.Delete(key)
		return nil, fmt.Errorf("Cannot stage content for '%s': %v", meta.Name, err)
	}
	stagedFile := &models.StagedFile{
		ReferenceURI: constants.StagedReferenceScheme + key,
		AccessURI:    svc.AccessBaseURL + "/" + key,
		Name:         meta.Name,
		ContentType:  meta.ContentType,
		SizeBytes:    size,
		ContentKey:   key,
		StagedAt:     time.Now().UTC(),
	}
	shadow, events, err := svc.shadowPackage(stagedFile, meta, digester.Digests())
	if err != nil {
		svc.content.Delete(key)
		return nil, err
	}
	sipRef, err := svc.packages.Add(shadow)
	if err != nil {
		svc.content.Delete(key)
		return nil, err
	}
	stagedFile.SipRef = sipRef
	if err = svc.packages.Commit(sipRef, nil, events); err != nil {
		svc.discard(stagedFile)
		return nil, err
	}
	if err = svc.db.Save(storage.STAGED_FILE_BUCKET, stagedFile.ReferenceURI, stagedFile); err != nil {
		svc.discard(stagedFile)
		return nil, err
	}
	svc.log.Infof("Staged %s (%s) as %s", meta.Name, humanize.Bytes(uint64(size)), stagedFile.ReferenceURI)
	return stagedFile, nil
}

func (svc *FileStagingService) shadowPackage(stagedFile *models.StagedFile, meta *models.StagedFileMetadata,
	digests map[string]string) (*models.Package, []*models.Event, error) {
	file := &models.File{
		Id:        stagedFile.ReferenceURI,
		Name:      meta.Name,
		Source:    stagedFile.AccessURI,
		Extant:    true,
		SizeBytes: stagedFile.SizeBytes,
	}
	if meta.ContentType != "" {
		file.Formats = []*models.Format{
			{Scheme: constants.FormatSchemeMime, Value: meta.ContentType},
		}
	}
	pkg := models.NewPackage()
	pkg.Files = []*models.File{file}

	upload, err := svc.events.NewEvent(constants.EventFileUpload)
	if err != nil {
		return nil, nil, err
	}
	upload.Outcome = fmt.Sprintf("%d", stagedFile.SizeBytes)
	upload.Detail = fmt.Sprintf("Staged %s", meta.Name)
	if meta.Source != "" {
		upload.Detail = fmt.Sprintf("Staged %s from %s", meta.Name, meta.Source)
	}
	upload.AddTargets(file.Id)
	events := []*models.Event{upload}

	for _, alg := range StagedDigestAlgorithms {
		file.Fixity = append(file.Fixity, &models.Fixity{Algorithm: alg, Value: digests[alg]})
		digestEvent, err := svc.events.NewEvent(constants.EventFixityDigest)
		if err != nil {
			return nil, nil, err
		}
		digestEvent.Outcome = fmt.Sprintf("%s:%s", alg, digests[alg])
		digestEvent.Detail = "Calculated while staging"
		digestEvent.AddTargets(file.Id)
		events = append(events, digestEvent)
	}
	return pkg, events, nil
}

// discard undoes a partly finished Add.
func (svc *FileStagingService) discard(stagedFile *models.StagedFile) {
	svc.content.Delete(stagedFile.ContentKey)
	svc.packages.Remove(stagedFile.SipRef)
	svc.events.RemoveEvents(stagedFile.SipRef)
}

func (svc *FileStagingService) Get(referenceURI string) (*models.StagedFile, error) {
	stagedFile := &models.StagedFile{}
	found, err := svc.db.Load(storage.STAGED_FILE_BUCKET, referenceURI, stagedFile)
	if err != nil || !found {
		return nil, err
	}
	return stagedFile, nil
}

// ReferenceURIFor returns the reference URI for uri, which may be
// a reference URI or an access URI. It returns an empty string if
// uri is neither.
func (svc *FileStagingService) ReferenceURIFor(uri string) string {
	if strings.HasPrefix(uri, constants.StagedReferenceScheme) {
		return uri
	}
	prefix := svc.AccessBaseURL + "/"
	if strings.HasPrefix(uri, prefix) {
		key := strings.TrimPrefix(uri, prefix)
		if key != "" && !strings.Contains(key, "/") {
			return constants.StagedReferenceScheme + key
		}
	}
	return ""
}

func (svc *FileStagingService) Contains(uri string) bool {
	referenceURI := svc.ReferenceURIFor(uri)
	if referenceURI == "" {
		return false
	}
	stagedFile, err := svc.Get(referenceURI)
	return err == nil && stagedFile != nil
}

func (svc *FileStagingService) Retire(referenceURI string) error {
	stagedFile, err := svc.Get(referenceURI)
	if err != nil {
		return err
	}
	if stagedFile == nil {
		return nil
	}
	if err = svc.content.Delete(stagedFile.ContentKey); err != nil {
		return fmt.Errorf("Cannot delete content of %s: %v", referenceURI, err)
	}
	if err = svc.packages.Remove(stagedFile.SipRef); err != nil {
		return err
	}
	if err = svc.events.RemoveEvents(stagedFile.SipRef); err != nil {
		return err
	}
	if err = svc.db.Delete(storage.STAGED_FILE_BUCKET, referenceURI); err != nil {
		return err
	}
	svc.log.Infof("Retired %s", referenceURI)
	return nil
}

func (svc *FileStagingService) Open(uri string) (io.ReadCloser, error) {
	stagedFile, err := svc.Get(svc.ReferenceURIFor(uri))
	if err != nil {
		return nil, err
	}
	if stagedFile == nil {
		return nil, fmt.Errorf("No staged file %s", uri)
	}
	return svc.content.Open(stagedFile.ContentKey)
}
