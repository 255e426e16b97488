package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/dataconservancy/ingest/archive"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
)

/*
Archiver records an archive event targeting every entity in the
package, then hands the package, with every event in its log, to the
archive store.

The archive event is logged before the package goes to the archive,
so a rerun after a failed put reuses it instead of minting another.
*/
type Archiver struct {
	stageBase
}

func NewArchiver(_context *context.Context) *Archiver {
	return &Archiver{stageBase{name: constants.StageArchive, context: _context}}
}

func (archiver *Archiver) Execute(packageRef string) error {
	archiver.logStart(packageRef)
	return archiver.withPackage(packageRef, archiver.archive)
}

func (archiver *Archiver) archive(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	archiveEvent, err := archiver.context.EventLog.GetEventByType(ref, constants.EventArchive)
	if err != nil {
		return nil, nil, archiver.transientError(ref, err, "cannot read event log")
	}
	if archiveEvent == nil {
		archiveEvent, err = archiver.newEvent(ref, constants.EventArchive, pkg.EntityIds()...)
		if err != nil {
			return nil, nil, err
		}
		archiveEvent.Outcome = fmt.Sprintf("%d", pkg.Len())
		if err = archiver.context.EventLog.AddEvent(ref, archiveEvent); err != nil {
			return nil, nil, archiver.transientError(ref, err, "cannot log archive event")
		}
	}
	if err = putWithLoggedEvents(archiver.context, pkg, ref); err != nil {
		return nil, nil, archiver.putError(ref, err)
	}
	archiver.logDone(ref, "archived %d entities", pkg.Len())
	return nil, nil, nil
}

func (archiver *Archiver) putError(ref string, err error) error {
	var formatErr *codec.FormatError
	switch {
	case errors.As(err, &formatErr):
		return archiver.validationError(ref, err, "archive rejected package")
	case errors.Is(err, archive.ErrAlreadyArchived):
		return archiver.consistencyError(ref, err, "package conflicts with archived content")
	default:
		return archiver.transientError(ref, err, "cannot archive package")
	}
}

// putWithLoggedEvents adds every event in ref's log, other than
// ingest.fail events, to pkg and puts the result in the archive.
func putWithLoggedEvents(_context *context.Context, pkg *models.Package, ref string) error {
	logged, err := _context.EventLog.GetEvents(ref)
	if err != nil {
		return err
	}
	for _, event := range logged {
		if event.Type != constants.EventIngestFail {
			pkg.AddEvents(event)
		}
	}
	data, err := _context.Codec.Serialize(pkg)
	if err != nil {
		return err
	}
	return _context.Archive.PutPackage(bytes.NewReader(data))
}
