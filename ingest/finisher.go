package ingest

import (
	"bytes"
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util"
	"strings"
	"time"
)

/*
Finisher waits until the lookup service can see every entity and
event that was archived, then records ingest.success and archives
that event too, either on its own or along with the whole package
(see models.FinisherConfig).

Polling happens without the package lock. If anything is still
missing when MaxPollTime runs out, the package fails with a
consistency error and no ingest.success is recorded: the archive
now holds content that searches can't find.
*/
type Finisher struct {
	stageBase
	sleep func(time.Duration)
}

func NewFinisher(_context *context.Context) *Finisher {
	return &Finisher{
		stageBase: stageBase{name: constants.StageFinish, context: _context},
		sleep:     time.Sleep,
	}
}

func (finisher *Finisher) Execute(packageRef string) error {
	finisher.logStart(packageRef)
	var success *models.Event
	var archivedIds []string
	err := finisher.withPackage(packageRef, func(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
		var err error
		success, archivedIds, err = finisher.archivedIds(ref, pkg)
		return nil, nil, err
	})
	if err != nil {
		return err
	}

	if success == nil {
		if err = finisher.waitForIndex(packageRef, archivedIds); err != nil {
			return err
		}
		err = finisher.withPackage(packageRef, func(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
			var err error
			success, _, err = finisher.archivedIds(ref, pkg)
			if err != nil || success != nil {
				return nil, nil, err
			}
			success, err = finisher.newEvent(ref, constants.EventIngestSuccess, archivedIds...)
			if err != nil {
				return nil, nil, err
			}
			success.Outcome = fmt.Sprintf("%d", len(archivedIds))
			return nil, []*models.Event{success}, nil
		})
		if err != nil {
			return err
		}
	}
	return finisher.withPackage(packageRef, func(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
		return nil, nil, finisher.archiveSuccess(ref, pkg, success)
	})
}

// archivedIds returns the ingest.success event, if it's already
// logged, and the ids of everything the archiver put in the archive.
func (finisher *Finisher) archivedIds(ref string, pkg *models.Package) (*models.Event, []string, error) {
	logged, err := finisher.context.EventLog.GetEvents(ref)
	if err != nil {
		return nil, nil, finisher.transientError(ref, err, "cannot read event log")
	}
	ids := pkg.EntityIds()
	var success *models.Event
	for _, event := range logged {
		switch event.Type {
		case constants.EventIngestSuccess:
			success = event
		case constants.EventIngestFail:
		default:
			ids = append(ids, event.Id)
		}
	}
	return success, util.UniqueStrings(ids), nil
}

// waitForIndex polls the lookup service until it finds every id,
// checking only the ids it hasn't found yet.
func (finisher *Finisher) waitForIndex(ref string, ids []string) error {
	config := finisher.context.Config.Finisher
	if !config.VerifyIngest {
		finisher.context.MessageLog.Info("Not verifying ingest of %s", ref)
		return nil
	}
	deadline := time.Now().Add(config.MaxPollTime())
	missing := ids
	attempts := 0
	for {
		attempts++
		stillMissing := make([]string, 0, len(missing))
		for _, id := range missing {
			entity, err := finisher.context.Lookup.Lookup(id)
			if err != nil {
				return finisher.transientError(ref, err, "cannot look up %s", id)
			}
			if entity == nil {
				stillMissing = append(stillMissing, id)
			}
		}
		missing = stillMissing
		if len(missing) == 0 {
			finisher.logDone(ref, "%d ids visible after %d attempts", len(ids), attempts)
			return nil
		}
		if !time.Now().Add(config.PollInterval()).Before(deadline) {
			return finisher.consistencyError(ref, nil,
				"after %d attempts over %s, the index still can't find %d archived ids: %s",
				attempts, config.MaxPollTime(), len(missing), strings.Join(missing, ", "))
		}
		finisher.sleep(config.PollInterval())
	}
}

// archiveSuccess puts the ingest.success event in the archive,
// unless an earlier run already did.
func (finisher *Finisher) archiveSuccess(ref string, pkg *models.Package, success *models.Event) error {
	archived, err := finisher.context.Archive.GetPackage(success.Id)
	if err != nil {
		return finisher.transientError(ref, err, "cannot check archive for %s", success.Id)
	}
	if archived != nil {
		return nil
	}
	if finisher.context.Config.Finisher.ArchiveFullPackage {
		err = putWithLoggedEvents(finisher.context, pkg, ref)
	} else {
		successPkg := models.NewPackage()
		successPkg.Events = []*models.Event{success}
		var data []byte
		data, err = finisher.context.Codec.Serialize(successPkg)
		if err == nil {
			err = finisher.context.Archive.PutPackage(bytes.NewReader(data))
		}
	}
	if err != nil {
		return finisher.transientError(ref, err, "cannot archive %s event", constants.EventIngestSuccess)
	}
	finisher.logDone(ref, "ingest complete")
	return nil
}
