package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/locks"
)

// Cleanup retires the staged content a package used, then removes the
// package and its event log from the package store. It runs after a
// successful ingest, and after a failed one if the config says so.
// Cleaning up a package that is already gone is not an error.
type Cleanup struct {
	stageBase
}

func NewCleanup(_context *context.Context) *Cleanup {
	return &Cleanup{stageBase{name: constants.StageCleanup, context: _context}}
}

func (cleanup *Cleanup) Execute(packageRef string) error {
	if packageRef == "" {
		return cleanup.validationError(packageRef, nil, "Param packageRef cannot be empty.")
	}
	cleanup.logStart(packageRef)
	return locks.WithLock(cleanup.context.Locks, packageRef, func() error {
		resolutions, err := cleanup.context.EventLog.GetEvents(packageRef, constants.EventFileResolutionStaged)
		if err != nil {
			return cleanup.transientError(packageRef, err, "cannot read event log")
		}
		for _, event := range resolutions {
			if event.Detail == "" {
				continue
			}
			if err = cleanup.context.Staging.Retire(event.Detail); err != nil {
				return cleanup.transientError(packageRef, err, "cannot retire %s", event.Detail)
			}
		}
		if err = cleanup.context.PackageStore.Remove(packageRef); err != nil {
			return cleanup.transientError(packageRef, err, "cannot remove package")
		}
		if err = cleanup.context.EventLog.RemoveEvents(packageRef); err != nil {
			return cleanup.transientError(packageRef, err, "cannot remove event log")
		}
		cleanup.logDone(packageRef, "retired %d staged files", len(resolutions))
		return nil
	})
}
