// Package ingest holds the stages that take a submission package from
// the package store to the archive, and the pipeline that runs them.
package ingest

import (
	"fmt"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/locks"
	"github.com/dataconservancy/ingest/models"
)

// Stage is one step of ingest. Execute works on the package stored
// under packageRef, and either commits all of its changes and events
// or none of them. A stage may be run again on a package it has
// already processed.
type Stage interface {
	Name() string
	Execute(packageRef string) error
}

// packageFunc examines or changes pkg. It returns the package to
// write back, or nil to leave the stored package alone, and the
// events to append to the package's event log.
type packageFunc func(ref string, pkg *models.Package) (*models.Package, []*models.Event, error)

type stageBase struct {
	name    string
	context *context.Context
}

func (stage *stageBase) Name() string {
	return stage.name
}

// withPackage loads ref's package while holding its lock, calls fn,
// and commits what fn returns in one transaction.
func (stage *stageBase) withPackage(ref string, fn packageFunc) error {
	if ref == "" {
		return stage.validationError(ref, nil, "Param packageRef cannot be empty.")
	}
	return locks.WithLock(stage.context.Locks, ref, func() error {
		pkg, err := stage.context.PackageStore.Get(ref)
		if err != nil {
			return stage.transientError(ref, err, "cannot load package")
		}
		if pkg == nil {
			return stage.validationError(ref, nil, "no such package")
		}
		updated, events, err := fn(ref, pkg)
		if err != nil {
			return err
		}
		if updated == nil && len(events) == 0 {
			return nil
		}
		if err = stage.context.PackageStore.Commit(ref, updated, events); err != nil {
			return stage.transientError(ref, err, "cannot save package")
		}
		return nil
	})
}

// newEvent returns an event with a fresh id, targeting targets.
func (stage *stageBase) newEvent(ref, eventType string, targets ...string) (*models.Event, error) {
	event, err := stage.context.EventLog.NewEvent(eventType)
	if err != nil {
		return nil, stage.transientError(ref, err, "cannot create %s event", eventType)
	}
	event.AddTargets(targets...)
	return event, nil
}

func (stage *stageBase) validationError(ref string, cause error, format string, a ...interface{}) error {
	return newError(stage.name, ref, ErrValidation, cause, format, a...)
}

func (stage *stageBase) transientError(ref string, cause error, format string, a ...interface{}) error {
	return newError(stage.name, ref, ErrTransient, cause, format, a...)
}

func (stage *stageBase) consistencyError(ref string, cause error, format string, a ...interface{}) error {
	return newError(stage.name, ref, ErrConsistency, cause, format, a...)
}

func (stage *stageBase) configurationError(ref string, cause error, format string, a ...interface{}) error {
	return newError(stage.name, ref, ErrConfiguration, cause, format, a...)
}

func (stage *stageBase) logStart(ref string) {
	stage.context.MessageLog.Debug("%s starting on %s", stage.name, ref)
}

func (stage *stageBase) logDone(ref string, format string, a ...interface{}) {
	stage.context.MessageLog.Info("%s %s: %s", stage.name, ref, fmt.Sprintf(format, a...))
}
