package models

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
)

/*
Package is a submission information package (SIP): an unordered
aggregate of entities plus a model version tag. It is mutable while
it moves through the ingest stages and immutable once archived.
*/
type Package struct {
	ModelVersion     string             `json:"model_version"`
	Collections      []*Collection      `json:"collections,omitempty"`
	DeliverableUnits []*DeliverableUnit `json:"deliverable_units,omitempty"`
	Manifestations   []*Manifestation   `json:"manifestations,omitempty"`
	Files            []*File            `json:"files,omitempty"`
	Events           []*Event           `json:"events,omitempty"`
}

// NewPackage returns an empty package tagged with the current
// model version.
func NewPackage() *Package {
	return &Package{
		ModelVersion: constants.ModelVersion,
	}
}

// Entities returns every entity in the package. Collections come
// first, then DUs, manifestations, files and events, each in the
// order they appear in the package.
func (pkg *Package) Entities() []Entity {
	entities := make([]Entity, 0, pkg.Len())
	for _, c := range pkg.Collections {
		entities = append(entities, c)
	}
	for _, du := range pkg.DeliverableUnits {
		entities = append(entities, du)
	}
	for _, m := range pkg.Manifestations {
		entities = append(entities, m)
	}
	for _, f := range pkg.Files {
		entities = append(entities, f)
	}
	for _, e := range pkg.Events {
		entities = append(entities, e)
	}
	return entities
}

// Len returns the total number of entities in the package.
func (pkg *Package) Len() int {
	return len(pkg.Collections) + len(pkg.DeliverableUnits) +
		len(pkg.Manifestations) + len(pkg.Files) + len(pkg.Events)
}

// EntityIds returns the ids of all entities in the package, in
// the same order as Entities. Ids may repeat if the package is
// invalid.
func (pkg *Package) EntityIds() []string {
	ids := make([]string, 0, pkg.Len())
	for _, entity := range pkg.Entities() {
		ids = append(ids, entity.EntityId())
	}
	return ids
}

// FindEntity returns the first entity with the specified id,
// or nil.
func (pkg *Package) FindEntity(id string) Entity {
	for _, entity := range pkg.Entities() {
		if entity.EntityId() == id {
			return entity
		}
	}
	return nil
}

// Contains returns true if some entity in the package has this id.
func (pkg *Package) Contains(id string) bool {
	return pkg.FindEntity(id) != nil
}

// FindDeliverableUnit returns the DU with the specified id, or nil.
func (pkg *Package) FindDeliverableUnit(id string) *DeliverableUnit {
	for _, du := range pkg.DeliverableUnits {
		if du.Id == id {
			return du
		}
	}
	return nil
}

// FindFile returns the File with the specified id, or nil.
func (pkg *Package) FindFile(id string) *File {
	for _, file := range pkg.Files {
		if file.Id == id {
			return file
		}
	}
	return nil
}

// DuplicateIds returns ids that belong to more than one distinct
// entity, in the order in which the second occurrence was found.
func (pkg *Package) DuplicateIds() []string {
	seen := make(map[string]Entity)
	reported := make(map[string]bool)
	duplicates := make([]string, 0)
	for _, entity := range pkg.Entities() {
		id := entity.EntityId()
		previous, ok := seen[id]
		if !ok {
			seen[id] = entity
			continue
		}
		if previous != entity && !reported[id] {
			duplicates = append(duplicates, id)
			reported[id] = true
		}
	}
	return duplicates
}

// AddEntity adds entity to the slice for its kind.
func (pkg *Package) AddEntity(entity Entity) error {
	switch e := entity.(type) {
	case *Collection:
		pkg.Collections = append(pkg.Collections, e)
	case *DeliverableUnit:
		pkg.DeliverableUnits = append(pkg.DeliverableUnits, e)
	case *Manifestation:
		pkg.Manifestations = append(pkg.Manifestations, e)
	case *File:
		pkg.Files = append(pkg.Files, e)
	case *Event:
		pkg.Events = append(pkg.Events, e)
	default:
		return fmt.Errorf("Cannot add entity of type %T to package", entity)
	}
	return nil
}

// AddEvents appends events to the package, skipping any whose id
// is already present.
func (pkg *Package) AddEvents(events ...*Event) {
	for _, event := range events {
		if event == nil || pkg.Contains(event.Id) {
			continue
		}
		pkg.Events = append(pkg.Events, event)
	}
}

// EventsOfType returns the package's inline events of the
// specified type.
func (pkg *Package) EventsOfType(eventType string) []*Event {
	events := make([]*Event, 0)
	for _, event := range pkg.Events {
		if event.Type == eventType {
			events = append(events, event)
		}
	}
	return events
}
