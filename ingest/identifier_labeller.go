package ingest

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/identifier"
	"github.com/dataconservancy/ingest/models"
	"strings"
)

/*
IdentifierLabeller replaces the temporary ids in a package with
permanent ones, and rewrites every reference to a temporary id so it
points at the new id.

All new ids come from one bulk request, in the order the entities
appear in the package. References to ids outside the package are left
as they are, but after labelling each reference must point either
into the package or at a permanent id.
*/
type IdentifierLabeller struct {
	stageBase
}

func NewIdentifierLabeller(_context *context.Context) *IdentifierLabeller {
	return &IdentifierLabeller{stageBase{name: constants.StageIdentifierLabel, context: _context}}
}

func (labeller *IdentifierLabeller) Execute(packageRef string) error {
	labeller.logStart(packageRef)
	return labeller.withPackage(packageRef, labeller.label)
}

func (labeller *IdentifierLabeller) label(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	if dups := pkg.DuplicateIds(); len(dups) > 0 {
		return nil, nil, labeller.validationError(ref, nil,
			"ids used by more than one entity: %s", strings.Join(dups, ", "))
	}
	ids := labeller.context.Identifiers
	temporary := make([]models.Entity, 0)
	for _, entity := range pkg.Entities() {
		if entity.EntityId() == "" {
			return nil, nil, labeller.validationError(ref, nil, "%s has no id", entity.EntityKind())
		}
		if !ids.IsPermanent(entity.EntityId()) {
			temporary = append(temporary, entity)
		}
	}
	if len(temporary) == 0 {
		labeller.logDone(ref, "all ids already permanent")
		return nil, nil, nil
	}

	newIds, err := identifier.CreateBulk(ids, len(temporary), constants.IdTypeEntity)
	if err != nil {
		return nil, nil, labeller.transientError(ref, err, "cannot mint %d ids", len(temporary))
	}
	idMap := make(map[string]string, len(temporary))
	lines := make([]string, len(temporary))
	for i, entity := range temporary {
		idMap[entity.EntityId()] = newIds[i]
		lines[i] = fmt.Sprintf("%s -> %s", entity.EntityId(), newIds[i])
		entity.SetEntityId(newIds[i])
	}
	for _, entity := range pkg.Entities() {
		for _, r := range entity.Refs() {
			if newId, ok := idMap[r.Ref]; ok {
				r.Ref = newId
			}
		}
	}
	if err = labeller.checkDangling(ref, pkg); err != nil {
		return nil, nil, err
	}

	event, err := labeller.newEvent(ref, constants.EventIdentifierAssignment, newIds...)
	if err != nil {
		return nil, nil, err
	}
	event.Outcome = fmt.Sprintf("%d", len(newIds))
	event.Detail = strings.Join(lines, "\n")
	labeller.logDone(ref, "assigned %d permanent ids", len(newIds))
	return pkg, []*models.Event{event}, nil
}

// checkDangling returns an error for the first reference that points
// neither into the package nor at a permanent id.
func (labeller *IdentifierLabeller) checkDangling(ref string, pkg *models.Package) error {
	for _, entity := range pkg.Entities() {
		for _, r := range entity.Refs() {
			if pkg.Contains(r.Ref) || labeller.context.Identifiers.IsPermanent(r.Ref) {
				continue
			}
			return labeller.validationError(ref, nil,
				"%s %s refers to '%s', which is not in the package and is not a permanent id",
				entity.EntityKind(), entity.EntityId(), r.Ref)
		}
	}
	return nil
}
