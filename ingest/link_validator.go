package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"strings"
)

// LinkValidator checks that every entity has a well-formed id, that
// no two entities share an id, and that every reference points into
// the package or at a permanent id.
type LinkValidator struct {
	stageBase
}

func NewLinkValidator(_context *context.Context) *LinkValidator {
	return &LinkValidator{stageBase{name: constants.StageLinkValidate, context: _context}}
}

func (validator *LinkValidator) Execute(packageRef string) error {
	validator.logStart(packageRef)
	return validator.withPackage(packageRef, validator.validate)
}

func (validator *LinkValidator) validate(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	if dups := pkg.DuplicateIds(); len(dups) > 0 {
		return nil, nil, validator.validationError(ref, nil,
			"ids used by more than one entity: %s", strings.Join(dups, ", "))
	}
	for _, entity := range pkg.Entities() {
		if !validator.wellFormed(entity.EntityId()) {
			return nil, nil, validator.validationError(ref, nil,
				"%s has malformed id '%s'", entity.EntityKind(), entity.EntityId())
		}
		if manifestation, ok := entity.(*models.Manifestation); ok {
			if manifestation.DeliverableUnit == nil || manifestation.DeliverableUnit.Ref == "" {
				return nil, nil, validator.validationError(ref, nil,
					"manifestation %s does not name a deliverable unit", manifestation.Id)
			}
		}
		for _, r := range entity.Refs() {
			if r.Ref == "" {
				return nil, nil, validator.validationError(ref, nil,
					"%s %s has an empty reference", entity.EntityKind(), entity.EntityId())
			}
			if pkg.Contains(r.Ref) || validator.context.Identifiers.IsPermanent(r.Ref) {
				continue
			}
			return nil, nil, validator.validationError(ref, nil,
				"%s %s refers to '%s', which is neither in the package nor a permanent id",
				entity.EntityKind(), entity.EntityId(), r.Ref)
		}
	}
	validator.logDone(ref, "links ok")
	return nil, nil, nil
}

func (validator *LinkValidator) wellFormed(id string) bool {
	if id == "" || strings.TrimSpace(id) != id {
		return false
	}
	return validator.context.Identifiers.IsPermanent(id) || constants.TempIdPattern.MatchString(id)
}
