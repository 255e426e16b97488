package ingest

import (
	"github.com/dataconservancy/ingest/archive"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"sort"
	"strings"
)

// BranchChecker rejects packages that would give a deliverable unit
// more than one successor, whether both successors are in the package
// or one is already archived. It changes nothing and records no events.
// It expects LineageLabeller to have run.
type BranchChecker struct {
	stageBase
}

func NewBranchChecker(_context *context.Context) *BranchChecker {
	return &BranchChecker{stageBase{name: constants.StageBranchCheck, context: _context}}
}

func (checker *BranchChecker) Execute(packageRef string) error {
	checker.logStart(packageRef)
	return checker.withPackage(packageRef, checker.check)
}

func (checker *BranchChecker) check(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	successors := make(map[string][]string)
	for _, du := range pkg.DeliverableUnits {
		predecessors := du.Predecessors()
		if len(predecessors) == 0 {
			continue
		}
		if du.LineageId == "" {
			return nil, nil, checker.validationError(ref, nil,
				"deliverable unit %s has a predecessor but no lineage id; "+
					"%s must run before %s", du.Id, constants.StageLineageLabel, checker.name)
		}
		for _, predecessorId := range predecessors {
			successors[predecessorId] = append(successors[predecessorId], du.Id)
		}
	}

	predecessorIds := make([]string, 0, len(successors))
	for id := range successors {
		predecessorIds = append(predecessorIds, id)
	}
	sort.Strings(predecessorIds)
	for _, predecessorId := range predecessorIds {
		inPackage := successors[predecessorId]
		if len(inPackage) > 1 {
			return nil, nil, checker.validationError(ref, nil,
				"branch in package: %s all succeed %s", strings.Join(inPackage, ", "), predecessorId)
		}
		query := &archive.Query{
			Kind:           constants.KindDeliverableUnit,
			RelationType:   constants.RelIsSuccessorOf,
			RelationTarget: predecessorId,
		}
		archived, err := checker.context.Lookup.Query(query, 0, 0)
		if err != nil {
			return nil, nil, checker.transientError(ref, err, "cannot query successors of %s", predecessorId)
		}
		for _, entity := range archived {
			if entity.EntityId() != inPackage[0] {
				return nil, nil, checker.validationError(ref, nil,
					"branch in archive: %s succeeds %s, which already has archived successor %s",
					inPackage[0], predecessorId, entity.EntityId())
			}
		}
	}
	return nil, nil, nil
}
