package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
)

/*
LineageLabeller gives every deliverable unit a lineage id. A DU that
succeeds another DU joins its predecessor's lineage. A DU with no
predecessor starts a new lineage, unless it already has one.

Predecessors in the same package are labelled first. Predecessors
that are not in the package must already be in the archive.
*/
type LineageLabeller struct {
	stageBase
}

func NewLineageLabeller(_context *context.Context) *LineageLabeller {
	return &LineageLabeller{stageBase{name: constants.StageLineageLabel, context: _context}}
}

func (labeller *LineageLabeller) Execute(packageRef string) error {
	labeller.logStart(packageRef)
	return labeller.withPackage(packageRef, labeller.label)
}

const (
	unvisited = iota
	visiting
	visited
)

// lineageRun holds the state of one pass over one package.
type lineageRun struct {
	labeller *LineageLabeller
	ref      string
	pkg      *models.Package
	state    map[string]int
	events   []*models.Event
	logged   []*models.Event
	changed  bool
}

func (labeller *LineageLabeller) label(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	logged, err := labeller.context.EventLog.GetEvents(ref, constants.EventDUUpdate)
	if err != nil {
		return nil, nil, labeller.transientError(ref, err, "cannot read event log")
	}
	run := &lineageRun{
		labeller: labeller,
		ref:      ref,
		pkg:      pkg,
		state:    make(map[string]int),
		events:   make([]*models.Event, 0),
		logged:   logged,
	}
	for _, du := range pkg.DeliverableUnits {
		if err := run.visit(du); err != nil {
			return nil, nil, err
		}
	}
	if !run.changed && len(run.events) == 0 {
		return nil, nil, nil
	}
	labeller.logDone(ref, "%d lineage updates", len(run.events))
	return pkg, run.events, nil
}

func (run *lineageRun) visit(du *models.DeliverableUnit) error {
	switch run.state[du.Id] {
	case visited:
		return nil
	case visiting:
		return run.labeller.validationError(run.ref, nil,
			"deliverable unit %s is part of a successor cycle", du.Id)
	}
	run.state[du.Id] = visiting

	predecessors := du.Predecessors()
	if len(predecessors) > 1 {
		return run.labeller.validationError(run.ref, nil,
			"deliverable unit %s has %d %s relations, only one is allowed",
			du.Id, len(predecessors), constants.RelIsSuccessorOf)
	}
	if len(predecessors) == 0 {
		if du.LineageId == "" {
			lineageId, err := run.labeller.context.Identifiers.Create(constants.IdTypeLineage)
			if err != nil {
				return run.labeller.transientError(run.ref, err, "cannot mint lineage id")
			}
			du.LineageId = lineageId
			run.changed = true
		}
		run.state[du.Id] = visited
		return nil
	}

	lineageId, err := run.predecessorLineage(du, predecessors[0])
	if err != nil {
		return err
	}
	if du.LineageId != "" && du.LineageId != lineageId {
		return run.labeller.validationError(run.ref, nil,
			"deliverable unit %s has lineage %s, but its predecessor %s has lineage %s",
			du.Id, du.LineageId, predecessors[0], lineageId)
	}
	if du.LineageId != lineageId {
		du.LineageId = lineageId
		run.changed = true
	}
	// A submitted lineage that already matches still gets its event.
	if !run.alreadyUpdated(du.Id) {
		event, err := run.labeller.newEvent(run.ref, constants.EventDUUpdate, du.Id)
		if err != nil {
			return err
		}
		event.Outcome = lineageId
		event.Detail = "Lineage of predecessor " + predecessors[0]
		run.events = append(run.events, event)
	}
	run.state[du.Id] = visited
	return nil
}

// alreadyUpdated returns true if an earlier run logged a du.update
// event for duId.
func (run *lineageRun) alreadyUpdated(duId string) bool {
	for _, event := range run.logged {
		if event.HasTarget(duId) {
			return true
		}
	}
	return false
}

// predecessorLineage returns the lineage of predecessorId, looking in
// the package first and then in the archive.
func (run *lineageRun) predecessorLineage(du *models.DeliverableUnit, predecessorId string) (string, error) {
	labeller := run.labeller
	if predecessor := run.pkg.FindDeliverableUnit(predecessorId); predecessor != nil {
		if err := run.visit(predecessor); err != nil {
			return "", err
		}
		return predecessor.LineageId, nil
	}
	if entity := run.pkg.FindEntity(predecessorId); entity != nil {
		return "", labeller.validationError(run.ref, nil,
			"predecessor %s of deliverable unit %s is a %s, not a %s",
			predecessorId, du.Id, entity.EntityKind(), constants.KindDeliverableUnit)
	}
	entity, err := labeller.context.Lookup.Lookup(predecessorId)
	if err != nil {
		return "", labeller.transientError(run.ref, err, "cannot look up predecessor %s", predecessorId)
	}
	if entity == nil {
		return "", labeller.validationError(run.ref, nil,
			"predecessor %s of deliverable unit %s not found", predecessorId, du.Id)
	}
	predecessor, ok := entity.(*models.DeliverableUnit)
	if !ok {
		return "", labeller.validationError(run.ref, nil,
			"predecessor %s of deliverable unit %s is a %s, not a %s",
			predecessorId, du.Id, entity.EntityKind(), constants.KindDeliverableUnit)
	}
	if predecessor.LineageId == "" {
		return "", labeller.consistencyError(run.ref, nil,
			"archived predecessor %s has no lineage id", predecessorId)
	}
	return predecessor.LineageId, nil
}
