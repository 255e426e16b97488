package ingest_test

import (
	"bytes"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/ingest"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func duPackage(dus ...*models.DeliverableUnit) *models.Package {
	pkg := models.NewPackage()
	pkg.DeliverableUnits = dus
	return pkg
}

func (env *testEnv) archive(t *testing.T, pkg *models.Package) {
	data, err := env.context.Codec.Serialize(pkg)
	require.Nil(t, err)
	require.Nil(t, env.context.Archive.PutPackage(bytes.NewReader(data)))
}

// archivedDU archives a DU with a permanent id and a lineage.
func (env *testEnv) archivedDU(t *testing.T) *models.DeliverableUnit {
	id, err := env.context.Identifiers.Create(constants.IdTypeEntity)
	require.Nil(t, err)
	lineage, err := env.context.Identifiers.Create(constants.IdTypeLineage)
	require.Nil(t, err)
	du := testdata.MakeDeliverableUnit(id)
	du.LineageId = lineage
	env.archive(t, duPackage(du))
	return du
}

func TestLineageLabellerStartsNewLineage(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	ref := env.store(t, duPackage(
		testdata.MakeDeliverableUnit("example:/du/1"),
		testdata.MakeDeliverableUnit("example:/du/2")))

	labeller := ingest.NewLineageLabeller(env.context)
	assert.Equal(t, constants.StageLineageLabel, labeller.Name())
	require.Nil(t, labeller.Execute(ref))
	pkg := env.load(t, ref)
	assert.NotEmpty(t, pkg.DeliverableUnits[0].LineageId)
	assert.NotEmpty(t, pkg.DeliverableUnits[1].LineageId)
	assert.NotEqual(t, pkg.DeliverableUnits[0].LineageId, pkg.DeliverableUnits[1].LineageId)
	assert.Empty(t, env.events(t, ref))
}

func TestLineageLabellerInPackagePredecessor(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	successor := testdata.MakeDeliverableUnit("example:/du/v2")
	successor.AddRelation(constants.RelIsSuccessorOf, "example:/du/v1")
	predecessor := testdata.MakeDeliverableUnit("example:/du/v1")
	// Successor comes first, so the predecessor has to be labelled
	// out of order.
	ref := env.store(t, duPackage(successor, predecessor))

	labeller := ingest.NewLineageLabeller(env.context)
	require.Nil(t, labeller.Execute(ref))
	pkg := env.load(t, ref)
	lineage := pkg.FindDeliverableUnit("example:/du/v1").LineageId
	require.NotEmpty(t, lineage)
	assert.Equal(t, lineage, pkg.FindDeliverableUnit("example:/du/v2").LineageId)

	events := env.events(t, ref, constants.EventDUUpdate)
	require.Equal(t, 1, len(events))
	assert.Equal(t, []string{"example:/du/v2"}, events[0].TargetIds())
	assert.Equal(t, lineage, events[0].Outcome)

	// Running again changes nothing.
	before := env.serialize(t, pkg)
	require.Nil(t, labeller.Execute(ref))
	assert.Equal(t, before, env.serialize(t, env.load(t, ref)))
	assert.Equal(t, 1, len(env.events(t, ref, constants.EventDUUpdate)))
}

func TestLineageLabellerArchivedPredecessor(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	archived := env.archivedDU(t)
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.AddRelation(constants.RelIsSuccessorOf, archived.Id)
	ref := env.store(t, duPackage(du))

	require.Nil(t, ingest.NewLineageLabeller(env.context).Execute(ref))
	assert.Equal(t, archived.LineageId, env.load(t, ref).DeliverableUnits[0].LineageId)
	assert.Equal(t, 1, len(env.events(t, ref, constants.EventDUUpdate)))
}

func TestLineageLabellerMatchingLineage(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	archived := env.archivedDU(t)
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.LineageId = archived.LineageId
	du.AddRelation(constants.RelIsSuccessorOf, archived.Id)
	ref := env.store(t, duPackage(du))
	before := env.serialize(t, env.load(t, ref))

	labeller := ingest.NewLineageLabeller(env.context)
	require.Nil(t, labeller.Execute(ref))
	assert.Equal(t, before, env.serialize(t, env.load(t, ref)))
	events := env.events(t, ref, constants.EventDUUpdate)
	require.Equal(t, 1, len(events))
	assert.Equal(t, []string{du.Id}, events[0].TargetIds())
	assert.Equal(t, archived.LineageId, events[0].Outcome)

	// The logged event keeps a second run from adding another.
	require.Nil(t, labeller.Execute(ref))
	assert.Equal(t, 1, len(env.events(t, ref, constants.EventDUUpdate)))
}

func TestLineageLabellerConflictingLineage(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	archived := env.archivedDU(t)
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.LineageId = "http://localhost:8080/ids/lineage/some-other-lineage"
	du.AddRelation(constants.RelIsSuccessorOf, archived.Id)
	ref := env.store(t, duPackage(du))

	err := ingest.NewLineageLabeller(env.context).Execute(ref)
	assertIngestError(t, err, constants.StageLineageLabel, ingest.ErrValidation)
	assert.Equal(t, du.LineageId, env.load(t, ref).DeliverableUnits[0].LineageId)
}

func TestLineageLabellerPredecessorNotFound(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.AddRelation(constants.RelIsSuccessorOf, "http://localhost:8080/ids/entity/e51b4d2a-8b1c-4a6e-9d59-0b4c7e2c1f00")
	ref := env.store(t, duPackage(du))

	err := ingest.NewLineageLabeller(env.context).Execute(ref)
	ingestErr := assertIngestError(t, err, constants.StageLineageLabel, ingest.ErrValidation)
	assert.Contains(t, ingestErr.Message, "not found")
	assert.Empty(t, env.load(t, ref).DeliverableUnits[0].LineageId)
}

func TestLineageLabellerPredecessorIsNotADU(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.AddRelation(constants.RelIsSuccessorOf, "example:/file/1")
	pkg := duPackage(du)
	pkg.Files = []*models.File{testdata.MakeFile("example:/file/1")}
	ref := env.store(t, pkg)

	err := ingest.NewLineageLabeller(env.context).Execute(ref)
	ingestErr := assertIngestError(t, err, constants.StageLineageLabel, ingest.ErrValidation)
	assert.Contains(t, ingestErr.Message, constants.KindFile)
}

func TestLineageLabellerRejectsCycles(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	a := testdata.MakeDeliverableUnit("example:/du/a")
	b := testdata.MakeDeliverableUnit("example:/du/b")
	a.AddRelation(constants.RelIsSuccessorOf, b.Id)
	b.AddRelation(constants.RelIsSuccessorOf, a.Id)
	ref := env.store(t, duPackage(a, b))

	err := ingest.NewLineageLabeller(env.context).Execute(ref)
	ingestErr := assertIngestError(t, err, constants.StageLineageLabel, ingest.ErrValidation)
	assert.Contains(t, ingestErr.Message, "cycle")
}

func TestLineageLabellerRejectsTwoPredecessors(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	first := env.archivedDU(t)
	second := env.archivedDU(t)
	du := testdata.MakeDeliverableUnit("example:/du/v2")
	du.AddRelation(constants.RelIsSuccessorOf, first.Id)
	du.AddRelation(constants.RelIsSuccessorOf, second.Id)
	ref := env.store(t, duPackage(du))

	err := ingest.NewLineageLabeller(env.context).Execute(ref)
	assertIngestError(t, err, constants.StageLineageLabel, ingest.ErrValidation)
}
