package ingest_test

import (
	"errors"
	"fmt"
	"github.com/dataconservancy/ingest/archive"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// labelledPackage stores an offline package and labels it.
func (env *testEnv) labelledPackage(t *testing.T) string {
	ref := env.store(t, offlinePackage(2, 2))
	env.run(t, ref,
		ingest.NewIdentifierLabeller(env.context),
		ingest.NewLineageLabeller(env.context),
		ingest.NewLinkValidator(env.context))
	return ref
}

func TestArchiver(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	ref := env.labelledPackage(t)
	pkg := env.load(t, ref)

	archiver := ingest.NewArchiver(env.context)
	assert.Equal(t, constants.StageArchive, archiver.Name())
	require.Nil(t, archiver.Execute(ref))

	events := env.events(t, ref, constants.EventArchive)
	require.Equal(t, 1, len(events))
	archiveEvent := events[0]
	assert.Equal(t, pkg.EntityIds(), archiveEvent.TargetIds())
	assert.Equal(t, fmt.Sprintf("%d", pkg.Len()), archiveEvent.Outcome)

	archived, err := env.context.Archive.GetPackage(pkg.DeliverableUnits[0].Id)
	require.Nil(t, err)
	require.NotNil(t, archived)
	for _, id := range pkg.EntityIds() {
		assert.True(t, archived.Contains(id), id)
	}
	// Logged events go in with the package.
	assert.True(t, archived.Contains(archiveEvent.Id))
	assert.Equal(t, 1, len(archived.EventsOfType(constants.EventIdentifierAssignment)))

	// The stored package is not changed.
	assert.Equal(t, env.serialize(t, pkg), env.serialize(t, env.load(t, ref)))

	// A second run reuses the archive event, and the archive accepts
	// the identical package.
	require.Nil(t, archiver.Execute(ref))
	assert.Equal(t, 1, len(env.events(t, ref, constants.EventArchive)))
}

func TestArchiverConflict(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	ref := env.labelledPackage(t)
	archiver := ingest.NewArchiver(env.context)
	require.Nil(t, archiver.Execute(ref))

	pkg := env.load(t, ref)
	pkg.DeliverableUnits[0].Title = "A different title"
	require.Nil(t, env.context.PackageStore.Update(pkg, ref))
	err := archiver.Execute(ref)
	ingestErr := assertIngestError(t, err, constants.StageArchive, ingest.ErrConsistency)
	assert.True(t, errors.Is(ingestErr, archive.ErrAlreadyArchived))
}

func TestArchiverDuplicateIds(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	pkg := offlinePackage(1, 2)
	pkg.Files[1].Id = pkg.Files[0].Id
	ref := env.store(t, pkg)
	err := ingest.NewArchiver(env.context).Execute(ref)
	assertIngestError(t, err, constants.StageArchive, ingest.ErrValidation)
}
