package ingest_test

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestCleanup(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	ref := env.store(t, simplePackage(env.server.URL+"/hello.txt"))
	env.run(t, ref,
		ingest.NewIdentifierLabeller(env.context),
		ingest.NewExternalContentResolver(env.context))

	resolutions := env.events(t, ref, constants.EventFileResolutionStaged)
	require.Equal(t, 1, len(resolutions))
	referenceURI := resolutions[0].Detail
	require.True(t, env.context.Staging.Contains(referenceURI))

	cleanup := ingest.NewCleanup(env.context)
	assert.Equal(t, constants.StageCleanup, cleanup.Name())
	require.Nil(t, cleanup.Execute(ref))

	assert.False(t, env.context.Staging.Contains(referenceURI))
	pkg, err := env.context.PackageStore.Get(ref)
	assert.Nil(t, err)
	assert.Nil(t, pkg)
	assert.Empty(t, env.events(t, ref))

	// Nothing left to clean up is fine.
	assert.Nil(t, cleanup.Execute(ref))
	assert.Nil(t, cleanup.Execute("no-such-ref"))
	assertIngestError(t, cleanup.Execute(""), constants.StageCleanup, ingest.ErrValidation)
}
