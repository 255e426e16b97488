package models_test

import (
	"github.com/dataconservancy/ingest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMergeFixitySameValue(t *testing.T) {
	existing := []*models.Fixity{{Algorithm: "md5", Value: "abc"}}
	incoming := []*models.Fixity{{Algorithm: "MD5", Value: "ABC"}}
	merged, err := models.MergeFixity(existing, incoming)
	require.Nil(t, err)
	require.Equal(t, 1, len(merged))
	assert.Equal(t, "md5", merged[0].Algorithm)
	assert.Equal(t, "abc", merged[0].Value)
}

func TestMergeFixityConflict(t *testing.T) {
	existing := []*models.Fixity{{Algorithm: "md5", Value: "abc"}}
	incoming := []*models.Fixity{{Algorithm: "md5", Value: "def"}}
	merged, err := models.MergeFixity(existing, incoming)
	assert.Nil(t, merged)
	require.NotNil(t, err)
	conflict, ok := err.(*models.FixityConflictError)
	require.True(t, ok)
	assert.Equal(t, "md5", conflict.Algorithm)
	assert.Equal(t, "abc", conflict.Existing)
	assert.Equal(t, "def", conflict.Incoming)
	assert.Equal(t, "Fixity conflict for algorithm md5: abc != def", err.Error())
}

func TestMergeFixityAdditive(t *testing.T) {
	existing := []*models.Fixity{{Algorithm: "md5", Value: "abc"}}
	incoming := []*models.Fixity{{Algorithm: "sha256", Value: "123"}}
	merged, err := models.MergeFixity(existing, incoming)
	require.Nil(t, err)
	require.Equal(t, 2, len(merged))
	assert.Equal(t, "md5", merged[0].Algorithm)
	assert.Equal(t, "sha256", merged[1].Algorithm)

	// Inputs are not modified.
	assert.Equal(t, 1, len(existing))
	assert.Equal(t, 1, len(incoming))
}

func TestMergeFixityEmpty(t *testing.T) {
	merged, err := models.MergeFixity(nil, nil)
	require.Nil(t, err)
	assert.Empty(t, merged)

	merged, err = models.MergeFixity(nil, []*models.Fixity{{Algorithm: "sha1", Value: "1"}, nil})
	require.Nil(t, err)
	assert.Equal(t, 1, len(merged))
}
