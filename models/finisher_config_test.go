package models_test

import (
	"encoding/json"
	"github.com/dataconservancy/ingest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNewFinisherConfig(t *testing.T) {
	fc := models.NewFinisherConfig()
	assert.EqualValues(t, models.DefaultPollIntervalMillis, fc.PollIntervalMillis())
	assert.EqualValues(t, models.DefaultMaxPollTimeMillis, fc.MaxPollTimeMillis())
	assert.Equal(t, time.Second, fc.PollInterval())
	assert.Equal(t, time.Minute, fc.MaxPollTime())
	assert.True(t, fc.VerifyIngest)
	assert.False(t, fc.ArchiveFullPackage)
	assert.Nil(t, fc.Validate())
}

func TestFinisherConfigSettersRejectBadValues(t *testing.T) {
	fc := models.NewFinisherConfig()
	for _, bad := range []int64{0, -1} {
		err := fc.SetPollIntervalMillis(bad)
		require.NotNil(t, err)
		_, ok := err.(*models.ConfigurationError)
		assert.True(t, ok)

		err = fc.SetMaxPollTimeMillis(bad)
		require.NotNil(t, err)
		_, ok = err.(*models.ConfigurationError)
		assert.True(t, ok)
	}

	// Interval equal to or greater than the timeout.
	assert.NotNil(t, fc.SetPollIntervalMillis(models.DefaultMaxPollTimeMillis))
	assert.NotNil(t, fc.SetPollIntervalMillis(models.DefaultMaxPollTimeMillis+1))
	assert.NotNil(t, fc.SetMaxPollTimeMillis(models.DefaultPollIntervalMillis))

	// Failed sets leave the config alone.
	assert.EqualValues(t, models.DefaultPollIntervalMillis, fc.PollIntervalMillis())
	assert.EqualValues(t, models.DefaultMaxPollTimeMillis, fc.MaxPollTimeMillis())
}

func TestFinisherConfigSetters(t *testing.T) {
	fc := models.NewFinisherConfig()
	require.Nil(t, fc.SetMaxPollTimeMillis(500000))
	require.Nil(t, fc.SetPollIntervalMillis(2000))
	assert.EqualValues(t, 2000, fc.PollIntervalMillis())
	assert.EqualValues(t, 500000, fc.MaxPollTimeMillis())

	require.Nil(t, fc.SetPollTiming(10, 20))
	assert.EqualValues(t, 10, fc.PollIntervalMillis())
	assert.EqualValues(t, 20, fc.MaxPollTimeMillis())
}

func TestFinisherConfigJson(t *testing.T) {
	fc := &models.FinisherConfig{}
	err := json.Unmarshal([]byte(`{"PollIntervalMillis": 250, "MaxPollTimeMillis": 500, "VerifyIngest": false}`), fc)
	require.Nil(t, err)
	assert.EqualValues(t, 250, fc.PollIntervalMillis())
	assert.EqualValues(t, 500, fc.MaxPollTimeMillis())
	assert.False(t, fc.VerifyIngest)

	data, err := json.Marshal(fc)
	require.Nil(t, err)
	copied := &models.FinisherConfig{}
	require.Nil(t, json.Unmarshal(data, copied))
	assert.Equal(t, fc, copied)

	// Missing values come from the defaults.
	fc = &models.FinisherConfig{}
	require.Nil(t, json.Unmarshal([]byte(`{}`), fc))
	assert.EqualValues(t, models.DefaultPollIntervalMillis, fc.PollIntervalMillis())
	assert.True(t, fc.VerifyIngest)

	err = json.Unmarshal([]byte(`{"PollIntervalMillis": 500, "MaxPollTimeMillis": 500}`), fc)
	require.NotNil(t, err)
	_, ok := err.(*models.ConfigurationError)
	assert.True(t, ok)
}
