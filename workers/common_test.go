package workers_test

import (
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestCreateNsqConsumer(t *testing.T) {
	config, err := models.LoadConfigFile("config/test.json")
	require.Nil(t, err)
	consumer, err := workers.CreateNsqConsumer(config, &config.IngestWorker)
	require.Nil(t, err)
	require.NotNil(t, consumer)
	consumer.Stop()

	workerConfig := config.IngestWorker
	workerConfig.HeartbeatInterval = "not a duration"
	_, err = workers.CreateNsqConsumer(config, &workerConfig)
	assert.NotNil(t, err)

	workerConfig = config.IngestWorker
	workerConfig.NsqTopic = ""
	_, err = workers.CreateNsqConsumer(config, &workerConfig)
	assert.NotNil(t, err)
}
