package workers

import (
	"fmt"
	"github.com/dataconservancy/ingest/models"
	"github.com/nsqio/go-nsq"
)

// CreateNsqConsumer returns an NSQ consumer for a worker process,
// set up from workerConfig. The consumer is not connected yet.
func CreateNsqConsumer(config *models.Config, workerConfig *models.WorkerConfig) (*nsq.Consumer, error) {
	if workerConfig.NsqTopic == "" || workerConfig.NsqChannel == "" {
		return nil, fmt.Errorf("Worker config needs both NsqTopic and NsqChannel (config %s)",
			config.ActiveConfig)
	}
	nsqConfig := nsq.NewConfig()
	settings := []struct {
		option string
		value  interface{}
	}{
		{"max_in_flight", workerConfig.MaxInFlight},
		{"heartbeat_interval", workerConfig.HeartbeatInterval},
		{"max_attempts", workerConfig.MaxAttempts},
		{"read_timeout", workerConfig.ReadTimeout},
		{"write_timeout", workerConfig.WriteTimeout},
		{"msg_timeout", workerConfig.MessageTimeout},
	}
	for _, setting := range settings {
		if setting.value == "" {
			continue
		}
		if err := nsqConfig.Set(setting.option, setting.value); err != nil {
			return nil, fmt.Errorf("Bad NSQ setting %s: %v", setting.option, err)
		}
	}
	return nsq.NewConsumer(workerConfig.NsqTopic, workerConfig.NsqChannel, nsqConfig)
}
