package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/nsqio/nsq/nsqd"
	"io/ioutil"
	"net/http"
	"net/url"
)

// NSQStats contains info about the status of NSQ and its topics
// and queues. This info comes from a GET call to the /stats endpoint.
type NSQStats struct {
	StatusCode int          `json:"status_code"`
	StatusText string       `json:"status_txt"`
	Data       NSQStatsData `json:"data"`
}

// NSQStats data contains the important info returned by a call
// to NSQ's /stats endpoint, including the number of items in each
// topic and queue.
type NSQStatsData struct {
	Version string            `json:"version"`
	Health  string            `json:"health"`
	Topics  []nsqd.TopicStats `json:"topics"`
}

// GetTopic returns the stats for the named topic, or nil.
func (data *NSQStatsData) GetTopic(name string) *nsqd.TopicStats {
	for i := range data.Topics {
		if data.Topics[i].TopicName == name {
			return &data.Topics[i]
		}
	}
	return nil
}

type NSQClient struct {
	URL string
}

// Returns a new NSQ client that will connect to the NSQ server
// and the specified url. The URL is typically available through
// Config.NsqdHttpAddress, and usually ends with :4151. This is
// the URL to which we post packages we want to ingest.
//
// Note that this client provides write access to queue, so we can
// add things. It does not provide read access. The workers do the
// reading.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{URL: url}
}

// Enqueue posts body to NSQ under the specified topic. The ingest
// worker accepts either a package store reference or a whole
// serialized package as the body.
func (client *NSQClient) Enqueue(topic string, body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("Param body cannot be empty.")
	}
	url := fmt.Sprintf("%s/pub?topic=%s", client.URL, url.QueryEscape(topic))
	resp, err := http.Post(url, "application/octet-stream", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("Nsqd returned an error when queuing data: %v", err)
	}
	if resp == nil {
		return fmt.Errorf("No response from nsqd at '%s'. Is it running?", url)
	}

	// nsqd sends a simple OK. We have to read the response body,
	// or the connection will hang open forever.
	respBody, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != 200 {
		bodyText := "[no response body]"
		if len(respBody) > 0 {
			bodyText = string(respBody)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to queue data. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}

// GetStats returns basic stats from NSQ. The NSQ /stats endpoint
// returns a richer set of stats than what this function returns,
// but we only need topic and channel depths. Note that requests to
// /stats/ (with trailing slash) produce a 404.
func (client *NSQClient) GetStats() (*NSQStats, error) {
	url := fmt.Sprintf("%s/stats?format=json", client.URL)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("NSQ returned status code %d, body: %s",
			resp.StatusCode, body)
	}
	stats := &NSQStats{}
	err = json.Unmarshal(body, stats)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// QueueDepth returns the number of messages waiting in topic,
// counting the topic's own queue and each of its channels. A topic
// nsqd has never seen has depth zero.
func (client *NSQClient) QueueDepth(topic string) (int64, error) {
	stats, err := client.GetStats()
	if err != nil {
		return 0, err
	}
	topicStats := stats.Data.GetTopic(topic)
	if topicStats == nil {
		return 0, nil
	}
	depth := topicStats.Depth
	for _, channel := range topicStats.Channels {
		depth += channel.Depth
	}
	return depth, nil
}
