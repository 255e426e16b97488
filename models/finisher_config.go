package models

import (
	"encoding/json"
	"time"
)

const (
	DefaultPollIntervalMillis = 1000
	DefaultMaxPollTimeMillis  = 60000
)

/*
FinisherConfig controls how the finisher confirms that archived
entities are visible to lookups.

The poll interval and maximum poll time can only be changed through
the setters, which reject non-positive values and an interval that is
not strictly less than the maximum poll time. A FinisherConfig loaded
from JSON goes through the same checks.
*/
type FinisherConfig struct {
	pollIntervalMillis int64
	maxPollTimeMillis  int64

	// VerifyIngest turns index confirmation on or off. When it's
	// off, the finisher records ingest.success without polling.
	VerifyIngest bool

	// ArchiveFullPackage tells the finisher to re-archive the whole
	// package along with the ingest.success event, rather than just
	// the event.
	ArchiveFullPackage bool
}

// NewFinisherConfig returns a FinisherConfig with verification on,
// polling once a second for up to a minute.
func NewFinisherConfig() *FinisherConfig {
	return &FinisherConfig{
		pollIntervalMillis: DefaultPollIntervalMillis,
		maxPollTimeMillis:  DefaultMaxPollTimeMillis,
		VerifyIngest:       true,
	}
}

func (fc *FinisherConfig) PollIntervalMillis() int64 {
	return fc.pollIntervalMillis
}

func (fc *FinisherConfig) MaxPollTimeMillis() int64 {
	return fc.maxPollTimeMillis
}

func (fc *FinisherConfig) PollInterval() time.Duration {
	return time.Duration(fc.pollIntervalMillis) * time.Millisecond
}

func (fc *FinisherConfig) MaxPollTime() time.Duration {
	return time.Duration(fc.maxPollTimeMillis) * time.Millisecond
}

// SetPollIntervalMillis sets the time between lookups. On error,
// the config is unchanged.
func (fc *FinisherConfig) SetPollIntervalMillis(millis int64) error {
	return fc.SetPollTiming(millis, fc.maxPollTimeMillis)
}

// SetMaxPollTimeMillis sets how long the finisher polls before
// giving up. On error, the config is unchanged.
func (fc *FinisherConfig) SetMaxPollTimeMillis(millis int64) error {
	return fc.SetPollTiming(fc.pollIntervalMillis, millis)
}

// SetPollTiming sets both values at once, for when neither order
// of the single setters would pass validation.
func (fc *FinisherConfig) SetPollTiming(intervalMillis, maxMillis int64) error {
	if intervalMillis <= 0 {
		return NewConfigurationError("PollIntervalMillis",
			"must be positive, got %d", intervalMillis)
	}
	if maxMillis <= 0 {
		return NewConfigurationError("MaxPollTimeMillis",
			"must be positive, got %d", maxMillis)
	}
	if intervalMillis >= maxMillis {
		return NewConfigurationError("PollIntervalMillis",
			"%d must be less than MaxPollTimeMillis %d", intervalMillis, maxMillis)
	}
	fc.pollIntervalMillis = intervalMillis
	fc.maxPollTimeMillis = maxMillis
	return nil
}

// Validate checks a config that may not have been built with
// NewFinisherConfig.
func (fc *FinisherConfig) Validate() error {
	copied := &FinisherConfig{}
	return copied.SetPollTiming(fc.pollIntervalMillis, fc.maxPollTimeMillis)
}

type finisherConfigJson struct {
	PollIntervalMillis *int64 `json:"PollIntervalMillis,omitempty"`
	MaxPollTimeMillis  *int64 `json:"MaxPollTimeMillis,omitempty"`
	VerifyIngest       *bool  `json:"VerifyIngest,omitempty"`
	ArchiveFullPackage bool   `json:"ArchiveFullPackage"`
}

func (fc *FinisherConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(&finisherConfigJson{
		PollIntervalMillis: &fc.pollIntervalMillis,
		MaxPollTimeMillis:  &fc.maxPollTimeMillis,
		VerifyIngest:       &fc.VerifyIngest,
		ArchiveFullPackage: fc.ArchiveFullPackage,
	})
}

// UnmarshalJSON starts from the defaults in NewFinisherConfig and
// applies whatever the JSON sets, through SetPollTiming.
func (fc *FinisherConfig) UnmarshalJSON(data []byte) error {
	aux := &finisherConfigJson{}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	defaults := NewFinisherConfig()
	interval := defaults.pollIntervalMillis
	if aux.PollIntervalMillis != nil {
		interval = *aux.PollIntervalMillis
	}
	maxTime := defaults.maxPollTimeMillis
	if aux.MaxPollTimeMillis != nil {
		maxTime = *aux.MaxPollTimeMillis
	}
	if err := defaults.SetPollTiming(interval, maxTime); err != nil {
		return err
	}
	if aux.VerifyIngest != nil {
		defaults.VerifyIngest = *aux.VerifyIngest
	}
	defaults.ArchiveFullPackage = aux.ArchiveFullPackage
	*fc = *defaults
	return nil
}
