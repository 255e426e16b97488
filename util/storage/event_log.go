package storage

import (
	"encoding/json"
	"fmt"
	"github.com/boltdb/bolt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/identifier"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util"
)

/*
EventLog is the append-only provenance record for each package in
the package store. Events for a package live in their own nested
bucket, keyed by the bucket's sequence number, so they always come
back in the order they were added.
*/
type EventLog struct {
	db  *BoltDB
	ids identifier.Service
}

// NewEventLog returns an event log kept in db that mints event ids
// with ids.
func NewEventLog(db *BoltDB, ids identifier.Service) (*EventLog, error) {
	if err := db.initBuckets([]string{EVENT_BUCKET}); err != nil {
		return nil, err
	}
	return &EventLog{db: db, ids: ids}, nil
}

// NewEvent returns a new event of the specified type with a freshly
// minted permanent id. The event is not in the log until it is added.
func (log *EventLog) NewEvent(eventType string) (*models.Event, error) {
	if !util.StringListContains(constants.EventTypes, eventType) {
		return nil, fmt.Errorf("Unknown event type '%s'", eventType)
	}
	id, err := log.ids.Create(constants.IdTypeEvent)
	if err != nil {
		return nil, fmt.Errorf("Cannot mint event id: %v", err)
	}
	return models.NewEvent(id, eventType)
}

// AddEvent appends event to ref's log.
func (log *EventLog) AddEvent(ref string, event *models.Event) error {
	return log.AddEvents(ref, event)
}

// AddEvents appends events to ref's log in one transaction.
func (log *EventLog) AddEvents(ref string, events ...*models.Event) error {
	if ref == "" {
		return fmt.Errorf("Param ref cannot be empty.")
	}
	return log.db.Update(func(tx *bolt.Tx) error {
		return appendEvents(tx, ref, events)
	})
}

// GetEvents returns ref's events in the order they were added. If
// any types are specified, only events of those types come back.
func (log *EventLog) GetEvents(ref string, types ...string) ([]*models.Event, error) {
	events := make([]*models.Event, 0)
	err := log.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(EVENT_BUCKET)).Bucket([]byte(ref))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			event := &models.Event{}
			if err := json.Unmarshal(v, event); err != nil {
				return err
			}
			if len(types) == 0 || util.StringListContains(types, event.Type) {
				events = append(events, event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEventByType returns the first event of the specified type in
// ref's log, or nil if there isn't one.
func (log *EventLog) GetEventByType(ref, eventType string) (*models.Event, error) {
	events, err := log.GetEvents(ref, eventType)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// RemoveEvents deletes ref's whole log. Only cleanup should do this.
func (log *EventLog) RemoveEvents(ref string) error {
	return log.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(EVENT_BUCKET)).DeleteBucket([]byte(ref))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func appendEvents(tx *bolt.Tx, ref string, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	bucket, err := tx.Bucket([]byte(EVENT_BUCKET)).CreateBucketIfNotExists([]byte(ref))
	if err != nil {
		return err
	}
	for _, event := range events {
		if event == nil {
			continue
		}
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		if err = bucket.Put(sequenceKey(seq), data); err != nil {
			return err
		}
	}
	return nil
}
