package models

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"time"
)

/*
Event is an immutable provenance record describing something that
happened to one or more entities during ingest. Once an event is in
the event log it is never changed. It may only be copied forward
into the archived package, or into another package's log with
different targets (see Copy).
*/
type Event struct {
	// Id is the permanent identifier minted for this event.
	Id string `json:"id"`

	// Type is one of constants.EventTypes.
	Type string `json:"type"`

	// Date is when this event occurred.
	Date time.Time `json:"date"`

	// Outcome is a short description of the result: a count,
	// a scan verdict, Success, Failed.
	Outcome string `json:"outcome,omitempty"`

	// Detail is free text. For fixity events it holds the digests,
	// for file.resolution.staged the staged reference URI.
	Detail string `json:"detail,omitempty"`

	// Agent is the software that recorded the event.
	Agent string `json:"agent,omitempty"`

	// Targets are the entities this event is about.
	Targets []*Ref `json:"targets,omitempty"`
}

// NewEvent returns an event of the specified type, dated now.
func NewEvent(id, eventType string) (*Event, error) {
	if id == "" {
		return nil, fmt.Errorf("Param id cannot be empty.")
	}
	if eventType == "" {
		return nil, fmt.Errorf("Param eventType cannot be empty.")
	}
	return &Event{
		Id:      id,
		Type:    eventType,
		Date:    time.Now().UTC(),
		Agent:   constants.Agent,
		Targets: make([]*Ref, 0),
	}, nil
}

func (event *Event) EntityId() string {
	return event.Id
}

func (event *Event) SetEntityId(id string) {
	event.Id = id
}

func (event *Event) EntityKind() string {
	return constants.KindEvent
}

func (event *Event) Refs() []*Ref {
	return appendRefs(make([]*Ref, 0), event.Targets...)
}

func (event *Event) isEntity() {}

// AddTargets adds references to the entities with the specified ids.
func (event *Event) AddTargets(ids ...string) {
	for _, id := range ids {
		event.Targets = append(event.Targets, NewRef(id))
	}
}

// TargetIds returns the ids of this event's targets, in order.
func (event *Event) TargetIds() []string {
	ids := make([]string, 0, len(event.Targets))
	for _, target := range event.Targets {
		if target != nil {
			ids = append(ids, target.Ref)
		}
	}
	return ids
}

// HasTarget returns true if id is among this event's targets.
func (event *Event) HasTarget(id string) bool {
	for _, target := range event.Targets {
		if target != nil && target.Ref == id {
			return true
		}
	}
	return false
}

// Copy returns a copy of this event with a new id, the same type,
// date, outcome, detail and agent, and the specified targets.
func (event *Event) Copy(id string, targets ...string) *Event {
	copied := &Event{
		Id:      id,
		Type:    event.Type,
		Date:    event.Date,
		Outcome: event.Outcome,
		Detail:  event.Detail,
		Agent:   event.Agent,
		Targets: make([]*Ref, 0, len(targets)),
	}
	copied.AddTargets(targets...)
	return copied
}
