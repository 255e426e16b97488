package models

import (
	"github.com/dataconservancy/ingest/constants"
)

// Collection groups deliverable units. Collections may nest.
type Collection struct {
	Id           string                `json:"id"`
	Title        string                `json:"title,omitempty"`
	Type         string                `json:"type,omitempty"`
	Parent       *Ref                  `json:"parent,omitempty"`
	Metadata     []*MetadataRef        `json:"metadata,omitempty"`
	AlternateIds []*ResourceIdentifier `json:"alternate_ids,omitempty"`
}

func (collection *Collection) EntityId() string {
	return collection.Id
}

func (collection *Collection) SetEntityId(id string) {
	collection.Id = id
}

func (collection *Collection) EntityKind() string {
	return constants.KindCollection
}

func (collection *Collection) Refs() []*Ref {
	refs := appendRefs(make([]*Ref, 0), collection.Parent)
	return append(refs, metadataRefs(collection.Metadata)...)
}

func (collection *Collection) isEntity() {}
