package models

import (
	"github.com/dataconservancy/ingest/constants"
)

/*
DeliverableUnit is the unit of intellectual content, and the only
kind of entity that carries lineage.

LineageId identifies the version history a DU belongs to. It is
empty until the lineage labeller assigns it.

Parents and Collections are structural references to other DUs and
to Collections.

Relations are typed edges to other entities. A relation of type
constants.RelIsSuccessorOf points at the DU this one supersedes.
*/
type DeliverableUnit struct {
	Id           string                `json:"id"`
	Title        string                `json:"title,omitempty"`
	Type         string                `json:"type,omitempty"`
	LineageId    string                `json:"lineage_id,omitempty"`
	Parents      []*Ref                `json:"parents,omitempty"`
	Collections  []*Ref                `json:"collections,omitempty"`
	Metadata     []*MetadataRef        `json:"metadata,omitempty"`
	Relations    []*Relation           `json:"relations,omitempty"`
	AlternateIds []*ResourceIdentifier `json:"alternate_ids,omitempty"`
}

func (du *DeliverableUnit) EntityId() string {
	return du.Id
}

func (du *DeliverableUnit) SetEntityId(id string) {
	du.Id = id
}

func (du *DeliverableUnit) EntityKind() string {
	return constants.KindDeliverableUnit
}

func (du *DeliverableUnit) Refs() []*Ref {
	refs := appendRefs(make([]*Ref, 0), du.Parents...)
	refs = appendRefs(refs, du.Collections...)
	refs = append(refs, metadataRefs(du.Metadata)...)
	for _, relation := range du.Relations {
		if relation != nil {
			refs = appendRefs(refs, relation.Target)
		}
	}
	return refs
}

func (du *DeliverableUnit) isEntity() {}

// RelationTargets returns the ids of all entities this DU points to
// with relations of the specified type.
func (du *DeliverableUnit) RelationTargets(relationType string) []string {
	targets := make([]string, 0)
	for _, relation := range du.Relations {
		if relation != nil && relation.Type == relationType && relation.Target != nil {
			targets = append(targets, relation.Target.Ref)
		}
	}
	return targets
}

// Predecessors returns the ids of the DUs this DU claims to succeed.
// A valid DU has at most one.
func (du *DeliverableUnit) Predecessors() []string {
	return du.RelationTargets(constants.RelIsSuccessorOf)
}

// HasRelation returns true if the DU has a relation of the specified
// type pointing at targetId.
func (du *DeliverableUnit) HasRelation(relationType, targetId string) bool {
	for _, target := range du.RelationTargets(relationType) {
		if target == targetId {
			return true
		}
	}
	return false
}

// AddRelation adds a typed relation to the entity with id targetId.
func (du *DeliverableUnit) AddRelation(relationType, targetId string) {
	du.Relations = append(du.Relations, &Relation{
		Type:   relationType,
		Target: NewRef(targetId),
	})
}
