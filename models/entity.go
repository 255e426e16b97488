package models

/*
Entity is anything that can appear in a submission package. The set
of entity kinds is closed: *Collection, *DeliverableUnit,
*Manifestation, *File and *Event are the only implementations, and
code that needs kind-specific behavior switches on the concrete type.

Refs returns pointers to every entity reference the entity holds, so
callers can read or rewrite the targets in place. Inline metadata is
never included.
*/
type Entity interface {
	EntityId() string
	SetEntityId(id string)
	EntityKind() string
	Refs() []*Ref
	isEntity()
}

// Ref is a lightweight pointer to an entity that may or may not be
// inlined in the same package. Ref holds the target's identifier.
// Whether the target is in the package or already in the archive
// is decided when the reference is resolved.
type Ref struct {
	Ref string `json:"ref"`
}

// NewRef returns a reference to the entity with the specified id.
func NewRef(id string) *Ref {
	return &Ref{Ref: id}
}

// Metadata is an inline metadata blob.
type Metadata struct {
	SchemaURI string `json:"schema_uri,omitempty"`
	Blob      string `json:"blob"`
}

/*
MetadataRef is either a reference to a metadata entity or an inline
metadata blob. Exactly one of Ref and Inline should be set. Identifier
rewriting only ever touches the Ref case.
*/
type MetadataRef struct {
	Ref    *Ref      `json:"ref,omitempty"`
	Inline *Metadata `json:"inline,omitempty"`
}

// IsInline returns true if this is an inline metadata blob rather
// than a reference.
func (metadataRef *MetadataRef) IsInline() bool {
	return metadataRef.Inline != nil
}

// ResourceIdentifier is a secondary identifier, such as the id an
// entity had in some external system.
type ResourceIdentifier struct {
	Authority string `json:"authority,omitempty"`
	Type      string `json:"type,omitempty"`
	Value     string `json:"value"`
}

// Relation is a typed edge from a DeliverableUnit to another entity.
// See constants.RelationTypes.
type Relation struct {
	Type   string `json:"type"`
	Target *Ref   `json:"target"`
}

// metadataRefs returns the non-inline references in list.
func metadataRefs(list []*MetadataRef) []*Ref {
	refs := make([]*Ref, 0)
	for _, metadataRef := range list {
		if metadataRef != nil && !metadataRef.IsInline() && metadataRef.Ref != nil {
			refs = append(refs, metadataRef.Ref)
		}
	}
	return refs
}

// appendRefs appends the non-nil references in list to refs.
func appendRefs(refs []*Ref, list ...*Ref) []*Ref {
	for _, ref := range list {
		if ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}
