package models

import (
	"github.com/dataconservancy/ingest/constants"
)

// ManifestationFile places a File within a Manifestation.
type ManifestationFile struct {
	File *Ref   `json:"file"`
	Path string `json:"path,omitempty"`
}

// Manifestation is one particular realization of a DU's content,
// made up of a set of files.
type Manifestation struct {
	Id                   string                `json:"id"`
	DeliverableUnit      *Ref                  `json:"deliverable_unit"`
	Type                 string                `json:"type,omitempty"`
	TechnicalEnvironment []string              `json:"technical_environment,omitempty"`
	Files                []*ManifestationFile  `json:"files,omitempty"`
	Metadata             []*MetadataRef        `json:"metadata,omitempty"`
	AlternateIds         []*ResourceIdentifier `json:"alternate_ids,omitempty"`
}

func (manifestation *Manifestation) EntityId() string {
	return manifestation.Id
}

func (manifestation *Manifestation) SetEntityId(id string) {
	manifestation.Id = id
}

func (manifestation *Manifestation) EntityKind() string {
	return constants.KindManifestation
}

func (manifestation *Manifestation) Refs() []*Ref {
	refs := appendRefs(make([]*Ref, 0), manifestation.DeliverableUnit)
	for _, mf := range manifestation.Files {
		if mf != nil {
			refs = appendRefs(refs, mf.File)
		}
	}
	return append(refs, metadataRefs(manifestation.Metadata)...)
}

func (manifestation *Manifestation) isEntity() {}
