package models

import (
	"github.com/dataconservancy/ingest/constants"
	"strings"
)

/*
File describes a single content blob.

Source is where the content can be read from. Before ingest it may be
an external URL or a staged reference URI (see
constants.StagedReferenceScheme). After content resolution it is the
staging service's access URI.

Extant is false for files that are described but whose content is not
part of the submission. The resolvers, characterizers and virus
checker skip those.
*/
type File struct {
	Id           string                `json:"id"`
	Name         string                `json:"name,omitempty"`
	Source       string                `json:"source,omitempty"`
	Extant       bool                  `json:"extant"`
	SizeBytes    int64                 `json:"size_bytes,omitempty"`
	Fixity       []*Fixity             `json:"fixity,omitempty"`
	Formats      []*Format             `json:"formats,omitempty"`
	Metadata     []*MetadataRef        `json:"metadata,omitempty"`
	AlternateIds []*ResourceIdentifier `json:"alternate_ids,omitempty"`
}

func (file *File) EntityId() string {
	return file.Id
}

func (file *File) SetEntityId(id string) {
	file.Id = id
}

func (file *File) EntityKind() string {
	return constants.KindFile
}

func (file *File) Refs() []*Ref {
	return metadataRefs(file.Metadata)
}

func (file *File) isEntity() {}

// GetFixity returns the fixity value for the specified algorithm,
// or nil.
func (file *File) GetFixity(algorithm string) *Fixity {
	for _, fixity := range file.Fixity {
		if fixity != nil && strings.EqualFold(fixity.Algorithm, algorithm) {
			return fixity
		}
	}
	return nil
}

// HasFormatScheme returns true if the file already has a format
// in the specified scheme.
func (file *File) HasFormatScheme(scheme string) bool {
	for _, format := range file.Formats {
		if format != nil && format.Scheme == scheme {
			return true
		}
	}
	return false
}

// IsStaged returns true if the file's source is a reference to
// content in the staging area.
func (file *File) IsStaged() bool {
	return strings.HasPrefix(file.Source, constants.StagedReferenceScheme)
}
