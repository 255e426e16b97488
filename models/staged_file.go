package models

import (
	"time"
)

/*
StagedFile describes content held by the file content staging
service. The staging service owns the content, and a shadow
one-file package in the package store, until the file is retired.

ReferenceURI is the opaque staged: URI a package File's Source can
point at. AccessURI is where the content can be read once it has
been resolved into a package. SipRef is the package store reference
of the shadow package.
*/
type StagedFile struct {
	ReferenceURI string    `json:"reference_uri"`
	AccessURI    string    `json:"access_uri"`
	SipRef       string    `json:"sip_ref"`
	Name         string    `json:"name,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentKey   string    `json:"content_key"`
	StagedAt     time.Time `json:"staged_at"`
}

// StagedFileMetadata is what a caller knows about content it is
// handing to the staging service.
type StagedFileMetadata struct {
	Name        string
	ContentType string

	// Source is where the content came from, if anywhere.
	// It ends up in the detail of the shadow package's upload event.
	Source string
}
