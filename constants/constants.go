// Common vars and constants, shared by the ingest services.
package constants

import (
	"regexp"
)

const (
	// ModelVersion is the package model version we produce
	// and accept.
	ModelVersion = "1.0"

	// Agent is recorded on every event the ingest services create.
	Agent = "https://github.com/dataconservancy/ingest"
)

// Entity kinds. Every entity in a submission package is one of these.
const (
	KindCollection      = "Collection"
	KindDeliverableUnit = "DeliverableUnit"
	KindManifestation   = "Manifestation"
	KindFile            = "File"
	KindEvent           = "Event"
)

var EntityKinds []string = []string{
	KindCollection,
	KindDeliverableUnit,
	KindManifestation,
	KindFile,
	KindEvent,
}

// Relation types that may appear on a DeliverableUnit.
const (
	// The DU is a new version of the DU it points at.
	RelIsSuccessorOf = "IS_SUCCESSOR_OF"

	// The DU describes the entity it points at.
	RelIsMetadataFor = "IS_METADATA_FOR"
)

var RelationTypes []string = []string{
	RelIsSuccessorOf,
	RelIsMetadataFor,
}

// Status values used in event outcomes and work summaries.
const (
	StatusStarted   = "Started"
	StatusPending   = "Pending"
	StatusSuccess   = "Success"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
)

var StatusTypes []string = []string{
	StatusStarted,
	StatusPending,
	StatusSuccess,
	StatusFailed,
	StatusCancelled,
}

// Pipeline stage names. These show up in logs, work summaries
// and IngestServiceErrors.
const (
	StageIdentifierLabel = "IdentifierLabel"
	StageLineageLabel    = "LineageLabel"
	StageBranchCheck     = "BranchCheck"
	StageLinkValidate    = "LinkValidate"
	StageExternalContent = "ExternalContent"
	StageStagedContent   = "StagedContent"
	StageCharacterize    = "Characterize"
	StageVirusCheck      = "VirusCheck"
	StageArchive         = "Archive"
	StageFinish          = "Finish"
	StageCleanup         = "Cleanup"
)

// StageOrder is the order in which the pipeline runs its stages.
// Cleanup is not part of the order because it runs last on success
// and, optionally, after any failure.
var StageOrder []string = []string{
	StageIdentifierLabel,
	StageLineageLabel,
	StageBranchCheck,
	StageLinkValidate,
	StageExternalContent,
	StageStagedContent,
	StageCharacterize,
	StageVirusCheck,
	StageArchive,
	StageFinish,
}

// Fixity algorithms.
const (
	AlgMd5    = "md5"
	AlgSha1   = "sha1"
	AlgSha256 = "sha256"
)

var ChecksumAlgorithms = []string{AlgMd5, AlgSha1, AlgSha256}

// Format schemes.
const (
	FormatSchemeMime   = "http://www.iana.org/assignments/media-types/"
	FormatSchemePronom = "http://www.nationalarchives.gov.uk/PRONOM/"
)

// Identifier type hints passed to the identifier service. Package
// entities are labelled in one bulk request, so they share a hint.
const (
	IdTypeEntity  = "entity"
	IdTypeEvent   = "event"
	IdTypeLineage = "lineage"
)

// StagedReferenceScheme prefixes the reference URIs handed out by
// the file content staging service.
const StagedReferenceScheme = "staged:"

// TempIdPattern matches the local identifiers submitters commonly
// use before labelling, e.g. example:/file/1 or urn:local:du-1.
// Anything that is not a permanent identifier is treated as
// temporary, whether or not it matches this pattern.
var TempIdPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:\S+$`)

// Event types recorded in the event log. Values are the strings
// that end up in archived packages, so don't change them.
const (
	// Temporary ids in the package were replaced with permanent ones.
	EventIdentifierAssignment = "identifier.assignment"

	// A deliverable unit was assigned the lineage of its predecessor.
	EventDUUpdate = "du.update"

	// External content was downloaded into the staging area.
	EventFileDownload = "file.download"

	// Content was uploaded into the staging area.
	EventFileUpload = "file.upload"

	// A fixity digest was calculated.
	EventFixityDigest = "fixity.digest"

	// A file's content was resolved to a staged copy. Detail holds
	// the staged reference URI, which Cleanup uses to retire it.
	EventFileResolutionStaged = "file.resolution.staged"

	// Characterization found a format for a file.
	EventCharacterizationFormat = "characterization.format"

	// A characterization or feature extraction job failed and
	// ingest continued.
	EventTransformFail = "transform.fail"

	// A file was scanned for viruses.
	EventVirusScan = "virus.scan"

	// The package was handed to the archive.
	EventArchive = "archive"

	// Every archived entity was confirmed visible in the index.
	EventIngestSuccess = "ingest.success"

	// Ingest failed. Recorded by the pipeline, never archived.
	EventIngestFail = "ingest.fail"
)

var EventTypes []string = []string{
	EventIdentifierAssignment,
	EventDUUpdate,
	EventFileDownload,
	EventFileUpload,
	EventFixityDigest,
	EventFileResolutionStaged,
	EventCharacterizationFormat,
	EventTransformFail,
	EventVirusScan,
	EventArchive,
	EventIngestSuccess,
	EventIngestFail,
}

// Virus scan outcomes.
const (
	ScanClean    = "clean"
	ScanInfected = "infected"
)
