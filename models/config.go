package models

import (
	"encoding/json"
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/util"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/op/go-logging"
	"os"
	"path/filepath"
	"time"
)

type WorkerConfig struct {
	// This describes how often the NSQ client should ping
	// the NSQ server to let it know it's still there. The
	// setting must be formatted like so:
	//
	// "800ms" for 800 milliseconds
	// "10s" for ten seconds
	// "1m" for one minute
	HeartbeatInterval string

	// The maximum number of times the worker should try to
	// process a package. Transient errors, such as an external
	// content server being down, cause the package to be requeued
	// up to this many times. Validation and consistency errors
	// are never retried.
	MaxAttempts uint16

	// Maximum number of packages a worker will accept from the
	// queue at one time.
	MaxInFlight int

	// If the NSQ server does not hear from a client that a
	// job is complete in this amount of time, the server
	// considers the job to have timed out and re-queues it.
	// The ingest worker touches the message after every
	// stage, so this only needs to cover the slowest stage.
	MessageTimeout string

	// The name of the NSQ Channel the worker should read from.
	NsqChannel string

	// The name of the NSQ Topic the worker should listen to.
	NsqTopic string

	// This describes how long the NSQ client will wait for
	// a read from the NSQ server before timing out. The format
	// is the same as for HeartbeatInterval.
	ReadTimeout string

	// Number of packages to run through the pipeline at once.
	Workers int

	// This describes how long the NSQ client will wait for
	// a write to the NSQ server to complete before timing out.
	// The format is the same as for HeartbeatInterval.
	WriteTimeout string
}

// ScannerConfig describes one virus scanner. Only clamd is
// supported right now.
type ScannerConfig struct {
	Name           string
	Address        string
	TimeoutSeconds int
}

// CharacterizerConfig controls the characterization stage.
type CharacterizerConfig struct {
	// If FailureAllowed is true, a failed job is recorded as a
	// transform.fail event and ingest goes on. Otherwise the
	// first failed job fails the package.
	FailureAllowed bool

	// Maximum number of jobs to run at once. Zero means no limit.
	MaxConcurrentJobs int
}

type Config struct {
	// ActiveConfig is the path to the config file that was loaded.
	// This is set by LoadConfigFile.
	ActiveConfig string

	// Configuration for the sip_ingest worker.
	IngestWorker WorkerConfig

	// LogDirectory is where we'll write our log files.
	LogDirectory string

	// LogLevel is defined in github.com/op/go-logging
	// and should be one of the following:
	// 1 - CRITICAL
	// 2 - ERROR
	// 3 - WARNING
	// 4 - NOTICE
	// 5 - INFO
	// 6 - DEBUG
	LogLevel logging.Level

	// If true, processes will log to STDERR in addition
	// to their standard log files.
	LogToStderr bool

	// StagingDirectory holds the package database, staged
	// content and lock files. Several ingest processes on
	// one machine may share it.
	StagingDirectory string

	// PackageDatabase is the name of the bolt file in
	// StagingDirectory that holds in-flight packages and
	// their event logs.
	PackageDatabase string

	// LockType is "file" to lock packages with lock files
	// in StagingDirectory/locks, which works across processes,
	// or "memory" for a single process.
	LockType string

	// IdentifierBaseURL prefixes every id we mint.
	IdentifierBaseURL string

	// StagingAccessBaseURL prefixes the access URIs of
	// staged content.
	StagingAccessBaseURL string

	// ContentStoreType is "directory" to keep staged content
	// under StagingDirectory/content, or "minio" to keep it in
	// the bucket StagingBucket on MinioEndpoint. The minio
	// credentials come from the environment variables
	// MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
	ContentStoreType string
	MinioEndpoint    string
	MinioUseSSL      bool
	StagingBucket    string

	// ArchiveType is "local" for an archive in ArchiveDirectory,
	// or "s3" for an archive in the S3 bucket ArchiveBucket.
	// The AWS credentials come from the environment.
	ArchiveType      string
	ArchiveDirectory string
	ArchiveRegion    string
	ArchiveBucket    string

	// ArchiveIndexDelayMillis is how long a local archive waits
	// before newly archived entities show up in lookups.
	// This simulates search index lag and is meant for testing.
	ArchiveIndexDelayMillis int

	// ExternalContentTimeoutSeconds limits each external
	// content download.
	ExternalContentTimeoutSeconds int

	// DigestAlgorithms lists the digests the external content
	// resolver calculates for downloaded files. Leave empty to
	// calculate none. See constants.ChecksumAlgorithms.
	DigestAlgorithms []string

	Characterizer CharacterizerConfig

	VirusScanners []ScannerConfig

	Finisher *FinisherConfig

	// If CleanupOnFailure is true, the pipeline runs the cleanup
	// stage after a failed stage. Otherwise the package and its
	// staged content stay put for someone to look at.
	CleanupOnFailure bool

	// NsqdHttpAddress is the HTTP address of nsqd. sip_submit
	// enqueues package refs there.
	NsqdHttpAddress string

	// NsqLookupd is the address of nsqlookupd, which workers
	// use to find nsqd.
	NsqLookupd string
}

// LoadConfigFile loads the JSON config file at pathToConfigFile,
// which may be relative to the project root, and validates it.
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	file, err := fileutil.LoadRelativeFile(pathToConfigFile)
	if err != nil {
		detailedError := fmt.Errorf("Error reading config file '%s': %v\n",
			pathToConfigFile, err)
		return nil, detailedError
	}
	config := &Config{}
	err = json.Unmarshal(file, config)
	if err != nil {
		detailedError := fmt.Errorf("Error parsing JSON from config file '%s': %v",
			pathToConfigFile, err)
		return nil, detailedError
	}
	config.ActiveConfig = pathToConfigFile
	if config.Finisher == nil {
		config.Finisher = NewFinisherConfig()
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate returns a *ConfigurationError describing the first
// problem it finds, or nil.
func (config *Config) Validate() error {
	if config.StagingDirectory == "" {
		return NewConfigurationError("StagingDirectory", "value is required")
	}
	if config.IdentifierBaseURL == "" || !util.LooksLikeURL(config.IdentifierBaseURL) {
		return NewConfigurationError("IdentifierBaseURL",
			"'%s' is not an http or https URL", config.IdentifierBaseURL)
	}
	if config.LockType != "" && !util.StringListContains([]string{"file", "memory"}, config.LockType) {
		return NewConfigurationError("LockType", "'%s' should be file or memory", config.LockType)
	}
	if config.ContentStoreType != "" &&
		!util.StringListContains([]string{"directory", "minio"}, config.ContentStoreType) {
		return NewConfigurationError("ContentStoreType",
			"'%s' should be directory or minio", config.ContentStoreType)
	}
	if config.ContentStoreType == "minio" && (config.MinioEndpoint == "" || config.StagingBucket == "") {
		return NewConfigurationError("ContentStoreType",
			"minio requires MinioEndpoint and StagingBucket")
	}
	if config.ArchiveType != "" && !util.StringListContains([]string{"local", "s3"}, config.ArchiveType) {
		return NewConfigurationError("ArchiveType", "'%s' should be local or s3", config.ArchiveType)
	}
	if config.ArchiveType == "s3" && (config.ArchiveRegion == "" || config.ArchiveBucket == "") {
		return NewConfigurationError("ArchiveType", "s3 requires ArchiveRegion and ArchiveBucket")
	}
	if config.ArchiveIndexDelayMillis < 0 {
		return NewConfigurationError("ArchiveIndexDelayMillis", "must not be negative")
	}
	if config.ExternalContentTimeoutSeconds < 0 {
		return NewConfigurationError("ExternalContentTimeoutSeconds", "must not be negative")
	}
	for _, alg := range config.DigestAlgorithms {
		if !util.StringListContains(constants.ChecksumAlgorithms, alg) {
			return NewConfigurationError("DigestAlgorithms", "unsupported algorithm '%s'", alg)
		}
	}
	for i, scanner := range config.VirusScanners {
		if scanner.Address == "" {
			return NewConfigurationError("VirusScanners",
				"scanner %d (%s) has no Address", i, scanner.Name)
		}
	}
	if config.Finisher == nil {
		return NewConfigurationError("Finisher", "value is required")
	}
	return config.Finisher.Validate()
}

// ExternalContentTimeout returns the timeout for external content
// downloads. Zero means no timeout.
func (config *Config) ExternalContentTimeout() time.Duration {
	return time.Duration(config.ExternalContentTimeoutSeconds) * time.Second
}

// PackageDatabasePath returns the absolute path to the bolt file
// holding in-flight packages.
func (config *Config) PackageDatabasePath() string {
	name := config.PackageDatabase
	if name == "" {
		name = "packages.db"
	}
	return filepath.Join(config.StagingDirectory, name)
}

// LockDirectory returns the directory for package lock files.
func (config *Config) LockDirectory() string {
	return filepath.Join(config.StagingDirectory, "locks")
}

// ContentDirectory returns the directory for staged content
// when ContentStoreType is directory.
func (config *Config) ContentDirectory() string {
	return filepath.Join(config.StagingDirectory, "content")
}

func (config *Config) EnsureLogDirectory() (string, error) {
	config.ExpandFilePaths()
	err := config.createDirectories()
	if err != nil {
		return "", err
	}
	return config.AbsLogDirectory(), nil
}

func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		msg := fmt.Sprintf("Cannot get absolute path to log directory. "+
			"config.LogDirectory is set to '%s'", config.LogDirectory)
		panic(msg)
	}
	return absLogDir
}

// ExpandFilePaths expands ~ in all of the config's directory
// settings.
func (config *Config) ExpandFilePaths() {
	expanded, err := fileutil.ExpandTilde(config.LogDirectory)
	if err == nil {
		config.LogDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.StagingDirectory)
	if err == nil {
		config.StagingDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.ArchiveDirectory)
	if err == nil {
		config.ArchiveDirectory = expanded
	}
}

func (config *Config) createDirectories() error {
	if config.LogDirectory == "" {
		return fmt.Errorf("You must define config.LogDirectory")
	}
	if config.StagingDirectory == "" {
		return fmt.Errorf("You must define config.StagingDirectory")
	}
	dirs := []string{config.LogDirectory, config.StagingDirectory, config.LockDirectory()}
	if config.ContentStoreType != "minio" {
		dirs = append(dirs, config.ContentDirectory())
	}
	if config.ArchiveType != "s3" && config.ArchiveDirectory != "" {
		dirs = append(dirs, config.ArchiveDirectory)
	}
	for _, dir := range dirs {
		if !fileutil.FileExists(dir) {
			err := os.MkdirAll(dir, 0755)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// GetMinioAccessKey returns the minio access key from the
// environment.
func (config *Config) GetMinioAccessKey() string {
	return os.Getenv("MINIO_ACCESS_KEY")
}

// GetMinioSecretKey returns the minio secret key from the
// environment.
func (config *Config) GetMinioSecretKey() string {
	return os.Getenv("MINIO_SECRET_KEY")
}
