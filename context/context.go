package context

import (
	"fmt"
	"github.com/dataconservancy/ingest/archive"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/identifier"
	"github.com/dataconservancy/ingest/locks"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/network"
	"github.com/dataconservancy/ingest/staging"
	"github.com/dataconservancy/ingest/util/logger"
	"github.com/dataconservancy/ingest/util/storage"
	"github.com/op/go-logging"
	"io/ioutil"
	stdlog "log"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"
)

/*
Context holds the config, the logs and every service the ingest
stages use: the package store and event log, locks, identifiers,
staging, the archive and its lookup, content access and virus
scanners. Stages get what they need from here, so there is no
process-wide state.

NewContext builds all of these from the config. Tests can build a
Context by hand with whatever doubles they need.
*/
type Context struct {
	Config        *models.Config
	MessageLog    *logging.Logger
	JsonLog       *stdlog.Logger
	NSQClient     *network.NSQClient
	DB            *storage.BoltDB
	Codec         codec.Codec
	PackageStore  *storage.PackageStore
	EventLog      *storage.EventLog
	Identifiers   identifier.Service
	Locks         locks.Service
	Staging       staging.Service
	Archive       archive.Store
	Lookup        archive.Lookup
	Content       *staging.ContentSource
	Fetcher       *network.ContentFetcher
	VirusScanners []network.VirusScanner
	pathToLogFile string
	pathToJsonLog string
	succeeded     int64
	failed        int64
}

/*
Creates and returns a new Context. This sets up logging, creates
the staging directories, and opens the package database, which
only one process at a time can have open.

This object is meant to used as a singleton with any of the
stand-alone ingest services (sip_ingest, sip_submit).
*/
func NewContext(config *models.Config) (*Context, error) {
	if _, err := config.EnsureLogDirectory(); err != nil {
		return nil, err
	}
	context, err := NewContextWithLogger(config, logger.InitLogger(config))
	if err != nil {
		return nil, err
	}
	processName := path.Base(os.Args[0])
	context.pathToLogFile = filepath.Join(config.AbsLogDirectory(), processName+".log")
	context.pathToJsonLog = filepath.Join(config.AbsLogDirectory(), processName+".json")
	context.JsonLog = logger.InitJsonLogger(config)
	return context, nil
}

// NewContextWithLogger sets up every service, logging to log. The
// JSON log is discarded until the caller sets one.
func NewContextWithLogger(config *models.Config, log *logging.Logger) (*Context, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ExpandFilePaths()
	if err := os.MkdirAll(config.StagingDirectory, 0755); err != nil {
		return nil, err
	}
	context := &Context{
		Config:     config,
		MessageLog: log,
		JsonLog:    stdlog.New(ioutil.Discard, "", 0),
		NSQClient:  network.NewNSQClient(config.NsqdHttpAddress),
		Codec:      codec.NewJSONCodec(),
		Fetcher:    network.NewContentFetcher(config.ExternalContentTimeout()),
	}
	context.Identifiers = identifier.NewUUIDService(config.IdentifierBaseURL)
	initializers := []func() error{
		context.initStores,
		context.initLocks,
		context.initStaging,
		context.initArchive,
		context.initVirusScanners,
	}
	for _, init := range initializers {
		if err := init(); err != nil {
			context.Close()
			return nil, err
		}
	}
	return context, nil
}

func (context *Context) initStores() (err error) {
	context.DB, err = storage.NewBoltDB(context.Config.PackageDatabasePath())
	if err != nil {
		return fmt.Errorf("Cannot open package database %s: %v",
			context.Config.PackageDatabasePath(), err)
	}
	if context.PackageStore, err = storage.NewPackageStore(context.DB, context.Codec); err != nil {
		return err
	}
	context.EventLog, err = storage.NewEventLog(context.DB, context.Identifiers)
	return err
}

func (context *Context) initLocks() (err error) {
	if context.Config.LockType == "memory" {
		context.Locks = locks.NewMemoryLockService()
		return nil
	}
	context.Locks, err = locks.NewFileLockService(context.Config.LockDirectory())
	return err
}

func (context *Context) initStaging() error {
	var content staging.ContentStore
	var err error
	if context.Config.ContentStoreType == "minio" {
		content, err = staging.NewMinioContentStore(
			context.Config.MinioEndpoint,
			context.Config.GetMinioAccessKey(),
			context.Config.GetMinioSecretKey(),
			context.Config.StagingBucket,
			context.Config.MinioUseSSL)
	} else {
		content, err = staging.NewDirectoryContentStore(context.Config.ContentDirectory())
	}
	if err != nil {
		return err
	}
	accessBaseURL := context.Config.StagingAccessBaseURL
	if accessBaseURL == "" {
		accessBaseURL = context.Config.IdentifierBaseURL + "/staged"
	}
	stagingService, err := staging.NewFileStagingService(accessBaseURL, content, context.DB,
		context.PackageStore, context.EventLog, context.MessageLog)
	if err != nil {
		return err
	}
	context.Staging = stagingService
	context.Content = staging.NewContentSource(stagingService, context.Fetcher)
	return nil
}

func (context *Context) initArchive() error {
	var backend archive.Backend
	var err error
	if context.Config.ArchiveType == "s3" {
		client, err := network.NewS3Client(context.Config.ArchiveRegion)
		if err != nil {
			return err
		}
		backend, err = archive.NewS3Backend(client, context.Config.ArchiveBucket)
		if err != nil {
			return err
		}
	} else {
		archiveDir := context.Config.ArchiveDirectory
		if archiveDir == "" {
			archiveDir = filepath.Join(context.Config.StagingDirectory, "archive")
		}
		if backend, err = archive.NewFileBackend(archiveDir); err != nil {
			return err
		}
	}
	store := archive.New(backend, context.Codec, context.Content, context.MessageLog)
	store.IndexDelay = time.Duration(context.Config.ArchiveIndexDelayMillis) * time.Millisecond
	context.Archive = store
	context.Lookup = store
	return nil
}

func (context *Context) initVirusScanners() error {
	context.VirusScanners = make([]network.VirusScanner, 0, len(context.Config.VirusScanners))
	for _, scannerConfig := range context.Config.VirusScanners {
		timeout := time.Duration(scannerConfig.TimeoutSeconds) * time.Second
		context.VirusScanners = append(context.VirusScanners,
			network.NewClamdScanner(scannerConfig.Name, scannerConfig.Address, timeout))
	}
	return nil
}

// Close closes the package database.
func (context *Context) Close() {
	if context.DB != nil {
		context.DB.Close()
		context.DB = nil
	}
}

// Returns the number of packages that succeeded.
func (context *Context) Succeeded() int64 {
	return atomic.LoadInt64(&context.succeeded)
}

// Returns the number of packages that failed.
func (context *Context) Failed() int64 {
	return atomic.LoadInt64(&context.failed)
}

// Increases the count of successfully processed packages by one.
func (context *Context) IncrementSucceeded() int64 {
	return atomic.AddInt64(&context.succeeded, 1)
}

// Increases the count of unsuccessfully processed packages by one.
func (context *Context) IncrementFailed() int64 {
	return atomic.AddInt64(&context.failed, 1)
}

// Returns the path to this process' log file
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// Returns the path to this process' JSON log file
func (context *Context) PathToJsonLog() string {
	return context.pathToJsonLog
}

// Logs info about the number of packages that have succeeded and failed.
func (context *Context) LogStats() {
	context.MessageLog.Infof("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}
