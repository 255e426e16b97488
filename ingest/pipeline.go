package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
)

/*
Pipeline runs the ingest stages over one package at a time, in the
order given by constants.StageOrder, stopping at the first failure.
A Pipeline has no per-package state, so one Pipeline can run many
packages at once.

After the last stage succeeds, Cleanup runs. After a failure that a
retry can't fix, Cleanup runs only if Config.CleanupOnFailure is set.
Otherwise the package stays in the store for an operator to look at.
*/
type Pipeline struct {
	Context *context.Context
	Stages  []Stage
	Cleanup Stage
}

// NewPipeline returns a pipeline with the standard stages. The only
// characterization job is the format job.
func NewPipeline(_context *context.Context) *Pipeline {
	return &Pipeline{
		Context: _context,
		Stages: []Stage{
			NewIdentifierLabeller(_context),
			NewLineageLabeller(_context),
			NewBranchChecker(_context),
			NewLinkValidator(_context),
			NewExternalContentResolver(_context),
			NewStagedContentResolver(_context),
			NewCharacterizer(_context, NewFormatCharacterization(_context)),
			NewVirusChecker(_context),
			NewArchiver(_context),
			NewFinisher(_context),
		},
		Cleanup: NewCleanup(_context),
	}
}

// Run runs every stage over the package stored under packageRef and
// records what happened in summary. If heartbeat is not nil, it is
// called after each stage.
func (pipeline *Pipeline) Run(packageRef string, summary *models.WorkSummary, heartbeat func()) {
	log := pipeline.Context.MessageLog
	summary.ClearErrors()
	summary.Retry = true
	summary.Start()
	defer summary.Finish()
	log.Info("Starting ingest of %s (attempt %d)", packageRef, summary.AttemptNumber)
	for _, stage := range pipeline.Stages {
		summary.StartStage(stage.Name())
		err := stage.Execute(packageRef)
		if heartbeat != nil {
			heartbeat()
		}
		if err != nil {
			pipeline.fail(packageRef, stage.Name(), summary, err)
			return
		}
		summary.CompleteStage(stage.Name())
	}
	summary.StartStage(pipeline.Cleanup.Name())
	if err := pipeline.Cleanup.Execute(packageRef); err != nil {
		summary.AddError("%s", err.Error())
		summary.Retry = IsRetryable(err)
		summary.ErrorIsFatal = !summary.Retry
		log.Error("Package %s was ingested, but cleanup failed: %v", packageRef, err)
		return
	}
	summary.CompleteStage(pipeline.Cleanup.Name())
	log.Info("Finished ingest of %s", packageRef)
}

func (pipeline *Pipeline) fail(packageRef, stageName string, summary *models.WorkSummary, err error) {
	log := pipeline.Context.MessageLog
	summary.AddError("%s", err.Error())
	summary.Retry = IsRetryable(err)
	summary.ErrorIsFatal = !summary.Retry
	log.Error("Ingest of %s failed in %s (retry=%t): %v", packageRef, stageName, summary.Retry, err)
	pipeline.logFailure(packageRef, stageName, err)
	if summary.ErrorIsFatal {
		pipeline.CleanupFailed(packageRef, summary)
	}
}

// logFailure records an ingest.fail event, if the package is still
// in the store.
func (pipeline *Pipeline) logFailure(packageRef, stageName string, cause error) {
	_context := pipeline.Context
	pkg, err := _context.PackageStore.Get(packageRef)
	if err != nil || pkg == nil {
		return
	}
	event, err := _context.EventLog.NewEvent(constants.EventIngestFail)
	if err == nil {
		event.Outcome = stageName
		event.Detail = cause.Error()
		err = _context.EventLog.AddEvent(packageRef, event)
	}
	if err != nil {
		_context.MessageLog.Warning("Cannot log failure of %s: %v", packageRef, err)
	}
}

// CleanupFailed runs Cleanup on a package that will not be retried,
// if Config.CleanupOnFailure is set. Workers call this when a package
// runs out of attempts.
func (pipeline *Pipeline) CleanupFailed(packageRef string, summary *models.WorkSummary) {
	if !pipeline.Context.Config.CleanupOnFailure {
		pipeline.Context.MessageLog.Info("Leaving failed package %s in place for review", packageRef)
		return
	}
	if err := pipeline.Cleanup.Execute(packageRef); err != nil {
		summary.AddError("Cleanup after failure: %v", err)
	}
}
