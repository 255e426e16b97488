package workers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/ingest"
	"github.com/dataconservancy/ingest/models"
	"github.com/nsqio/go-nsq"
	"time"
)

// IngestState holds a package and its work summary while it moves
// through the ingest channel.
type IngestState struct {
	PackageRef  string
	NSQMessage  *nsq.Message
	WorkSummary *models.WorkSummary
}

// Runs packages from the ingest queue through the ingest pipeline.
// The message body is either a package store reference or a whole
// serialized package.
type SIPIngestWorker struct {
	Context       *context.Context
	Pipeline      *ingest.Pipeline
	IngestChannel chan *IngestState
	RequeueDelay  time.Duration
}

func NewSIPIngestWorker(_context *context.Context) *SIPIngestWorker {
	worker := &SIPIngestWorker{
		Context:      _context,
		Pipeline:     ingest.NewPipeline(_context),
		RequeueDelay: 1 * time.Minute,
	}
	// Set up buffered channels
	workerBufferSize := _context.Config.IngestWorker.Workers * 10
	worker.IngestChannel = make(chan *IngestState, workerBufferSize)
	// Set up a limited number of go routines
	for i := 0; i < _context.Config.IngestWorker.Workers; i++ {
		go worker.ingest()
	}
	return worker
}

// This is the callback that NSQ workers use to handle messages from NSQ.
func (worker *SIPIngestWorker) HandleMessage(message *nsq.Message) error {
	ingestState, err := worker.GetIngestState(message)
	if err != nil {
		worker.Context.MessageLog.Error("Cannot process message %s: %v",
			string(message.ID[:]), err)
		var formatErr *codec.FormatError
		if errors.As(err, &formatErr) {
			// Requeuing a bad package won't fix it.
			message.Finish()
			return nil
		}
		return err
	}

	// Disable auto response, so we can tell NSQ when we need to
	// that we're still working on this item.
	message.DisableAutoResponse()

	worker.Context.MessageLog.Info("Putting %s into ingest channel (attempt %d)",
		ingestState.PackageRef, ingestState.WorkSummary.AttemptNumber)
	worker.IngestChannel <- ingestState

	// Return no error, so NSQ knows we're OK.
	return nil
}

/*
GetIngestState builds the IngestState for a message.

A body that starts with '{' is a serialized package. It goes into the
package store under a reference made from the message id, so a
requeued message picks up the package it stored the first time
instead of storing a fresh copy. Any other body is the reference of a
package that is already in the store.
*/
func (worker *SIPIngestWorker) GetIngestState(message *nsq.Message) (*IngestState, error) {
	body := bytes.TrimSpace(message.Body)
	if len(body) == 0 {
		return nil, fmt.Errorf("Message body is empty")
	}
	ref := string(body)
	if body[0] == '{' {
		ref = "nsq-" + string(message.ID[:])
		if err := worker.storePackage(ref, body); err != nil {
			return nil, err
		}
	}
	summary := models.NewWorkSummary(ref)
	summary.AttemptNumber = message.Attempts
	return &IngestState{
		PackageRef:  ref,
		NSQMessage:  message,
		WorkSummary: summary,
	}, nil
}

func (worker *SIPIngestWorker) storePackage(ref string, data []byte) error {
	existing, err := worker.Context.PackageStore.Get(ref)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	pkg, err := worker.Context.Codec.Deserialize(data)
	if err != nil {
		return err
	}
	return worker.Context.PackageStore.Update(pkg, ref)
}

func (worker *SIPIngestWorker) ingest() {
	for ingestState := range worker.IngestChannel {
		worker.Ingest(ingestState)
	}
}

// Ingest runs one package through the pipeline, touching the NSQ
// message after every stage, then finishes or requeues the message.
func (worker *SIPIngestWorker) Ingest(ingestState *IngestState) {
	worker.Pipeline.Run(ingestState.PackageRef, ingestState.WorkSummary, func() {
		ingestState.NSQMessage.Touch()
	})
	if ingestState.WorkSummary.Succeeded() {
		worker.finishWithSuccess(ingestState)
	} else {
		worker.finishWithError(ingestState)
	}
	worker.logJson(ingestState)
	worker.Context.LogStats()
}

func (worker *SIPIngestWorker) finishWithSuccess(ingestState *IngestState) {
	worker.Context.IncrementSucceeded()
	worker.Context.MessageLog.Info("Ingested %s in %s", ingestState.PackageRef,
		ingestState.WorkSummary.RunTime())
	ingestState.NSQMessage.Finish()
}

func (worker *SIPIngestWorker) finishWithError(ingestState *IngestState) {
	summary := ingestState.WorkSummary
	maxAttempts := worker.Context.Config.IngestWorker.MaxAttempts
	if summary.Retry && summary.AttemptNumber >= maxAttempts {
		summary.AddError("Too many failed ingest attempts (%d)", maxAttempts)
		summary.Retry = false
		summary.ErrorIsFatal = true
		worker.Pipeline.CleanupFailed(ingestState.PackageRef, summary)
	}

	worker.Context.MessageLog.Error(summary.AllErrorsAsString())

	if summary.Retry {
		worker.Context.MessageLog.Warning("Requeuing %s", ingestState.PackageRef)
		ingestState.NSQMessage.Requeue(worker.RequeueDelay)
	} else {
		worker.Context.IncrementFailed()
		worker.Context.MessageLog.Error("Ingest of %s failed", ingestState.PackageRef)
		ingestState.NSQMessage.Finish()
	}
}

// logJson dumps the work summary into the JSON log, surrounded by
// markers that make it easy to find.
func (worker *SIPIngestWorker) logJson(ingestState *IngestState) {
	jsonBytes, err := json.Marshal(ingestState.WorkSummary)
	if err != nil {
		worker.Context.MessageLog.Warning("Can't log JSON summary of %s: %v",
			ingestState.PackageRef, err)
		return
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)
	startMessage := fmt.Sprintf("-------- BEGIN %s | Attempt: %d | Time: %s --------",
		ingestState.PackageRef, ingestState.WorkSummary.AttemptNumber, timestamp)
	endMessage := fmt.Sprintf("-------- END %s | Attempt: %d | Time: %s --------",
		ingestState.PackageRef, ingestState.WorkSummary.AttemptNumber, timestamp)
	worker.Context.JsonLog.Println(startMessage, "\n",
		string(jsonBytes), "\n",
		endMessage)
}
