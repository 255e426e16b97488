package models

import (
	"fmt"
	"strings"
	"time"
)

// WorkSummary records what happened during one pipeline run over
// one package.
type WorkSummary struct {
	// PackageRef is the package store reference of the package.
	PackageRef string

	// AttemptNumber is the number of the run. This starts at one.
	// This is uint16 to match the datatype of NsqMessage.Attempt.
	AttemptNumber uint16

	// CurrentStage is the stage that is running, or the stage that
	// failed if the run stopped early.
	CurrentStage string

	// CompletedStages lists the stages that ran to completion,
	// in order.
	CompletedStages []string

	// This will be set to true if an error is fatal. In that
	// case, we should not try to reprocess the package.
	ErrorIsFatal bool

	// Errors is a list of strings describing errors that occurred
	// during the run.
	Errors []string

	// StartedAt describes when the run started. If
	// StartedAt.IsZero(), the run has not started.
	StartedAt time.Time

	// FinishedAt describes when the run completed. Note that the
	// run may have completed without succeeding. Check the
	// Succeeded() method to see if it actually succeeded.
	FinishedAt time.Time

	// Retry indicates whether we should retry a failed run.
	// Transient errors, such as network timeouts, leave this true.
	// Validation and consistency errors set it to false.
	Retry bool
}

func NewWorkSummary(packageRef string) *WorkSummary {
	return &WorkSummary{
		PackageRef:      packageRef,
		CompletedStages: make([]string, 0),
		Errors:          make([]string, 0),
		Retry:           true,
	}
}

func (summary *WorkSummary) Start() {
	summary.StartedAt = time.Now().UTC()
}

func (summary *WorkSummary) Started() bool {
	return !summary.StartedAt.IsZero()
}

func (summary *WorkSummary) Finish() {
	summary.FinishedAt = time.Now().UTC()
}

func (summary *WorkSummary) Finished() bool {
	return !summary.FinishedAt.IsZero()
}

// StartStage notes that stage is now running.
func (summary *WorkSummary) StartStage(stage string) {
	summary.CurrentStage = stage
}

// CompleteStage notes that stage finished without error.
func (summary *WorkSummary) CompleteStage(stage string) {
	summary.CompletedStages = append(summary.CompletedStages, stage)
	if summary.CurrentStage == stage {
		summary.CurrentStage = ""
	}
}

func (summary *WorkSummary) RunTime() time.Duration {
	startTime := summary.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := summary.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

func (summary *WorkSummary) Succeeded() bool {
	return summary.Finished() && len(summary.Errors) == 0
}

func (summary *WorkSummary) AddError(format string, a ...interface{}) {
	summary.Errors = append(summary.Errors, fmt.Sprintf(format, a...))
}

func (summary *WorkSummary) ClearErrors() {
	summary.ErrorIsFatal = false
	summary.Errors = make([]string, 0)
}

func (summary *WorkSummary) HasErrors() bool {
	return len(summary.Errors) > 0
}

func (summary *WorkSummary) FirstError() string {
	if len(summary.Errors) > 0 {
		return summary.Errors[0]
	}
	return ""
}

func (summary *WorkSummary) AllErrorsAsString() string {
	return strings.Join(summary.Errors, "\n")
}
