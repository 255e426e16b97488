package ingest

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/platform"
	"github.com/dataconservancy/ingest/util/storage"
	"golang.org/x/sync/errgroup"
	"io"
	"sort"
)

// Job examines a package and reports what it found. Jobs must not
// change the package; that's the job of the OutputSink.
type Job interface {
	Name() string
	Run(pkg *models.Package) (*JobOutput, error)
}

// JobOutput is what a job found, keyed by file id.
type JobOutput struct {
	FileFormats map[string][]*models.Format
}

func NewJobOutput() *JobOutput {
	return &JobOutput{FileFormats: make(map[string][]*models.Format)}
}

// OutputSink records a job's output, and returns the events
// describing what it recorded.
type OutputSink interface {
	Write(pkg *models.Package, output *JobOutput) ([]*models.Event, error)
}

// CharacterizationJob pairs a job with the sink for its output.
// OnSuccess and OnFailure are optional.
type CharacterizationJob struct {
	Job       Job
	Sink      OutputSink
	OnSuccess func(job Job, output *JobOutput)
	OnFailure func(job Job, err error)
}

/*
Characterizer runs its jobs over the package, several at a time, then
hands each job's output to the job's sink in the order the jobs were
configured.

When Config.Characterizer.FailureAllowed is false, the first failed
job fails the stage and nothing is written. Otherwise a failed job is
recorded as a transform.fail event and the remaining jobs carry on.
Sinks that write somewhere other than the package are not undone when
a later job fails.
*/
type Characterizer struct {
	stageBase
	Jobs []*CharacterizationJob
}

func NewCharacterizer(_context *context.Context, jobs ...*CharacterizationJob) *Characterizer {
	return &Characterizer{
		stageBase: stageBase{name: constants.StageCharacterize, context: _context},
		Jobs:      jobs,
	}
}

func (characterizer *Characterizer) Execute(packageRef string) error {
	characterizer.logStart(packageRef)
	return characterizer.withPackage(packageRef, characterizer.characterize)
}

type jobResult struct {
	output *JobOutput
	err    error
}

func (characterizer *Characterizer) characterize(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	if len(characterizer.Jobs) == 0 {
		return nil, nil, nil
	}
	results := make([]jobResult, len(characterizer.Jobs))
	group := &errgroup.Group{}
	if limit := characterizer.context.Config.Characterizer.MaxConcurrentJobs; limit > 0 {
		group.SetLimit(limit)
	}
	for i, job := range characterizer.Jobs {
		i, job := i, job
		group.Go(func() error {
			output, err := job.Job.Run(pkg)
			results[i] = jobResult{output: output, err: err}
			return nil
		})
	}
	group.Wait()

	failureAllowed := characterizer.context.Config.Characterizer.FailureAllowed
	events := make([]*models.Event, 0)
	for i, job := range characterizer.Jobs {
		result := results[i]
		err := result.err
		if err == nil {
			var sinkEvents []*models.Event
			sinkEvents, err = job.Sink.Write(pkg, result.output)
			events = append(events, sinkEvents...)
		}
		if err == nil {
			if job.OnSuccess != nil {
				job.OnSuccess(job.Job, result.output)
			}
			continue
		}
		if job.OnFailure != nil {
			job.OnFailure(job.Job, err)
		}
		if !failureAllowed {
			return nil, nil, characterizer.transientError(ref, err, "job %s failed", job.Job.Name())
		}
		characterizer.context.MessageLog.Warning("Characterization job %s failed on %s: %v",
			job.Job.Name(), ref, err)
		failEvent, eventErr := characterizer.newEvent(ref, constants.EventTransformFail, fileIds(pkg)...)
		if eventErr != nil {
			return nil, nil, eventErr
		}
		failEvent.Outcome = job.Job.Name()
		failEvent.Detail = err.Error()
		events = append(events, failEvent)
	}
	characterizer.logDone(ref, "ran %d jobs", len(characterizer.Jobs))
	return pkg, events, nil
}

func fileIds(pkg *models.Package) []string {
	ids := make([]string, len(pkg.Files))
	for i, file := range pkg.Files {
		ids[i] = file.Id
	}
	return ids
}

// PackageSink writes formats onto the package's files. It won't add
// a mime format to a file that already has one.
type PackageSink struct {
	Events *storage.EventLog
}

func (sink *PackageSink) Write(pkg *models.Package, output *JobOutput) ([]*models.Event, error) {
	events := make([]*models.Event, 0)
	if output == nil {
		return events, nil
	}
	ids := make([]string, 0, len(output.FileFormats))
	for id := range output.FileFormats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		file := pkg.FindFile(id)
		if file == nil {
			return nil, fmt.Errorf("No file %s in package", id)
		}
		for _, format := range output.FileFormats[id] {
			if format == nil || format.Value == "" {
				continue
			}
			if format.Scheme == constants.FormatSchemeMime && file.HasFormatScheme(constants.FormatSchemeMime) {
				continue
			}
			file.Formats = append(file.Formats, &models.Format{Scheme: format.Scheme, Value: format.Value})
			event, err := sink.Events.NewEvent(constants.EventCharacterizationFormat)
			if err != nil {
				return nil, err
			}
			event.Outcome = format.Value
			event.Detail = format.Scheme
			event.AddTargets(file.Id)
			events = append(events, event)
		}
	}
	return events, nil
}

// FormatCharacterizationJob guesses the mime type of each extant file
// from the first bytes of its content.
type FormatCharacterizationJob struct {
	Source interface {
		OpenContent(uri string) (io.ReadCloser, error)
	}
}

func (job *FormatCharacterizationJob) Name() string {
	return "format"
}

func (job *FormatCharacterizationJob) Run(pkg *models.Package) (*JobOutput, error) {
	output := NewJobOutput()
	for _, file := range pkg.Files {
		if !file.Extant || file.Source == "" || file.HasFormatScheme(constants.FormatSchemeMime) {
			continue
		}
		mimeType, err := job.guess(file.Source)
		if err != nil {
			return nil, fmt.Errorf("Cannot characterize file %s: %v", file.Id, err)
		}
		output.FileFormats[file.Id] = []*models.Format{
			{Scheme: constants.FormatSchemeMime, Value: mimeType},
		}
	}
	return output, nil
}

func (job *FormatCharacterizationJob) guess(uri string) (string, error) {
	reader, err := job.Source.OpenContent(uri)
	if err != nil {
		return "", err
	}
	defer reader.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return platform.GuessMimeTypeByBuffer(buf[:n])
}

// NewFormatCharacterization returns the format job writing to the
// package, which is what the pipeline runs by default.
func NewFormatCharacterization(_context *context.Context) *CharacterizationJob {
	return &CharacterizationJob{
		Job:  &FormatCharacterizationJob{Source: _context.Content},
		Sink: &PackageSink{Events: _context.EventLog},
	}
}
