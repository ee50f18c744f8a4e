package httpdiff

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"httpdiff/internal/apperr"
)

// Job is one comparison unit: the same concrete endpoint requested against
// every configured domain. It owns its requests exclusively; concurrent
// batch tasks operate on clones and publish DTO snapshots instead of
// mutating shared jobs.
type Job struct {
	Name              string
	Requests          []*Request
	Status            JobStatus
	Duration          time.Duration
	ResponseProcessor []string
	RequestBuilder    []string

	bus        *Bus
	jobsSem    *semaphore.Weighted
	threadsSem *semaphore.Weighted
	client     *http.Client
	log        *zap.Logger
}

// JobDTO is the value-typed snapshot of a job published over the action bus.
type JobDTO struct {
	JobName  string
	Requests []Request
	Status   JobStatus
	Duration time.Duration
}

// IsFailed reports whether the snapshot is in the Failed state.
func (d JobDTO) IsFailed() bool { return d.Status == StatusFailed }

// RequestsWithDiffs returns the failed requests that actually carry diffs.
func (d JobDTO) RequestsWithDiffs() []Request {
	var out []Request
	for _, r := range d.Requests {
		if len(r.Diffs) > 0 && r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// NewJob wires a job to its semaphores, bus and shared HTTP client.
func NewJob(name string, requests []*Request, bus *Bus, jobsSem, threadsSem *semaphore.Weighted, responseProcessor, requestBuilder []string, client *http.Client, log *zap.Logger) *Job {
	return &Job{
		Name:              name,
		Requests:          requests,
		Status:            StatusPending,
		ResponseProcessor: responseProcessor,
		RequestBuilder:    requestBuilder,
		bus:               bus,
		jobsSem:           jobsSem,
		threadsSem:        threadsSem,
		client:            client,
		log:               log,
	}
}

// DTO snapshots the job.
func (j *Job) DTO() JobDTO {
	requests := make([]Request, 0, len(j.Requests))
	for _, r := range j.Requests {
		requests = append(requests, *r.Clone())
	}
	return JobDTO{JobName: j.Name, Requests: requests, Status: j.Status, Duration: j.Duration}
}

// Clone deep-copies the job for use inside a concurrent batch task.
func (j *Job) Clone() *Job {
	clone := *j
	clone.Requests = make([]*Request, 0, len(j.Requests))
	for _, r := range j.Requests {
		clone.Requests = append(clone.Requests, r.Clone())
	}
	return &clone
}

// Reset returns the job and its requests to Pending.
func (j *Job) Reset() {
	j.Status = StatusPending
	j.Duration = 0
	for _, r := range j.Requests {
		r.Reset()
	}
}

// IsFailed reports whether the job is in the Failed state.
func (j *Job) IsFailed() bool { return j.Status == StatusFailed }

// publish sends a DTO snapshot unless the run was abandoned: a restarted
// attempt keeps executing in the background but must stop talking.
func (j *Job) publish(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	j.bus.Send(JobsUpdated{Jobs: []JobDTO{j.DTO()}})
}

// Start drives the full lifecycle once: reset, acquire a jobs-semaphore
// permit, run every request in parallel, release the permit, then run the
// diff pass and publish the terminal state. Each transition publishes a
// snapshot; Running always precedes the terminal state for the same job.
func (j *Job) Start(ctx context.Context) error {
	j.Reset()
	j.publish(ctx)

	if err := j.jobsSem.Acquire(ctx, 1); err != nil {
		return apperr.Wrap(apperr.Exception, err, "job %s interrupted", j.Name)
	}

	j.Status = StatusRunning
	j.publish(ctx)

	var wg sync.WaitGroup
	for _, request := range j.Requests {
		wg.Add(1)
		go func(r *Request) {
			defer wg.Done()
			r.Execute(j.client, j.log)
		}(request)
	}
	wg.Wait()

	j.jobsSem.Release(1)

	for _, r := range j.Requests {
		if r.Duration > j.Duration {
			j.Duration = r.Duration
		}
	}
	j.log.Info("finished endpoint job",
		zap.String("job", j.Name),
		zap.Float64("seconds", j.Duration.Seconds()))

	j.publish(ctx)

	if err := j.CalculateDiffs(ctx); err != nil {
		j.Status = StatusFailed
		j.publish(ctx)
		return err
	}

	j.publish(ctx)
	return nil
}

// CalculateDiffs runs the diff pass: the first request is the baseline and
// receives an all-Equal vector; every peer is diffed against it. Each diff
// runs under a thread-semaphore permit off the calling goroutine.
func (j *Job) CalculateDiffs(ctx context.Context) error {
	if len(j.Requests) < 2 {
		return apperr.New(apperr.ValidationError, "job %s needs at least two requests to compare", j.Name)
	}

	baseline := j.Requests[0]
	if baseline.Response == nil {
		return apperr.New(apperr.ValidationError, "missing baseline response for job %s", j.Name)
	}

	baselineText, err := j.applyResponseProcessor(ctx, baseline.Response)
	if err != nil {
		return err
	}
	baseline.SetDiffsAndCalculateStatus(EqualEntries(baselineText))

	for _, peer := range j.Requests[1:] {
		if peer.Response == nil {
			return apperr.New(apperr.ValidationError, "missing response for request %s", peer.URI)
		}

		peerText, err := j.applyResponseProcessor(ctx, peer.Response)
		if err != nil {
			return err
		}

		if err := j.threadsSem.Acquire(ctx, 1); err != nil {
			return apperr.Wrap(apperr.Exception, err, "diff pass for job %s interrupted", j.Name)
		}

		diffCh := make(chan []DiffEntry, 1)
		go func(old, new string) {
			diffCh <- DiffLines(old, new)
		}(baselineText, peerText)
		diffs := <-diffCh

		j.threadsSem.Release(1)

		peer.SetDiffsAndCalculateStatus(diffs)
	}

	j.Status = StatusFinished
	for _, r := range j.Requests {
		if r.Status == StatusFailed {
			j.Status = StatusFailed
			break
		}
	}
	return nil
}

// applyResponseProcessor serializes the response and, for successful
// exchanges with a configured processor, pipes it through the external
// command. Failed responses pass through as their serialized form.
func (j *Job) applyResponseProcessor(ctx context.Context, response *ResponseVariant) (string, error) {
	serialized, err := response.PrettyJSON()
	if err != nil {
		return "", apperr.Wrap(apperr.ValidationError, err, "failed to stringify the response")
	}

	if len(j.ResponseProcessor) == 0 || response.IsFail() {
		return serialized, nil
	}

	if err := j.threadsSem.Acquire(ctx, 1); err != nil {
		return "", apperr.Wrap(apperr.Exception, err, "response processor for job %s interrupted", j.Name)
	}
	defer j.threadsSem.Release(1)

	return RunExternalProcess(ctx, j.ResponseProcessor, serialized, true)
}

// ApplyRequestBuilder pipes the request through the configured builder
// command and replaces its call parameters with the returned document.
// A missing builder is a no-op.
func (j *Job) ApplyRequestBuilder(ctx context.Context, request *Request) error {
	if len(j.RequestBuilder) == 0 {
		return nil
	}

	j.log.Debug("applying request builder",
		zap.Strings("command", j.RequestBuilder),
		zap.String("uri", request.URI.String()))

	serialized, err := json.MarshalIndent(request.BuilderDTO(), "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "failed to serialize %s request", j.Name)
	}

	if err := j.threadsSem.Acquire(ctx, 1); err != nil {
		return apperr.Wrap(apperr.Exception, err, "request builder for job %s interrupted", j.Name)
	}
	output, err := RunExternalProcess(ctx, j.RequestBuilder, string(serialized), true)
	j.threadsSem.Release(1)
	if err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "request builder process failed for job %s", j.Name)
	}

	var dto RequestBuilderDTO
	if err := json.Unmarshal([]byte(output), &dto); err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "failed to deserialize request %s after applying builder command", j.Name)
	}
	if err := request.ApplyBuilderDTO(dto); err != nil {
		return apperr.Wrap(apperr.ValidationError, err, "request builder returned an invalid uri for job %s", j.Name)
	}
	return nil
}

// Save writes every captured response of the snapshot under
// baseDirectory/<sanitized job name>/<sanitized uri>.json, pretty-printed.
func (d JobDTO) Save(baseDirectory string) error {
	basePath := filepath.Join(baseDirectory, SanitizeFilename(d.JobName))
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return apperr.Wrap(apperr.Exception, err, "create artifact directory %s", basePath)
	}

	for _, request := range d.Requests {
		content, err := json.MarshalIndent(request.Response, "", "  ")
		if err != nil {
			return apperr.Wrap(apperr.Exception, err, "serialize response for %s", request.URI)
		}

		fileName := SanitizeFilename(request.URI.String()) + ".json"
		if err := os.WriteFile(filepath.Join(basePath, fileName), content, 0o644); err != nil {
			return apperr.Wrap(apperr.Exception, err, "write response artifact %s", fileName)
		}
	}
	return nil
}
