package httpdiff

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"httpdiff/internal/config"
)

// App owns the job set and drives it in response to bus commands. Two global
// semaphores bound resource consumption: the jobs semaphore (capacity
// concurrent_jobs) limits jobs in the Running phase, and the thread semaphore
// (capacity 2x logical CPUs, captured once at construction) limits concurrent
// external processes and diff computations.
type App struct {
	Jobs []*Job
	Bus  *Bus

	jobsSem    *semaphore.Weighted
	threadsSem *semaphore.Weighted
	client     *http.Client
	log        *zap.Logger
}

// NewApp builds an orchestrator publishing on bus.
func NewApp(bus *Bus, log *zap.Logger) *App {
	return &App{
		Bus:        bus,
		jobsSem:    semaphore.NewWeighted(1),
		threadsSem: semaphore.NewWeighted(int64(2 * runtime.NumCPU())),
		client:     &http.Client{},
		log:        log,
	}
}

// LoadConfiguration reads and validates the file at path, rebuilds the job
// set, applies request builders to every request (reporting progress), then
// kicks off a full batch run.
func (a *App) LoadConfiguration(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	a.jobsSem = semaphore.NewWeighted(int64(cfg.ConcurrentJobs))

	jobs, err := MapConfigurationToJobs(cfg, a.Bus, a.jobsSem, a.threadsSem, a.client, a.log)
	if err != nil {
		return err
	}

	a.Bus.Send(ConfigurationLoaded{Configuration: cfg})
	a.Jobs = jobs

	total := 0
	for _, job := range a.Jobs {
		total += len(job.Requests)
	}

	current := 0
	for _, job := range a.Jobs {
		for _, request := range job.Requests {
			current++
			if err := job.ApplyRequestBuilder(ctx, request); err != nil {
				return err
			}
			a.Bus.Send(LoadingJobsProgress{Current: current, Total: total})
		}
	}

	a.Bus.Send(JobsUpdated{Jobs: a.snapshotJobs()})
	a.Bus.Send(StartAllJobs{})
	return nil
}

// ReloadConfiguration announces the reload and loads the new file.
func (a *App) ReloadConfiguration(ctx context.Context, path string) error {
	a.Bus.Send(SetNotification{Notification: NewNotification(
		NotificationConfigReload,
		"Reloading configuration file as it was changed.",
		5*time.Second,
		NotificationWarning,
	)})
	return a.LoadConfiguration(ctx, path)
}

func (a *App) snapshotJobs() []JobDTO {
	dtos := make([]JobDTO, 0, len(a.Jobs))
	for _, job := range a.Jobs {
		dtos = append(dtos, job.DTO())
	}
	return dtos
}

// resetAllJobsAndPublish returns every job to Pending and re-syncs the full
// snapshot set.
func (a *App) resetAllJobsAndPublish() {
	for _, job := range a.Jobs {
		job.Reset()
	}
	a.Bus.Send(JobsUpdated{Jobs: a.snapshotJobs()})
}

// StartAll runs every job concurrently. A termination barrier keeps each job
// task alive until all jobs have completed, so a restart command received
// mid-run is still honored by its job task. Cancelling ctx abandons the
// batch: in-flight requests finish in the background but publish nothing.
func (a *App) StartAll(ctx context.Context) {
	a.resetAllJobsAndPublish()

	total := len(a.Jobs)
	if total == 0 {
		return
	}

	events := newJobEventBus()
	defer events.close()

	barrierSub := events.subscribe()
	go func() {
		defer barrierSub.close()
		finished := make(map[string]bool, total)
		for event := range barrierSub.c {
			switch event.kind {
			case jobEventRestart:
				delete(finished, event.name)
			case jobEventFinished:
				finished[event.name] = true
			}
			if len(finished) == total {
				events.send(jobEvent{kind: jobEventTerminate})
				return
			}
		}
	}()

	startedAt := time.Now()
	results := make(chan *Job, total)
	for _, job := range a.Jobs {
		go a.runJobTask(ctx, job, events, results)
	}

	completed := make([]*Job, 0, total)
	for len(completed) < total {
		select {
		case <-ctx.Done():
			return
		case job := <-results:
			completed = append(completed, job)
		}
	}

	for _, updated := range completed {
		for i, job := range a.Jobs {
			if job.Name == updated.Name {
				a.Jobs[i] = updated
			}
		}
	}

	failed := 0
	for _, job := range a.Jobs {
		if job.IsFailed() {
			failed++
		}
	}

	elapsed := PrettifyDuration(time.Since(startedAt))
	var notification Notification
	if failed == 0 {
		notification = NewNotification(
			NotificationAllFinished,
			fmt.Sprintf("All requests are finished in %s %s", elapsed, HappyEmoji()),
			5*time.Second,
			NotificationSuccess,
		)
	} else {
		notification = NewNotification(
			NotificationAllFinishedWithFail,
			fmt.Sprintf("All requests are finished in %s. %d failed %s.", elapsed, failed, SadEmoji()),
			5*time.Second,
			NotificationWarning,
		)
	}
	a.Bus.Send(SetNotification{Notification: notification})
}

// runJobTask runs one job within a batch, restarting it whenever a
// StartOneJob command for its name arrives. The task only pushes its result
// once the barrier has broadcast termination, which is what keeps restart
// commands live for the whole batch.
func (a *App) runJobTask(ctx context.Context, job *Job, events *jobEventBus, results chan<- *Job) {
	commandsSub := a.Bus.Subscribe()
	defer commandsSub.Close()

	for {
		attemptCtx, cancel := context.WithCancel(ctx)
		attempt := job.Clone()
		attemptDone := make(chan *Job, 1)

		go func(j *Job) {
			if err := j.Start(attemptCtx); err != nil && attemptCtx.Err() == nil {
				a.Bus.Send(SetCriticalException{Err: err})
			}
			if attemptCtx.Err() != nil {
				return
			}

			terminateSub := events.subscribe()
			defer terminateSub.close()
			events.send(jobEvent{kind: jobEventFinished, name: j.Name})
			for event := range terminateSub.c {
				if event.kind == jobEventTerminate {
					break
				}
			}
			attemptDone <- j
		}(attempt)

		restarted := false
		for !restarted {
			select {
			case <-ctx.Done():
				cancel()
				return
			case finished := <-attemptDone:
				cancel()
				results <- finished
				return
			case action := <-commandsSub.C:
				if start, ok := action.(StartOneJob); ok && start.Name == job.Name {
					cancel()
					events.send(jobEvent{kind: jobEventRestart, name: job.Name})
					restarted = true
				}
			}
		}
	}
}

// StartByName runs a single job. A second StartOneJob command for the same
// name preempts the running call: the first returns early and the new
// command, still queued for the command loop, takes its place.
func (a *App) StartByName(ctx context.Context, name string) {
	var target *Job
	for _, job := range a.Jobs {
		if job.Name == name {
			target = job
			break
		}
	}
	if target == nil {
		return
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	commandsSub := a.Bus.Subscribe()
	defer commandsSub.Close()

	done := make(chan struct{}, 1)
	go func() {
		if err := target.Start(attemptCtx); err != nil && attemptCtx.Err() == nil {
			a.Bus.Send(SetCriticalException{Err: err})
		}
		done <- struct{}{}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case action := <-commandsSub.C:
			if start, ok := action.(StartOneJob); ok && start.Name == name {
				return
			}
		}
	}
}

// Run is the command loop: it consumes bus commands and drives the
// orchestrator until ctx is cancelled. Errors latch a critical exception on
// the state instead of killing the loop, so the user can recover by fixing
// the configuration file or generating a fresh one.
func (a *App) Run(ctx context.Context) {
	sub := a.Bus.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case action := <-sub.C:
			switch act := action.(type) {
			case TryLoadConfigurationFile:
				if err := a.LoadConfiguration(ctx, act.Path); err != nil {
					a.log.Error("failed to load configuration", zap.Error(err))
					a.Bus.Send(SetCriticalException{Err: err})
				}
			case ReloadConfigurationFile:
				if err := a.ReloadConfiguration(ctx, act.Path); err != nil {
					a.log.Error("failed to reload configuration", zap.Error(err))
					a.Bus.Send(SetCriticalException{Err: err})
				}
			case StartOneJob:
				a.StartByName(ctx, act.Name)
			case StartAllJobs:
				a.runBatch(ctx, sub)
			}
		}
	}
}

// runBatch executes StartAll while continuing to read the command stream.
// A configuration reload stops the batch and is re-dispatched so the next
// loop iteration picks up the new file; a second StartAllJobs restarts the
// batch from scratch.
func (a *App) runBatch(ctx context.Context, sub *Subscription) {
	for {
		batchCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{}, 1)
		go func() {
			a.StartAll(batchCtx)
			done <- struct{}{}
		}()

		rerun := false
	wait:
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				cancel()
				break wait
			case action := <-sub.C:
				switch act := action.(type) {
				case ReloadConfigurationFile:
					cancel()
					a.Bus.Send(act)
					return
				case StartAllJobs:
					cancel()
					rerun = true
					break wait
				}
			}
		}

		if !rerun {
			return
		}
	}
}
