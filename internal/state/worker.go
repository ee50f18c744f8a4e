package state

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"httpdiff/internal/httpdiff"
)

// ProcessWorkerAction performs the side effects behind save commands:
// persisting job snapshots to the artifact directory and reporting the
// outcome as notifications. It runs outside the reducer so disk writes never
// block state transitions.
func ProcessWorkerAction(action httpdiff.Action, bus *httpdiff.Bus, baseOutputDirectory string, log *zap.Logger) {
	switch act := action.(type) {
	case httpdiff.SaveCurrentJob:
		if err := act.Job.Save(baseOutputDirectory); err != nil {
			log.Error("failed to save job", zap.String("job", act.Job.JobName), zap.Error(err))
			bus.Send(httpdiff.SetNotification{Notification: httpdiff.NewNotification(
				httpdiff.NotificationSaveFailed,
				"Failed to save job",
				0,
				httpdiff.NotificationError,
			)})
			return
		}
		bus.Send(httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationSavedJob,
			fmt.Sprintf("Saved job to %s", displayPath(baseOutputDirectory)),
			5*time.Second,
			httpdiff.NotificationSuccess,
		)})

	case httpdiff.SaveFailedJobs:
		for _, job := range act.Jobs {
			if err := job.Save(baseOutputDirectory); err != nil {
				log.Error("failed to save job", zap.String("job", job.JobName), zap.Error(err))
			}
		}
		bus.Send(httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationSavedJobs,
			fmt.Sprintf("Saved %d jobs to %s", len(act.Jobs), displayPath(baseOutputDirectory)),
			5*time.Second,
			httpdiff.NotificationSuccess,
		)})
	}
}

func displayPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
