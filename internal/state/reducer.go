package state

import (
	"fmt"
	"time"

	"httpdiff/internal/httpdiff"
)

// allowedUnderException is the action whitelist while a critical exception
// is latched: enough to quit, recover the configuration, or finish a
// headless save, nothing more.
func allowedUnderException(action httpdiff.Action) bool {
	switch action.(type) {
	case httpdiff.Quit,
		httpdiff.ConfigurationLoaded,
		httpdiff.GenerateDefaultConfiguration,
		httpdiff.DismissNotification,
		httpdiff.SaveFailedJobs,
		httpdiff.SetNotification:
		return true
	}
	return false
}

// Reduce applies one action to the state and optionally returns a follow-up
// action, which the caller dispatches immediately. It is the sole mutator of
// AppState.
func Reduce(s *AppState, action httpdiff.Action) httpdiff.Action {
	if s.CriticalException != nil && !allowedUnderException(action) {
		return nil
	}

	switch act := action.(type) {
	case httpdiff.Quit:
		s.ShouldQuit = true

	case httpdiff.SetCriticalException:
		s.SetCriticalException(act.Err)
		if s.Headless {
			fmt.Fprintln(s.Stdout, act.Err)
			s.ShouldQuit = true
		}

	case httpdiff.ShowHelp:
		s.ShowHelp = true

	case httpdiff.CloseHelp:
		s.ShowHelp = false

	case httpdiff.SelectPreviousRow:
		s.SelectPreviousRow()

	case httpdiff.SelectNextRow:
		s.SelectNextRow()

	case httpdiff.SelectRowByJobName:
		s.SelectRowByJobName(act.Name)

	case httpdiff.ScrollDiffsUp:
		if s.SelectedJob != nil {
			s.SelectedJob.ScrollUp()
		}

	case httpdiff.ScrollDiffsDown:
		if s.SelectedJob != nil {
			s.SelectedJob.ScrollDown()
		}

	case httpdiff.GoToNextDiff:
		s.GoToNextDiff()

	case httpdiff.GoToPreviousDiff:
		s.GoToPreviousDiff()

	case httpdiff.SetNotification:
		return s.applyNotification(act.Notification)

	case httpdiff.DismissNotification:
		s.Notification = nil

	case httpdiff.ChangeTheme:
		s.ToggleTheme()

	case httpdiff.JobsUpdated:
		s.UpsertJobs(act.Jobs)

	case httpdiff.ShowJobInfo:
		return s.SetSelectedJob(act.Job)

	case httpdiff.CloseJobInfoScreen:
		s.SelectedJob = nil
		s.CurrentScreen = ScreenHome

	case httpdiff.StartAllJobs:
		s.ResetJobsState()

	case httpdiff.StartOneJob:
		if s.CurrentScreen == ScreenJobInfo {
			return httpdiff.CloseJobInfoScreen{}
		}

	case httpdiff.ConfigurationLoaded:
		s.OnConfigurationLoaded(act.Configuration)

	case httpdiff.LoadingJobsProgress:
		return s.LoadProgressAction(act.Current, act.Total)

	case httpdiff.GenerateDefaultConfiguration:
		return s.GenerateDefaultConfiguration()
	}

	return nil
}

// applyNotification stores the notification and, in headless mode, runs the
// batch-completion protocol: the failure summary latches an exception and
// triggers persistence of the failed jobs, the success summary quits, and
// the save confirmation quits once the exception is latched.
func (s *AppState) applyNotification(n httpdiff.Notification) httpdiff.Action {
	s.Notification = &n

	if !s.Headless {
		return nil
	}

	switch n.ID {
	case httpdiff.NotificationAllFinishedWithFail:
		fmt.Fprintln(s.Stdout, n.Body)
		s.CriticalException = exceptionFromNotification(n.Body)
		failed := s.FailedJobs()
		if len(failed) == 0 {
			s.ShouldQuit = true
			return nil
		}
		return httpdiff.SaveFailedJobs{Jobs: failed}

	case httpdiff.NotificationAllFinished:
		fmt.Fprintln(s.Stdout, n.Body)
		s.ShouldQuit = true

	case httpdiff.NotificationSavedJobs, httpdiff.NotificationSaveFailed:
		if s.CriticalException != nil {
			s.ShouldQuit = true
		}
	}

	return nil
}

// RunActionChain feeds an action through Reduce, then keeps reducing the
// returned follow-up actions until the chain settles. Follow-ups with
// side-effect consumers (the worker) are also re-published via publish.
func RunActionChain(s *AppState, action httpdiff.Action, publish func(httpdiff.Action)) {
	current := action
	for current != nil {
		next := Reduce(s, current)
		if next != nil && publish != nil {
			switch next.(type) {
			case httpdiff.SaveFailedJobs, httpdiff.SaveCurrentJob:
				publish(next)
			}
		}
		current = next
	}
}

// Tick advances time-driven state; exposed so both front-ends share one
// cadence definition.
func Tick(s *AppState, now time.Time) {
	s.OnTick(now)
}
