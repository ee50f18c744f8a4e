package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"httpdiff/internal/httpdiff"
	"httpdiff/internal/state"
)

// keyToAction translates a key press into a bus action given the current
// screen. Returning nil swallows the key.
func keyToAction(msg tea.KeyMsg, s *state.AppState) httpdiff.Action {
	switch msg.String() {
	case "q", "ctrl+c":
		return httpdiff.Quit{}

	case "h":
		return httpdiff.ShowHelp{}

	case "t":
		return httpdiff.ChangeTheme{}

	case "g":
		return httpdiff.GenerateDefaultConfiguration{}

	case "R":
		return httpdiff.StartAllJobs{}

	case "r":
		if job, ok := s.CurrentJob(); ok {
			return httpdiff.StartOneJob{Name: job.JobName}
		}

	case "enter":
		if job, ok := s.CurrentJob(); ok && job.Status == httpdiff.StatusFailed {
			return httpdiff.ShowJobInfo{Job: job}
		}

	case "up":
		switch s.CurrentScreen {
		case state.ScreenHome:
			return httpdiff.SelectPreviousRow{}
		case state.ScreenJobInfo:
			return httpdiff.ScrollDiffsUp{}
		}

	case "down":
		switch s.CurrentScreen {
		case state.ScreenHome:
			return httpdiff.SelectNextRow{}
		case state.ScreenJobInfo:
			return httpdiff.ScrollDiffsDown{}
		}

	case "shift+up":
		switch s.CurrentScreen {
		case state.ScreenHome:
			if job, ok := s.PreviousFailedJob(); ok {
				return httpdiff.SelectRowByJobName{Name: job.JobName}
			}
		case state.ScreenJobInfo:
			return httpdiff.GoToPreviousDiff{}
		}

	case "shift+down":
		switch s.CurrentScreen {
		case state.ScreenHome:
			if job, ok := s.NextFailedJob(); ok {
				return httpdiff.SelectRowByJobName{Name: job.JobName}
			}
		case state.ScreenJobInfo:
			return httpdiff.GoToNextDiff{}
		}

	case "shift+left":
		if s.CurrentScreen == state.ScreenJobInfo {
			if job, ok := s.PreviousFailedJob(); ok {
				return httpdiff.ShowJobInfo{Job: job}
			}
		}

	case "shift+right":
		if s.CurrentScreen == state.ScreenJobInfo {
			if job, ok := s.NextFailedJob(); ok {
				return httpdiff.ShowJobInfo{Job: job}
			}
		}

	case "tab":
		if s.CurrentScreen == state.ScreenJobInfo {
			return httpdiff.SwitchDiffTab{}
		}

	case "esc":
		if s.ShowHelp {
			return httpdiff.CloseHelp{}
		}
		if s.SelectedJob != nil {
			return httpdiff.CloseJobInfoScreen{}
		}
		return httpdiff.DismissNotification{}

	case "S":
		failed := s.FailedJobs()
		if len(failed) == 0 {
			return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
				httpdiff.NotificationNoFailedJobs,
				"There are no failed jobs to save",
				5*time.Second,
				httpdiff.NotificationWarning,
			)}
		}
		return httpdiff.SaveFailedJobs{Jobs: failed}

	case "s":
		if job, ok := s.CurrentJob(); ok {
			return httpdiff.SaveCurrentJob{Job: job}
		}
	}

	return nil
}

// mouseToAction maps wheel scrolling onto row selection or diff scrolling.
func mouseToAction(msg tea.MouseMsg, s *state.AppState) httpdiff.Action {
	mouse := tea.MouseEvent(msg)
	switch mouse.Button {
	case tea.MouseButtonWheelUp:
		switch s.CurrentScreen {
		case state.ScreenHome:
			return httpdiff.SelectPreviousRow{}
		case state.ScreenJobInfo:
			return httpdiff.ScrollDiffsUp{}
		}
	case tea.MouseButtonWheelDown:
		switch s.CurrentScreen {
		case state.ScreenHome:
			return httpdiff.SelectNextRow{}
		case state.ScreenJobInfo:
			return httpdiff.ScrollDiffsDown{}
		}
	}
	return nil
}
