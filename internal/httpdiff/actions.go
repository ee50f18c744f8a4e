package httpdiff

import "httpdiff/internal/config"

// Action is a typed message on the application bus. The reducer is the only
// consumer that mutates user-visible state; every other component reacts to
// the subset of actions it cares about and ignores the rest.
type Action interface{ isAction() }

// Quit asks the application to shut down.
type Quit struct{}

// TryLoadConfigurationFile requests the initial configuration load.
type TryLoadConfigurationFile struct{ Path string }

// ReloadConfigurationFile requests a reload after the file changed on disk.
type ReloadConfigurationFile struct{ Path string }

// ConfigurationLoaded announces a successfully loaded configuration.
type ConfigurationLoaded struct{ Configuration *config.Configuration }

// LoadingJobsProgress reports request-builder progress during a load.
type LoadingJobsProgress struct {
	Current int
	Total   int
}

// SetCriticalException latches a fatal error on the application state.
type SetCriticalException struct{ Err error }

// StartAllJobs starts every job of the current configuration.
type StartAllJobs struct{}

// StartOneJob starts (or restarts) the named job.
type StartOneJob struct{ Name string }

// JobsUpdated carries DTO snapshots for the reducer and the worker.
type JobsUpdated struct{ Jobs []JobDTO }

// SetNotification shows a notification, replacing any visible one.
type SetNotification struct{ Notification Notification }

// DismissNotification clears the visible notification.
type DismissNotification struct{}

// Row selection on the home screen.
type (
	SelectPreviousRow  struct{}
	SelectNextRow      struct{}
	SelectRowByJobName struct{ Name string }
)

// Job info screen navigation.
type (
	ShowJobInfo        struct{ Job JobDTO }
	CloseJobInfoScreen struct{}
	SwitchDiffTab      struct{}
	ScrollDiffsUp      struct{}
	ScrollDiffsDown    struct{}
	GoToNextDiff       struct{}
	GoToPreviousDiff   struct{}
)

// Help overlay.
type (
	ShowHelp  struct{}
	CloseHelp struct{}
)

// ChangeTheme toggles between the dark and light themes.
type ChangeTheme struct{}

// Persistence commands handled by the worker.
type (
	SaveFailedJobs struct{ Jobs []JobDTO }
	SaveCurrentJob struct{ Job JobDTO }
)

// GenerateDefaultConfiguration writes the template configuration file, the
// recovery path when no valid configuration exists.
type GenerateDefaultConfiguration struct{}

func (Quit) isAction()                         {}
func (TryLoadConfigurationFile) isAction()     {}
func (ReloadConfigurationFile) isAction()      {}
func (ConfigurationLoaded) isAction()          {}
func (LoadingJobsProgress) isAction()          {}
func (SetCriticalException) isAction()         {}
func (StartAllJobs) isAction()                 {}
func (StartOneJob) isAction()                  {}
func (JobsUpdated) isAction()                  {}
func (SetNotification) isAction()              {}
func (DismissNotification) isAction()          {}
func (SelectPreviousRow) isAction()            {}
func (SelectNextRow) isAction()                {}
func (SelectRowByJobName) isAction()           {}
func (ShowJobInfo) isAction()                  {}
func (CloseJobInfoScreen) isAction()           {}
func (SwitchDiffTab) isAction()                {}
func (ScrollDiffsUp) isAction()                {}
func (ScrollDiffsDown) isAction()              {}
func (GoToNextDiff) isAction()                 {}
func (GoToPreviousDiff) isAction()             {}
func (ShowHelp) isAction()                     {}
func (CloseHelp) isAction()                    {}
func (ChangeTheme) isAction()                  {}
func (SaveFailedJobs) isAction()               {}
func (SaveCurrentJob) isAction()               {}
func (GenerateDefaultConfiguration) isAction() {}
