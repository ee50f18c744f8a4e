// Package state holds the user-visible application state and the reducer
// that is its sole mutator. Concurrent tasks never touch AppState; they
// publish actions on the bus and the owning loop (TUI program or headless
// loop) feeds them through Reduce.
package state

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"httpdiff/internal/apperr"
	"httpdiff/internal/config"
	"httpdiff/internal/httpdiff"
)

// Screen selects what the front-end renders.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenJobInfo
	ScreenException
)

// ThemeType selects the color scheme.
type ThemeType int

const (
	ThemeDark ThemeType = iota
	ThemeLight
)

// downloadHistoryLen fixes the size of the downloaded-bytes ring buffer.
const downloadHistoryLen = 600

// tickInterval is the cadence at which ephemeral state (download buffer,
// notification expiry) is flushed.
const tickInterval = 200 * time.Millisecond

// SelectedJobState is the viewer state for the job info screen.
type SelectedJobState struct {
	Job            httpdiff.JobDTO
	TabIndex       int
	VerticalScroll int
}

// ScrollUp moves the diff viewport up one line.
func (s *SelectedJobState) ScrollUp() {
	if s.VerticalScroll > 0 {
		s.VerticalScroll--
	}
}

// ScrollDown moves the diff viewport down one line.
func (s *SelectedJobState) ScrollDown() {
	if s.VerticalScroll < len(s.CurrentDiffs())-1 {
		s.VerticalScroll++
	}
}

// CurrentDiffs returns the diff vector of the focused request tab.
func (s *SelectedJobState) CurrentDiffs() []httpdiff.DiffEntry {
	if s.TabIndex >= len(s.Job.Requests) {
		return nil
	}
	return s.Job.Requests[s.TabIndex].Diffs
}

// AppState is the process-lifetime application state. Job identity is the
// job name; snapshots arriving over the bus are re-integrated by name.
type AppState struct {
	OutputDirectory  string
	Jobs             []httpdiff.JobDTO
	Domains          []string
	ConcurrencyLevel int
	SelectedIndex    int
	SelectedJob      *SelectedJobState
	Notification     *httpdiff.Notification
	ShowHelp         bool
	ShouldQuit       bool
	CriticalException error
	CurrentScreen    Screen
	Theme            ThemeType
	Headless         bool

	// Downloaded is the content-length history ring: index 0 is the newest
	// 200 ms window, used by the download-rate readout in the TUI header.
	Downloaded []uint64

	downloadBuffer uint64
	lastTick       time.Time

	// Stdout receives headless table output; swapped in tests.
	Stdout io.Writer

	// ConfigurationPath is where GenerateDefaultConfiguration writes.
	ConfigurationPath string
}

// New builds the initial state. outputDirectory is the per-run artifact
// directory (already timestamped by the caller).
func New(outputDirectory string, headless bool) *AppState {
	return &AppState{
		OutputDirectory:   outputDirectory,
		SelectedIndex:     -1,
		Downloaded:        make([]uint64, downloadHistoryLen),
		lastTick:          time.Now(),
		Headless:          headless,
		Stdout:            os.Stdout,
		ConfigurationPath: "./configuration.json",
	}
}

// HasFailedJobs reports whether any job is in the Failed state.
func (s *AppState) HasFailedJobs() bool {
	for _, job := range s.Jobs {
		if job.IsFailed() {
			return true
		}
	}
	return false
}

// SetCriticalException latches a fatal error and switches to the exception
// screen.
func (s *AppState) SetCriticalException(err error) {
	s.CriticalException = err
	s.CurrentScreen = ScreenException
}

// SelectNextRow moves the table selection down, wrapping at the end.
func (s *AppState) SelectNextRow() {
	if len(s.Jobs) == 0 {
		return
	}
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Jobs)-1 {
		s.SelectedIndex = 0
	} else {
		s.SelectedIndex++
	}
}

// SelectPreviousRow moves the table selection up, wrapping at the top.
func (s *AppState) SelectPreviousRow() {
	if len(s.Jobs) == 0 {
		return
	}
	if s.SelectedIndex <= 0 {
		s.SelectedIndex = len(s.Jobs) - 1
	} else {
		s.SelectedIndex--
	}
}

// SelectRowByJobName focuses the named job if it exists.
func (s *AppState) SelectRowByJobName(name string) {
	for i, job := range s.Jobs {
		if job.JobName == name {
			s.SelectedIndex = i
			return
		}
	}
}

// CurrentJob returns the selected job snapshot.
func (s *AppState) CurrentJob() (httpdiff.JobDTO, bool) {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Jobs) {
		return httpdiff.JobDTO{}, false
	}
	return s.Jobs[s.SelectedIndex], true
}

// NextFailedJob finds the first failed job after the selection, wrapping.
func (s *AppState) NextFailedJob() (httpdiff.JobDTO, bool) {
	count := len(s.Jobs)
	if count == 0 {
		return httpdiff.JobDTO{}, false
	}
	start := s.SelectedIndex + 1
	for offset := 0; offset < count; offset++ {
		job := s.Jobs[((start+offset)%count+count)%count]
		if job.IsFailed() {
			return job, true
		}
	}
	return httpdiff.JobDTO{}, false
}

// PreviousFailedJob finds the first failed job before the selection,
// wrapping.
func (s *AppState) PreviousFailedJob() (httpdiff.JobDTO, bool) {
	count := len(s.Jobs)
	if count == 0 {
		return httpdiff.JobDTO{}, false
	}
	start := s.SelectedIndex - 1
	for offset := 0; offset < count; offset++ {
		job := s.Jobs[((start-offset)%count+count)%count]
		if job.IsFailed() {
			return job, true
		}
	}
	return httpdiff.JobDTO{}, false
}

// FailedJobs returns snapshots of every failed job.
func (s *AppState) FailedJobs() []httpdiff.JobDTO {
	var failed []httpdiff.JobDTO
	for _, job := range s.Jobs {
		if job.IsFailed() {
			failed = append(failed, job)
		}
	}
	return failed
}

// UpsertJobs re-integrates DTO snapshots by job name. In headless mode every
// snapshot reaching a terminal state prints one table row.
func (s *AppState) UpsertJobs(updated []httpdiff.JobDTO) {
	for _, job := range updated {
		if s.Headless && (job.Status == httpdiff.StatusFailed || job.Status == httpdiff.StatusFinished) {
			s.printJobRow(job)
		}

		s.bufferDownloadedBytes(job)

		replaced := false
		for i := range s.Jobs {
			if s.Jobs[i].JobName == job.JobName {
				s.Jobs[i] = job
				replaced = true
				break
			}
		}
		if !replaced {
			s.Jobs = append(s.Jobs, job)
		}
	}
}

func (s *AppState) printJobRow(job httpdiff.JobDTO) {
	fmt.Fprintf(s.Stdout, "%-50s", job.JobName)
	for i := range job.Requests {
		fmt.Fprintf(s.Stdout, " | %-28s", job.Requests[i].StatusText())
	}
	fmt.Fprintln(s.Stdout)
}

// PrintTableHeader writes the headless column header derived from domains.
func (s *AppState) PrintTableHeader() {
	fmt.Fprintf(s.Stdout, "%-50s", "endpoint")
	for _, domain := range s.Domains {
		fmt.Fprintf(s.Stdout, " | %-28s", domain)
	}
	fmt.Fprintln(s.Stdout)
}

func (s *AppState) bufferDownloadedBytes(job httpdiff.JobDTO) {
	for i := range job.Requests {
		response := job.Requests[i].Response
		if response == nil || response.Success == nil || response.Success.ContentLength == nil {
			continue
		}
		if length := *response.Success.ContentLength; length > 0 {
			s.downloadBuffer += uint64(length)
		}
	}
}

// OnTick flushes per-tick ephemeral state: every 200 ms the buffered
// download total is pushed into the history ring and expired notifications
// are cleared.
func (s *AppState) OnTick(now time.Time) {
	if now.Sub(s.lastTick) < tickInterval {
		return
	}
	s.lastTick = now

	copy(s.Downloaded[1:], s.Downloaded[:len(s.Downloaded)-1])
	s.Downloaded[0] = s.downloadBuffer
	s.downloadBuffer = 0

	if s.Notification != nil && s.Notification.Expired(now) {
		s.Notification = nil
	}
}

// OnConfigurationLoaded resets job state for the new configuration and
// clears any latched exception, which is how a broken configuration is
// recovered by editing the file.
func (s *AppState) OnConfigurationLoaded(cfg *config.Configuration) {
	s.Domains = s.Domains[:0]
	for _, domain := range cfg.Domains {
		s.Domains = append(s.Domains, domain.URL.String())
	}
	s.ConcurrencyLevel = cfg.ConcurrentJobs
	s.CriticalException = nil
	s.ResetJobsState()

	if s.Headless {
		s.PrintTableHeader()
	}
}

// ResetJobsState clears the job table and returns to the home screen.
func (s *AppState) ResetJobsState() {
	s.Jobs = s.Jobs[:0]
	s.SelectedJob = nil
	s.SelectedIndex = -1
	s.CurrentScreen = ScreenHome
}

// SetSelectedJob opens the job info screen for the snapshot. Jobs still
// executing get a warning notification instead.
func (s *AppState) SetSelectedJob(job httpdiff.JobDTO) httpdiff.Action {
	if job.Status == httpdiff.StatusPending || job.Status == httpdiff.StatusRunning {
		return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationPendingJobInfo,
			"The job is still executing. Please, wait",
			2*time.Second,
			httpdiff.NotificationWarning,
		)}
	}
	if len(job.Requests) == 0 {
		return nil
	}

	s.CurrentScreen = ScreenJobInfo
	s.SelectRowByJobName(job.JobName)

	// Requests with diffs first, so the interesting tab opens by default.
	sort.SliceStable(job.Requests, func(i, j int) bool {
		return job.Requests[i].HasDiffs && !job.Requests[j].HasDiffs
	})

	s.SelectedJob = &SelectedJobState{Job: job}
	return nil
}

// SwitchDiffTab cycles the focused request tab and resets scroll.
func (s *AppState) SwitchDiffTab() {
	if s.SelectedJob == nil {
		return
	}
	tabs := len(s.SelectedJob.Job.Requests)
	if tabs == 0 {
		return
	}
	s.SelectedJob.TabIndex = (s.SelectedJob.TabIndex + 1) % tabs
	s.SelectedJob.VerticalScroll = 0
}

// FindNextDiffGroup locates the start of the next run of non-Equal entries,
// scanning forward (or backward) from startIndex with wrap-around.
func FindNextDiffGroup(startIndex int, diffs []httpdiff.DiffEntry, reversed bool) (int, bool) {
	if len(diffs) == 0 {
		return 0, false
	}

	lastIndex := len(diffs) - 1
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex > lastIndex {
		startIndex = lastIndex
	}
	current := startIndex

	for {
		previous := current - 1
		if previous < 0 {
			previous = lastIndex
		}

		if diffs[current].Tag != httpdiff.TagEqual && diffs[previous].Tag == httpdiff.TagEqual {
			return current, true
		}

		if reversed {
			current--
			if current < 0 {
				current = lastIndex
			}
		} else {
			current = (current + 1) % len(diffs)
		}

		if current == startIndex {
			return 0, false
		}
	}
}

// GoToNextDiff jumps the viewport to the next diff group.
func (s *AppState) GoToNextDiff() {
	if s.SelectedJob == nil {
		return
	}
	diffs := s.SelectedJob.CurrentDiffs()
	if len(diffs) == 0 {
		return
	}
	start := s.SelectedJob.VerticalScroll + 1
	if start > len(diffs) {
		start = len(diffs)
	}
	if index, ok := FindNextDiffGroup(start, diffs, false); ok {
		s.SelectedJob.VerticalScroll = index
	}
}

// GoToPreviousDiff jumps the viewport to the previous diff group.
func (s *AppState) GoToPreviousDiff() {
	if s.SelectedJob == nil {
		return
	}
	diffs := s.SelectedJob.CurrentDiffs()
	if len(diffs) == 0 {
		return
	}
	start := s.SelectedJob.VerticalScroll - 1
	if start < 0 {
		start = 0
	}
	if index, ok := FindNextDiffGroup(start, diffs, true); ok {
		s.SelectedJob.VerticalScroll = index
	}
}

// ToggleTheme flips between the dark and light themes.
func (s *AppState) ToggleTheme() {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
	} else {
		s.Theme = ThemeDark
	}
}

// GenerateDefaultConfiguration writes the template configuration and
// reports the outcome as a notification action.
func (s *AppState) GenerateDefaultConfiguration() httpdiff.Action {
	if err := config.Default().Save(s.ConfigurationPath); err != nil {
		return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationDefaultConfigFailed,
			fmt.Sprintf("Failed to save default configuration to %s", s.ConfigurationPath),
			0,
			httpdiff.NotificationError,
		)}
	}

	if s.CriticalException != nil {
		return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationDefaultConfig,
			fmt.Sprintf("Saved default configuration to %s\nPlease, reload application", s.ConfigurationPath),
			0,
			httpdiff.NotificationSuccess,
		)}
	}
	return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
		httpdiff.NotificationDefaultConfig,
		fmt.Sprintf("Saved default configuration to %s", s.ConfigurationPath),
		5*time.Second,
		httpdiff.NotificationSuccess,
	)}
}

// LoadProgressAction builds the progress notification for request-builder
// application, coalescing with an already-visible progress notification.
func (s *AppState) LoadProgressAction(current, total int) httpdiff.Action {
	progressVisible := s.Notification != nil && s.Notification.ID == httpdiff.NotificationJobProgress
	if (s.Notification == nil && current != total) || progressVisible {
		return httpdiff.SetNotification{Notification: httpdiff.NewNotification(
			httpdiff.NotificationJobProgress,
			fmt.Sprintf("Mapped %d out of %d requests.", current, total),
			2*time.Second,
			httpdiff.NotificationSuccess,
		)}
	}
	return nil
}

// exceptionFromNotification is the latched error for the headless
// failed-batch path.
func exceptionFromNotification(body string) error {
	return apperr.New(apperr.Exception, "%s", body)
}
