package state

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"httpdiff/internal/apperr"
	"httpdiff/internal/config"
	"httpdiff/internal/httpdiff"
)

func testState(t *testing.T, headless bool) *AppState {
	t.Helper()
	s := New(t.TempDir(), headless)
	s.Stdout = &bytes.Buffer{}
	s.ConfigurationPath = t.TempDir() + "/configuration.json"
	return s
}

func dto(name string, status httpdiff.JobStatus) httpdiff.JobDTO {
	parsed, _ := url.Parse("http://a.example" + name)
	return httpdiff.JobDTO{
		JobName:  name,
		Status:   status,
		Requests: []httpdiff.Request{{URI: parsed, Status: status}},
	}
}

func TestReduce_Quit(t *testing.T) {
	s := testState(t, false)
	Reduce(s, httpdiff.Quit{})
	if !s.ShouldQuit {
		t.Error("expected quit flag")
	}
}

func TestReduce_JobsUpdatedUpsertsByName(t *testing.T) {
	s := testState(t, false)

	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/a", httpdiff.StatusRunning)}})
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/b", httpdiff.StatusRunning)}})
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/a", httpdiff.StatusFinished)}})

	if len(s.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(s.Jobs))
	}
	if s.Jobs[0].JobName != "/a" || s.Jobs[0].Status != httpdiff.StatusFinished {
		t.Errorf("snapshot for /a not re-integrated: %+v", s.Jobs[0])
	}
}

func TestReduce_CriticalExceptionRestrictsActions(t *testing.T) {
	s := testState(t, false)
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/a", httpdiff.StatusRunning)}})
	Reduce(s, httpdiff.SetCriticalException{Err: apperr.New(apperr.ValidationError, "broken")})

	if s.CurrentScreen != ScreenException {
		t.Fatal("expected exception screen")
	}

	// Ignored while latched.
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/b", httpdiff.StatusRunning)}})
	if len(s.Jobs) != 1 {
		t.Error("JobsUpdated must be ignored under a critical exception")
	}
	Reduce(s, httpdiff.ShowHelp{})
	if s.ShowHelp {
		t.Error("ShowHelp must be ignored under a critical exception")
	}

	// Still allowed while latched.
	Reduce(s, httpdiff.SetNotification{Notification: httpdiff.NewNotification("id", "body", 0, httpdiff.NotificationError)})
	if s.Notification == nil {
		t.Error("SetNotification must pass through under a critical exception")
	}
	Reduce(s, httpdiff.Quit{})
	if !s.ShouldQuit {
		t.Error("Quit must pass through under a critical exception")
	}
}

func TestReduce_ConfigurationLoadedClearsException(t *testing.T) {
	s := testState(t, false)
	Reduce(s, httpdiff.SetCriticalException{Err: apperr.New(apperr.FileNotFound, "gone")})

	first, _ := config.NewDomain("http://a.example")
	second, _ := config.NewDomain("http://b.example")
	Reduce(s, httpdiff.ConfigurationLoaded{Configuration: &config.Configuration{
		Domains:        []config.Domain{first, second},
		Endpoints:      []config.Endpoint{{Endpoint: "/x"}},
		ConcurrentJobs: 7,
	}})

	if s.CriticalException != nil {
		t.Error("a successful load must clear the exception")
	}
	if s.ConcurrencyLevel != 7 {
		t.Errorf("expected concurrency 7, got %d", s.ConcurrencyLevel)
	}
	if len(s.Domains) != 2 {
		t.Errorf("expected 2 domains, got %v", s.Domains)
	}
	if s.CurrentScreen != ScreenHome {
		t.Error("expected home screen after load")
	}
}

func TestReduce_ChainedFollowUpActions(t *testing.T) {
	s := testState(t, false)
	job := dto("/failed", httpdiff.StatusFailed)
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{job}})

	// Opening a pending job yields a warning notification follow-up.
	pending := dto("/pending", httpdiff.StatusPending)
	follow := Reduce(s, httpdiff.ShowJobInfo{Job: pending})
	notification, ok := follow.(httpdiff.SetNotification)
	if !ok {
		t.Fatalf("expected SetNotification follow-up, got %T", follow)
	}
	if notification.Notification.ID != httpdiff.NotificationPendingJobInfo {
		t.Errorf("unexpected notification: %s", notification.Notification.ID)
	}

	// A failed (no longer executing) job opens the info screen directly.
	if follow := Reduce(s, httpdiff.ShowJobInfo{Job: job}); follow != nil {
		t.Errorf("unexpected follow-up: %T", follow)
	}
	if s.CurrentScreen != ScreenJobInfo || s.SelectedJob == nil {
		t.Error("expected job info screen with a selected job")
	}

	// StartOneJob from the info screen chains into closing it.
	follow = Reduce(s, httpdiff.StartOneJob{Name: "/failed"})
	if _, ok := follow.(httpdiff.CloseJobInfoScreen); !ok {
		t.Fatalf("expected CloseJobInfoScreen follow-up, got %T", follow)
	}
	Reduce(s, follow)
	if s.SelectedJob != nil || s.CurrentScreen != ScreenHome {
		t.Error("expected info screen closed")
	}
}

func TestReduce_NotificationExpiryOnTick(t *testing.T) {
	s := testState(t, false)
	Reduce(s, httpdiff.SetNotification{Notification: httpdiff.Notification{
		ID:        "short",
		Body:      "soon gone",
		Expiry:    10 * time.Millisecond,
		StartedAt: time.Now().Add(-time.Second),
		Type:      httpdiff.NotificationSuccess,
	}})

	Tick(s, time.Now().Add(time.Second))
	if s.Notification != nil {
		t.Error("expired notification must be cleared on tick")
	}
}

func TestReduce_HeadlessSuccessQuits(t *testing.T) {
	s := testState(t, true)
	out := s.Stdout.(*bytes.Buffer)

	Reduce(s, httpdiff.SetNotification{Notification: httpdiff.NewNotification(
		httpdiff.NotificationAllFinished, "All requests are finished in 1 second", 5*time.Second, httpdiff.NotificationSuccess)})

	if !s.ShouldQuit {
		t.Error("success summary must quit headless mode")
	}
	if !strings.Contains(out.String(), "All requests are finished") {
		t.Errorf("summary not printed: %q", out.String())
	}
}

func TestReduce_HeadlessFailureSavesThenQuits(t *testing.T) {
	s := testState(t, true)

	failed := dto("/broken", httpdiff.StatusFailed)
	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{failed}})

	follow := Reduce(s, httpdiff.SetNotification{Notification: httpdiff.NewNotification(
		httpdiff.NotificationAllFinishedWithFail, "All requests are finished in 1 second. 1 failed.", 5*time.Second, httpdiff.NotificationWarning)})

	save, ok := follow.(httpdiff.SaveFailedJobs)
	if !ok {
		t.Fatalf("expected SaveFailedJobs follow-up, got %T", follow)
	}
	if len(save.Jobs) != 1 || save.Jobs[0].JobName != "/broken" {
		t.Errorf("unexpected save payload: %+v", save.Jobs)
	}
	if s.CriticalException == nil {
		t.Error("failure summary must latch a critical exception")
	}
	if s.ShouldQuit {
		t.Error("must not quit before persistence confirms")
	}

	// Persistence confirmation arrives, then headless mode quits.
	Reduce(s, httpdiff.SetNotification{Notification: httpdiff.NewNotification(
		httpdiff.NotificationSavedJobs, "Saved 1 jobs", 5*time.Second, httpdiff.NotificationSuccess)})
	if !s.ShouldQuit {
		t.Error("saved-jobs confirmation must quit headless mode")
	}
}

func TestReduce_HeadlessPrintsTerminalRows(t *testing.T) {
	s := testState(t, true)
	out := s.Stdout.(*bytes.Buffer)

	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/running", httpdiff.StatusRunning)}})
	if out.Len() != 0 {
		t.Errorf("running snapshots must not print: %q", out.String())
	}

	Reduce(s, httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/done", httpdiff.StatusFinished)}})
	if !strings.Contains(out.String(), "/done") {
		t.Errorf("terminal snapshot must print a row: %q", out.String())
	}
}

func TestReduce_ReplayDeterminism(t *testing.T) {
	log := []httpdiff.Action{
		httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/a", httpdiff.StatusRunning)}},
		httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/b", httpdiff.StatusFailed)}},
		httpdiff.SelectNextRow{},
		httpdiff.SelectNextRow{},
		httpdiff.JobsUpdated{Jobs: []httpdiff.JobDTO{dto("/a", httpdiff.StatusFinished)}},
		httpdiff.ChangeTheme{},
		httpdiff.ShowHelp{},
		httpdiff.CloseHelp{},
	}

	replay := func() *AppState {
		s := New("out", false)
		s.Stdout = &bytes.Buffer{}
		for _, action := range log {
			current := action
			for current != nil {
				current = Reduce(s, current)
			}
		}
		return s
	}

	first := replay()
	second := replay()

	if len(first.Jobs) != len(second.Jobs) {
		t.Fatalf("job counts differ: %d vs %d", len(first.Jobs), len(second.Jobs))
	}
	for i := range first.Jobs {
		if first.Jobs[i].JobName != second.Jobs[i].JobName || first.Jobs[i].Status != second.Jobs[i].Status {
			t.Errorf("job %d differs between replays", i)
		}
	}
	if first.SelectedIndex != second.SelectedIndex {
		t.Error("selection differs between replays")
	}
	if first.Theme != second.Theme {
		t.Error("theme differs between replays")
	}
	if first.ShowHelp != second.ShowHelp {
		t.Error("help flag differs between replays")
	}
}

func TestReduce_GenerateDefaultConfiguration(t *testing.T) {
	s := testState(t, false)

	follow := Reduce(s, httpdiff.GenerateDefaultConfiguration{})
	notification, ok := follow.(httpdiff.SetNotification)
	if !ok {
		t.Fatalf("expected SetNotification, got %T", follow)
	}
	if notification.Notification.Type != httpdiff.NotificationSuccess {
		t.Errorf("expected success notification, got %v: %s",
			notification.Notification.Type, notification.Notification.Body)
	}

	if _, err := config.Load(s.ConfigurationPath); err != nil {
		t.Errorf("generated configuration must load: %v", err)
	}
}
