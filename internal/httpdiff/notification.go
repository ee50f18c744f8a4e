package httpdiff

import "time"

// NotificationType selects the visual treatment of a notification.
type NotificationType int

const (
	NotificationSuccess NotificationType = iota
	NotificationWarning
	NotificationError
)

// Stable notification identifiers. At most one notification is visible at a
// time; the id lets a newer message of the same kind replace the old one.
const (
	NotificationAllFinished         = "all-requests-finished-without-fails"
	NotificationAllFinishedWithFail = "all-requests-finished-with-fails"
	NotificationConfigReload        = "configuration-reload"
	NotificationJobProgress         = "job-progress-change"
	NotificationPendingJobInfo      = "pending-job-info"
	NotificationNoFailedJobs        = "no-failed-jobs-to-save"
	NotificationSavedJob            = "saved-job"
	NotificationSavedJobs           = "saved-jobs"
	NotificationSaveFailed          = "failed-to-save-jobs"
	NotificationDefaultConfig       = "generate-default-config"
	NotificationDefaultConfigFailed = "generate-default-config-failed"
)

// Notification is an ephemeral user-facing message. A zero Expiry means the
// notification stays until dismissed or replaced.
type Notification struct {
	ID        string
	Body      string
	Expiry    time.Duration
	StartedAt time.Time
	Type      NotificationType
}

// NewNotification stamps a notification with the current time.
func NewNotification(id, body string, expiry time.Duration, typ NotificationType) Notification {
	return Notification{ID: id, Body: body, Expiry: expiry, StartedAt: time.Now(), Type: typ}
}

// Expired reports whether the notification should be cleared at now.
func (n Notification) Expired(now time.Time) bool {
	return n.Expiry > 0 && now.Sub(n.StartedAt) >= n.Expiry
}

// PercentageLeft returns the remaining share of the display window, for the
// countdown gauge. Notifications without expiry have no countdown.
func (n Notification) PercentageLeft(now time.Time) (int, bool) {
	if n.Expiry <= 0 {
		return 0, false
	}
	elapsed := now.Sub(n.StartedAt)
	if elapsed >= n.Expiry {
		return 0, true
	}
	return 100 - int(elapsed*100/n.Expiry), true
}
