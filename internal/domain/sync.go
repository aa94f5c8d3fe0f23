package domain

import "time"

// PublishOutcome reports whether a quote reached the remote collection.
type PublishOutcome string

const (
	PublishOK     PublishOutcome = "ok"
	PublishFailed PublishOutcome = "failed"
)

// SyncTrigger names what started a sync cycle.
type SyncTrigger string

const (
	TriggerTimer  SyncTrigger = "timer"
	TriggerManual SyncTrigger = "manual"
)

// NotificationLevel classifies a user-facing notification.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient message shown to the user until ExpiresAt.
type Notification struct {
	Message   string            `json:"message"`
	Level     NotificationLevel `json:"level"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Active reports whether the notification should still be displayed at now.
func (n Notification) Active(now time.Time) bool {
	return now.Before(n.ExpiresAt)
}
