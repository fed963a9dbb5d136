package model

import "time"

// NotificationType categorizes a notification for display.
type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "TASK_ASSIGNED"
	NotificationUserMention   NotificationType = "USER_MENTION"
	NotificationProjectUpdate NotificationType = "PROJECT_UPDATE"
	NotificationTeamInvite    NotificationType = "TEAM_INVITE"
)

// Notification represents an alert surfaced to the user about activity
// on the platform.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}
