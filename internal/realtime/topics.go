package realtime

import "fmt"

// ProjectChatTopic is the topic on which a project's chat messages are
// pushed.
func ProjectChatTopic(projectID string) string {
	return fmt.Sprintf("chat/project/%s", projectID)
}

// ProjectChatJoinTopic is the topic a client publishes to when entering
// a project chat room.
func ProjectChatJoinTopic(projectID string) string {
	return fmt.Sprintf("chat/project/%s/join", projectID)
}

// UserNotificationTopic is the per-user topic for notification pushes.
func UserNotificationTopic(userID string) string {
	return fmt.Sprintf("notifications/user/%s", userID)
}
