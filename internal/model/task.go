package model

import "time"

// TaskStatus is the normalized board column of a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "TO_DO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{StatusToDo, StatusInProgress, StatusDone}

// Priority constants (lower number = higher priority).
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Task is a single work item on a project board.
type Task struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      TaskStatus     `json:"status"`
	Priority    int            `json:"priority"`
	AssigneeID  string         `json:"assigneeId,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Attachments []FileMetadata `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TaskRequest is the payload for creating a task.
type TaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TaskUpdate carries a partial update; nil fields are left untouched
// by the server.
type TaskUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *int        `json:"priority,omitempty"`
	AssigneeID  *string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
}

// FileMetadata describes an uploaded attachment.
type FileMetadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
