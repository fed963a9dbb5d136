package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/model"
)

// TaskStore caches tasks per project. Unlike chat, fetches always
// revalidate: tasks are mutated by other users and there is no task
// push topic, so the board refetches on every visit and replaces the
// scope wholesale. Rapid re-invocations race last-write-wins.
type TaskStore struct {
	client *api.Client
	log    *slog.Logger

	mu        sync.Mutex
	byProject map[string][]model.Task
	statuses  map[string]Status
	errs      map[string]error
}

// NewTaskStore creates an empty task store.
func NewTaskStore(client *api.Client, log *slog.Logger) *TaskStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &TaskStore{
		client:    client,
		log:       log,
		byProject: make(map[string][]model.Task),
		statuses:  make(map[string]Status),
		errs:      make(map[string]error),
	}
}

// Status returns the fetch status and last error for one project's
// board. Scopes are independent: a failed fetch for one project never
// disturbs another's status.
func (s *TaskStore) Status(projectID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[projectID], s.errs[projectID]
}

// Tasks returns a snapshot of the cached tasks for a project.
func (s *TaskStore) Tasks(projectID string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.byProject[projectID]...)
}

// FetchTasks unconditionally GETs a project's tasks and replaces the
// cached sequence. Errors leave the previous cache intact.
func (s *TaskStore) FetchTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	s.mu.Lock()
	s.statuses[projectID] = StatusLoading
	s.mu.Unlock()

	var tasks []model.Task
	path := fmt.Sprintf("/api/projects/%s/tasks", projectID)
	if err := s.client.Get(ctx, path, &tasks); err != nil {
		s.mu.Lock()
		s.statuses[projectID] = StatusFailed
		s.errs[projectID] = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.byProject[projectID] = tasks
	s.statuses[projectID] = StatusSucceeded
	s.errs[projectID] = nil
	result := append([]model.Task(nil), tasks...)
	s.mu.Unlock()
	return result, nil
}

// CreateTask POSTs a new task and appends the server-returned record on
// success. No speculative insert happens here; any optimistic UI state
// is owned (and rolled back) by the view.
func (s *TaskStore) CreateTask(ctx context.Context, projectID string, req model.TaskRequest) (model.Task, error) {
	var created model.Task
	path := fmt.Sprintf("/api/projects/%s/tasks", projectID)
	if err := s.client.Post(ctx, path, req, &created); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	s.byProject[projectID] = append(s.byProject[projectID], created)
	s.mu.Unlock()
	return created, nil
}

// UpdateTask PUTs a partial update. On success the record is replaced in
// place (position preserved); on failure the stale record is left alone
// and the next fetch reconciles the true state.
func (s *TaskStore) UpdateTask(
	ctx context.Context,
	projectID string,
	taskID string,
	update model.TaskUpdate,
) (model.Task, error) {
	var updated model.Task
	path := fmt.Sprintf("/api/tasks/%s", taskID)
	if err := s.client.Put(ctx, path, update, &updated); err != nil {
		return model.Task{}, err
	}

	s.replace(projectID, updated)
	return updated, nil
}

// MoveTask changes only a task's status. Any source status may move to
// any destination; the server is trusted to reject transitions it does
// not allow.
func (s *TaskStore) MoveTask(
	ctx context.Context,
	projectID string,
	taskID string,
	status model.TaskStatus,
) (model.Task, error) {
	return s.UpdateTask(ctx, projectID, taskID, model.TaskUpdate{Status: &status})
}

// DeleteTask removes a task on the server and from the cache.
func (s *TaskStore) DeleteTask(ctx context.Context, projectID, taskID string) error {
	path := fmt.Sprintf("/api/tasks/%s", taskID)
	if err := s.client.Delete(ctx, path); err != nil {
		return err
	}

	s.mu.Lock()
	tasks := s.byProject[projectID]
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != taskID {
			out = append(out, t)
		}
	}
	s.byProject[projectID] = out
	s.mu.Unlock()
	return nil
}

// AttachFile uploads a file and links the resulting metadata to a task.
// Progress is reported through onProgress as a percentage.
func (s *TaskStore) AttachFile(
	ctx context.Context,
	projectID string,
	taskID string,
	fileName string,
	file io.Reader,
	onProgress api.ProgressFunc,
) (*model.FileMetadata, error) {
	meta, err := s.client.Upload(ctx, "/api/files/upload", fileName, file, onProgress)
	if err != nil {
		return nil, err
	}

	var updated model.Task
	path := fmt.Sprintf("/api/tasks/%s/attachments/%s", taskID, meta.ID)
	if err := s.client.Post(ctx, path, nil, &updated); err != nil {
		return nil, err
	}

	s.replace(projectID, updated)
	return meta, nil
}

// replace swaps the cached record matching the task's id, keeping its
// position in the sequence.
func (s *TaskStore) replace(projectID string, task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.byProject[projectID]
	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task
			return
		}
	}
}
