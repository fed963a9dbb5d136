package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/model"
)

// NotificationStore caches the user's notifications newest-first and
// tracks the unread count.
type NotificationStore struct {
	client *api.Client
	log    *slog.Logger

	mu            sync.Mutex
	notifications []model.Notification
	unread        int
	status        Status
	err           error
}

// NewNotificationStore creates an empty notification store.
func NewNotificationStore(client *api.Client, log *slog.Logger) *NotificationStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &NotificationStore{
		client: client,
		log:    log,
	}
}

// Status returns the store's fetch status and last error. Callers
// typically fetch once per store lifetime, gated on StatusIdle; the
// store does not enforce that.
func (s *NotificationStore) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.err
}

// Notifications returns a snapshot, newest first.
func (s *NotificationStore) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.notifications...)
}

// Unread returns the number of unread notifications.
func (s *NotificationStore) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// FetchAll refetches the full sequence, replacing the cache and
// recomputing the unread count.
func (s *NotificationStore) FetchAll(ctx context.Context) ([]model.Notification, error) {
	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()

	var notifications []model.Notification
	if err := s.client.Get(ctx, "/api/notifications", &notifications); err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.err = err
		s.mu.Unlock()
		return nil, err
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	s.mu.Lock()
	s.notifications = notifications
	s.unread = unread
	s.status = StatusSucceeded
	s.err = nil
	result := append([]model.Notification(nil), notifications...)
	s.mu.Unlock()
	return result, nil
}

// MarkAsRead PATCHes a notification and, on success, flips its flag.
// The unread count is decremented only if the record was previously
// unread, so redundant calls cannot double-decrement.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/notifications/%s/read", id)
	if err := s.client.Patch(ctx, path, nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID != id {
			continue
		}
		if !n.IsRead {
			s.notifications[i].IsRead = true
			s.unread--
		}
		break
	}
	return nil
}

// AddNotification merges a push-delivered notification: prepended
// (newest first) and counted as unread. The insert is idempotent by id,
// matching the discipline used for chat messages.
func (s *NotificationStore) AddNotification(n model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.notifications {
		if existing.ID == n.ID {
			return false
		}
	}

	s.notifications = append([]model.Notification{n}, s.notifications...)
	if !n.IsRead {
		s.unread++
	}
	return true
}
