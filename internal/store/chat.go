package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/model"
)

// ChatStore caches chat messages per project and mediates between REST
// history fetches, push-delivered messages, and optimistic local sends.
//
// History is cache-first: chat is append-only and the realtime channel
// keeps a populated scope current, so a second fetch would buy nothing.
// There is deliberately no revalidation. Concurrent first fetches for
// the same scope are not deduplicated; callers avoid firing duplicates.
type ChatStore struct {
	client *api.Client
	log    *slog.Logger

	mu        sync.Mutex
	byProject map[string][]model.ChatMessage
	statuses  map[string]Status
	errs      map[string]error
}

// NewChatStore creates an empty chat store.
func NewChatStore(client *api.Client, log *slog.Logger) *ChatStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ChatStore{
		client:    client,
		log:       log,
		byProject: make(map[string][]model.ChatMessage),
		statuses:  make(map[string]Status),
		errs:      make(map[string]error),
	}
}

// Status returns the fetch status and last error for one project's
// history. Scopes are independent: a failed fetch for one project never
// disturbs another's status.
func (s *ChatStore) Status(projectID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[projectID], s.errs[projectID]
}

// Messages returns a snapshot of the cached messages for a project in
// insertion order. Insertion order is not necessarily timestamp order;
// no re-sort is performed.
func (s *ChatStore) Messages(projectID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.byProject[projectID]...)
}

// FetchMessages loads the message history for a project. A populated
// scope short-circuits with zero network calls; otherwise a single GET
// populates the cache. Errors leave any previously cached data intact.
func (s *ChatStore) FetchMessages(ctx context.Context, projectID string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	if cached, ok := s.byProject[projectID]; ok {
		msgs := append([]model.ChatMessage(nil), cached...)
		s.mu.Unlock()
		return msgs, nil
	}
	s.statuses[projectID] = StatusLoading
	s.mu.Unlock()

	var msgs []model.ChatMessage
	path := fmt.Sprintf("/api/chat/projects/%s/messages", projectID)
	if err := s.client.Get(ctx, path, &msgs); err != nil {
		s.mu.Lock()
		s.statuses[projectID] = StatusFailed
		s.errs[projectID] = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.byProject[projectID] = msgs
	s.statuses[projectID] = StatusSucceeded
	s.errs[projectID] = nil
	result := append([]model.ChatMessage(nil), msgs...)
	s.mu.Unlock()
	return result, nil
}

// AddMessage appends a message to a project's sequence. The insert is
// idempotent: a message whose id is already present is a no-op. This one
// primitive serves the optimistic local send, the push-delivered echo of
// one's own message, and pushes from other senders.
func (s *ChatStore) AddMessage(projectID string, msg model.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byProject[projectID] {
		if existing.ID == msg.ID {
			return false
		}
	}
	s.byProject[projectID] = append(s.byProject[projectID], msg)
	return true
}

// SendMessage performs an optimistic send: a temporary record is
// inserted immediately, the content is POSTed, and on success the
// temporary record is reconciled in place with the server-assigned copy.
// On failure the temporary record is removed and the error returned so
// the caller can surface it and offer a retry.
func (s *ChatStore) SendMessage(
	ctx context.Context,
	projectID string,
	content string,
	sender model.User,
) (model.ChatMessage, error) {
	temp := model.ChatMessage{
		ID:        model.TempIDPrefix + uuid.NewString(),
		ProjectID: projectID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.AddMessage(projectID, temp)

	var confirmed model.ChatMessage
	path := fmt.Sprintf("/api/chat/projects/%s/messages", projectID)
	err := s.client.Post(ctx, path, model.ChatMessageRequest{Content: content}, &confirmed)
	if err != nil {
		s.remove(projectID, temp.ID)
		return model.ChatMessage{}, err
	}

	s.reconcile(projectID, temp.ID, confirmed)
	return confirmed, nil
}

// reconcile replaces the temporary record with the server copy,
// preserving its position. If a push echo already delivered the
// confirmed id, the temporary record is dropped instead so the id
// appears exactly once.
func (s *ChatStore) reconcile(projectID, tempID string, confirmed model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.byProject[projectID]

	alreadyPresent := false
	for _, m := range msgs {
		if m.ID == confirmed.ID {
			alreadyPresent = true
			break
		}
	}

	out := msgs[:0]
	for _, m := range msgs {
		switch {
		case m.ID != tempID:
			out = append(out, m)
		case alreadyPresent:
			// Drop the temp record; the echo beat the POST response.
		default:
			out = append(out, confirmed)
		}
	}
	s.byProject[projectID] = out
}

// remove deletes a message by id from a project's sequence.
func (s *ChatStore) remove(projectID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.byProject[projectID]
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	s.byProject[projectID] = out
}
