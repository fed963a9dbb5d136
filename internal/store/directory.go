package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/model"
)

// DirectoryStore caches the org-level lists: users, projects, and teams.
// They back the project switcher and the assignee/member pickers.
type DirectoryStore struct {
	client *api.Client
	log    *slog.Logger

	mu       sync.Mutex
	users    []model.User
	projects []model.Project
	teams    []model.Team
	status   Status
	err      error
}

// NewDirectoryStore creates an empty directory store.
func NewDirectoryStore(client *api.Client, log *slog.Logger) *DirectoryStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DirectoryStore{
		client: client,
		log:    log,
	}
}

// Status returns the store's fetch status and last error. The status is
// shared by the users, projects, and teams lists: whichever fetch ran
// last wins. Callers that need to tell the lists apart check the
// returned error of the fetch itself.
func (s *DirectoryStore) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.err
}

// Users returns a snapshot of the cached user list.
func (s *DirectoryStore) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.User(nil), s.users...)
}

// Projects returns a snapshot of the cached project list.
func (s *DirectoryStore) Projects() []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Project(nil), s.projects...)
}

// Teams returns a snapshot of the cached team list.
func (s *DirectoryStore) Teams() []model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Team(nil), s.teams...)
}

// FetchUsers loads the user directory. The endpoint is paginated; the
// store keeps the requested page's content.
func (s *DirectoryStore) FetchUsers(ctx context.Context, page, size int) (*model.Page[model.User], error) {
	var result model.Page[model.User]
	path := fmt.Sprintf("/api/users?page=%d&size=%d", page, size)
	if err := s.client.Get(ctx, path, &result); err != nil {
		s.setFailed(err)
		return nil, err
	}

	s.mu.Lock()
	s.users = result.Content
	s.status = StatusSucceeded
	s.err = nil
	s.mu.Unlock()
	return &result, nil
}

// FetchProjects replaces the cached project list.
func (s *DirectoryStore) FetchProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.client.Get(ctx, "/api/projects", &projects); err != nil {
		s.setFailed(err)
		return nil, err
	}

	s.mu.Lock()
	s.projects = projects
	s.status = StatusSucceeded
	s.err = nil
	result := append([]model.Project(nil), projects...)
	s.mu.Unlock()
	return result, nil
}

// FetchTeams replaces the cached team list.
func (s *DirectoryStore) FetchTeams(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := s.client.Get(ctx, "/api/teams", &teams); err != nil {
		s.setFailed(err)
		return nil, err
	}

	s.mu.Lock()
	s.teams = teams
	s.status = StatusSucceeded
	s.err = nil
	result := append([]model.Team(nil), teams...)
	s.mu.Unlock()
	return result, nil
}

// CreateProject POSTs a new project and appends it to the cache.
func (s *DirectoryStore) CreateProject(ctx context.Context, req model.ProjectRequest) (model.Project, error) {
	var created model.Project
	if err := s.client.Post(ctx, "/api/projects", req, &created); err != nil {
		return model.Project{}, err
	}

	s.mu.Lock()
	s.projects = append(s.projects, created)
	s.mu.Unlock()
	return created, nil
}

// UpdateProject PUTs project fields and replaces the cached record.
func (s *DirectoryStore) UpdateProject(ctx context.Context, id string, req model.ProjectRequest) (model.Project, error) {
	var updated model.Project
	path := fmt.Sprintf("/api/projects/%s", id)
	if err := s.client.Put(ctx, path, req, &updated); err != nil {
		return model.Project{}, err
	}

	s.mu.Lock()
	for i, p := range s.projects {
		if p.ID == id {
			s.projects[i] = updated
			break
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// DeleteProject removes a project on the server and from the cache.
func (s *DirectoryStore) DeleteProject(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/projects/%s", id)
	if err := s.client.Delete(ctx, path); err != nil {
		return err
	}

	s.mu.Lock()
	out := s.projects[:0]
	for _, p := range s.projects {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.projects = out
	s.mu.Unlock()
	return nil
}

// AddProjectMember adds a user to a project and refreshes the cached
// record with the server's copy.
func (s *DirectoryStore) AddProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	var updated model.Project
	path := fmt.Sprintf("/api/projects/%s/members/%s", projectID, userID)
	if err := s.client.Post(ctx, path, nil, &updated); err != nil {
		return model.Project{}, err
	}

	s.mu.Lock()
	for i, p := range s.projects {
		if p.ID == projectID {
			s.projects[i] = updated
			break
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// RemoveProjectMember removes a user from a project.
func (s *DirectoryStore) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	path := fmt.Sprintf("/api/projects/%s/members/%s", projectID, userID)
	return s.client.Delete(ctx, path)
}

// CreateTeam POSTs a new team and appends it to the cache.
func (s *DirectoryStore) CreateTeam(ctx context.Context, req model.TeamRequest) (model.Team, error) {
	var created model.Team
	if err := s.client.Post(ctx, "/api/teams", req, &created); err != nil {
		return model.Team{}, err
	}

	s.mu.Lock()
	s.teams = append(s.teams, created)
	s.mu.Unlock()
	return created, nil
}

func (s *DirectoryStore) setFailed(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.err = err
	s.mu.Unlock()
}
