package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/model"
)

func newTestDirectoryStore(t *testing.T, handler http.Handler) *DirectoryStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, 0, nil)
	return NewDirectoryStore(client, nil)
}

func TestFetchUsersPaginated(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(model.Page[model.User]{
			Content:       []model.User{{ID: "u3"}, {ID: "u4"}},
			TotalElements: 5,
			TotalPages:    3,
			Size:          2,
			Number:        1,
		})
	}))

	page, err := s.FetchUsers(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Len(t, page.Content, 2)
	assert.Len(t, s.Users(), 2)
}

func TestFetchProjectsReplacesCache(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Project{{ID: "p1", Name: "Apollo"}})
	}))

	list, err := s.FetchProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Apollo", list[0].Name)
	assert.Equal(t, list, s.Projects())
}

func TestCreateProjectAppends(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.ProjectRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(model.Project{ID: "p2", Name: req.Name})
	}))

	created, err := s.CreateProject(context.Background(), model.ProjectRequest{Name: "Hermes"})
	require.NoError(t, err)
	assert.Equal(t, "p2", created.ID)
	assert.Len(t, s.Projects(), 1)
}

func TestFetchTeamsReplacesCache(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/teams", r.URL.Path)
		json.NewEncoder(w).Encode([]model.Team{
			{ID: "team1", Name: "Platform", Members: []model.User{{ID: "u1"}}},
		})
	}))

	list, err := s.FetchTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Platform", list[0].Name)
	assert.Equal(t, list, s.Teams())
}

func TestCreateTeamAppends(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.TeamRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(model.Team{ID: "team2", Name: req.Name})
	}))

	created, err := s.CreateTeam(context.Background(), model.TeamRequest{Name: "Design"})
	require.NoError(t, err)
	assert.Equal(t, "team2", created.ID)

	teams := s.Teams()
	require.Len(t, teams, 1)
	assert.Equal(t, "Design", teams[0].Name)
}

func TestUpdateProjectReplacesInPlace(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]model.Project{{ID: "p1", Name: "Old"}, {ID: "p2"}})
		case http.MethodPut:
			assert.Equal(t, "/api/projects/p1", r.URL.Path)
			var req model.ProjectRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(model.Project{ID: "p1", Name: req.Name})
		}
	}))

	_, err := s.FetchProjects(context.Background())
	require.NoError(t, err)

	updated, err := s.UpdateProject(context.Background(), "p1", model.ProjectRequest{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	list := s.Projects()
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].Name, "updated record must keep its position")
}

func TestAddProjectMemberRefreshesRecord(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]model.Project{{ID: "p1"}})
		case http.MethodPost:
			assert.Equal(t, "/api/projects/p1/members/u7", r.URL.Path)
			json.NewEncoder(w).Encode(model.Project{
				ID: "p1", Members: []model.User{{ID: "u7"}},
			})
		}
	}))

	_, err := s.FetchProjects(context.Background())
	require.NoError(t, err)

	updated, err := s.AddProjectMember(context.Background(), "p1", "u7")
	require.NoError(t, err)
	require.Len(t, updated.Members, 1)

	list := s.Projects()
	require.Len(t, list, 1)
	assert.Len(t, list[0].Members, 1, "cache must carry the server's refreshed record")
}

func TestRemoveProjectMember(t *testing.T) {
	var deleted string
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, s.RemoveProjectMember(context.Background(), "p1", "u7"))
	assert.Equal(t, "/api/projects/p1/members/u7", deleted)
}

func TestDeleteProjectRemovesFromCache(t *testing.T) {
	s := newTestDirectoryStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]model.Project{{ID: "p1"}, {ID: "p2"}})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	_, err := s.FetchProjects(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(context.Background(), "p1"))
	list := s.Projects()
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)
}
