package model

import "time"

// Project groups tasks, chat, and members under a single workspace.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       User      `json:"owner"`
	Members     []User    `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProjectRequest is the payload for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Team is a named group of users independent of any single project.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       User      `json:"owner"`
	Members     []User    `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TeamRequest is the payload for creating or updating a team.
type TeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
