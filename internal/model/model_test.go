package model

import "testing"

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full name", User{Username: "ann", FirstName: "Ann", LastName: "Lee"}, "Ann Lee"},
		{"first only", User{Username: "ann", FirstName: "Ann"}, "Ann"},
		{"username fallback", User{Username: "ann"}, "ann"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserHasRole(t *testing.T) {
	u := User{Roles: []Role{{ID: "r1", Name: RoleManager}}}
	if !u.HasRole(RoleManager) {
		t.Error("expected manager role")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("unexpected admin role")
	}
}

func TestChatMessageIsPending(t *testing.T) {
	if !(ChatMessage{ID: TempIDPrefix + "abc"}).IsPending() {
		t.Error("temp id must be pending")
	}
	if (ChatMessage{ID: "42"}).IsPending() {
		t.Error("server id must not be pending")
	}
}
