package registry

import (
	"testing"
)

func TestScopePrecedence(t *testing.T) {
	testCases := []struct {
		scope Scope
		want  int
	}{
		{ScopeGlobal, 1},
		{ScopeUser, 2},
		{ScopeLocal, 3},
		{ScopeProject, 4},
		{Scope("bogus"), 0},
	}
	for _, tc := range testCases {
		if got := tc.scope.Precedence(); got != tc.want {
			t.Errorf("Precedence(%q) = %d, want %d", tc.scope, got, tc.want)
		}
	}
}

func TestScopesAscending(t *testing.T) {
	scopes := Scopes()
	for i := 1; i < len(scopes); i++ {
		if scopes[i-1].Precedence() >= scopes[i].Precedence() {
			t.Fatalf("Scopes() not in ascending precedence order: %v", scopes)
		}
	}
}

func TestParseScope(t *testing.T) {
	if _, err := ParseScope("project"); err != nil {
		t.Errorf("ParseScope(project) returned error: %v", err)
	}
	if _, err := ParseScope("workspace"); err == nil {
		t.Errorf("ParseScope(workspace) expected error, got nil")
	}
}

func TestLookup(t *testing.T) {
	reg := Default()

	client, err := reg.Lookup("cursor")
	if err != nil {
		t.Fatalf("Lookup(cursor) failed: %v", err)
	}
	if client.ServersKey != "mcpServers" {
		t.Errorf("cursor ServersKey = %q, want mcpServers", client.ServersKey)
	}
	if !client.Supports(ScopeProject) {
		t.Errorf("cursor should support the project scope")
	}

	if _, err := reg.Lookup("nonexistent"); err == nil {
		t.Errorf("Lookup(nonexistent) expected error, got nil")
	}
}

func TestDefaultScope(t *testing.T) {
	withUser := Client{ID: "a", ScopePaths: map[Scope][]string{ScopeUser: {"~/a.json"}, ScopeProject: {".a.json"}}}
	if got := withUser.DefaultScope(); got != ScopeUser {
		t.Errorf("DefaultScope = %q, want user", got)
	}

	projectOnly := Client{ID: "b", ScopePaths: map[Scope][]string{ScopeProject: {".b.json"}}}
	if got := projectOnly.DefaultScope(); got != ScopeProject {
		t.Errorf("DefaultScope = %q, want project", got)
	}
}

func TestClientsSorted(t *testing.T) {
	clients := Default().Clients()
	for i := 1; i < len(clients); i++ {
		if clients[i-1].ID >= clients[i].ID {
			t.Fatalf("Clients() not sorted by ID: %q before %q", clients[i-1].ID, clients[i].ID)
		}
	}
}
