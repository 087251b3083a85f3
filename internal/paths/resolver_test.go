package paths

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tuannvm/mcpscope/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.New([]registry.Client{
		{
			ID:         "testclient",
			ServersKey: "mcpServers",
			Format:     registry.FormatJSON,
			ScopePaths: map[registry.Scope][]string{
				registry.ScopeGlobal:  {"/etc/testclient/mcp.json"},
				registry.ScopeUser:    {"~/.testclient/mcp.json", "~/.testclient/settings.json"},
				registry.ScopeProject: {".testclient/mcp.json"},
			},
		},
	})
}

func TestResolve(t *testing.T) {
	r := NewResolver(testRegistry())
	r.home = func() (string, error) { return "/home/alice", nil }
	r.wd = func() (string, error) { return "/work/repo", nil }

	res, err := r.Resolve("testclient", registry.ScopeUser)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Primary != filepath.Join("/home/alice", ".testclient", "mcp.json") {
		t.Errorf("Primary = %q", res.Primary)
	}
	wantAlts := []string{filepath.Join("/home/alice", ".testclient", "settings.json")}
	if !reflect.DeepEqual(res.Alternatives, wantAlts) {
		t.Errorf("Alternatives = %v, want %v", res.Alternatives, wantAlts)
	}

	wantScopePaths := map[registry.Scope]string{
		registry.ScopeGlobal:  filepath.Join("/etc", "testclient", "mcp.json"),
		registry.ScopeUser:    filepath.Join("/home/alice", ".testclient", "mcp.json"),
		registry.ScopeProject: filepath.Join("/work/repo", ".testclient", "mcp.json"),
	}
	if !reflect.DeepEqual(res.ScopePaths, wantScopePaths) {
		t.Errorf("ScopePaths = %v, want %v", res.ScopePaths, wantScopePaths)
	}
}

func TestResolveDefaultsToUserScope(t *testing.T) {
	r := NewResolver(testRegistry())
	r.home = func() (string, error) { return "/home/alice", nil }
	r.wd = func() (string, error) { return "/work/repo", nil }

	res, err := r.Resolve("testclient", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Primary != filepath.Join("/home/alice", ".testclient", "mcp.json") {
		t.Errorf("Primary = %q, want the user scope path", res.Primary)
	}
}

func TestResolveUnknownHome(t *testing.T) {
	r := NewResolver(testRegistry())
	r.home = func() (string, error) { return "", errors.New("no home") }

	_, err := r.Resolve("testclient", registry.ScopeUser)
	if err == nil {
		t.Fatal("expected error when home directory is unknown")
	}
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %T: %v", err, err)
	}
}

func TestResolveUnsupportedScope(t *testing.T) {
	r := NewResolver(testRegistry())
	r.home = func() (string, error) { return "/home/alice", nil }

	if _, err := r.Resolve("testclient", registry.ScopeLocal); err == nil {
		t.Fatal("expected error for unsupported scope")
	}
}

func TestResolveUnknownClient(t *testing.T) {
	r := NewResolver(testRegistry())
	if _, err := r.Resolve("nope", registry.ScopeUser); err == nil {
		t.Fatal("expected error for unknown client")
	}
}

func TestExpandPath(t *testing.T) {
	got, err := ExpandPath("/absolute/path.json")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != "/absolute/path.json" {
		t.Errorf("ExpandPath changed a non-tilde path: %q", got)
	}
}
