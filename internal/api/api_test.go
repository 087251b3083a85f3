package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/reconcile"
	"github.com/tuannvm/mcpscope/internal/registry"
	"github.com/tuannvm/mcpscope/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	userPath := filepath.Join(dir, "mcp.json")
	reg := registry.New([]registry.Client{{
		ID:         "testclient",
		ServersKey: "mcpServers",
		Format:     registry.FormatJSON,
		ScopePaths: map[registry.Scope][]string{
			registry.ScopeUser: {userPath},
		},
	}})
	return NewHandler(reg, registry.ScopeUser), userPath
}

func TestHandleReadAndSave(t *testing.T) {
	h, userPath := newTestHandler(t)

	resp := h.Handle(Request{Operation: OpReadEffective, Client: "testclient"})
	if !resp.OK {
		t.Fatalf("readEffective failed: %s %s", resp.ErrorKind, resp.Message)
	}
	eff := resp.Result.(*reconcile.Effective)
	if len(eff.Servers) != 0 {
		t.Fatalf("expected empty effective config, got %d servers", len(eff.Servers))
	}

	eff.Servers["github"] = reconcile.Entry{
		Name:   "github",
		Server: store.ServerEntry{Command: "npx", Args: []string{"-y", "server-github"}},
	}
	resp = h.Handle(Request{Operation: OpSaveEffective, Client: "testclient", Effective: eff})
	if !resp.OK {
		t.Fatalf("saveEffective failed: %s %s", resp.ErrorKind, resp.Message)
	}
	if _, err := os.Stat(userPath); err != nil {
		t.Fatalf("save did not create the user fragment: %v", err)
	}

	resp = h.Handle(Request{Operation: OpReadEffective, Client: "testclient"})
	if !resp.OK {
		t.Fatal("re-read failed")
	}
	reread := resp.Result.(*reconcile.Effective)
	if reread.Servers["github"].Server.Command != "npx" {
		t.Errorf("saved entry not visible on re-read: %+v", reread.Servers)
	}
	if reread.Servers["github"].Scope != registry.ScopeUser {
		t.Errorf("entry scope = %q, want user", reread.Servers["github"].Scope)
	}
}

func TestHandleBackupOperations(t *testing.T) {
	h, _ := newTestHandler(t)

	// Seed a config and mutate it once so a backup exists.
	eff := &reconcile.Effective{
		Client: "testclient",
		Servers: map[string]reconcile.Entry{
			"a": {Name: "a", Server: store.ServerEntry{Command: "echo"}},
		},
	}
	if resp := h.Handle(Request{Operation: OpSaveEffective, Client: "testclient", Effective: eff}); !resp.OK {
		t.Fatalf("seed save failed: %s", resp.Message)
	}
	eff.Servers["a"] = reconcile.Entry{Name: "a", Scope: registry.ScopeUser, Server: store.ServerEntry{Command: "changed"}}
	if resp := h.Handle(Request{Operation: OpSaveEffective, Client: "testclient", Effective: eff}); !resp.OK {
		t.Fatalf("second save failed: %s", resp.Message)
	}

	resp := h.Handle(Request{Operation: OpListBackups, Client: "testclient"})
	if !resp.OK {
		t.Fatalf("listBackups failed: %s", resp.Message)
	}
	records := resp.Result.([]backup.Record)
	if len(records) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(records))
	}

	resp = h.Handle(Request{Operation: OpRestoreBackup, Client: "testclient"})
	if !resp.OK {
		t.Fatalf("restoreBackup failed: %s %s", resp.ErrorKind, resp.Message)
	}
	result := resp.Result.(RestoreResult)
	if result.BackupPath != records[0].Path {
		t.Errorf("restored from %q, want %q", result.BackupPath, records[0].Path)
	}

	read := h.Handle(Request{Operation: OpReadEffective, Client: "testclient"})
	restored := read.Result.(*reconcile.Effective)
	if restored.Servers["a"].Server.Command != "echo" {
		t.Errorf("restore did not roll the content back: %+v", restored.Servers["a"])
	}

	resp = h.Handle(Request{
		Operation: OpCleanupBackups,
		Client:    "testclient",
		Retention: &Retention{},
	})
	if !resp.OK {
		t.Fatalf("cleanupBackups failed: %s", resp.Message)
	}
	if after := h.Handle(Request{Operation: OpListBackups, Client: "testclient"}); len(after.Result.([]backup.Record)) != 0 {
		t.Error("purge left backups behind")
	}
}

func TestHandleErrorKinds(t *testing.T) {
	h, _ := newTestHandler(t)

	testCases := []struct {
		name     string
		req      Request
		wantKind string
	}{
		{"missing client", Request{Operation: OpReadEffective}, KindBadRequest},
		{"unknown operation", Request{Operation: "frobnicate", Client: "testclient"}, KindBadRequest},
		{"save without payload", Request{Operation: OpSaveEffective, Client: "testclient"}, KindBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.Handle(tc.req)
			if resp.OK {
				t.Fatal("expected failure response")
			}
			if resp.ErrorKind != tc.wantKind {
				t.Errorf("errorKind = %q, want %q", resp.ErrorKind, tc.wantKind)
			}
		})
	}

	// A scope the client does not support maps to ScopeConflictError.
	eff := &reconcile.Effective{
		Client: "testclient",
		Servers: map[string]reconcile.Entry{
			"a": {Name: "a", Scope: registry.ScopeProject, Server: store.ServerEntry{Command: "echo"}},
		},
	}
	resp := h.Handle(Request{Operation: OpSaveEffective, Client: "testclient", Effective: eff})
	if resp.OK || resp.ErrorKind != KindScopeConflict {
		t.Errorf("errorKind = %q, want %q", resp.ErrorKind, KindScopeConflict)
	}

	// An invalid entry maps to ValidationError.
	eff = &reconcile.Effective{
		Client: "testclient",
		Servers: map[string]reconcile.Entry{
			"a": {Name: "a", Server: store.ServerEntry{}},
		},
	}
	resp = h.Handle(Request{Operation: OpSaveEffective, Client: "testclient", Effective: eff})
	if resp.OK || resp.ErrorKind != KindValidation {
		t.Errorf("errorKind = %q, want %q", resp.ErrorKind, KindValidation)
	}
}
