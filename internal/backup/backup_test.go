package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	return path
}

// managerAt returns a Manager whose clock is controlled by the test.
func managerAt(at time.Time) (*Manager, *time.Time) {
	current := at
	m := &Manager{now: func() time.Time { return current }}
	return m, &current
}

func TestCreateAndList(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "mcp.json", `{"mcpServers":{}}`)

	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	m, clock := managerAt(base)

	rec1, err := m.Create(src)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec1.Source != src {
		t.Errorf("record Source = %q, want %q", rec1.Source, src)
	}
	if filepath.Dir(rec1.Path) != Dir(src) {
		t.Errorf("backup created outside the backup directory: %q", rec1.Path)
	}

	*clock = base.Add(1 * time.Minute)
	if _, err := m.Create(src); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	records, err := m.List(src)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List returned %d records, want 2", len(records))
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Errorf("List not ordered most recent first: %v then %v", records[0].CreatedAt, records[1].CreatedAt)
	}

	content, err := os.ReadFile(records[1].Path)
	if err != nil {
		t.Fatalf("Failed to read backup content: %v", err)
	}
	if string(content) != `{"mcpServers":{}}` {
		t.Errorf("backup content = %q", content)
	}
}

func TestCreateMissingSource(t *testing.T) {
	m := NewManager()
	_, err := m.Create(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	var backupErr *Error
	if !errors.As(err, &backupErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
}

func TestListNoBackupDir(t *testing.T) {
	m := NewManager()
	records, err := m.List(filepath.Join(t.TempDir(), "mcp.json"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "mcp.json", `original`)

	m := NewManager()
	rec, err := m.Create(src)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := os.WriteFile(src, []byte(`clobbered`), 0644); err != nil {
		t.Fatalf("Failed to overwrite source: %v", err)
	}

	if err := m.Restore(rec.Path, src); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	content, _ := os.ReadFile(src)
	if string(content) != `original` {
		t.Errorf("restored content = %q, want original", content)
	}
}

func TestRestoreUnreadableBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "mcp.json")

	m := NewManager()
	if err := m.Restore(filepath.Join(dir, "no-such.bak"), target); err == nil {
		t.Fatal("expected error for missing backup")
	}

	empty := filepath.Join(dir, "empty.bak")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("Failed to write empty backup: %v", err)
	}
	if err := m.Restore(empty, target); err == nil {
		t.Fatal("expected error for empty backup")
	}
}

func TestCleanupRetention(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "mcp.json", `{}`)

	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	m, clock := managerAt(now)

	// 10 backups older than 30 days, 50 within the window.
	for i := 0; i < 10; i++ {
		*clock = now.AddDate(0, 0, -40).Add(time.Duration(i) * time.Minute)
		if _, err := m.Create(src); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	for i := 0; i < 50; i++ {
		*clock = now.AddDate(0, 0, -10).Add(time.Duration(i) * time.Minute)
		if _, err := m.Create(src); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	*clock = now

	removed, err := m.Cleanup(src, 30, 20)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if len(removed) != 40 {
		t.Errorf("Cleanup removed %d backups, want 40", len(removed))
	}

	remaining, err := m.List(src)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 20 {
		t.Fatalf("%d backups remain, want 20", len(remaining))
	}

	// None of the removed backups may be newer than any remaining one.
	oldestRemaining := remaining[len(remaining)-1].CreatedAt
	for _, rec := range removed {
		if rec.CreatedAt.After(oldestRemaining) {
			t.Errorf("removed backup %v is newer than remaining %v", rec.CreatedAt, oldestRemaining)
		}
	}
}

func TestCleanupPurge(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "mcp.json", `{}`)

	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	m, clock := managerAt(now)
	for i := 0; i < 5; i++ {
		*clock = now.Add(time.Duration(i) * time.Second)
		if _, err := m.Create(src); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	removed, err := m.Cleanup(src, 0, 0)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if len(removed) != 5 {
		t.Errorf("purge removed %d, want 5", len(removed))
	}
	remaining, _ := m.List(src)
	if len(remaining) != 0 {
		t.Errorf("%d backups remain after purge, want 0", len(remaining))
	}
}

func TestCleanupIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	srcA := writeSource(t, dir, "a.json", `{}`)
	srcB := writeSource(t, dir, "b.json", `{}`)

	m := NewManager()
	if _, err := m.Create(srcA); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Create(srcB); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := m.Cleanup(srcA, 0, 0); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	remainingB, _ := m.List(srcB)
	if len(remainingB) != 1 {
		t.Errorf("cleanup of a.json touched b.json backups: %d remain, want 1", len(remainingB))
	}
}
