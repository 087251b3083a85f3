package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DirName is the backup directory created as a sibling of each
	// configuration file.
	DirName = ".mcp-backups"

	// DefaultMaxAgeDays and DefaultMaxCount are the retention defaults applied
	// when the caller does not override them.
	DefaultMaxAgeDays = 30
	DefaultMaxCount   = 50

	stampLayout = "20060102-150405.000000000"
	suffix      = ".bak"
)

// Error reports a failed backup operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backup %s failed for %q: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Record is one retained snapshot of a configuration file.
type Record struct {
	// Path is the backup file location inside the backup directory.
	Path string
	// Source is the configuration file the snapshot was taken from.
	Source string
	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time
}

// Manager creates, lists, restores and prunes backups. All of its operations
// are confined to the .mcp-backups directory next to each target file plus the
// target file itself on restore.
type Manager struct {
	now func() time.Time
}

// NewManager returns a Manager using the system clock.
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Dir returns the backup directory for a configuration file path.
func Dir(path string) string {
	return filepath.Join(filepath.Dir(path), DirName)
}

// Create copies the file at path into the backup directory under a
// timestamp-qualified name. The source must exist: callers creating a file for
// the first time skip the backup instead of calling Create.
func (m *Manager) Create(path string) (*Record, error) {
	srcInfo, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Op: "create", Path: path, Err: err}
	}
	if srcInfo.IsDir() {
		return nil, &Error{Op: "create", Path: path, Err: fmt.Errorf("source is a directory, not a file")}
	}

	dir := Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &Error{Op: "create", Path: path, Err: err}
	}

	createdAt := m.now().UTC()
	name := fmt.Sprintf("%s.%s%s", filepath.Base(path), createdAt.Format(stampLayout), suffix)
	backupPath := filepath.Join(dir, name)

	if err := copyFile(path, backupPath); err != nil {
		return nil, &Error{Op: "create", Path: path, Err: err}
	}
	return &Record{Path: backupPath, Source: path, CreatedAt: createdAt}, nil
}

// List returns the retained backups for the file at path, most recent first.
// A missing backup directory means no backups, not an error.
func (m *Manager) List(path string) ([]Record, error) {
	dir := Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Op: "list", Path: path, Err: err}
	}

	base := filepath.Base(path)
	var records []Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, base+"."), suffix)
		createdAt, err := time.Parse(stampLayout, stamp)
		if err != nil {
			// Foreign or renamed file; fall back to its modification time so
			// it still participates in retention ordering.
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			createdAt = info.ModTime().UTC()
		}
		records = append(records, Record{
			Path:      filepath.Join(dir, name),
			Source:    path,
			CreatedAt: createdAt,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Restore overwrites targetPath with the content of the backup at backupPath.
// The target is replaced atomically via a temporary file and rename so a
// failed restore never leaves a truncated config behind.
func (m *Manager) Restore(backupPath, targetPath string) error {
	info, err := os.Stat(backupPath)
	if err != nil {
		return &Error{Op: "restore", Path: backupPath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &Error{Op: "restore", Path: backupPath, Err: fmt.Errorf("not a regular file")}
	}
	if info.Size() == 0 {
		return &Error{Op: "restore", Path: backupPath, Err: fmt.Errorf("backup is empty")}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return &Error{Op: "restore", Path: backupPath, Err: err}
	}

	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".mcp-restore-*")
	if err != nil {
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	if err := os.Rename(tmpName, targetPath); err != nil {
		os.Remove(tmpName)
		return &Error{Op: "restore", Path: targetPath, Err: err}
	}
	return nil
}

// Cleanup removes backups for the file at path that are older than maxAgeDays
// and, among the remainder, keeps only the most recent maxCount. The two
// thresholds apply independently; a threshold of 0 disables that check, and
// (0, 0) removes every backup for the path. Returns the removed records.
func (m *Manager) Cleanup(path string, maxAgeDays, maxCount int) ([]Record, error) {
	records, err := m.List(path)
	if err != nil {
		return nil, err
	}

	var remove []Record
	if maxAgeDays == 0 && maxCount == 0 {
		remove = records
	} else {
		var kept []Record
		cutoff := m.now().UTC().AddDate(0, 0, -maxAgeDays)
		for _, rec := range records {
			if maxAgeDays > 0 && rec.CreatedAt.Before(cutoff) {
				remove = append(remove, rec)
				continue
			}
			kept = append(kept, rec)
		}
		if maxCount > 0 && len(kept) > maxCount {
			// kept is already newest first.
			remove = append(remove, kept[maxCount:]...)
		}
	}

	for _, rec := range remove {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return nil, &Error{Op: "cleanup", Path: rec.Path, Err: err}
		}
	}
	return remove, nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) (err error) {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := source.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := destination.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(destination, source)
	return err
}
