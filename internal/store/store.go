package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tailscale/hujson"

	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/registry"
)

// NotFoundError indicates no configuration file exists at the path.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("config file not found at %q", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ParseError indicates the file exists but its content is not valid
// structured data. The caller decides whether to recover from a backup.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config file %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError indicates an I/O failure while writing; the original file is
// untouched when one is returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write config file %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FileStats is a thin metadata view of a configuration file.
type FileStats struct {
	Size    int64
	ModTime time.Time
}

// Store reads and writes configuration documents. Writes are atomic: content
// goes to a temporary file in the target directory which is then renamed over
// the original, so an external observer sees either the old content or the
// complete new content, never a partial write.
type Store struct {
	backups *backup.Manager
}

// New returns a Store that snapshots files through the given backup manager
// before every mutating write.
func New(backups *backup.Manager) *Store {
	return &Store{backups: backups}
}

// Read parses the file at path into a Document. JSON documents may carry
// comments and trailing commas (VS Code style); they are standardized before
// decoding. An existing but empty file parses as an empty document.
func (s *Store) Read(path, serversKey string, format registry.Format) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, &ParseError{Path: path, Err: err}
	}

	doc := NewDocument(path, serversKey, format)
	if info, err := os.Stat(path); err == nil {
		doc.ModTime = info.ModTime()
	}

	if len(bytes.TrimSpace(data)) == 0 {
		doc.Valid = true
		return doc, nil
	}

	switch format {
	case registry.FormatTOML:
		err = decodeTOML(data, doc)
	default:
		err = decodeJSON(data, doc)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	doc.Valid = true
	return doc, nil
}

func decodeJSON(data []byte, doc *Document) error {
	std, err := hujson.Standardize(data)
	if err != nil {
		return err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(std, &top); err != nil {
		return err
	}
	for key, val := range top {
		if key == doc.ServersKey {
			if err := json.Unmarshal(val, &doc.Servers); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			continue
		}
		doc.Extra[key] = val
	}
	return nil
}

// decodeTOML normalizes TOML documents into the same representation as JSON
// ones: unrecognized top-level values are re-encoded as raw JSON so the rest
// of the system never branches on format.
func decodeTOML(data []byte, doc *Document) error {
	var top map[string]any
	if err := toml.Unmarshal(data, &top); err != nil {
		return err
	}
	for key, val := range top {
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if key == doc.ServersKey {
			if err := json.Unmarshal(raw, &doc.Servers); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			continue
		}
		doc.Extra[key] = raw
	}
	return nil
}

// Write serializes the document back to its path. A pre-existing file is
// backed up first; a failed backup aborts the write. The rename at the end is
// the only step that makes the new content visible.
func (s *Store) Write(doc *Document) error {
	for name, entry := range doc.Servers {
		if err := ValidateEntry(name, entry); err != nil {
			return err
		}
	}

	if _, err := os.Stat(doc.Path); err == nil {
		if _, err := s.backups.Create(doc.Path); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return &WriteError{Path: doc.Path, Err: err}
	}

	var data []byte
	var err error
	switch doc.Format {
	case registry.FormatTOML:
		data, err = encodeTOML(doc)
	default:
		data, err = encodeJSON(doc)
	}
	if err != nil {
		return &WriteError{Path: doc.Path, Err: err}
	}

	dir := filepath.Dir(doc.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return &WriteError{Path: doc.Path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".mcp-write-*")
	if err != nil {
		return &WriteError{Path: doc.Path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: doc.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: doc.Path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: doc.Path, Err: err}
	}
	if err := os.Rename(tmpName, doc.Path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: doc.Path, Err: err}
	}
	return nil
}

func encodeJSON(doc *Document) ([]byte, error) {
	top := make(map[string]json.RawMessage, len(doc.Extra)+1)
	for k, v := range doc.Extra {
		top[k] = v
	}
	servers, err := json.Marshal(doc.Servers)
	if err != nil {
		return nil, err
	}
	top[doc.ServersKey] = servers
	out, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func encodeTOML(doc *Document) ([]byte, error) {
	top := make(map[string]any, len(doc.Extra)+1)
	for k, v := range doc.Extra {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		top[k] = val
	}
	raw, err := json.Marshal(doc.Servers)
	if err != nil {
		return nil, err
	}
	var servers map[string]any
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, err
	}
	top[doc.ServersKey] = servers

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(top); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stat returns size and modification time for the file at path.
func (s *Store) Stat(path string) (FileStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileStats{}, &NotFoundError{Path: path, Err: err}
		}
		return FileStats{}, err
	}
	return FileStats{Size: info.Size(), ModTime: info.ModTime()}, nil
}
