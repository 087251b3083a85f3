package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tuannvm/mcpscope/internal/registry"
)

// Limits enforced on server entries before a write.
const (
	maxNameLen        = 100
	maxArgs           = 100
	maxEnvKeys        = 50
	maxDescriptionLen = 500
)

// ServerEntry is one MCP server registration. Fields the application does not
// model are captured in Extra and written back verbatim, so client-specific
// extensions survive a read-modify-write round trip.
type ServerEntry struct {
	Command     string
	Args        []string
	Env         map[string]string
	Enabled     *bool
	Description string
	AutoApprove []string
	Extra       map[string]json.RawMessage
}

// Disabled reports whether the entry is explicitly switched off.
func (e ServerEntry) Disabled() bool {
	return e.Enabled != nil && !*e.Enabled
}

func (e *ServerEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = ServerEntry{}
	for key, val := range raw {
		var err error
		switch key {
		case "command":
			err = json.Unmarshal(val, &e.Command)
		case "args":
			err = json.Unmarshal(val, &e.Args)
		case "env":
			err = json.Unmarshal(val, &e.Env)
		case "enabled":
			err = json.Unmarshal(val, &e.Enabled)
		case "description":
			err = json.Unmarshal(val, &e.Description)
		case "autoApprove":
			err = json.Unmarshal(val, &e.AutoApprove)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = val
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

func (e ServerEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Extra)+6)
	for k, v := range e.Extra {
		out[k] = v
	}
	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}
	if err := set("command", e.Command); err != nil {
		return nil, err
	}
	if len(e.Args) > 0 {
		if err := set("args", e.Args); err != nil {
			return nil, err
		}
	}
	if len(e.Env) > 0 {
		if err := set("env", e.Env); err != nil {
			return nil, err
		}
	}
	if e.Enabled != nil {
		if err := set("enabled", *e.Enabled); err != nil {
			return nil, err
		}
	}
	if e.Description != "" {
		if err := set("description", e.Description); err != nil {
			return nil, err
		}
	}
	if len(e.AutoApprove) > 0 {
		if err := set("autoApprove", e.AutoApprove); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// ValidationError reports a server entry that violates the document limits.
type ValidationError struct {
	Server string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid server %q: %s %s", e.Server, e.Field, e.Reason)
}

// ValidateEntry checks one named entry against the document limits.
func ValidateEntry(name string, e ServerEntry) error {
	if len(name) == 0 || len(name) > maxNameLen {
		return &ValidationError{Server: name, Field: "name", Reason: fmt.Sprintf("must be 1-%d characters", maxNameLen)}
	}
	if e.Command == "" {
		return &ValidationError{Server: name, Field: "command", Reason: "must not be empty"}
	}
	if len(e.Args) > maxArgs {
		return &ValidationError{Server: name, Field: "args", Reason: fmt.Sprintf("more than %d entries", maxArgs)}
	}
	if len(e.Env) > maxEnvKeys {
		return &ValidationError{Server: name, Field: "env", Reason: fmt.Sprintf("more than %d keys", maxEnvKeys)}
	}
	if len(e.Description) > maxDescriptionLen {
		return &ValidationError{Server: name, Field: "description", Reason: fmt.Sprintf("longer than %d characters", maxDescriptionLen)}
	}
	return nil
}

// Document is the parsed representation of one physical configuration file.
// It is created on read and discarded after write; nothing is cached between
// operations beyond the metadata needed for backup naming.
type Document struct {
	Path       string
	ServersKey string
	Format     registry.Format
	Servers    map[string]ServerEntry
	// Extra holds unrecognized top-level fields, preserved verbatim on write.
	Extra   map[string]json.RawMessage
	ModTime time.Time
	Valid   bool
}

// NewDocument returns an empty document bound to a path, used when a scope
// file does not exist yet.
func NewDocument(path, serversKey string, format registry.Format) *Document {
	return &Document{
		Path:       path,
		ServersKey: serversKey,
		Format:     format,
		Servers:    make(map[string]ServerEntry),
		Extra:      make(map[string]json.RawMessage),
	}
}

// Clone returns a deep copy of the document's server map and extra fields so
// edits to the copy never leak into the original.
func (d *Document) Clone() *Document {
	out := NewDocument(d.Path, d.ServersKey, d.Format)
	out.ModTime = d.ModTime
	out.Valid = d.Valid
	for name, entry := range d.Servers {
		out.Servers[name] = cloneEntry(entry)
	}
	for k, v := range d.Extra {
		out.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func cloneEntry(e ServerEntry) ServerEntry {
	c := ServerEntry{Command: e.Command, Description: e.Description}
	if e.Args != nil {
		c.Args = append([]string(nil), e.Args...)
	}
	if e.Env != nil {
		c.Env = make(map[string]string, len(e.Env))
		for k, v := range e.Env {
			c.Env[k] = v
		}
	}
	if e.Enabled != nil {
		v := *e.Enabled
		c.Enabled = &v
	}
	if e.AutoApprove != nil {
		c.AutoApprove = append([]string(nil), e.AutoApprove...)
	}
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}
