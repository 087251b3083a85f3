package registry

import (
	"fmt"
	"runtime"
	"sort"
)

// Scope identifies a configuration precedence tier. Higher-precedence scopes
// override lower ones when the same server name is defined in both.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeUser    Scope = "user"
	ScopeLocal   Scope = "local"
	ScopeProject Scope = "project"
)

// Precedence returns the numeric precedence of the scope (global=1 lowest,
// project=4 highest). Unknown scopes return 0.
func (s Scope) Precedence() int {
	switch s {
	case ScopeGlobal:
		return 1
	case ScopeUser:
		return 2
	case ScopeLocal:
		return 3
	case ScopeProject:
		return 4
	}
	return 0
}

// Valid reports whether s is one of the four known scopes.
func (s Scope) Valid() bool {
	return s.Precedence() != 0
}

// ParseScope converts a string into a Scope.
func ParseScope(raw string) (Scope, error) {
	s := Scope(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown scope %q (expected global, user, local or project)", raw)
	}
	return s, nil
}

// Scopes returns all scopes in ascending precedence order.
func Scopes() []Scope {
	return []Scope{ScopeGlobal, ScopeUser, ScopeLocal, ScopeProject}
}

// Format is the on-disk encoding of a client's configuration file.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Client describes one supported MCP client: where its configuration files
// live per scope and how they are encoded. Path templates may start with "~"
// for the user's home directory; relative templates are resolved against the
// working directory (project and local scopes).
type Client struct {
	ID          string
	DisplayName string
	// ServersKey is the top-level key holding the server map, e.g. "mcpServers".
	ServersKey string
	Format     Format
	// ScopePaths maps each supported scope to its candidate path templates in
	// preference order. The first template is the primary location.
	ScopePaths map[Scope][]string
}

// Supports reports whether the client defines any path for the given scope.
func (c Client) Supports(scope Scope) bool {
	return len(c.ScopePaths[scope]) > 0
}

// DefaultScope returns the scope new entries are written to when the caller
// does not choose one: user if the client supports it, otherwise the lowest
// supported scope.
func (c Client) DefaultScope() Scope {
	if c.Supports(ScopeUser) {
		return ScopeUser
	}
	for _, s := range Scopes() {
		if c.Supports(s) {
			return s
		}
	}
	return ScopeUser
}

// Registry is an immutable set of client descriptors, built once at process
// start and passed explicitly to the components that need it.
type Registry struct {
	clients []Client
	byID    map[string]Client
}

// New builds a Registry from the given descriptors.
func New(clients []Client) *Registry {
	r := &Registry{byID: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients = append(r.clients, c)
		r.byID[c.ID] = c
	}
	sort.Slice(r.clients, func(i, j int) bool { return r.clients[i].ID < r.clients[j].ID })
	return r
}

// Default returns the registry of built-in clients for the current OS.
func Default() *Registry {
	return New(DefaultClients())
}

// Lookup returns the descriptor for the given client ID.
func (r *Registry) Lookup(id string) (Client, error) {
	c, ok := r.byID[id]
	if !ok {
		return Client{}, fmt.Errorf("unknown client %q", id)
	}
	return c, nil
}

// Clients returns all descriptors sorted by ID.
func (r *Registry) Clients() []Client {
	out := make([]Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// DefaultClients returns the built-in client descriptors. Per-OS differences
// are limited to the user-scope directories of clients that follow platform
// conventions; everything else is the same everywhere.
func DefaultClients() []Client {
	claudeUser := "~/.config/Claude/claude_desktop_config.json"
	vscodeUser := "~/.config/Code/User/mcp.json"
	switch runtime.GOOS {
	case "darwin":
		claudeUser = "~/Library/Application Support/Claude/claude_desktop_config.json"
		vscodeUser = "~/Library/Application Support/Code/User/mcp.json"
	case "windows":
		claudeUser = "~/AppData/Roaming/Claude/claude_desktop_config.json"
		vscodeUser = "~/AppData/Roaming/Code/User/mcp.json"
	}

	return []Client{
		{
			ID:          "claude-desktop",
			DisplayName: "Claude Desktop",
			ServersKey:  "mcpServers",
			Format:      FormatJSON,
			ScopePaths: map[Scope][]string{
				ScopeUser: {claudeUser, "~/.claude/claude_desktop_config.json"},
			},
		},
		{
			ID:          "cursor",
			DisplayName: "Cursor",
			ServersKey:  "mcpServers",
			Format:      FormatJSON,
			ScopePaths: map[Scope][]string{
				ScopeGlobal:  {"/etc/cursor/mcp.json"},
				ScopeUser:    {"~/.cursor/mcp.json", "~/.cursor/settings.json"},
				ScopeProject: {".cursor/mcp.json"},
			},
		},
		{
			ID:          "vscode",
			DisplayName: "Visual Studio Code",
			ServersKey:  "servers",
			Format:      FormatJSON,
			ScopePaths: map[Scope][]string{
				ScopeUser:    {vscodeUser},
				ScopeProject: {".vscode/mcp.json"},
			},
		},
		{
			ID:          "windsurf",
			DisplayName: "Windsurf",
			ServersKey:  "mcpServers",
			Format:      FormatJSON,
			ScopePaths: map[Scope][]string{
				ScopeUser: {"~/.codeium/windsurf/mcp_config.json"},
			},
		},
		{
			ID:          "codex-cli",
			DisplayName: "Codex CLI",
			ServersKey:  "mcp_servers",
			Format:      FormatTOML,
			ScopePaths: map[Scope][]string{
				ScopeUser:    {"~/.codex/config.toml"},
				ScopeLocal:   {".codex/config.local.toml"},
				ScopeProject: {".codex/config.toml"},
			},
		},
	}
}
