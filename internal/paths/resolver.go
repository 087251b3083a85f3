package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tuannvm/mcpscope/internal/registry"
)

// ResolutionError indicates that a candidate path could not be turned into an
// absolute location, typically because the home directory is unknown.
type ResolutionError struct {
	Client string
	Path   string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve path %q for client %s: %v", e.Path, e.Client, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolution is the resolved set of candidate locations for one client.
type Resolution struct {
	// Primary is the first candidate in the client's preference order for the
	// requested scope.
	Primary string
	// Alternatives are the remaining candidates for that scope, tried in order
	// when Primary is missing.
	Alternatives []string
	// ScopePaths maps every scope the client supports to its primary path.
	ScopePaths map[registry.Scope]string
}

// Resolver turns registry path templates into absolute filesystem paths. It
// performs no I/O; results are a pure function of the registry plus the
// process environment (home directory, working directory).
type Resolver struct {
	reg  *registry.Registry
	home func() (string, error)
	wd   func() (string, error)
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg, home: os.UserHomeDir, wd: os.Getwd}
}

// Resolve returns the candidate locations for the client's configuration. If
// scope is empty, the client's default write scope is used for the
// primary/alternative set; ScopePaths always covers every supported scope.
func (r *Resolver) Resolve(clientID string, scope registry.Scope) (*Resolution, error) {
	client, err := r.reg.Lookup(clientID)
	if err != nil {
		return nil, err
	}
	if scope == "" {
		scope = client.DefaultScope()
	}
	if !client.Supports(scope) {
		return nil, &ResolutionError{
			Client: clientID,
			Path:   string(scope),
			Err:    fmt.Errorf("client %s has no %s scope configuration", clientID, scope),
		}
	}

	res := &Resolution{ScopePaths: make(map[registry.Scope]string)}
	for _, s := range registry.Scopes() {
		templates := client.ScopePaths[s]
		if len(templates) == 0 {
			continue
		}
		primary, err := r.resolveOne(clientID, templates[0])
		if err != nil {
			return nil, err
		}
		res.ScopePaths[s] = primary
		if s != scope {
			continue
		}
		res.Primary = primary
		for _, tmpl := range templates[1:] {
			alt, err := r.resolveOne(clientID, tmpl)
			if err != nil {
				return nil, err
			}
			res.Alternatives = append(res.Alternatives, alt)
		}
	}
	return res, nil
}

// resolveOne expands a single template to an absolute path.
func (r *Resolver) resolveOne(clientID, template string) (string, error) {
	path := template
	if strings.HasPrefix(path, "~") {
		home, err := r.home()
		if err != nil {
			return "", &ResolutionError{Client: clientID, Path: template, Err: fmt.Errorf("failed to get user home directory: %w", err)}
		}
		path = filepath.Join(home, path[1:])
	}
	if !filepath.IsAbs(path) {
		wd, err := r.wd()
		if err != nil {
			return "", &ResolutionError{Client: clientID, Path: template, Err: fmt.Errorf("failed to get working directory: %w", err)}
		}
		path = filepath.Join(wd, path)
	}
	return filepath.Clean(path), nil
}

// ExpandPath expands tilde (~) in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil // No tilde prefix, return as is
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
