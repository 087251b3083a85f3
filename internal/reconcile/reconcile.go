package reconcile

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gofrs/flock"

	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/paths"
	"github.com/tuannvm/mcpscope/internal/registry"
	"github.com/tuannvm/mcpscope/internal/store"
)

// Entry is a server registration tagged with the scope it was sourced from,
// which is also where edits to it are written back.
type Entry struct {
	Name   string
	Scope  registry.Scope
	Server store.ServerEntry
}

// Warning is a non-fatal problem encountered while loading one scope. The
// load continues with the other scopes; the caller decides how to surface it.
type Warning struct {
	Scope   registry.Scope
	Path    string
	Message string
}

// Effective is the merged, scope-resolved view of all servers for one client.
type Effective struct {
	Client  string
	Servers map[string]Entry
	// Shadowed holds entries defined in a lower scope but overridden by a
	// higher one, in ascending precedence order, retained for disclosure.
	Shadowed map[string][]Entry
	Warnings []Warning
}

// ConflictError indicates an edit that cannot be unambiguously attributed to
// a scope, e.g. a target scope the client does not support.
type ConflictError struct {
	Client string
	Server string
	Scope  registry.Scope
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot attribute server %q to scope %q for client %s: %s", e.Server, e.Scope, e.Client, e.Reason)
}

// PartialWriteError reports a save that committed some scope fragments before
// a later one failed. Committed fragments are not rolled back; there is no
// cross-file transaction support.
type PartialWriteError struct {
	Committed []registry.Scope
	Failed    registry.Scope
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("save committed scopes %v but failed on scope %s: %v", e.Committed, e.Failed, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Reconciler merges per-scope configuration fragments into an effective view
// and routes edits back to their owning scopes. Writes on the same physical
// file are serialized with a per-path file lock, since the backup-then-write
// sequence is not atomic across two concurrent writers.
type Reconciler struct {
	reg      *registry.Registry
	resolver *paths.Resolver
	store    *store.Store
	backups  *backup.Manager
	// writeScope is where newly created entries land when the edit does not
	// name a scope.
	writeScope registry.Scope
}

// New creates a Reconciler. writeScope defaults to user when empty.
func New(reg *registry.Registry, resolver *paths.Resolver, st *store.Store, backups *backup.Manager, writeScope registry.Scope) *Reconciler {
	if writeScope == "" {
		writeScope = registry.ScopeUser
	}
	return &Reconciler{reg: reg, resolver: resolver, store: st, backups: backups, writeScope: writeScope}
}

// LoadEffective reads every scope fragment for the client and merges them in
// ascending precedence order. A missing file is an empty fragment; a corrupted
// file degrades to the recovery chain (alternatives, then the most recent
// readable backup, then empty with a warning). The load itself only fails when
// the client is unknown, since other scopes may still be actionable.
func (r *Reconciler) LoadEffective(clientID string) (*Effective, error) {
	client, err := r.reg.Lookup(clientID)
	if err != nil {
		return nil, err
	}

	eff := &Effective{
		Client:   clientID,
		Servers:  make(map[string]Entry),
		Shadowed: make(map[string][]Entry),
	}
	for _, scope := range registry.Scopes() {
		if !client.Supports(scope) {
			continue
		}
		doc, warns := r.loadFragment(client, scope)
		eff.Warnings = append(eff.Warnings, warns...)
		for name, server := range doc.Servers {
			if prev, ok := eff.Servers[name]; ok {
				eff.Shadowed[name] = append(eff.Shadowed[name], prev)
			}
			eff.Servers[name] = Entry{Name: name, Scope: scope, Server: server}
		}
	}
	return eff, nil
}

// loadFragment reads one scope with the full recovery chain. It always
// returns a usable document bound to the scope's primary path.
func (r *Reconciler) loadFragment(client registry.Client, scope registry.Scope) (*store.Document, []Warning) {
	res, err := r.resolver.Resolve(client.ID, scope)
	if err != nil {
		return store.NewDocument("", client.ServersKey, client.Format), []Warning{{
			Scope:   scope,
			Message: fmt.Sprintf("could not resolve %s scope path: %v", scope, err),
		}}
	}

	var warns []Warning
	corrupted := false
	candidates := append([]string{res.Primary}, res.Alternatives...)
	for _, candidate := range candidates {
		doc, err := r.store.Read(candidate, client.ServersKey, client.Format)
		if err == nil {
			doc.Path = res.Primary
			return doc, warns
		}
		var notFound *store.NotFoundError
		if errors.As(err, &notFound) {
			continue
		}
		corrupted = true
		warns = append(warns, Warning{Scope: scope, Path: candidate, Message: err.Error()})
	}

	if corrupted {
		// Try the most recent backup that still parses. The live file is left
		// alone; restoring it is an explicit user action.
		records, _ := r.backups.List(res.Primary)
		for _, rec := range records {
			doc, err := r.store.Read(rec.Path, client.ServersKey, client.Format)
			if err != nil {
				continue
			}
			doc.Path = res.Primary
			warns = append(warns, Warning{
				Scope:   scope,
				Path:    rec.Path,
				Message: fmt.Sprintf("%s scope loaded from backup %s", scope, rec.Path),
			})
			return doc, warns
		}
		warns = append(warns, Warning{
			Scope:   scope,
			Path:    res.Primary,
			Message: fmt.Sprintf("%s scope is unreadable and has no usable backup; treating it as empty", scope),
		})
	}
	return store.NewDocument(res.Primary, client.ServersKey, client.Format), warns
}

// SaveEffective splits the edited effective view back into per-scope
// fragments and writes each affected fragment. Entries keep their recorded
// source scope; new entries without a scope go to the default write scope. A
// cross-scope move is two coordinated writes, removal first; if a later write
// fails after an earlier one committed, a PartialWriteError reports exactly
// which scopes went through.
func (r *Reconciler) SaveEffective(clientID string, edited *Effective) error {
	client, err := r.reg.Lookup(clientID)
	if err != nil {
		return err
	}

	frags, err := r.loadFragmentsStrict(client)
	if err != nil {
		return err
	}

	// Current winners per name, for deletion and move detection.
	current := make(map[string]Entry)
	for _, scope := range registry.Scopes() {
		doc, ok := frags[scope]
		if !ok {
			continue
		}
		for name, server := range doc.Servers {
			current[name] = Entry{Name: name, Scope: scope, Server: server}
		}
	}

	docs := make(map[registry.Scope]*store.Document, len(frags))
	for scope, doc := range frags {
		docs[scope] = doc.Clone()
	}
	changed := make(map[registry.Scope]bool)
	removedFrom := make(map[registry.Scope]bool)

	// A name present before but absent from the edit is a deletion from its
	// owning scope; shadowed definitions in lower scopes are left alone.
	for name, cur := range current {
		if _, ok := edited.Servers[name]; !ok {
			delete(docs[cur.Scope].Servers, name)
			changed[cur.Scope] = true
			removedFrom[cur.Scope] = true
		}
	}

	for name, entry := range edited.Servers {
		owner := entry.Scope
		if owner == "" {
			// An edit with no scope keeps its current owner; only genuinely
			// new entries fall through to the default write scope.
			if cur, ok := current[name]; ok {
				owner = cur.Scope
			} else {
				owner = r.writeScope
				if !client.Supports(owner) {
					owner = client.DefaultScope()
				}
			}
		}
		if !owner.Valid() {
			return &ConflictError{Client: clientID, Server: name, Scope: owner, Reason: "unknown scope"}
		}
		if !client.Supports(owner) {
			return &ConflictError{Client: clientID, Server: name, Scope: owner, Reason: "client does not support this scope"}
		}
		if err := store.ValidateEntry(name, entry.Server); err != nil {
			return err
		}

		cur, existed := current[name]
		if existed && cur.Scope != owner {
			delete(docs[cur.Scope].Servers, name)
			changed[cur.Scope] = true
			removedFrom[cur.Scope] = true
		} else if existed && reflect.DeepEqual(cur.Server, entry.Server) {
			continue
		}
		docs[owner].Servers[name] = entry.Server
		changed[owner] = true
	}

	// Removal-only-first ordering keeps a moved name from existing in two
	// scopes at once when the second write of a move fails.
	var order []registry.Scope
	for _, scope := range registry.Scopes() {
		if changed[scope] && removedFrom[scope] {
			order = append(order, scope)
		}
	}
	for _, scope := range registry.Scopes() {
		if changed[scope] && !removedFrom[scope] {
			order = append(order, scope)
		}
	}

	var committed []registry.Scope
	for _, scope := range order {
		if err := r.writeFragment(docs[scope]); err != nil {
			if len(committed) > 0 {
				return &PartialWriteError{Committed: committed, Failed: scope, Err: err}
			}
			return err
		}
		committed = append(committed, scope)
	}
	return nil
}

// loadFragmentsStrict re-reads every supported scope without the recovery
// chain: a missing file is an empty fragment, but a corrupted file fails the
// save outright rather than risking a write built from partial data.
func (r *Reconciler) loadFragmentsStrict(client registry.Client) (map[registry.Scope]*store.Document, error) {
	frags := make(map[registry.Scope]*store.Document)
	for _, scope := range registry.Scopes() {
		if !client.Supports(scope) {
			continue
		}
		res, err := r.resolver.Resolve(client.ID, scope)
		if err != nil {
			return nil, err
		}
		doc, err := r.store.Read(res.Primary, client.ServersKey, client.Format)
		if err != nil {
			var notFound *store.NotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			doc = store.NewDocument(res.Primary, client.ServersKey, client.Format)
		}
		frags[scope] = doc
	}
	return frags, nil
}

// writeFragment serializes the backup-then-write sequence for one physical
// file behind a sibling lock file.
func (r *Reconciler) writeFragment(doc *store.Document) error {
	lock := flock.New(doc.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return &store.WriteError{Path: doc.Path, Err: fmt.Errorf("failed to acquire write lock: %w", err)}
	}
	defer lock.Unlock()
	return r.store.Write(doc)
}

// ListBackups returns the retained backups for the client's file at the given
// scope, most recent first. An empty scope means the client's default scope.
func (r *Reconciler) ListBackups(clientID string, scope registry.Scope) ([]backup.Record, error) {
	res, err := r.resolver.Resolve(clientID, scope)
	if err != nil {
		return nil, err
	}
	return r.backups.List(res.Primary)
}

// Restore overwrites the client's file at the given scope with a backup. An
// empty backupPath selects the most recent backup that still parses.
func (r *Reconciler) Restore(clientID string, scope registry.Scope, backupPath string) (string, error) {
	client, err := r.reg.Lookup(clientID)
	if err != nil {
		return "", err
	}
	res, err := r.resolver.Resolve(clientID, scope)
	if err != nil {
		return "", err
	}
	if backupPath == "" {
		records, err := r.backups.List(res.Primary)
		if err != nil {
			return "", err
		}
		for _, rec := range records {
			if _, err := r.store.Read(rec.Path, client.ServersKey, client.Format); err == nil {
				backupPath = rec.Path
				break
			}
		}
		if backupPath == "" {
			return "", &backup.Error{Op: "restore", Path: res.Primary, Err: fmt.Errorf("no usable backup found")}
		}
	}
	if err := r.backups.Restore(backupPath, res.Primary); err != nil {
		return "", err
	}
	return backupPath, nil
}

// CleanupBackups prunes backups for the client's file at the given scope, or
// for every supported scope when scope is empty.
func (r *Reconciler) CleanupBackups(clientID string, scope registry.Scope, maxAgeDays, maxCount int) ([]backup.Record, error) {
	client, err := r.reg.Lookup(clientID)
	if err != nil {
		return nil, err
	}
	scopes := []registry.Scope{scope}
	if scope == "" {
		scopes = scopes[:0]
		for _, s := range registry.Scopes() {
			if client.Supports(s) {
				scopes = append(scopes, s)
			}
		}
	}
	var removed []backup.Record
	for _, s := range scopes {
		res, err := r.resolver.Resolve(clientID, s)
		if err != nil {
			return nil, err
		}
		recs, err := r.backups.Cleanup(res.Primary, maxAgeDays, maxCount)
		if err != nil {
			return nil, err
		}
		removed = append(removed, recs...)
	}
	return removed, nil
}
