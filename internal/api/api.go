// Package api is the single boundary between the reconciliation core and
// whatever shell invokes it. Callers build a Request, get back a Response,
// and never touch the core packages directly.
package api

import (
	"errors"
	"fmt"

	"github.com/tuannvm/mcpscope/internal/appconfig"
	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/paths"
	"github.com/tuannvm/mcpscope/internal/reconcile"
	"github.com/tuannvm/mcpscope/internal/registry"
	"github.com/tuannvm/mcpscope/internal/store"
)

// Operation names the action a Request performs.
type Operation string

const (
	OpReadEffective  Operation = "readEffective"
	OpSaveEffective  Operation = "saveEffective"
	OpRestoreBackup  Operation = "restoreBackup"
	OpListBackups    Operation = "listBackups"
	OpCleanupBackups Operation = "cleanupBackups"
)

// Error kinds reported in Response.ErrorKind, one per failure class.
const (
	KindPathResolution = "PathResolutionError"
	KindConfigNotFound = "ConfigNotFoundError"
	KindConfigParse    = "ConfigParseError"
	KindConfigWrite    = "ConfigWriteError"
	KindBackup         = "BackupError"
	KindScopeConflict  = "ScopeConflictError"
	KindPartialWrite   = "PartialWriteError"
	KindValidation     = "ValidationError"
	KindBadRequest     = "BadRequestError"
)

// BackupSelector picks a backup for restore: an explicit path, or the most
// recent usable one when Path is empty.
type BackupSelector struct {
	Path string `json:"path,omitempty"`
}

// Retention carries cleanup thresholds; zero for both means purge.
type Retention struct {
	MaxAgeDays int `json:"maxAgeDays"`
	MaxCount   int `json:"maxCount"`
}

// Request is one operation against the core.
type Request struct {
	Operation Operation            `json:"operation"`
	Client    string               `json:"client"`
	Scope     registry.Scope       `json:"scope,omitempty"`
	Effective *reconcile.Effective `json:"effective,omitempty"`
	Backup    *BackupSelector      `json:"backup,omitempty"`
	Retention *Retention           `json:"retention,omitempty"`
}

// Response is the outcome of one Request.
type Response struct {
	OK        bool   `json:"ok"`
	Result    any    `json:"result,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// RestoreResult reports which backup was written back.
type RestoreResult struct {
	BackupPath string `json:"backupPath"`
}

// CleanupResult reports the removed backups.
type CleanupResult struct {
	Removed []backup.Record `json:"removed"`
}

// Handler dispatches requests to the reconciliation core.
type Handler struct {
	reg        *registry.Registry
	reconciler *reconcile.Reconciler
}

// NewHandler wires a Handler over an explicit registry and write scope.
func NewHandler(reg *registry.Registry, writeScope registry.Scope) *Handler {
	resolver := paths.NewResolver(reg)
	backups := backup.NewManager()
	st := store.New(backups)
	return &Handler{
		reg:        reg,
		reconciler: reconcile.New(reg, resolver, st, backups, writeScope),
	}
}

// Default builds a Handler from the on-disk settings file: registry overrides
// and the default write scope come from there.
func Default() (*Handler, *appconfig.Settings, error) {
	settings, err := appconfig.Load()
	if err != nil {
		return nil, nil, err
	}
	clients := settings.ApplyOverrides(registry.DefaultClients())
	h := NewHandler(registry.New(clients), registry.Scope(settings.DefaultWriteScope))
	return h, settings, nil
}

// Registry exposes the client registry for listing commands.
func (h *Handler) Registry() *registry.Registry {
	return h.reg
}

// Handle executes one request and never panics or returns a Go error; every
// failure is folded into the Response.
func (h *Handler) Handle(req Request) Response {
	if req.Client == "" {
		return fail(KindBadRequest, errors.New("request is missing a client"))
	}
	switch req.Operation {
	case OpReadEffective:
		eff, err := h.reconciler.LoadEffective(req.Client)
		if err != nil {
			return failFrom(err)
		}
		return ok(eff)

	case OpSaveEffective:
		if req.Effective == nil {
			return fail(KindBadRequest, errors.New("saveEffective requires an effective payload"))
		}
		if err := h.reconciler.SaveEffective(req.Client, req.Effective); err != nil {
			return failFrom(err)
		}
		return ok(nil)

	case OpRestoreBackup:
		var selected string
		if req.Backup != nil {
			selected = req.Backup.Path
		}
		backupPath, err := h.reconciler.Restore(req.Client, req.Scope, selected)
		if err != nil {
			return failFrom(err)
		}
		return ok(RestoreResult{BackupPath: backupPath})

	case OpListBackups:
		records, err := h.reconciler.ListBackups(req.Client, req.Scope)
		if err != nil {
			return failFrom(err)
		}
		return ok(records)

	case OpCleanupBackups:
		retention := Retention{MaxAgeDays: backup.DefaultMaxAgeDays, MaxCount: backup.DefaultMaxCount}
		if req.Retention != nil {
			retention = *req.Retention
		}
		removed, err := h.reconciler.CleanupBackups(req.Client, req.Scope, retention.MaxAgeDays, retention.MaxCount)
		if err != nil {
			return failFrom(err)
		}
		return ok(CleanupResult{Removed: removed})

	default:
		return fail(KindBadRequest, fmt.Errorf("unknown operation %q", req.Operation))
	}
}

func ok(result any) Response {
	return Response{OK: true, Result: result}
}

func fail(kind string, err error) Response {
	return Response{OK: false, ErrorKind: kind, Message: err.Error()}
}

// failFrom maps a core error to its stable kind string.
func failFrom(err error) Response {
	var (
		resolution *paths.ResolutionError
		notFound   *store.NotFoundError
		parse      *store.ParseError
		write      *store.WriteError
		backupErr  *backup.Error
		conflict   *reconcile.ConflictError
		partial    *reconcile.PartialWriteError
		validation *store.ValidationError
	)
	switch {
	case errors.As(err, &partial):
		return fail(KindPartialWrite, err)
	case errors.As(err, &conflict):
		return fail(KindScopeConflict, err)
	case errors.As(err, &validation):
		return fail(KindValidation, err)
	case errors.As(err, &backupErr):
		return fail(KindBackup, err)
	case errors.As(err, &write):
		return fail(KindConfigWrite, err)
	case errors.As(err, &parse):
		return fail(KindConfigParse, err)
	case errors.As(err, &notFound):
		return fail(KindConfigNotFound, err)
	case errors.As(err, &resolution):
		return fail(KindPathResolution, err)
	default:
		return fail(KindBadRequest, err)
	}
}
