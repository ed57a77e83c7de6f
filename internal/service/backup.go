package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
)

// Snapshot is a full mirror export keyed by table.
type Snapshot map[string][]map[string]any

// ImportReport summarizes an import.
type ImportReport struct {
	Restored   map[string]int `json:"restored"`
	Skipped    []string       `json:"skipped,omitempty"`
	Pushed     map[string]int `json:"pushed,omitempty"`
	PushErrors []string       `json:"pushErrors,omitempty"`
}

// ClearReport summarizes a full data wipe.
type ClearReport struct {
	Categories    []string         `json:"categories"`
	RemoteDeleted map[string]int64 `json:"remoteDeleted"`
	MirrorCleared []string         `json:"mirrorCleared"`
	Errors        []string         `json:"errors,omitempty"`
}

// BackupService exports, restores and wipes the local mirror.
type BackupService struct {
	deps  Deps
	syncs map[string]TableSync
	log   zerolog.Logger
}

// NewBackupService creates a backup service. syncs are used to push restored
// tables to the remote.
func NewBackupService(deps Deps, syncs ...TableSync) *BackupService {
	byTable := make(map[string]TableSync, len(syncs))
	for _, s := range syncs {
		byTable[s.Table()] = s
	}
	return &BackupService{
		deps:  deps,
		syncs: byTable,
		log:   deps.Logger.With().Str("component", "backup").Logger(),
	}
}

// BackupFilename returns the download name of a snapshot taken at the current time.
func (s *BackupService) BackupFilename() string {
	stamp := s.deps.now().Format("2006-01-02T15:04:05.000Z")
	return "winshirt-backup-" + strings.NewReplacer(":", "-", ".", "-").Replace(stamp) + ".json"
}

// ExportSnapshot reads every mirrored table. Missing or unreadable entries export as [].
func (s *BackupService) ExportSnapshot(ctx context.Context) (Snapshot, string, error) {
	snap := make(Snapshot, len(model.MirrorTables))
	for _, table := range model.MirrorTables {
		rows, err := mirror.LoadRows(ctx, s.deps.Mirror, table)
		if err != nil {
			if !errors.Is(err, mirror.ErrMalformed) {
				return nil, "", fmt.Errorf("failed to read %s: %w", table, err)
			}
			s.log.Warn().Err(err).Str("table", table).Msg("exporting malformed entry as empty")
		}
		snap[table] = rows
	}
	return snap, s.BackupFilename(), nil
}

// ImportSnapshot overwrites mirror entries from a JSON object of table → rows.
// Rows are normalized to application naming. With push set and the remote
// reachable, restored tables are upserted to the remote by id.
func (s *BackupService) ImportSnapshot(ctx context.Context, r io.Reader, push bool) (ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to read backup: %w", err)
	}
	obj, err := naming.ParseObject(data)
	if err != nil || obj == nil {
		s.deps.notify(ctx, notify.Error, "", "Invalid backup file")
		return ImportReport{}, ErrInvalidSnapshot
	}

	report := ImportReport{Restored: make(map[string]int)}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, table := range keys {
		list, ok := obj[table].([]any)
		if !ok || table == mirror.StatusKey {
			report.Skipped = append(report.Skipped, table)
			continue
		}

		schema := naming.ForTable(table)
		rows := make([]any, 0, len(list))
		for _, v := range list {
			if row, ok := v.(map[string]any); ok && schema != nil {
				v = schema.ToApp(row)
			}
			rows = append(rows, v)
		}
		if err := mirror.Save(ctx, s.deps.Mirror, table, rows); err != nil {
			return report, fmt.Errorf("failed to restore %s: %w", table, err)
		}
		report.Restored[table] = len(rows)
	}

	if push {
		s.push(ctx, &report)
	}

	s.log.Info().Interface("restored", report.Restored).Strs("skipped", report.Skipped).Msg("backup imported")
	s.deps.notify(ctx, notify.Success, "", fmt.Sprintf("Backup restored (%d tables)", len(report.Restored)))
	return report, nil
}

func (s *BackupService) push(ctx context.Context, report *ImportReport) {
	if !s.deps.Probe.IsConnected(ctx) {
		report.PushErrors = append(report.PushErrors, ErrOffline.Error())
		return
	}
	report.Pushed = make(map[string]int)
	for table := range report.Restored {
		ts, ok := s.syncs[table]
		if !ok {
			continue
		}
		n, err := ts.PushMirror(ctx)
		report.Pushed[table] = n
		if err != nil {
			s.log.Warn().Err(err).Str("table", table).Msg("push incomplete")
			report.PushErrors = append(report.PushErrors, fmt.Sprintf("%s: %v", table, err))
		}
	}
	sort.Strings(report.PushErrors)
}

// ClearAllData deletes every remote table (best effort) and every mirror entry.
func (s *BackupService) ClearAllData(ctx context.Context) (ClearReport, error) {
	report := ClearReport{
		Categories:    append([]string(nil), model.MirrorTables...),
		RemoteDeleted: make(map[string]int64),
	}

	if s.deps.Probe.IsConnected(ctx) {
		for i := len(model.KnownTables) - 1; i >= 0; i-- {
			table := model.KnownTables[i]
			n, err := s.deps.Remote.DeleteAll(ctx, table)
			if err != nil {
				report.Errors = append(report.Errors, table+": "+err.Error())
				continue
			}
			report.RemoteDeleted[table] = n
		}
	} else {
		report.Errors = append(report.Errors, ErrOffline.Error())
	}

	keys, err := s.deps.Mirror.Keys(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list mirror entries: %w", err)
	}
	for _, key := range keys {
		if err := s.deps.Mirror.Delete(ctx, key); err != nil {
			report.Errors = append(report.Errors, key+": "+err.Error())
			continue
		}
		report.MirrorCleared = append(report.MirrorCleared, key)
	}

	s.log.Warn().Strs("mirror", report.MirrorCleared).Interface("remote", report.RemoteDeleted).Msg("all data cleared")
	s.deps.notify(ctx, notify.Warning, "", "All data cleared")
	return report, nil
}

// MarshalSnapshot encodes a snapshot for download.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}
