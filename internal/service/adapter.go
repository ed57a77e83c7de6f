package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

// childFanout bounds concurrent per-parent child queries in FetchAll.
const childFanout = 8

// Deps are the collaborators shared by every adapter.
type Deps struct {
	Remote   repository.RemoteRepository
	Mirror   mirror.Store
	Probe    *Probe
	Notifier notify.Notifier
	Status   *mirror.StatusBook
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) notify(ctx context.Context, level notify.Level, table, msg string) {
	if d.Notifier != nil {
		d.Notifier.Notify(ctx, notify.New(level, table, msg))
	}
}

// TableSync is the table-level surface used by backup push and refreshes.
type TableSync interface {
	Table() string
	Refresh(ctx context.Context) error
	PushMirror(ctx context.Context) (int, error)
}

// entitySpec configures the generic adapter for one entity type.
type entitySpec[T any] struct {
	table  string
	entity string
	schema *naming.Schema

	idOf  func(*T) int64
	setID func(*T, int64)

	// prepare normalizes an entity before validation and every write.
	prepare func(*T)
	// validate adds rules beyond the struct tags.
	validate func(*T, *ValidationError)

	// children are child tables keyed by the fk column holding the parent id.
	children []string
	fk       string
	// assemble attaches child rows fetched for a parent.
	assemble func(*T, map[string][]repository.Row)
	// preserve copies application-only fields from prior into fresh.
	preserve func(fresh, prior *T)
	// childRows lists child entities to push with a parent, keyed by child table.
	childRows func(*T) map[string][]any
	// pushChildren writes the children of a newly created parent.
	pushChildren func(ctx context.Context, created, input *T) error
	// localChildIDs numbers the children of an entity created offline. Child
	// ids are global per child table, so existing holds every mirrored parent.
	localChildIDs func(item *T, existing []T)
}

// Adapter implements the shared fetch/create/update/delete mirroring of one table.
type Adapter[T any] struct {
	deps Deps
	spec entitySpec[T]
	log  zerolog.Logger

	// mu serializes read-modify-write of this table's mirror entry.
	mu sync.Mutex
}

func newAdapter[T any](deps Deps, spec entitySpec[T]) *Adapter[T] {
	return &Adapter[T]{
		deps: deps,
		spec: spec,
		log:  deps.Logger.With().Str("component", "adapter").Str("table", spec.table).Logger(),
	}
}

// Table returns the remote table name.
func (a *Adapter[T]) Table() string {
	return a.spec.table
}

func (a *Adapter[T]) connected(ctx context.Context) bool {
	return a.deps.Probe.IsConnected(ctx)
}

func (a *Adapter[T]) loadMirror(ctx context.Context) []T {
	items, err := mirror.Load[T](ctx, a.deps.Mirror, a.spec.table)
	if err != nil {
		a.log.Warn().Err(err).Msg("mirror unreadable, using empty list")
	}
	return items
}

func (a *Adapter[T]) saveMirror(ctx context.Context, items []T) error {
	if err := mirror.Save(ctx, a.deps.Mirror, a.spec.table, items); err != nil {
		a.log.Error().Err(err).Msg("failed to write mirror")
		return err
	}
	return nil
}

func (a *Adapter[T]) recordStatus(ctx context.Context, status model.SyncStatus) {
	if a.deps.Status == nil {
		return
	}
	status.Table = a.spec.table
	status.UpdatedAt = a.deps.now()
	if err := a.deps.Status.Record(ctx, status); err != nil {
		a.log.Warn().Err(err).Msg("failed to record sync status")
	}
}

func (a *Adapter[T]) indexOf(items []T, id int64) int {
	for i := range items {
		if a.spec.idOf(&items[i]) == id {
			return i
		}
	}
	return -1
}

func (a *Adapter[T]) validate(item *T) error {
	ve := &ValidationError{Entity: a.spec.entity}
	if err := naming.Validate(item); err != nil {
		var tagErr *ValidationError
		if errors.As(newValidationError(a.spec.entity, err), &tagErr) {
			for f, msg := range tagErr.Fields {
				ve.Add(f, msg)
			}
		}
	}
	if a.spec.validate != nil {
		a.spec.validate(item, ve)
	}
	return ve.orNil()
}

// FetchAll returns every entity. Online, the remote rows replace the mirror
// entry; offline or on remote failure, the mirror entry is returned instead.
// forceRefresh marks realtime and scheduled reloads in logs.
func (a *Adapter[T]) FetchAll(ctx context.Context, forceRefresh bool) ([]T, error) {
	if !a.connected(ctx) {
		return a.loadMirror(ctx), nil
	}

	rows, err := a.deps.Remote.Select(ctx, a.spec.table)
	if err != nil {
		a.log.Warn().Err(err).Msg("remote read failed, serving mirror")
		a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("Could not load %s, showing local data", a.spec.table))
		a.recordStatus(ctx, model.SyncStatus{Success: false, Error: err.Error()})
		return a.loadMirror(ctx), nil
	}

	items := make([]T, 0, len(rows))
	quarantined := 0
	for _, row := range rows {
		item, err := naming.Decode[T](a.spec.schema, row)
		if err != nil {
			quarantined++
			a.log.Warn().Err(err).Interface("id", row["id"]).Msg("quarantined invalid remote row")
			continue
		}
		items = append(items, item)
	}

	a.assembleChildren(ctx, items)

	a.mu.Lock()
	saveErr := a.saveMirror(ctx, items)
	a.mu.Unlock()

	now := a.deps.now()
	status := model.SyncStatus{
		Success:     saveErr == nil,
		LastSync:    &now,
		Message:     fmt.Sprintf("%d rows synced", len(items)),
		Quarantined: quarantined,
	}
	if saveErr != nil {
		status.Error = saveErr.Error()
	}
	a.recordStatus(ctx, status)

	a.log.Debug().Int("rows", len(items)).Int("quarantined", quarantined).Bool("forced", forceRefresh).Msg("fetched from remote")
	return items, nil
}

// assembleChildren queries the child tables of every parent concurrently. A
// failed child query settles to no children.
func (a *Adapter[T]) assembleChildren(ctx context.Context, items []T) {
	if len(a.spec.children) == 0 || a.spec.assemble == nil {
		return
	}

	results := make([]map[string][]repository.Row, len(items))
	var g errgroup.Group
	g.SetLimit(childFanout)

	for i := range items {
		id := a.spec.idOf(&items[i])
		g.Go(func() error {
			found := make(map[string][]repository.Row, len(a.spec.children))
			for _, child := range a.spec.children {
				rows, err := a.deps.Remote.Select(ctx, child, repository.Eq(a.spec.fk, id))
				if err != nil {
					a.log.Warn().Err(err).Str("child", child).Int64("parent_id", id).Msg("child query failed")
					rows = nil
				}
				found[child] = rows
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	for i := range items {
		a.spec.assemble(&items[i], results[i])
	}
}

// FetchByID returns one entity from FetchAll.
func (a *Adapter[T]) FetchByID(ctx context.Context, id int64) (T, error) {
	items, err := a.FetchAll(ctx, false)
	if err != nil {
		var zero T
		return zero, err
	}
	if i := a.indexOf(items, id); i >= 0 {
		return items[i], nil
	}
	a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("%s %d not found", a.spec.entity, id))
	var zero T
	return zero, fmt.Errorf("%s %d: %w", a.spec.entity, id, ErrNotFound)
}

// Create validates and stores a new entity. Validation runs before any remote call.
func (a *Adapter[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if a.spec.prepare != nil {
		a.spec.prepare(&item)
	}
	if err := a.validate(&item); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return zero, err
	}

	if !a.connected(ctx) {
		return a.createLocal(ctx, item)
	}

	row, err := naming.Encode(a.spec.schema, item)
	if err != nil {
		return zero, err
	}
	created, err := a.deps.Remote.Insert(ctx, a.spec.table, row)
	if err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, fmt.Sprintf("Failed to create %s", a.spec.entity))
		return zero, remoteErr("insert", a.spec.table, err)
	}

	out, err := naming.DecodeLoose[T](a.spec.schema, created)
	if err != nil {
		return zero, fmt.Errorf("failed to decode created %s: %w", a.spec.entity, err)
	}
	if a.spec.preserve != nil {
		a.spec.preserve(&out, &item)
	}
	if a.spec.pushChildren != nil {
		if err := a.spec.pushChildren(ctx, &out, &item); err != nil {
			a.log.Error().Err(err).Int64("id", a.spec.idOf(&out)).Msg("failed to write children")
			a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("%s saved without all details", a.spec.entity))
		}
	}

	a.mu.Lock()
	items := a.loadMirror(ctx)
	items = append(items, out)
	a.writeBack(ctx, items)
	a.mu.Unlock()

	a.deps.notify(ctx, notify.Success, a.spec.table, fmt.Sprintf("%s created", a.spec.entity))
	return out, nil
}

// createLocal assigns max(existing ids)+1 and appends to the mirror.
func (a *Adapter[T]) createLocal(ctx context.Context, item T) (T, error) {
	var zero T
	a.mu.Lock()
	defer a.mu.Unlock()

	items := a.loadMirror(ctx)
	var maxID int64
	for i := range items {
		if id := a.spec.idOf(&items[i]); id > maxID {
			maxID = id
		}
	}
	a.spec.setID(&item, maxID+1)
	if a.spec.localChildIDs != nil {
		a.spec.localChildIDs(&item, items)
	}

	if err := a.saveMirror(ctx, append(items, item)); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, fmt.Sprintf("Failed to save %s locally", a.spec.entity))
		return zero, err
	}
	a.deps.notify(ctx, notify.Info, a.spec.table, fmt.Sprintf("%s saved locally", a.spec.entity))
	return item, nil
}

// Update replaces an entity. Online, application-only fields are restored from
// the mirror copy taken before the update.
func (a *Adapter[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	if a.spec.prepare != nil {
		a.spec.prepare(&item)
	}
	if err := a.validate(&item); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return zero, err
	}
	id := a.spec.idOf(&item)

	if !a.connected(ctx) {
		return a.mutateLocal(ctx, id, func(existing *T) error {
			*existing = item
			return nil
		})
	}

	row, err := naming.Encode(a.spec.schema, item)
	if err != nil {
		return zero, err
	}
	updated, err := a.deps.Remote.Update(ctx, a.spec.table, id, row)
	if err != nil {
		return zero, a.failed(ctx, "update", id, err)
	}

	out, err := a.storeRemote(ctx, updated, func(fresh *T, prior *T) {
		if prior == nil && a.spec.preserve != nil {
			a.spec.preserve(fresh, &item)
		}
	})
	if err != nil {
		return zero, err
	}
	a.deps.notify(ctx, notify.Success, a.spec.table, fmt.Sprintf("%s updated", a.spec.entity))
	return out, nil
}

// Delete removes an entity remotely (children first) and always from the mirror.
func (a *Adapter[T]) Delete(ctx context.Context, id int64) error {
	var remoteFailure error

	if a.connected(ctx) {
		for _, child := range a.spec.children {
			if _, err := a.deps.Remote.Delete(ctx, child, repository.Eq(a.spec.fk, id)); err != nil {
				a.log.Warn().Err(err).Str("child", child).Int64("id", id).Msg("failed to delete children")
			}
		}
		if _, err := a.deps.Remote.Delete(ctx, a.spec.table, repository.Eq("id", id)); err != nil {
			remoteFailure = remoteErr("delete", a.spec.table, err)
		}
	}

	a.mu.Lock()
	items := a.loadMirror(ctx)
	kept := items[:0]
	for i := range items {
		if a.spec.idOf(&items[i]) != id {
			kept = append(kept, items[i])
		}
	}
	saveErr := a.saveMirror(ctx, kept)
	a.mu.Unlock()

	if remoteFailure != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, fmt.Sprintf("Failed to delete %s %d remotely", a.spec.entity, id))
		return remoteFailure
	}
	if saveErr != nil {
		return saveErr
	}
	a.deps.notify(ctx, notify.Success, a.spec.table, fmt.Sprintf("%s deleted", a.spec.entity))
	return nil
}

// Refresh reloads the table from the remote into the mirror.
func (a *Adapter[T]) Refresh(ctx context.Context) error {
	_, err := a.FetchAll(ctx, true)
	return err
}

// PushMirror upserts every mirrored entity and its children to the remote by id.
func (a *Adapter[T]) PushMirror(ctx context.Context) (int, error) {
	a.mu.Lock()
	items := a.loadMirror(ctx)
	a.mu.Unlock()

	var errs []error
	pushed := 0
	for i := range items {
		row, err := naming.Encode(a.spec.schema, items[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := a.deps.Remote.Upsert(ctx, a.spec.table, row, "id"); err != nil {
			errs = append(errs, remoteErr("upsert", a.spec.table, err))
			continue
		}
		pushed++

		if a.spec.childRows == nil {
			continue
		}
		for child, entities := range a.spec.childRows(&items[i]) {
			schema := naming.ForTable(child)
			for _, e := range entities {
				childRow, err := naming.Encode(schema, e)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if id, _ := repository.RowID(childRow); id == 0 || a.ownedElsewhere(ctx, child, id, childRow[a.spec.fk]) {
					delete(childRow, "id")
				}
				if _, err := a.deps.Remote.Upsert(ctx, child, childRow, "id"); err != nil {
					errs = append(errs, remoteErr("upsert", child, err))
				}
			}
		}
	}
	return pushed, errors.Join(errs...)
}

// ownedElsewhere reports whether the remote child row with id belongs to
// another parent. Such a row was created remotely after the mirror copy was
// numbered, so the mirrored child is inserted under a fresh id instead.
func (a *Adapter[T]) ownedElsewhere(ctx context.Context, child string, id int64, parent any) bool {
	rows, err := a.deps.Remote.Select(ctx, child, repository.Eq("id", id))
	if err != nil || len(rows) == 0 {
		return false
	}
	want, _ := repository.Int64(parent)
	got, _ := repository.Int64(rows[0][a.spec.fk])
	return want != got
}

// patch applies a partial update: remotePatch online, apply to the mirror copy offline.
func (a *Adapter[T]) patch(ctx context.Context, id int64, remotePatch repository.Row, apply func(*T) error) (T, error) {
	var zero T
	if !a.connected(ctx) {
		return a.mutateLocal(ctx, id, apply)
	}

	updated, err := a.deps.Remote.Update(ctx, a.spec.table, id, remotePatch)
	if err != nil {
		return zero, a.failed(ctx, "update", id, err)
	}
	return a.storeRemote(ctx, updated, nil)
}

// storeRemote decodes a remote row, restores application-only fields from the
// mirror copy, lets fix adjust it, and writes it back to the mirror.
func (a *Adapter[T]) storeRemote(ctx context.Context, row repository.Row, fix func(fresh *T, prior *T)) (T, error) {
	var zero T
	out, err := naming.DecodeLoose[T](a.spec.schema, row)
	if err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", a.spec.entity, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	items := a.loadMirror(ctx)
	idx := a.indexOf(items, a.spec.idOf(&out))
	var prior *T
	if idx >= 0 {
		prior = &items[idx]
		if a.spec.preserve != nil {
			a.spec.preserve(&out, prior)
		}
	}
	if fix != nil {
		fix(&out, prior)
	}

	if idx >= 0 {
		items[idx] = out
	} else {
		items = append(items, out)
	}
	a.writeBack(ctx, items)
	return out, nil
}

// writeBack saves items after a successful remote write. The remote already
// holds the change, so a mirror failure is recorded and reported but not returned.
func (a *Adapter[T]) writeBack(ctx context.Context, items []T) {
	err := a.saveMirror(ctx, items)
	if err == nil {
		return
	}
	a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("%s saved remotely but the local copy is stale", a.spec.entity))
	a.recordStatus(ctx, model.SyncStatus{Success: false, Error: err.Error()})
}

// mutateLocal applies fn to the mirror copy of id under the table lock.
func (a *Adapter[T]) mutateLocal(ctx context.Context, id int64, fn func(*T) error) (T, error) {
	return a.mutateLocalAll(ctx, id, func(_ []T, item *T) error {
		return fn(item)
	})
}

// mutateLocalAll is mutateLocal with read access to the whole mirrored table.
func (a *Adapter[T]) mutateLocalAll(ctx context.Context, id int64, fn func(all []T, item *T) error) (T, error) {
	var zero T
	a.mu.Lock()
	defer a.mu.Unlock()

	items := a.loadMirror(ctx)
	idx := a.indexOf(items, id)
	if idx < 0 {
		a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("%s %d not found", a.spec.entity, id))
		return zero, fmt.Errorf("%s %d: %w", a.spec.entity, id, ErrNotFound)
	}
	if err := fn(items, &items[idx]); err != nil {
		return zero, err
	}
	if err := a.saveMirror(ctx, items); err != nil {
		return zero, err
	}
	a.deps.notify(ctx, notify.Info, a.spec.table, fmt.Sprintf("%s saved locally", a.spec.entity))
	return items[idx], nil
}

// failed converts a remote write error and notifies.
func (a *Adapter[T]) failed(ctx context.Context, op string, id int64, err error) error {
	err = remoteErr(op, a.spec.table, err)
	if errors.Is(err, ErrNotFound) {
		a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("%s %d not found", a.spec.entity, id))
		return fmt.Errorf("%s %d: %w", a.spec.entity, id, ErrNotFound)
	}
	a.deps.notify(ctx, notify.Error, a.spec.table, fmt.Sprintf("Failed to %s %s %d", op, a.spec.entity, id))
	return err
}
