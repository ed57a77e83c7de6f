package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/realtime"
)

// Refresher reloads a table's mirror entry whenever the remote reports a change to it.
type Refresher struct {
	source realtime.Source
	tables []string
	syncs  map[string]TableSync
	log    zerolog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewRefresher creates a refresher for tables. Changes to child tables refresh their parent.
func NewRefresher(source realtime.Source, tables []string, logger zerolog.Logger, syncs ...TableSync) *Refresher {
	byTable := make(map[string]TableSync, len(syncs))
	for _, s := range syncs {
		byTable[s.Table()] = s
	}
	return &Refresher{
		source: source,
		tables: tables,
		syncs:  byTable,
		log:    logger.With().Str("component", "refresher").Logger(),
		done:   make(chan struct{}),
	}
}

// subscriptions returns the subscribed tables plus their child tables.
func (r *Refresher) subscriptions() []string {
	wanted := make(map[string]bool, len(r.tables))
	out := make([]string, 0, len(r.tables))
	for _, t := range r.tables {
		if !wanted[t] {
			wanted[t] = true
			out = append(out, t)
		}
	}
	for _, t := range model.KnownTables {
		if parent, ok := model.ParentTable[t]; ok && wanted[parent] && !wanted[t] {
			wanted[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Start subscribes and begins refreshing in the background.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	changes, err := r.source.Subscribe(ctx, r.subscriptions())
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	r.cancel = cancel

	r.log.Info().Strs("tables", r.tables).Msg("started")
	go r.run(ctx, changes)
	return nil
}

func (r *Refresher) run(ctx context.Context, changes <-chan realtime.Change) {
	defer close(r.done)
	for c := range changes {
		r.handle(ctx, c)
	}
	r.log.Info().Msg("stopped")
}

func (r *Refresher) handle(ctx context.Context, c realtime.Change) {
	table := c.Table
	if parent, ok := model.ParentTable[table]; ok {
		table = parent
	}
	ts, ok := r.syncs[table]
	if !ok {
		return
	}
	r.log.Debug().Str("table", c.Table).Str("action", c.Action).Int64("id", c.RecordID).Msg("change received")
	if err := ts.Refresh(ctx); err != nil {
		r.log.Warn().Err(err).Str("table", table).Msg("refresh failed")
	}
}

// Stop ends the subscription and waits for the refresh loop to exit.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel == nil {
			return
		}
		r.cancel()
		if err := r.source.Close(); err != nil {
			r.log.Warn().Err(err).Msg("failed to close change source")
		}
		<-r.done
	})
}
