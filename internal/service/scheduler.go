package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ResyncConfig holds configuration for the resync scheduler.
type ResyncConfig struct {
	// Interval is how often every table is reloaded from the remote.
	Interval time.Duration

	// InitialDelay postpones the first run after Start.
	InitialDelay time.Duration

	// Timeout bounds one full run.
	Timeout time.Duration
}

// DefaultResyncConfig returns default resync configuration.
func DefaultResyncConfig() ResyncConfig {
	return ResyncConfig{
		Interval:     5 * time.Minute,
		InitialDelay: 30 * time.Second,
		Timeout:      2 * time.Minute,
	}
}

// ResyncScheduler periodically reloads every table into the mirror while the
// remote is reachable. It is the polling fallback when no realtime source runs.
type ResyncScheduler struct {
	probe     *Probe
	syncs     []TableSync
	config    ResyncConfig
	log       zerolog.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewResyncScheduler creates a new resync scheduler.
func NewResyncScheduler(probe *Probe, config ResyncConfig, logger zerolog.Logger, syncs ...TableSync) *ResyncScheduler {
	defaults := DefaultResyncConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &ResyncScheduler{
		probe:  probe,
		syncs:  syncs,
		config: config,
		log:    logger.With().Str("component", "resync").Logger(),
		stopCh: make(chan struct{}),
	}
}

// Start begins the resync scheduler.
func (s *ResyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.config.Interval).Int("tables", len(s.syncs)).Msg("started")

	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runResync()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *ResyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runResync()
		case <-s.stopCh:
			s.log.Info().Msg("stopped")
			return
		}
	}
}

func (s *ResyncScheduler) runResync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	n, err := s.RunNow(ctx)
	if err != nil {
		s.log.Warn().Err(err).Int("refreshed", n).Msg("resync incomplete")
		return
	}
	s.log.Debug().Int("refreshed", n).Msg("resync done")
}

// RunNow reloads every table immediately. It returns ErrOffline without
// touching any table when the remote is unreachable.
func (s *ResyncScheduler) RunNow(ctx context.Context) (int, error) {
	if !s.probe.IsConnected(ctx) {
		return 0, ErrOffline
	}

	var errs []error
	refreshed := 0
	for _, ts := range s.syncs {
		if err := ts.Refresh(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// Stop stops the resync scheduler.
func (s *ResyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
