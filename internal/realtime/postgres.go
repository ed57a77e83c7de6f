package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgresSource listens on a NOTIFY channel fed by row triggers.
type PostgresSource struct {
	listener *pq.Listener
	channel  string
	log      zerolog.Logger
	once     sync.Once
}

// NewPostgresSource opens a listener on channel.
func NewPostgresSource(dsn, channel string, logger zerolog.Logger) (*PostgresSource, error) {
	report := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			logger.Warn().Err(err).Msg("postgres listener disconnected")
		case pq.ListenerEventReconnected:
			logger.Info().Msg("postgres listener reconnected")
		}
	}

	listener := pq.NewListener(dsn, time.Second, 30*time.Second, report)
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	logger.Info().Str("channel", channel).Msg("postgres change listener started")
	return &PostgresSource{listener: listener, channel: channel, log: logger}, nil
}

// Subscribe forwards notifications for tables.
func (s *PostgresSource) Subscribe(ctx context.Context, tables []string) (<-chan Change, error) {
	out := make(chan Change, 64)
	wanted := tableSet(tables)

	go func() {
		defer close(out)
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-s.listener.Notify:
				if !ok {
					return
				}
				// A nil notification follows a reconnect.
				if n == nil {
					if !resyncAll(ctx, out, tables) {
						return
					}
					continue
				}
				c, err := decodeChange([]byte(n.Extra))
				if err != nil {
					s.log.Warn().Err(err).Str("payload", n.Extra).Msg("invalid change payload")
					continue
				}
				if !wanted[c.Table] {
					continue
				}
				if !emit(ctx, out, c) {
					return
				}
			case <-ping.C:
				go func() {
					if err := s.listener.Ping(); err != nil {
						s.log.Warn().Err(err).Msg("postgres listener ping failed")
					}
				}()
			}
		}
	}()

	return out, nil
}

// Close stops the listener.
func (s *PostgresSource) Close() error {
	var err error
	s.once.Do(func() {
		err = s.listener.Close()
	})
	return err
}

var _ Source = (*PostgresSource)(nil)
