package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type subscribeFrame struct {
	Type   string   `json:"type"`
	Tables []string `json:"tables"`
}

type changeFrame struct {
	Type string `json:"type"`
	Change
}

// WebSocketSource consumes a hosted change feed over a websocket and reconnects with backoff.
type WebSocketSource struct {
	url     string
	dialer  *websocket.Dialer
	backoff Backoff
	log     zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	stop   chan struct{}
	once   sync.Once
}

// NewWebSocketSource prepares a source for url. Nothing is dialed until Subscribe.
func NewWebSocketSource(url string, logger zerolog.Logger) *WebSocketSource {
	return &WebSocketSource{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: websocket.DefaultDialer.Proxy},
		backoff: DefaultBackoff(),
		log:     logger,
		stop:    make(chan struct{}),
	}
}

// WithBackoff overrides the reconnect backoff.
func (s *WebSocketSource) WithBackoff(b Backoff) *WebSocketSource {
	s.backoff = b
	return s
}

func (s *WebSocketSource) connect(ctx context.Context, tables []string) (*websocket.Conn, error) {
	conn, res, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}

	if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Tables: tables}); err != nil {
		conn.Close()
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil, websocket.ErrCloseSent
	}
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// Subscribe dials the feed and forwards change frames for tables. The first
// dial must succeed; later disconnects are retried until ctx ends.
func (s *WebSocketSource) Subscribe(ctx context.Context, tables []string) (<-chan Change, error) {
	conn, err := s.connect(ctx, tables)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, 64)
	wanted := tableSet(tables)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	}()

	go func() {
		defer close(out)
		defer cancel()

		for {
			s.readLoop(ctx, conn, wanted, out)
			if ctx.Err() != nil {
				return
			}

			conn = nil
			for attempt := 0; conn == nil; attempt++ {
				delay := s.backoff.Delay(attempt)
				s.log.Warn().Dur("retry_in", delay).Msg("change feed disconnected")
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				c, err := s.connect(ctx, tables)
				if err != nil {
					s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("change feed reconnect failed")
					continue
				}
				conn = c
			}
			s.log.Info().Msg("change feed reconnected")
			if !resyncAll(ctx, out, tables) {
				return
			}
		}
	}()

	return out, nil
}

func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn, wanted map[string]bool, out chan<- Change) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug().Err(err).Msg("change feed read failed")
			}
			conn.Close()
			return
		}

		var frame changeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.log.Warn().Err(err).Msg("invalid change frame")
			continue
		}
		if frame.Type != "change" || !wanted[frame.Table] {
			continue
		}
		if !emit(ctx, out, frame.Change) {
			return
		}
	}
}

// Close stops the source and closes the current connection.
func (s *WebSocketSource) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		close(s.stop)
	})
	return nil
}

var _ Source = (*WebSocketSource)(nil)
