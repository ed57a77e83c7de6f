// Package notify delivers short user-facing messages about sync operations
// out of band from the call results.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"winshirt-sync/pkg/uid"
)

// Level is the severity of a notification.
type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
	Warning Level = "warning"
)

// Notification is one user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Table     string    `json:"table,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// New builds a notification stamped with an id and the current time.
func New(level Level, table, message string) Notification {
	return Notification{
		ID:        uid.New(),
		Level:     level,
		Message:   message,
		Table:     table,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier delivers notifications. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Feed keeps the most recent notifications in a ring buffer.
type Feed struct {
	mu    sync.RWMutex
	items []Notification
	next  int
	full  bool
}

// NewFeed creates a feed holding up to size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 200
	}
	return &Feed{items: make([]Notification, size)}
}

// Notify appends n, evicting the oldest entry when full.
func (f *Feed) Notify(ctx context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0 returns all.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = len(f.items)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Notification, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (f.next - 1 - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a notifier logging through logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

// Notify logs n at the matching level.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	var ev *zerolog.Event
	switch n.Level {
	case Error:
		ev = l.log.Error()
	case Warning:
		ev = l.log.Warn()
	default:
		ev = l.log.Info()
	}
	ev.Str("notification", string(n.Level)).Str("table", n.Table).Msg(n.Message)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers n to every non-nil notifier in order.
func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

var (
	_ Notifier = (*Feed)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = Nop{}
)
