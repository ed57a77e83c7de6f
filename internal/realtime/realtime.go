// Package realtime delivers remote row-change events used to refresh the
// local mirror.
package realtime

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"
)

// Change actions. ActionResync is emitted after a reconnect, when events may have been missed.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionResync = "RESYNC"
)

// Change is one row-change event.
type Change struct {
	Table    string         `json:"table"`
	Action   string         `json:"action"`
	RecordID int64          `json:"id,omitempty"`
	Record   map[string]any `json:"record,omitempty"`
}

// Source subscribes to change events for a set of tables.
type Source interface {
	// Subscribe starts delivery. The channel is closed when ctx ends or the source is closed.
	Subscribe(ctx context.Context, tables []string) (<-chan Change, error)

	// Close stops the source.
	Close() error
}

func tableSet(tables []string) map[string]bool {
	set := make(map[string]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	return set
}

func decodeChange(payload []byte) (Change, error) {
	var c Change
	err := json.Unmarshal(payload, &c)
	return c, err
}

// emit delivers c unless ctx ends first.
func emit(ctx context.Context, out chan<- Change, c Change) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func resyncAll(ctx context.Context, out chan<- Change, tables []string) bool {
	for _, t := range tables {
		if !emit(ctx, out, Change{Table: t, Action: ActionResync}) {
			return false
		}
	}
	return true
}

// Backoff computes exponential reconnect delays with jitter.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoff grows from 1s to 30s.
func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.2}
}

// Delay returns the wait before the given 0-based retry attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter > 0 {
		//nolint:gosec // jitter is not security-critical
		delay += delay * b.Jitter * (2*rand.Float64() - 1)
	}
	if delay < float64(b.Initial) {
		delay = float64(b.Initial)
	}
	return time.Duration(delay)
}
