package service

import (
	"context"

	"github.com/rs/zerolog"

	"winshirt-sync/internal/repository"
)

// Probe answers whether the remote data service is reachable.
type Probe struct {
	remote repository.RemoteRepository
	table  string
	log    zerolog.Logger
}

// NewProbe creates a probe issuing a minimal read against table. A nil remote is never connected.
func NewProbe(remote repository.RemoteRepository, table string, logger zerolog.Logger) *Probe {
	return &Probe{remote: remote, table: table, log: logger}
}

// IsConnected reports whether a minimal remote read succeeds. It does not retry;
// ctx bounds the attempt. Failures are logged, never returned.
func (p *Probe) IsConnected(ctx context.Context) bool {
	if p == nil || p.remote == nil {
		return false
	}
	if err := p.remote.Probe(ctx, p.table); err != nil {
		p.log.Warn().Err(err).Str("table", p.table).Msg("remote unreachable")
		return false
	}
	return true
}
