package service

import (
	"context"
	"fmt"
	"strings"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
)

// ClientAdapter mirrors storefront customers.
type ClientAdapter struct {
	*Adapter[model.Client]
}

// NewClientAdapter creates the client adapter.
func NewClientAdapter(deps Deps) *ClientAdapter {
	return &ClientAdapter{Adapter: newAdapter(deps, entitySpec[model.Client]{
		table:  model.TableClients,
		entity: "client",
		schema: naming.Clients,
		idOf:   func(c *model.Client) int64 { return c.ID },
		setID:  func(c *model.Client, id int64) { c.ID = id },
		prepare: func(c *model.Client) {
			c.Email = strings.ToLower(strings.TrimSpace(c.Email))
			if c.CreatedAt.IsZero() {
				c.CreatedAt = deps.now()
			}
		},
	})}
}

// FindByEmail returns the client with email.
func (a *ClientAdapter) FindByEmail(ctx context.Context, email string) (model.Client, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	clients, err := a.FetchAll(ctx, false)
	if err != nil {
		return model.Client{}, err
	}
	for _, c := range clients {
		if c.Email == email {
			return c, nil
		}
	}
	return model.Client{}, fmt.Errorf("client %s: %w", email, ErrNotFound)
}

// UpsertByEmail creates the client or updates the one with the same email.
func (a *ClientAdapter) UpsertByEmail(ctx context.Context, c model.Client) (model.Client, error) {
	a.spec.prepare(&c)
	if err := a.validate(&c); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return model.Client{}, err
	}

	if !a.connected(ctx) {
		a.mu.Lock()
		clients := a.loadMirror(ctx)
		found := false
		for i := range clients {
			if clients[i].Email == c.Email {
				c.ID = clients[i].ID
				c.CreatedAt = clients[i].CreatedAt
				clients[i] = c
				found = true
				break
			}
		}
		if !found {
			a.mu.Unlock()
			return a.createLocal(ctx, c)
		}
		err := a.saveMirror(ctx, clients)
		a.mu.Unlock()
		if err != nil {
			return model.Client{}, err
		}
		a.deps.notify(ctx, notify.Info, a.spec.table, "client saved locally")
		return c, nil
	}

	row, err := naming.Encode(a.spec.schema, c)
	if err != nil {
		return model.Client{}, err
	}
	delete(row, "id")
	stored, err := a.deps.Remote.Upsert(ctx, a.spec.table, row, "email")
	if err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, "Failed to save client")
		return model.Client{}, remoteErr("upsert", a.spec.table, err)
	}
	return a.storeRemote(ctx, stored, nil)
}
