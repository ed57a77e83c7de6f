package service

// Catalog bundles the entity adapters and the services built on them.
type Catalog struct {
	Lotteries  *LotteryAdapter
	Products   *ProductAdapter
	Orders     *OrderAdapter
	Clients    *ClientAdapter
	Visuals    *VisualAdapter
	Categories *VisualCategoryAdapter
	Checkout   *CheckoutService
	Backup     *BackupService
}

// NewCatalog wires every adapter on deps.
func NewCatalog(deps Deps) *Catalog {
	c := &Catalog{
		Lotteries:  NewLotteryAdapter(deps),
		Products:   NewProductAdapter(deps),
		Orders:     NewOrderAdapter(deps),
		Clients:    NewClientAdapter(deps),
		Categories: NewVisualCategoryAdapter(deps),
	}
	c.Visuals = NewVisualAdapter(deps, c.Categories)
	c.Checkout = NewCheckoutService(c.Products, c.Orders, c.Clients, c.Lotteries, deps.Logger)
	c.Backup = NewBackupService(deps, c.Tables()...)
	return c
}

// Tables returns every adapter as a TableSync.
func (c *Catalog) Tables() []TableSync {
	return []TableSync{c.Lotteries, c.Products, c.Orders, c.Clients, c.Visuals, c.Categories}
}

// Table returns the adapter of one mirrored table.
func (c *Catalog) Table(name string) (TableSync, bool) {
	for _, ts := range c.Tables() {
		if ts.Table() == name {
			return ts, true
		}
	}
	return nil, false
}
