package model

// Remote table names.
const (
	TableLotteries           = "lotteries"
	TableLotteryParticipants = "lottery_participants"
	TableLotteryWinners      = "lottery_winners"
	TableProducts            = "products"
	TableOrders              = "orders"
	TableOrderItems          = "order_items"
	TableClients             = "clients"
	TableVisuals             = "visuals"
	TableVisualCategories    = "visual_categories"
)

// KnownTables lists every remote table, parents before children.
var KnownTables = []string{
	TableLotteries,
	TableLotteryParticipants,
	TableLotteryWinners,
	TableProducts,
	TableOrders,
	TableOrderItems,
	TableClients,
	TableVisuals,
	TableVisualCategories,
}

// MirrorTables lists the tables kept in the local mirror. Child rows are stored
// inside their parent entity, so child tables have no mirror entry of their own.
var MirrorTables = []string{
	TableLotteries,
	TableProducts,
	TableOrders,
	TableClients,
	TableVisuals,
	TableVisualCategories,
}

// ParentTable maps a child table to the table whose mirror entry embeds it.
var ParentTable = map[string]string{
	TableLotteryParticipants: TableLotteries,
	TableLotteryWinners:      TableLotteries,
	TableOrderItems:          TableOrders,
}

// IsKnownTable reports whether name is a remote table.
func IsKnownTable(name string) bool {
	for _, t := range KnownTables {
		if t == name {
			return true
		}
	}
	return false
}
