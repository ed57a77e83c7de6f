package naming

import "winshirt-sync/internal/model"

var (
	Participants = NewSchema(
		F("id", "id"),
		F("lotteryId", "lottery_id"),
		F("name", "name"),
		F("email", "email"),
		F("avatar", "avatar"),
		F("orderId", "order_id"),
	)

	Winners = NewSchema(
		F("id", "id"),
		F("lotteryId", "lottery_id"),
		F("participantId", "participant_id"),
		F("name", "name"),
		F("email", "email"),
		F("avatar", "avatar"),
		F("drawnAt", "drawn_at"),
	)

	Lotteries = NewSchema(
		F("id", "id"),
		F("title", "title"),
		F("description", "description"),
		F("value", "value"),
		F("targetParticipants", "target_participants"),
		F("currentParticipants", "current_participants"),
		F("status", "status"),
		F("image", "image"),
		F("linkedProducts", "linked_products"),
		F("drawDate", "draw_date"),
		F("endDate", "end_date"),
		F("featured", "featured"),
		Nest("participants", "", Participants),
		Nest("winner", "", Winners),
	)

	bounds = NewSchema(
		F("x", "x"),
		F("y", "y"),
		F("width", "width"),
		F("height", "height"),
	)

	printAreas = NewSchema(
		F("id", "id"),
		F("name", "name"),
		F("position", "position"),
		F("format", "format"),
		Nest("bounds", "bounds", bounds),
	)

	visualSettings = NewSchema(
		F("x", "x"),
		F("y", "y"),
		F("width", "width"),
		F("height", "height"),
		F("opacity", "opacity"),
		F("rotation", "rotation"),
	)

	Products = NewSchema(
		F("id", "id"),
		F("name", "name"),
		F("description", "description"),
		F("price", "price"),
		F("image", "image"),
		F("secondaryImage", "secondary_image"),
		F("sizes", "sizes"),
		F("colors", "colors"),
		F("type", "type"),
		F("linkedLotteries", "linked_lotteries"),
		F("customizable", "customizable"),
		Nest("printAreas", "print_areas", printAreas),
		F("defaultVisual", "default_visual"),
		Nest("defaultVisualSettings", "default_visual_settings", visualSettings),
		F("featured", "featured"),
	)

	OrderItems = NewSchema(
		F("id", "id"),
		F("orderId", "order_id"),
		F("productId", "product_id"),
		F("productName", "product_name"),
		F("quantity", "quantity"),
		F("price", "price"),
		F("size", "size"),
		F("color", "color"),
		F("customization", "customization"),
		F("lotteryIds", "lottery_ids"),
	)

	shipping = NewSchema(
		F("address", "address"),
		F("method", "method"),
		F("cost", "cost"),
	)

	payment = NewSchema(
		F("method", "method"),
		F("status", "status"),
	)

	deliveryEvents = NewSchema(
		F("date", "date"),
		F("location", "location"),
		F("status", "status"),
		F("description", "description"),
	)

	delivery = NewSchema(
		F("carrier", "carrier"),
		F("trackingNumber", "tracking_number"),
		F("trackingUrl", "tracking_url"),
		F("status", "status"),
		F("estimatedDate", "estimated_date"),
		F("signatureRequired", "signature_required"),
		Nest("history", "history", deliveryEvents),
	)

	Orders = NewSchema(
		F("id", "id"),
		F("clientName", "client_name"),
		F("clientEmail", "client_email"),
		F("status", "status"),
		Nest("items", "", OrderItems),
		Nest("shipping", "shipping", shipping),
		Nest("payment", "payment", payment),
		Nest("delivery", "delivery", delivery),
		F("subtotal", "subtotal"),
		F("total", "total"),
		F("notes", "notes"),
		F("createdAt", "created_at"),
	)

	Clients = NewSchema(
		F("id", "id"),
		F("name", "name"),
		F("email", "email"),
		F("phone", "phone"),
		F("address", "address"),
		F("city", "city"),
		F("postalCode", "postal_code"),
		F("country", "country"),
		F("orderCount", "order_count"),
		F("totalSpent", "total_spent"),
		F("createdAt", "created_at"),
	)

	Visuals = NewSchema(
		F("id", "id"),
		F("name", "name"),
		F("image", "image"),
		F("categoryId", "category_id"),
		F("categoryName", "category_name"),
		F("tags", "tags"),
	)

	VisualCategories = NewSchema(
		F("id", "id"),
		F("name", "name"),
		F("description", "description"),
	)
)

var byTable = map[string]*Schema{
	model.TableLotteries:           Lotteries,
	model.TableLotteryParticipants: Participants,
	model.TableLotteryWinners:      Winners,
	model.TableProducts:            Products,
	model.TableOrders:              Orders,
	model.TableOrderItems:          OrderItems,
	model.TableClients:             Clients,
	model.TableVisuals:             Visuals,
	model.TableVisualCategories:    VisualCategories,
}

// ForTable returns the schema of a remote table, or nil for an unknown table.
func ForTable(table string) *Schema {
	return byTable[table]
}
