package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"winshirt-sync/internal/model"
)

// Receipt is the outcome of a placed order.
type Receipt struct {
	Order   model.Order         `json:"order"`
	Client  model.Client        `json:"client"`
	Tickets []model.Participant `json:"tickets"`
}

// CheckoutService turns a purchase into an order, a client record and lottery tickets.
type CheckoutService struct {
	products  *ProductAdapter
	orders    *OrderAdapter
	clients   *ClientAdapter
	lotteries *LotteryAdapter
	log       zerolog.Logger
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(products *ProductAdapter, orders *OrderAdapter, clients *ClientAdapter, lotteries *LotteryAdapter, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		products:  products,
		orders:    orders,
		clients:   clients,
		lotteries: lotteries,
		log:       logger.With().Str("component", "checkout").Logger(),
	}
}

// PlaceOrder creates the order, records the client and grants one participation
// per purchased unit in every active lottery linked to the product. Item prices
// always come from the product catalog.
func (s *CheckoutService) PlaceOrder(ctx context.Context, order model.Order) (Receipt, error) {
	products, err := s.products.FetchAll(ctx, false)
	if err != nil {
		return Receipt{}, err
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for i := range order.Items {
		item := &order.Items[i]
		p, ok := byID[item.ProductID]
		if !ok {
			ve := &ValidationError{Entity: "order"}
			ve.Add(fmt.Sprintf("items[%d].productId", i), "unknown product")
			return Receipt{}, ve
		}
		if item.ProductName == "" {
			item.ProductName = p.Name
		}
		item.Price = p.Price
		item.LotteryIDs = append([]int64(nil), p.LinkedLotteries...)
	}
	order.Status = model.OrderPending
	order.Payment.Status = "pending"

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Order: created}

	client, err := s.recordClient(ctx, created)
	if err != nil {
		s.log.Warn().Err(err).Int64("order_id", created.ID).Msg("failed to record client")
	} else {
		receipt.Client = client
	}

	tickets, err := s.grantTickets(ctx, created)
	if err != nil {
		s.log.Warn().Err(err).Int64("order_id", created.ID).Msg("some tickets were not granted")
	}
	receipt.Tickets = tickets
	return receipt, nil
}

func (s *CheckoutService) recordClient(ctx context.Context, order model.Order) (model.Client, error) {
	client, err := s.clients.FindByEmail(ctx, order.ClientEmail)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.Client{}, err
	}
	if errors.Is(err, ErrNotFound) {
		client = model.Client{Name: order.ClientName, Email: order.ClientEmail, TotalSpent: decimal.Zero}
	}
	client.OrderCount++
	client.TotalSpent = client.TotalSpent.Add(order.Total)
	if client.Address == "" {
		client.Address = order.Shipping.Address
	}
	return s.clients.UpsertByEmail(ctx, client)
}

func (s *CheckoutService) grantTickets(ctx context.Context, order model.Order) ([]model.Participant, error) {
	var (
		tickets []model.Participant
		errs    []error
	)
	orderID := order.ID
	for _, item := range order.Items {
		for _, lotteryID := range item.LotteryIDs {
			for n := 0; n < item.Quantity; n++ {
				l, err := s.lotteries.AddParticipant(ctx, lotteryID, model.Participant{
					Name:    order.ClientName,
					Email:   order.ClientEmail,
					OrderID: &orderID,
				})
				if errors.Is(err, ErrLotteryNotActive) {
					break
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("lottery %d: %w", lotteryID, err))
					break
				}
				if len(l.Participants) > 0 {
					tickets = append(tickets, l.Participants[len(l.Participants)-1])
				}
			}
		}
	}
	return tickets, errors.Join(errs...)
}
