package service

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"time"

	"github.com/fjod/go_shop/internal/apperr"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/ident"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
)

// maxOrderIDAttempts bounds retries when a generated order id collides.
const maxOrderIDAttempts = 3

// compensationTimeout limits how long a failed order may take to roll back.
const compensationTimeout = 5 * time.Second

type CartPricer interface {
	PriceCart(ctx context.Context, userID string) (*domain.PricedCart, error)
	ClearCart(ctx context.Context, userID string) error
}

type OfferUsage interface {
	IncrementUsage(ctx context.Context, id int64) error
}

type OrderService struct {
	carts      CartPricer
	orders     repository.OrderRepository
	stock      StockLedger
	offers     OfferUsage
	notifier   OrderNotifier
	now        func() time.Time
	newOrderID func(time.Time) string
}

func NewOrderService(carts CartPricer, orders repository.OrderRepository, stock StockLedger, offers OfferUsage, notifier OrderNotifier) *OrderService {
	if notifier == nil {
		notifier = NoopNotifier
	}
	return &OrderService{
		carts:      carts,
		orders:     orders,
		stock:      stock,
		offers:     offers,
		notifier:   notifier,
		now:        time.Now,
		newOrderID: ident.NewOrderID,
	}
}

// CreateOrder turns the user's cart into a pending order. Stock is deducted
// for every line or for none: a failed deduction restores what was taken and
// removes the order again.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, meta domain.OrderMetadata) (*domain.Order, error) {
	if meta.ContactEmail != "" {
		if _, err := mail.ParseAddress(meta.ContactEmail); err != nil {
			return nil, apperr.BadRequest("Invalid contact email %q", meta.ContactEmail)
		}
	}

	cart, err := s.carts.PriceCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.MissingProductIDs) > 0 {
		return nil, apperr.BadRequest("Product %d is no longer available", cart.MissingProductIDs[0])
	}
	if cart.IsEmpty() {
		return nil, apperr.BadRequest("Cart is empty")
	}

	for _, line := range cart.Items {
		if line.Product.CanFulfil(line.Quantity) {
			continue
		}
		if !line.Product.IsActive {
			return nil, apperr.BadRequest("Product %s is no longer available", line.Product.Name)
		}
		return nil, apperr.BadRequest("Insufficient stock for %s: %d requested, %d available",
			line.Product.Name, line.Quantity, line.Product.Stock)
	}

	order := snapshotOrder(userID, cart, meta)
	if err := s.persist(ctx, order); err != nil {
		return nil, err
	}

	if err := s.deductStock(ctx, order); err != nil {
		return nil, err
	}

	s.consumeOffers(ctx, order)

	if err := s.carts.ClearCart(ctx, userID); err != nil {
		log.Printf("clear cart after order %s: %v", order.OrderID, err)
	}

	if order.ContactEmail != "" {
		s.notifier.OrderPlaced(order)
	}
	return order, nil
}

func snapshotOrder(userID string, cart *domain.PricedCart, meta domain.OrderMetadata) *domain.Order {
	items := make(domain.OrderItems, 0, len(cart.Items))
	for _, line := range cart.Items {
		item := domain.OrderItem{
			ProductID:     line.ProductID,
			Name:          line.Product.Name,
			SKU:           line.Product.SKU,
			Quantity:      line.Quantity,
			Price:         line.Product.Price,
			DiscountPrice: line.Product.DiscountPrice,
			UnitPrice:     line.UnitPrice,
			OfferDiscount: line.OfferDiscount,
			Images:        append([]string(nil), line.Product.Images...),
			Subtotal:      line.Subtotal,
		}
		if line.AppliedOffer != nil {
			id := line.AppliedOffer.ID
			item.AppliedOfferID = &id
		}
		items = append(items, item)
	}

	return &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		Subtotal:        cart.Summary.Subtotal,
		Discount:        cart.Summary.TotalDiscount,
		TotalAmount:     cart.Summary.Total,
		TotalItems:      cart.Summary.TotalItems,
		Status:          domain.OrderStatusPending,
		ShippingAddress: meta.ShippingAddress,
		ContactEmail:    meta.ContactEmail,
		Notes:           meta.Notes,
	}
}

func (s *OrderService) persist(ctx context.Context, order *domain.Order) error {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		order.OrderID = s.newOrderID(s.now())
		err := s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderID) {
			return internalError("create order", err)
		}
		log.Printf("order id %s already taken, retrying", order.OrderID)
	}
	return apperr.Conflict("Could not allocate a unique order id")
}

func (s *OrderService) deductStock(ctx context.Context, order *domain.Order) error {
	applied := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			log.Printf("deduct stock of product %d for order %s: %v", item.ProductID, order.OrderID, err)
			s.compensate(ctx, order, applied)
			return apperr.Internal("Order could not be placed: stock for %s changed", item.Name)
		}
		applied = append(applied, item)
	}
	return nil
}

// compensate returns deducted stock and drops the order. It runs on a fresh
// deadline so a cancelled request still rolls back.
func (s *OrderService) compensate(ctx context.Context, order *domain.Order, applied []domain.OrderItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for _, item := range applied {
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("restore stock of product %d for order %s: %v", item.ProductID, order.OrderID, err)
		}
	}
	if err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
		log.Printf("delete failed order %s: %v", order.OrderID, err)
	}
}

func (s *OrderService) consumeOffers(ctx context.Context, order *domain.Order) {
	seen := make(map[int64]struct{})
	for _, item := range order.Items {
		if item.AppliedOfferID == nil {
			continue
		}
		id := *item.AppliedOfferID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.offers.IncrementUsage(ctx, id); err != nil {
			log.Printf("increment usage of offer %d for order %s: %v", id, order.OrderID, err)
		}
	}
}

// UpdateStatus moves an order along the status machine.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	to := domain.OrderStatus(status)
	if !to.Valid() {
		return nil, apperr.BadRequest("Invalid order status %q", status)
	}

	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !domain.CanTransitionTo(from, to) {
		return nil, apperr.BadRequest("Cannot change order status from %s to %s", from, to)
	}

	err = s.orders.UpdateOrderStatus(ctx, id, from, to)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return nil, apperr.NotFound("Order %s not found", id)
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, apperr.Conflict("Order %s was modified concurrently", id)
	case err != nil:
		return nil, internalError("update order status", err)
	}

	order.Status = to
	order.UpdatedAt = s.now().UTC()
	if order.ContactEmail != "" {
		s.notifier.StatusChanged(order, from)
	}
	return order, nil
}

// GetOrder returns the order when the caller owns it or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, id, userID string, admin bool) (*domain.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return ownedBy(order, userID, admin)
}

func (s *OrderService) GetOrderByOrderID(ctx context.Context, orderID, userID string, admin bool) (*domain.Order, error) {
	order, err := s.orders.GetOrderByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperr.NotFound("Order %s not found", orderID)
	}
	if err != nil {
		return nil, internalError("get order", err)
	}
	return ownedBy(order, userID, admin)
}

func (s *OrderService) ListOrders(ctx context.Context, status string) ([]*domain.Order, error) {
	filter := domain.OrderStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, apperr.BadRequest("Invalid order status %q", status)
	}
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, internalError("list orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("list user orders", err)
	}
	return orders, nil
}

func (s *OrderService) History(ctx context.Context, id, userID string, admin bool) ([]domain.StatusChange, error) {
	if _, err := s.GetOrder(ctx, id, userID, admin); err != nil {
		return nil, err
	}
	history, err := s.orders.StatusHistory(ctx, id)
	if err != nil {
		return nil, internalError("order history", err)
	}
	return history, nil
}

func (s *OrderService) Stats(ctx context.Context) (*domain.OrderStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, internalError("order stats", err)
	}
	return stats, nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Order %s not found", id)
	}
	order, err := s.orders.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperr.NotFound("Order %s not found", id)
	}
	if err != nil {
		return nil, internalError("get order", err)
	}
	return order, nil
}

func ownedBy(order *domain.Order, userID string, admin bool) (*domain.Order, error) {
	if !admin && order.UserID != userID {
		return nil, apperr.Forbidden("Order %s belongs to another user", order.OrderID)
	}
	return order, nil
}
