package http

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// --- auth ---

type mapVerifier map[string]Principal

func (m mapVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	p, ok := m[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &p, nil
}

var testTokens = mapVerifier{
	"user-token":  {UserID: "u1", Role: RoleUser},
	"admin-token": {UserID: "admin", Role: RoleAdmin},
}

// --- cart ---

type fakeCarts struct {
	item  *domain.CartItem
	cart  *domain.PricedCart
	count int
	err   error

	lastUser      string
	lastProductID int64
	lastItemID    string
	lastQuantity  int
	cleared       bool
}

func (f *fakeCarts) AddItem(_ context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error) {
	f.lastUser, f.lastProductID, f.lastQuantity = userID, productID, quantity
	return f.item, f.err
}

func (f *fakeCarts) UpdateQuantity(_ context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	f.lastUser, f.lastItemID, f.lastQuantity = userID, itemID, quantity
	return f.item, f.err
}

func (f *fakeCarts) RemoveItem(_ context.Context, userID, itemID string) error {
	f.lastUser, f.lastItemID = userID, itemID
	return f.err
}

func (f *fakeCarts) ClearCart(_ context.Context, userID string) error {
	f.lastUser = userID
	f.cleared = f.err == nil
	return f.err
}

func (f *fakeCarts) CountItems(_ context.Context, userID string) (int, error) {
	f.lastUser = userID
	return f.count, f.err
}

func (f *fakeCarts) GetPricedCart(_ context.Context, userID string) (*domain.PricedCart, error) {
	f.lastUser = userID
	return f.cart, f.err
}

// --- orders ---

type fakeOrders struct {
	order   *domain.Order
	orders  []*domain.Order
	history []domain.StatusChange
	stats   *domain.OrderStats
	err     error

	lastUser   string
	lastID     string
	lastAdmin  bool
	lastStatus string
	lastMeta   domain.OrderMetadata
}

func (f *fakeOrders) CreateOrder(_ context.Context, userID string, meta domain.OrderMetadata) (*domain.Order, error) {
	f.lastUser, f.lastMeta = userID, meta
	return f.order, f.err
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	f.lastID, f.lastStatus = id, status
	return f.order, f.err
}

func (f *fakeOrders) GetOrder(_ context.Context, id, userID string, admin bool) (*domain.Order, error) {
	f.lastID, f.lastUser, f.lastAdmin = id, userID, admin
	return f.order, f.err
}

func (f *fakeOrders) GetOrderByOrderID(_ context.Context, orderID, userID string, admin bool) (*domain.Order, error) {
	f.lastID, f.lastUser, f.lastAdmin = orderID, userID, admin
	return f.order, f.err
}

func (f *fakeOrders) ListOrders(_ context.Context, status string) ([]*domain.Order, error) {
	f.lastStatus = status
	return f.orders, f.err
}

func (f *fakeOrders) ListUserOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	f.lastUser = userID
	return f.orders, f.err
}

func (f *fakeOrders) History(_ context.Context, id, userID string, admin bool) ([]domain.StatusChange, error) {
	f.lastID, f.lastUser, f.lastAdmin = id, userID, admin
	return f.history, f.err
}

func (f *fakeOrders) Stats(context.Context) (*domain.OrderStats, error) {
	return f.stats, f.err
}

// --- offers ---

type fakeOffers struct {
	offer  *domain.Offer
	offers []domain.Offer
	err    error

	lastID   int64
	received *domain.Offer
	deleted  bool
}

func (f *fakeOffers) List(context.Context) ([]domain.Offer, error) {
	return f.offers, f.err
}

func (f *fakeOffers) ListActive(context.Context) ([]domain.Offer, error) {
	return f.offers, f.err
}

func (f *fakeOffers) Get(_ context.Context, id int64) (*domain.Offer, error) {
	f.lastID = id
	return f.offer, f.err
}

func (f *fakeOffers) Create(_ context.Context, o *domain.Offer) (*domain.Offer, error) {
	f.received = o
	return f.offer, f.err
}

func (f *fakeOffers) Update(_ context.Context, id int64, o *domain.Offer) (*domain.Offer, error) {
	f.lastID, f.received = id, o
	return f.offer, f.err
}

func (f *fakeOffers) Delete(_ context.Context, id int64) error {
	f.lastID = id
	f.deleted = f.err == nil
	return f.err
}

// --- products ---

type fakeProducts struct {
	product *domain.Product
	err     error

	lastID    int64
	lastDelta int
	received  *domain.Product
}

func (f *fakeProducts) Get(_ context.Context, id int64) (*domain.Product, error) {
	f.lastID = id
	return f.product, f.err
}

func (f *fakeProducts) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	f.received = p
	return f.product, f.err
}

func (f *fakeProducts) AdjustStock(_ context.Context, id int64, delta int) (*domain.Product, error) {
	f.lastID, f.lastDelta = id, delta
	return f.product, f.err
}
