package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
)

type mockCartRepo struct {
	m     sync.Mutex
	items map[string]*domain.CartItem
	err   error
	// dupOnInsert makes the next InsertItem behave as if another request
	// inserted the same product first.
	dupOnInsert bool
	// bumpOnIncrement makes the next IncrementItemQuantity find a row another
	// request already changed.
	bumpOnIncrement bool
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{items: make(map[string]*domain.CartItem)}
}

func (m *mockCartRepo) add(userID string, productID int64, quantity int) *domain.CartItem {
	m.m.Lock()
	defer m.m.Unlock()
	item := &domain.CartItem{ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: quantity}
	m.items[item.ID] = item
	return item
}

func (m *mockCartRepo) ListItems(_ context.Context, userID string) ([]domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.CartItem, 0)
	for _, it := range m.items {
		if it.UserID == userID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *mockCartRepo) GetItem(_ context.Context, userID, itemID string) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return nil, repository.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *mockCartRepo) FindByProduct(_ context.Context, userID string, productID int64) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, it := range m.items {
		if it.UserID == userID && it.ProductID == productID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, repository.ErrItemNotFound
}

func (m *mockCartRepo) InsertItem(_ context.Context, item *domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.dupOnInsert {
		m.dupOnInsert = false
		winner := &domain.CartItem{ID: uuid.NewString(), UserID: item.UserID, ProductID: item.ProductID, Quantity: 1}
		m.items[winner.ID] = winner
		return repository.ErrDuplicateItem
	}
	for _, it := range m.items {
		if it.UserID == item.UserID && it.ProductID == item.ProductID {
			return repository.ErrDuplicateItem
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, userID, itemID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return repository.ErrItemNotFound
	}
	it.Quantity = quantity
	return nil
}

func (m *mockCartRepo) IncrementItemQuantity(_ context.Context, userID, itemID string, expected, delta int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return repository.ErrItemNotFound
	}
	if m.bumpOnIncrement {
		m.bumpOnIncrement = false
		it.Quantity++
	}
	if it.Quantity != expected {
		return repository.ErrItemNotFound
	}
	it.Quantity += delta
	return nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, userID, itemID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	it, ok := m.items[itemID]
	if !ok || it.UserID != userID {
		return repository.ErrItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for id, it := range m.items {
		if it.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockCartRepo) count(userID string) int {
	items, _ := m.ListItems(context.Background(), userID)
	return len(items)
}

type mockProducts struct {
	m        sync.Mutex
	products map[int64]*domain.Product
	err      error
	// adjustErr fails AdjustStock for a product with the given error.
	adjustErr map[int64]error
	adjusts   []stockCall
	getMany   int
	skus      map[string]bool
	// beforeGetMany runs at the start of GetProducts, outside the lock.
	beforeGetMany func()
}

type stockCall struct {
	ProductID int64
	Delta     int
}

func newMockProducts(products ...*domain.Product) *mockProducts {
	m := &mockProducts{
		products:  make(map[int64]*domain.Product),
		adjustErr: make(map[int64]error),
		skus:      make(map[string]bool),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProducts) GetProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if m.beforeGetMany != nil {
		m.beforeGetMany()
	}
	m.m.Lock()
	defer m.m.Unlock()
	m.getMany++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockProducts) AdjustStock(_ context.Context, id int64, delta int) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if err := m.adjustErr[id]; err != nil {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	p.Stock += delta
	m.adjusts = append(m.adjusts, stockCall{ProductID: id, Delta: delta})
	cp := *p
	return &cp, nil
}

func (m *mockProducts) CreateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.skus[p.SKU] {
		return repository.ErrSKUTaken
	}
	p.ID = int64(len(m.products) + 1)
	m.skus[p.SKU] = true
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProducts) SKUExists(_ context.Context, sku string) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.skus[sku], nil
}

func (m *mockProducts) stock(id int64) int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.products[id].Stock
}

type mockOffers struct {
	m       sync.Mutex
	offers  map[int64]*domain.Offer
	nextID  int64
	err     error
	used    []int64
	usedErr error
}

func newMockOffers(offers ...domain.Offer) *mockOffers {
	m := &mockOffers{offers: make(map[int64]*domain.Offer)}
	for i := range offers {
		o := offers[i]
		m.offers[o.ID] = &o
		if o.ID > m.nextID {
			m.nextID = o.ID
		}
	}
	return m
}

func (m *mockOffers) sorted(activeOnly bool) []domain.Offer {
	out := make([]domain.Offer, 0, len(m.offers))
	for _, o := range m.offers {
		if activeOnly && !o.IsActive {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockOffers) ListOffers(context.Context) ([]domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(false), nil
}

func (m *mockOffers) ListActiveOffers(context.Context) ([]domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(true), nil
}

func (m *mockOffers) GetOffer(_ context.Context, id int64) (*domain.Offer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOffers) CreateOffer(_ context.Context, o *domain.Offer) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.nextID++
	o.ID = m.nextID
	cp := *o
	m.offers[o.ID] = &cp
	return nil
}

func (m *mockOffers) UpdateOffer(_ context.Context, o *domain.Offer) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.offers[o.ID]; !ok {
		return repository.ErrOfferNotFound
	}
	cp := *o
	m.offers[o.ID] = &cp
	return nil
}

func (m *mockOffers) DeleteOffer(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.offers[id]; !ok {
		return repository.ErrOfferNotFound
	}
	delete(m.offers, id)
	return nil
}

func (m *mockOffers) IncrementUsage(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.used = append(m.used, id)
	if m.usedErr != nil {
		return m.usedErr
	}
	if o, ok := m.offers[id]; ok {
		o.UsageCount++
	}
	return nil
}

type mockOrders struct {
	m       sync.Mutex
	orders  map[string]*domain.Order
	history map[string][]domain.StatusChange
	// dupIDs makes that many CreateOrder calls fail with ErrDuplicateOrderID.
	dupIDs    int
	createErr error
	updateErr error
	deleted   []string
}

func newMockOrders() *mockOrders {
	return &mockOrders{
		orders:  make(map[string]*domain.Order),
		history: make(map[string][]domain.StatusChange),
	}
}

func (m *mockOrders) CreateOrder(_ context.Context, o *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.dupIDs > 0 {
		m.dupIDs--
		return repository.ErrDuplicateOrderID
	}
	cp := *o
	m.orders[o.ID] = &cp
	m.history[o.ID] = append(m.history[o.ID], domain.StatusChange{OrderID: o.ID, Status: o.Status})
	return nil
}

func (m *mockOrders) DeleteOrder(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deleted = append(m.deleted, id)
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	delete(m.history, id)
	return nil
}

func (m *mockOrders) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) GetOrderByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.orders {
		if o.OrderID == orderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrders) ListOrders(_ context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrders) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrders) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	m.history[id] = append(m.history[id], domain.StatusChange{OrderID: id, Status: to})
	return nil
}

func (m *mockOrders) StatusHistory(_ context.Context, id string) ([]domain.StatusChange, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]domain.StatusChange(nil), m.history[id]...), nil
}

func (m *mockOrders) Stats(context.Context) (*domain.OrderStats, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockOrders) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

type mockCache struct {
	m        sync.Mutex
	carts    map[string]*domain.PricedCart
	gens     map[string]int
	purgeGen int
	err      error
	gets     int
	sets     int
	stale    int
	deletes  int
	purges   int
}

func newMockCache() *mockCache {
	return &mockCache{
		carts: make(map[string]*domain.PricedCart),
		gens:  make(map[string]int),
	}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.PricedCart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.PricedCart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) version(userID string) string {
	return fmt.Sprintf("%d.%d", m.purgeGen, m.gens[userID])
}

func (m *mockCache) Version(_ context.Context, userID string) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.version(userID), nil
}

func (m *mockCache) SetIfVersion(_ context.Context, userID, version string, cart *domain.PricedCart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	if m.version(userID) != version {
		m.stale++
		return cache.ErrStaleVersion
	}
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	m.gens[userID]++
	delete(m.carts, userID)
	return m.err
}

func (m *mockCache) Purge(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.purges++
	m.purgeGen++
	m.carts = make(map[string]*domain.PricedCart)
	return m.err
}

func (m *mockCache) has(userID string) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, ok := m.carts[userID]
	return ok
}

type notification struct {
	OrderID  string
	Status   domain.OrderStatus
	Previous domain.OrderStatus
}

type mockNotifier struct {
	m       sync.Mutex
	placed  []notification
	changed []notification
}

func (m *mockNotifier) OrderPlaced(order *domain.Order) {
	m.m.Lock()
	defer m.m.Unlock()
	m.placed = append(m.placed, notification{OrderID: order.OrderID, Status: order.Status})
}

func (m *mockNotifier) StatusChanged(order *domain.Order, previous domain.OrderStatus) {
	m.m.Lock()
	defer m.m.Unlock()
	m.changed = append(m.changed, notification{OrderID: order.OrderID, Status: order.Status, Previous: previous})
}
