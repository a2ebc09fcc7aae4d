package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_shop/internal/apperr"
	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/offer"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// maxMergeAttempts bounds AddItem retries under concurrent writes to one row.
const maxMergeAttempts = 3

type CartService struct {
	repo     repository.CartRepository
	products ProductReader
	offers   OfferSource
	cache    cache.PricedCartCache
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time
}

func NewCartService(repo repository.CartRepository, products ProductReader, offers OfferSource, c cache.PricedCartCache) *CartService {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &CartService{
		repo:     repo,
		products: products,
		offers:   offers,
		cache:    c,
		now:      time.Now,
	}
}

// AddItem puts quantity units of a product in the cart. A product already in
// the cart gets its quantity increased instead of a second row.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.BadRequest("Quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	// A concurrent insert of the same product loses on the unique index and
	// a concurrent merge fails the quantity compare; either way the next pass
	// rereads the row.
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		existing, err := s.repo.FindByProduct(ctx, userID, productID)
		if err != nil && !errors.Is(err, repository.ErrItemNotFound) {
			return nil, internalError("find cart item", err)
		}

		if existing != nil {
			merged := existing.Quantity + quantity
			if err := checkAvailable(product, merged); err != nil {
				return nil, err
			}
			if err := s.repo.IncrementItemQuantity(ctx, userID, existing.ID, existing.Quantity, quantity); err != nil {
				if errors.Is(err, repository.ErrItemNotFound) {
					continue
				}
				return nil, internalError("update cart item", err)
			}
			existing.Quantity = merged
			s.invalidateCache(userID)
			return existing, nil
		}

		if err := checkAvailable(product, quantity); err != nil {
			return nil, err
		}
		item := &domain.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := s.repo.InsertItem(ctx, item); err != nil {
			if errors.Is(err, repository.ErrDuplicateItem) {
				continue
			}
			return nil, internalError("insert cart item", err)
		}
		s.invalidateCache(userID)
		return item, nil
	}
	return nil, apperr.Conflict("Cart item for product %d changed concurrently, retry", productID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.BadRequest("Quantity must be at least 1")
	}

	item, err := s.repo.GetItem(ctx, userID, itemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperr.NotFound("Cart item %s not found", itemID)
	}
	if err != nil {
		return nil, internalError("get cart item", err)
	}

	product, err := s.loadProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if err := checkAvailable(product, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperr.NotFound("Cart item %s not found", itemID)
		}
		return nil, internalError("update cart item", err)
	}
	item.Quantity = quantity

	s.invalidateCache(userID)
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	err := s.repo.RemoveItem(ctx, userID, itemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return apperr.NotFound("Cart item %s not found", itemID)
	}
	if err != nil {
		return internalError("remove cart item", err)
	}

	s.invalidateCache(userID)
	return nil
}

// ClearCart empties the cart. Clearing an empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil {
		return internalError("clear cart", err)
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) CountItems(ctx context.Context, userID string) (int, error) {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return 0, internalError("list cart items", err)
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total, nil
}

// GetPricedCart serves the priced view from cache when possible. The cache
// version is read before the store, so a view computed across a concurrent
// mutation is never written back.
func (s *CartService) GetPricedCart(ctx context.Context, userID string) (*domain.PricedCart, error) {
	version, verErr := s.cache.Version(ctx, userID)
	if verErr != nil {
		log.Printf("cache version error: %v", verErr)
	}

	// Use singleflight to prevent multiple concurrent cache misses for same
	// key. Readers arriving after an invalidation get a fresh flight.
	v, err, _ := s.sfg.Do(userID+"@"+version, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, err = s.PriceCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if verErr != nil {
			return cart, nil
		}

		errSet := s.cache.SetIfVersion(ctx, userID, version, cart)
		if errSet != nil && !errors.Is(errSet, cache.ErrStaleVersion) {
			log.Printf("cache set error: %v", errSet)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PricedCart), nil
}

// PriceCart computes the priced view from the store, ignoring the cache.
func (s *CartService) PriceCart(ctx context.Context, userID string) (*domain.PricedCart, error) {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, internalError("list cart items", err)
	}

	now := s.now()
	cart := &domain.PricedCart{
		UserID: userID,
		Items:  make([]domain.PricedCartItem, 0, len(items)),
		Summary: domain.CartSummary{
			Subtotal:      decimal.Zero,
			TotalDiscount: decimal.Zero,
			Total:         decimal.Zero,
		},
		CalculatedAt: now,
	}
	if len(items) == 0 {
		return cart, nil
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, internalError("load cart products", err)
	}

	offers, err := s.offers.ListActiveOffers(ctx)
	if err != nil {
		return nil, internalError("load offers", err)
	}
	offers = offer.Applicable(offers, now)

	for _, it := range items {
		product, ok := products[it.ProductID]
		if !ok {
			log.Printf("cart %s references missing product %d, skipping", userID, it.ProductID)
			cart.MissingProductIDs = append(cart.MissingProductIDs, it.ProductID)
			continue
		}
		line := priceLine(it, product, offers)
		cart.Items = append(cart.Items, line)

		listValue := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		cart.Summary.Subtotal = cart.Summary.Subtotal.Add(listValue)
		cart.Summary.TotalDiscount = cart.Summary.TotalDiscount.Add(line.ProductDiscount).Add(line.OfferDiscount)
		cart.Summary.TotalItems += it.Quantity
	}

	cart.Summary.Subtotal = cart.Summary.Subtotal.Round(2)
	cart.Summary.TotalDiscount = cart.Summary.TotalDiscount.Round(2)
	cart.Summary.Total = cart.Summary.Subtotal.Sub(cart.Summary.TotalDiscount)
	return cart, nil
}

func priceLine(it domain.CartItem, product *domain.Product, offers []domain.Offer) domain.PricedCartItem {
	q := decimal.NewFromInt(int64(it.Quantity))
	unitPrice := product.UnitPrice()

	res := offer.Evaluate(offer.Line{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: unitPrice}, offers)

	line := domain.PricedCartItem{
		ID:              it.ID,
		ProductID:       it.ProductID,
		Quantity:        it.Quantity,
		AddedAt:         it.AddedAt,
		Product:         *product,
		UnitPrice:       unitPrice,
		ProductDiscount: product.Price.Sub(unitPrice).Mul(q).Round(2),
		OfferDiscount:   res.Discount,
		Subtotal:        unitPrice.Mul(q).Sub(res.Discount).Round(2),
	}
	if res.Offer != nil {
		line.AppliedOffer = &domain.AppliedOffer{
			ID:       res.Offer.ID,
			Name:     res.Offer.Name,
			RuleType: res.Offer.RuleType,
		}
	}
	return line
}

func (s *CartService) loadProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, apperr.NotFound("Product %d not found", productID)
	}
	if err != nil {
		return nil, internalError("get product", err)
	}
	return product, nil
}

func checkAvailable(product *domain.Product, quantity int) error {
	if product.CanFulfil(quantity) {
		return nil
	}
	if !product.IsActive {
		return apperr.BadRequest("Product %s is not available", product.Name)
	}
	return apperr.BadRequest("Only %d units of %s in stock", product.Stock, product.Name)
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
