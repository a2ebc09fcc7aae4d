package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// PricedCartCache stores the computed cart view per user. It is a side
// channel only: callers must work correctly when it misses or fails.
type PricedCartCache interface {
	Get(ctx context.Context, userID string) (*domain.PricedCart, error)
	Set(ctx context.Context, userID string, cart *domain.PricedCart) error
	// Version returns a token that changes on every Delete or Purge
	// affecting userID.
	Version(ctx context.Context, userID string) (string, error)
	// SetIfVersion stores cart only while the version still equals version,
	// and returns ErrStaleVersion otherwise.
	SetIfVersion(ctx context.Context, userID, version string, cart *domain.PricedCart) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrStaleVersion = errors.New("cache version changed")
)

// NoopCache never stores anything. Every Get is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*domain.PricedCart, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, string, *domain.PricedCart) error {
	return nil
}

func (NoopCache) Version(context.Context, string) (string, error) {
	return "", nil
}

func (NoopCache) SetIfVersion(context.Context, string, string, *domain.PricedCart) error {
	return nil
}

func (NoopCache) Delete(context.Context, string) error {
	return nil
}

func (NoopCache) Purge(context.Context) error {
	return nil
}
