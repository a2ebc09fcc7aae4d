package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/apperr"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/offer"
	"github.com/fjod/go_shop/internal/repository"
)

// CachePurger drops every cached priced cart.
type CachePurger interface {
	Purge(ctx context.Context) error
}

type OfferService struct {
	repo   repository.OfferRepository
	purger CachePurger
	now    func() time.Time
}

func NewOfferService(repo repository.OfferRepository, purger CachePurger) *OfferService {
	return &OfferService{
		repo:   repo,
		purger: purger,
		now:    time.Now,
	}
}

func (s *OfferService) List(ctx context.Context) ([]domain.Offer, error) {
	offers, err := s.repo.ListOffers(ctx)
	if err != nil {
		return nil, internalError("list offers", err)
	}
	return offers, nil
}

// ListActive returns the offers a cart would be priced with right now.
func (s *OfferService) ListActive(ctx context.Context) ([]domain.Offer, error) {
	offers, err := s.repo.ListActiveOffers(ctx)
	if err != nil {
		return nil, internalError("list active offers", err)
	}
	return offer.Applicable(offers, s.now()), nil
}

func (s *OfferService) Get(ctx context.Context, id int64) (*domain.Offer, error) {
	o, err := s.repo.GetOffer(ctx, id)
	if errors.Is(err, repository.ErrOfferNotFound) {
		return nil, apperr.NotFound("Offer %d not found", id)
	}
	if err != nil {
		return nil, internalError("get offer", err)
	}
	return o, nil
}

func (s *OfferService) Create(ctx context.Context, o *domain.Offer) (*domain.Offer, error) {
	if err := validateOffer(o); err != nil {
		return nil, err
	}
	o.UsageCount = 0
	if err := s.repo.CreateOffer(ctx, o); err != nil {
		return nil, internalError("create offer", err)
	}
	s.purgeCarts()
	return o, nil
}

// Update replaces the configuration of an offer. Its usage count survives.
func (s *OfferService) Update(ctx context.Context, id int64, o *domain.Offer) (*domain.Offer, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateOffer(o); err != nil {
		return nil, err
	}

	o.ID = id
	o.UsageCount = existing.UsageCount
	o.CreatedAt = existing.CreatedAt
	err = s.repo.UpdateOffer(ctx, o)
	if errors.Is(err, repository.ErrOfferNotFound) {
		return nil, apperr.NotFound("Offer %d not found", id)
	}
	if err != nil {
		return nil, internalError("update offer", err)
	}
	s.purgeCarts()
	return o, nil
}

func (s *OfferService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteOffer(ctx, id)
	if errors.Is(err, repository.ErrOfferNotFound) {
		return apperr.NotFound("Offer %d not found", id)
	}
	if err != nil {
		return internalError("delete offer", err)
	}
	s.purgeCarts()
	return nil
}

func validateOffer(o *domain.Offer) error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return apperr.BadRequest("Offer name is required")
	}
	if o.StartDate.IsZero() || o.EndDate.IsZero() {
		return apperr.BadRequest("Offer startDate and endDate are required")
	}
	if err := offer.Validate(o); err != nil {
		return apperr.BadRequest("%v", err)
	}
	return nil
}

// purgeCarts drops cached carts so new offer terms show up on the next read.
func (s *OfferService) purgeCarts() {
	if s.purger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.purger.Purge(ctx); err != nil {
		log.Printf("cache purge error: %v", err)
	}
}
