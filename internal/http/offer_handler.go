package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

type OfferService interface {
	List(ctx context.Context) ([]domain.Offer, error)
	ListActive(ctx context.Context) ([]domain.Offer, error)
	Get(ctx context.Context, id int64) (*domain.Offer, error)
	Create(ctx context.Context, o *domain.Offer) (*domain.Offer, error)
	Update(ctx context.Context, id int64, o *domain.Offer) (*domain.Offer, error)
	Delete(ctx context.Context, id int64) error
}

type OfferHandler struct {
	offers  OfferService
	timeout time.Duration
}

func NewOfferHandler(offers OfferService, timeout time.Duration) *OfferHandler {
	return &OfferHandler{
		offers:  offers,
		timeout: timeout,
	}
}

// GET /offer
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offers, err := h.offers.List(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(offers))
}

// GET /offer/active
func (h *OfferHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	offers, err := h.offers.ListActive(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(offers))
}

// GET /offer/{id}
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	o, err := h.offers.Get(ctx, id)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// POST /offer
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var o domain.Offer
	if !decodeJSON(w, r, &o) {
		return
	}

	created, err := h.offers.Create(ctx, &o)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// PUT /offer/{id}
func (h *OfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var o domain.Offer
	if !decodeJSON(w, r, &o) {
		return
	}

	updated, err := h.offers.Update(ctx, id, &o)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DELETE /offer/{id}
func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	if err := h.offers.Delete(ctx, id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
