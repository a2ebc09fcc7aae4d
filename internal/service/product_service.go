package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/go_shop/internal/apperr"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/ident"
	"github.com/fjod/go_shop/internal/repository"
)

type SKUGenerator interface {
	Generate(ctx context.Context, gender, category string) (string, error)
}

type ProductService struct {
	repo repository.ProductRepository
	skus SKUGenerator
}

func NewProductService(repo repository.ProductRepository, skus SKUGenerator) *ProductService {
	if skus == nil {
		skus = ident.NewSKUGenerator(repo)
	}
	return &ProductService{repo: repo, skus: skus}
}

func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, apperr.NotFound("Product %d not found", id)
	}
	if err != nil {
		return nil, internalError("get product", err)
	}
	return p, nil
}

// Create stores a catalog record under a freshly generated SKU.
func (s *ProductService) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return nil, apperr.BadRequest("Product name is required")
	case !p.Price.IsPositive():
		return nil, apperr.BadRequest("Product price must be positive")
	case p.DiscountPrice.Valid && (p.DiscountPrice.Decimal.IsNegative() || p.DiscountPrice.Decimal.GreaterThanOrEqual(p.Price)):
		return nil, apperr.BadRequest("Discount price must be below the price")
	case p.Stock < 0:
		return nil, apperr.BadRequest("Stock must not be negative")
	}
	if p.Images == nil {
		p.Images = domain.StringList{}
	}

	sku, err := s.skus.Generate(ctx, p.Gender, p.Category)
	if errors.Is(err, ident.ErrSKUExhausted) {
		return nil, apperr.Internal("Could not generate a unique SKU")
	}
	if err != nil {
		return nil, internalError("generate sku", err)
	}
	p.SKU = sku

	err = s.repo.CreateProduct(ctx, p)
	if errors.Is(err, repository.ErrSKUTaken) {
		return nil, apperr.Conflict("SKU %s already exists", sku)
	}
	if err != nil {
		return nil, internalError("create product", err)
	}
	return p, nil
}

// AdjustStock applies a manual restock or write-off.
func (s *ProductService) AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, apperr.BadRequest("Stock delta must not be zero")
	}
	p, err := s.repo.AdjustStock(ctx, id, delta)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return nil, apperr.NotFound("Product %d not found", id)
	case errors.Is(err, repository.ErrInsufficientStock):
		return nil, apperr.BadRequest("Stock of product %d cannot go below zero", id)
	case err != nil:
		return nil, internalError("adjust stock", err)
	}
	return p, nil
}
