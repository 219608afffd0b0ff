package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/warehouse/internal/logging"
	"github.com/Skotchmaster/warehouse/internal/models"
	"github.com/Skotchmaster/warehouse/internal/repo"
	"github.com/Skotchmaster/warehouse/internal/transport"
)

const (
	maxNameLen        = 100
	maxDescriptionLen = 500
)

// ProductService is the product ledger. Events, Index and Cache are
// optional.
type ProductService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndex
	Cache  ProductCache
}

func (s *ProductService) effects() sideEffects {
	return sideEffects{events: s.Events, index: s.Index, cache: s.Cache}
}

func productFromRequest(req transport.ProductRequest) (*models.Product, error) {
	var problems []string

	if req.Name == nil {
		problems = append(problems, "name is required")
	} else if n := utf8.RuneCountInString(*req.Name); n < 1 || n > maxNameLen {
		problems = append(problems, "name must be between 1 and 100 characters")
	}
	if req.Description == nil {
		problems = append(problems, "description is required")
	} else if utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
		problems = append(problems, "description must be at most 500 characters")
	}
	if req.Price == nil {
		problems = append(problems, "price is required")
	} else if *req.Price < 0 {
		problems = append(problems, "price must be greater than or equal to 0")
	}
	if req.Quantity == nil {
		problems = append(problems, "quantity is required")
	} else if *req.Quantity < 0 {
		problems = append(problems, "quantity must be greater than or equal to 0")
	}

	if len(problems) > 0 {
		return nil, newError(ErrValidation, "invalid product: %s", strings.Join(problems, "; "))
	}

	return &models.Product{
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
	}, nil
}

func productNotFound(id uint) error {
	return newError(ErrNotFound, "product with id %d does not exist", id)
}

func productExists(name string) error {
	return newError(ErrConflict, "product %q already exists", name)
}

func (s *ProductService) CreateProduct(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	prod, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}

	created, err := s.Repo.CreateProduct(ctx, prod)
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, productExists(prod.Name)
		}
		return nil, err
	}

	fx := s.effects()
	fx.productChanged(ctx, created)
	fx.publish(ctx, TopicProductEvents, keyOf(created.ID), map[string]any{
		"type":      "product_created",
		"productID": created.ID,
		"name":      created.Name,
		"quantity":  created.Quantity,
	})

	return created, nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var gen int64
	if s.Cache != nil {
		p, g, err := s.Cache.Get(ctx, id)
		if err == nil {
			return p, nil
		}
		gen = g
	}

	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound(id)
		}
		return nil, err
	}

	if s.Cache != nil {
		// an order or update since the miss bumps the generation and drops this store
		if err := s.Cache.Set(ctx, prod, gen); err != nil {
			logging.FromContext(ctx).Warn("cache_store_failed", "product_id", id, "error", err)
		}
	}
	return prod, nil
}

// UpdateProduct replaces every mutable field of the product, quantity
// included.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, req transport.ProductRequest) (*models.Product, error) {
	prod, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.ReplaceProduct(ctx, id, prod)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, productNotFound(id)
		case repo.IsDuplicate(err):
			return nil, productExists(prod.Name)
		default:
			return nil, err
		}
	}

	fx := s.effects()
	fx.productChanged(ctx, updated)
	fx.publish(ctx, TopicProductEvents, keyOf(updated.ID), map[string]any{
		"type":      "product_updated",
		"productID": updated.ID,
		"name":      updated.Name,
		"quantity":  updated.Quantity,
	})

	return updated, nil
}

// DeleteProduct succeeds whether or not the product exists. Cache, index
// and event side effects only follow an actual removal.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	deleted, err := s.Repo.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	fx := s.effects()
	fx.productRemoved(ctx, id)
	fx.publish(ctx, TopicProductEvents, keyOf(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func (s *ProductService) SearchProducts(ctx context.Context, q string) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, newError(ErrValidation, "query parameter q is required")
	}

	if s.Index != nil {
		total, items, err := s.Index.Search(ctx, q)
		if err == nil {
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_query_failed", "query", q, "error", err)
	}

	items, err := s.Repo.SearchProducts(ctx, q)
	if err != nil {
		return 0, nil, err
	}
	return int64(len(items)), items, nil
}
