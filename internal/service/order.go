package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/Skotchmaster/warehouse/internal/models"
	"github.com/Skotchmaster/warehouse/internal/repo"
	"github.com/Skotchmaster/warehouse/internal/transport"
)

// OrderService places orders against product stock and moves them through
// the status catalog.
type OrderService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndex
	Cache  ProductCache
}

func (s *OrderService) effects() sideEffects {
	return sideEffects{events: s.Events, index: s.Index, cache: s.Cache}
}

func orderNotFound(id uint) error {
	return newError(ErrNotFound, "order with id %d does not exist", id)
}

func insufficientStock(name string, requested int) error {
	return newError(ErrConflict, "stock of product %q is less than requested %d", name, requested)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *OrderService) product(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound(id)
		}
		return nil, err
	}
	return p, nil
}

// CreateOrder takes quantity units of the product out of stock and opens an
// order for them in status "in-progress".
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest) (*models.OrderItem, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "order.create", trace.WithAttributes(
		attribute.Int64("product.id", req.ProductID),
		attribute.Int("order.quantity", req.Quantity),
	))
	defer span.End()

	switch {
	case req.ProductID <= 0:
		return nil, fail(span, newError(ErrValidation, "product_id must be a positive integer"))
	case req.Quantity <= 0:
		return nil, fail(span, newError(ErrValidation, "quantity must be greater than 0"))
	}
	productID := uint(req.ProductID)

	prod, err := s.product(ctx, productID)
	if err != nil {
		return nil, fail(span, err)
	}
	if prod.Quantity < req.Quantity {
		return nil, fail(span, insufficientStock(prod.Name, req.Quantity))
	}

	item, err := s.Repo.CreateOrder(ctx, productID, req.Quantity)
	if errors.Is(err, repo.ErrStockUnavailable) {
		// lost a race: the product was deleted or drained in between
		current, lerr := s.product(ctx, productID)
		if lerr != nil {
			return nil, fail(span, lerr)
		}
		return nil, fail(span, insufficientStock(current.Name, req.Quantity))
	}
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("order.id", int64(item.OrderID)))

	fx := s.effects()
	if item.Product != nil {
		fx.productChanged(ctx, item.Product)
	} else {
		fx.productRemoved(ctx, productID)
	}
	fx.publish(ctx, TopicOrderEvents, keyOf(item.OrderID), map[string]any{
		"type":        "order_created",
		"orderID":     item.OrderID,
		"orderItemID": item.ID,
		"productID":   item.ProductID,
		"quantity":    item.Quantity,
	})

	return item, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.OrderItem, error) {
	return s.Repo.ListOrderItems(ctx)
}

// GetOrder looks an order up by the id of its order item.
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.OrderItem, error) {
	item, err := s.Repo.GetOrderItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, err
	}
	return item, nil
}

func knownStatus(id int) bool {
	for _, st := range models.DefaultStatuses {
		if int(st.ID) == id {
			return true
		}
	}
	return false
}

// UpdateStatus moves the order to any catalog status, including the one it
// already has.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, req transport.UpdateStatusRequest) (*models.OrderItem, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "order.update_status", trace.WithAttributes(
		attribute.Int64("order_item.id", int64(id)),
		attribute.Int("status.id", req.StatusID),
	))
	defer span.End()

	if !knownStatus(req.StatusID) {
		return nil, fail(span, newError(ErrValidation, "status_id must be between 1 and %d", len(models.DefaultStatuses)))
	}

	item, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, item.OrderID, uint(req.StatusID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(span, orderNotFound(id))
		}
		return nil, fail(span, err)
	}

	updated, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	s.effects().publish(ctx, TopicOrderEvents, keyOf(updated.OrderID), map[string]any{
		"type":        "order_status_updated",
		"orderID":     updated.OrderID,
		"orderItemID": updated.ID,
		"statusID":    req.StatusID,
	})

	return updated, nil
}
