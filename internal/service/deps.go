package service

import (
	"context"
	"strconv"
	"time"

	"github.com/Skotchmaster/warehouse/internal/logging"
	"github.com/Skotchmaster/warehouse/internal/models"
)

const (
	TopicProductEvents = "product_events"
	TopicOrderEvents   = "order_events"

	tracerName     = "github.com/Skotchmaster/warehouse/internal/service"
	publishTimeout = 5 * time.Second
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, q string) (int64, []models.Product, error)
}

// ProductCache is a read-through product cache. Get reports a generation
// that Delete advances; Set with an outdated generation must not store.
type ProductCache interface {
	Get(ctx context.Context, id uint) (*models.Product, int64, error)
	Set(ctx context.Context, p *models.Product, gen int64) error
	Delete(ctx context.Context, id uint) error
}

// sideEffects fans product changes out to the optional event bus, search
// index and cache. Failures are logged and never reach the caller.
type sideEffects struct {
	events EventPublisher
	index  ProductIndex
	cache  ProductCache
}

func (s sideEffects) publish(ctx context.Context, topic, key string, event map[string]any) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.events.PublishEvent(pctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "type", event["type"], "error", err)
	}
}

func (s sideEffects) productChanged(ctx context.Context, p *models.Product) {
	l := logging.FromContext(ctx)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, p.ID); err != nil {
			l.Warn("cache_invalidate_failed", "product_id", p.ID, "error", err)
		}
	}
	if s.index != nil {
		if err := s.index.IndexProduct(ctx, p); err != nil {
			l.Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
}

func (s sideEffects) productRemoved(ctx context.Context, id uint) {
	l := logging.FromContext(ctx)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			l.Warn("cache_invalidate_failed", "product_id", id, "error", err)
		}
	}
	if s.index != nil {
		if err := s.index.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_unindex_failed", "product_id", id, "error", err)
		}
	}
}

func keyOf(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
