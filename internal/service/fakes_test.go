package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/warehouse/internal/db/dbtest"
	"github.com/Skotchmaster/warehouse/internal/models"
	"github.com/Skotchmaster/warehouse/internal/repo"
	"github.com/Skotchmaster/warehouse/internal/transport"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	m, _ := event.(map[string]any)
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (p *recordingPublisher) ofType(typ string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

type memIndex struct {
	mu       sync.Mutex
	docs     map[uint]models.Product
	failNext bool
}

func newMemIndex() *memIndex {
	return &memIndex{docs: map[uint]models.Product{}}
}

func (m *memIndex) IndexProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[p.ID] = *p
	return nil
}

func (m *memIndex) DeleteProduct(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memIndex) Search(_ context.Context, q string) (int64, []models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return 0, nil, errors.New("index unavailable")
	}
	var out []models.Product
	for _, p := range m.docs {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return int64(len(out)), out, nil
}

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu    sync.Mutex
	items map[uint]models.Product
	gens  map[uint]int64
	hits  int

	// beforeSet runs once, ahead of the next Set.
	beforeSet func()
}

func newMemCache() *memCache {
	return &memCache{items: map[uint]models.Product{}, gens: map[uint]int64{}}
}

func (c *memCache) Get(_ context.Context, id uint) (*models.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, c.gens[id], errCacheMiss
	}
	c.hits++
	return &p, c.gens[id], nil
}

func (c *memCache) Set(_ context.Context, p *models.Product, gen int64) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[p.ID] != gen {
		return nil
	}
	c.items[p.ID] = *p
	return nil
}

func (c *memCache) Delete(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.gens[id]++
	return nil
}

func (c *memCache) has(id uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

type testEnv struct {
	Repo     *repo.GormRepo
	Products *ProductService
	Orders   *OrderService
	Statuses *StatusCatalog
	Events   *recordingPublisher
	Index    *memIndex
	Cache    *memCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := &repo.GormRepo{DB: dbtest.New(t)}
	env := &testEnv{
		Repo:   r,
		Events: &recordingPublisher{},
		Index:  newMemIndex(),
		Cache:  newMemCache(),
	}
	env.Products = &ProductService{Repo: r, Events: env.Events, Index: env.Index, Cache: env.Cache}
	env.Orders = &OrderService{Repo: r, Events: env.Events, Index: env.Index, Cache: env.Cache}
	env.Statuses = &StatusCatalog{Repo: r}

	require.NoError(t, env.Statuses.EnsureSeeded(context.Background()))
	return env
}

func productReq(name, description string, price float64, quantity int) transport.ProductRequest {
	return transport.ProductRequest{
		Name:        &name,
		Description: &description,
		Price:       &price,
		Quantity:    &quantity,
	}
}

func (e *testEnv) mustProduct(t *testing.T, name string, quantity int) *models.Product {
	t.Helper()
	p, err := e.Products.CreateProduct(context.Background(), productReq(name, name+" description", 999.99, quantity))
	require.NoError(t, err)
	return p
}
