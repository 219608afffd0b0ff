package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/Skotchmaster/warehouse/internal/models"
	"github.com/Skotchmaster/warehouse/internal/transport"
)

func TestOrderService_CreateOrder_DecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	laptop := env.mustProduct(t, "Laptop", 100)

	_, err := env.Products.GetProduct(ctx, laptop.ID)
	require.NoError(t, err)
	require.True(t, env.Cache.has(laptop.ID))

	item, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(laptop.ID), Quantity: 5})
	require.NoError(t, err)
	require.NotZero(t, item.ID)
	require.NotZero(t, item.OrderID)
	assert.Equal(t, laptop.ID, item.ProductID)
	assert.Equal(t, 5, item.Quantity)
	require.NotNil(t, item.Product)
	assert.Equal(t, 95, item.Product.Quantity)
	require.NotNil(t, item.StatusDescription())
	assert.Equal(t, "in-progress", *item.StatusDescription())

	assert.False(t, env.Cache.has(laptop.ID), "order must invalidate the cached product")
	indexed, _, err := env.Index.Search(ctx, "laptop")
	require.NoError(t, err)
	assert.EqualValues(t, 1, indexed)
	assert.Equal(t, 95, env.Index.docs[laptop.ID].Quantity)
	got, err := env.Products.GetProduct(ctx, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, got.Quantity)

	detailed, err := env.Orders.GetOrder(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, detailed.StatusDescription())
	assert.Equal(t, "in-progress", *detailed.StatusDescription())

	created := env.Events.ofType("order_created")
	require.Len(t, created, 1)
	assert.Equal(t, TopicOrderEvents, created[0].Topic)
	assert.EqualValues(t, item.OrderID, created[0].Event["orderID"])
	assert.EqualValues(t, 5, created[0].Event["quantity"])
}

func TestOrderService_CreateOrder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	printer := env.mustProduct(t, "Printer", 3)

	tests := []struct {
		name string
		req  transport.CreateOrderRequest
		kind error
	}{
		{name: "zero quantity", req: transport.CreateOrderRequest{ProductID: int64(printer.ID), Quantity: 0}, kind: ErrValidation},
		{name: "negative quantity", req: transport.CreateOrderRequest{ProductID: int64(printer.ID), Quantity: -2}, kind: ErrValidation},
		{name: "zero product id", req: transport.CreateOrderRequest{ProductID: 0, Quantity: 1}, kind: ErrValidation},
		{name: "unknown product", req: transport.CreateOrderRequest{ProductID: 999, Quantity: 1}, kind: ErrNotFound},
		{name: "insufficient stock", req: transport.CreateOrderRequest{ProductID: int64(printer.ID), Quantity: 5}, kind: ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Orders.CreateOrder(ctx, tt.req)
			require.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(printer.ID), Quantity: 5})
	assert.Contains(t, err.Error(), `"Printer"`)
	assert.Contains(t, err.Error(), "5")

	got, err := env.Products.GetProduct(ctx, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity, "rejected orders leave stock alone")

	orders, err := env.Orders.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, env.Events.ofType("order_created"))
}

func TestOrderService_CreateOrder_ExactStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.mustProduct(t, "Monitor", 2)

	_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 2})
	require.NoError(t, err)

	_, err = env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 1})
	require.ErrorIs(t, err, ErrConflict)

	got, err := env.Products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Quantity)
}

func TestOrderService_CreateOrder_ConcurrentNeverOversells(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.mustProduct(t, "Console", 10)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, buyers-10, conflicts)

	got, err := env.Products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Quantity)

	orders, err := env.Orders.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 10)
}

// changeAfterStockRead runs stmt once, right after the first products query
// completes, so it lands between the stock check and the decrement.
func changeAfterStockRead(t *testing.T, env *testEnv, stmt string, args ...any) {
	t.Helper()
	gdb := env.Repo.DB
	var once sync.Once
	err := gdb.Callback().Query().After("gorm:query").Register("test:change_after_stock_read", func(db *gorm.DB) {
		if db.Statement.Table != "products" {
			return
		}
		once.Do(func() {
			require.NoError(t, gdb.Exec(stmt, args...).Error)
		})
	})
	require.NoError(t, err)
}

func TestOrderService_CreateOrder_StockChangedAfterCheck(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		kind error
	}{
		{name: "product deleted", stmt: "DELETE FROM products WHERE id = ?", kind: ErrNotFound},
		{name: "stock drained", stmt: "UPDATE products SET quantity = 0 WHERE id = ?", kind: ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			p := env.mustProduct(t, "Router", 10)
			changeAfterStockRead(t, env, tt.stmt, p.ID)

			_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 3})
			require.ErrorIs(t, err, tt.kind)

			var orders int64
			require.NoError(t, env.Repo.DB.Model(&models.Order{}).Count(&orders).Error)
			assert.Zero(t, orders)
			var items int64
			require.NoError(t, env.Repo.DB.Model(&models.OrderItem{}).Count(&items).Error)
			assert.Zero(t, items)
			assert.Empty(t, env.Events.ofType("order_created"))
		})
	}
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Orders.GetOrder(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "order with id 42 does not exist", err.Error())
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.mustProduct(t, "Laptop", 100)

	item, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 5})
	require.NoError(t, err)

	updated, err := env.Orders.UpdateStatus(ctx, item.ID, transport.UpdateStatusRequest{StatusID: int(models.StatusShipped)})
	require.NoError(t, err)
	require.NotNil(t, updated.StatusDescription())
	assert.Equal(t, "shipped", *updated.StatusDescription())

	// any transition is accepted, including backwards and to the same status
	for _, st := range []uint{models.StatusInProgress, models.StatusInProgress, models.StatusDelivered} {
		updated, err = env.Orders.UpdateStatus(ctx, item.ID, transport.UpdateStatusRequest{StatusID: int(st)})
		require.NoError(t, err)
		assert.Equal(t, st, *updated.Order.StatusID)
	}

	_, err = env.Orders.UpdateStatus(ctx, item.ID, transport.UpdateStatusRequest{StatusID: 5})
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.Orders.UpdateStatus(ctx, item.ID, transport.UpdateStatusRequest{StatusID: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Orders.UpdateStatus(ctx, 999, transport.UpdateStatusRequest{StatusID: 2})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := env.Orders.GetOrder(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", *got.StatusDescription())

	require.Len(t, env.Events.ofType("order_status_updated"), 4)
}

func TestOrderService_ListOrders_AfterProductDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	laptop := env.mustProduct(t, "Laptop", 100)
	phone := env.mustProduct(t, "Phone", 200)

	_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(laptop.ID), Quantity: 5})
	require.NoError(t, err)
	_, err = env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(phone.ID), Quantity: 10})
	require.NoError(t, err)

	require.NoError(t, env.Products.DeleteProduct(ctx, laptop.ID))

	orders, err := env.Orders.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Phone", orders[0].Product.Name)
	assert.Equal(t, 190, orders[0].Product.Quantity)
}

func TestOrderService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	env := newTestEnv(t)
	ctx := context.Background()
	p := env.mustProduct(t, "Camera", 1)

	_, err := env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 1})
	require.NoError(t, err)
	_, err = env.Orders.CreateOrder(ctx, transport.CreateOrderRequest{ProductID: int64(p.ID), Quantity: 1})
	require.ErrorIs(t, err, ErrConflict)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "order.create", s.Name())
	}
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
