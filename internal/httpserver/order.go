package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/warehouse/internal/logging"
	"github.com/Skotchmaster/warehouse/internal/service"
	"github.com/Skotchmaster/warehouse/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.CreateOrder(ctx, req)
	if err != nil {
		return serviceError(l, "create_order_failed", err)
	}

	l.Info("create_order_success", "order_id", item.OrderID, "product_id", item.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, transport.NewOrderItemResponse(item))
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	items, err := h.Svc.ListOrders(ctx)
	if err != nil {
		return serviceError(l, "list_orders_failed", err)
	}

	return c.JSON(http.StatusOK, transport.NewOrderDetailsList(items))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_order_failed", "status", 400, "reason", "id is not a positive integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a positive integer")
	}

	item, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return serviceError(l, "get_order_failed", err)
	}

	return c.JSON(http.StatusOK, transport.NewOrderDetails(item))
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_order_status_failed", "status", 400, "reason", "id is not a positive integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a positive integer")
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_order_status_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.UpdateStatus(ctx, id, req)
	if err != nil {
		return serviceError(l, "update_order_status_failed", err)
	}

	l.Info("update_order_status_success", "order_item_id", id, "status_id", req.StatusID)
	return c.JSON(http.StatusOK, transport.NewOrderDetails(item))
}
