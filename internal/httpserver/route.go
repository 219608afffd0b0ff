package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Skotchmaster/warehouse/internal/logging"
	loggingmw "github.com/Skotchmaster/warehouse/internal/middleware/logging"
)

const readyTimeout = 2 * time.Second

type Deps struct {
	Products *ProductHTTP
	Orders   *OrderHTTP
	Statuses *StatusHTTP
	// Ready reports whether the record store is reachable. Nil means always
	// ready.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the middleware chain and all routes.
func New(serviceName string, logger *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(serviceName)))
	e.Use(loggingmw.RequestLogger(logger))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	api := e.Group("/api")

	products := api.Group("/products")
	products.GET("/search", d.Products.SearchProducts)
	products.GET("", d.Products.ListProducts)
	products.POST("", d.Products.CreateProduct)
	products.GET("/:id", d.Products.GetProduct)
	products.PUT("/:id", d.Products.UpdateProduct)
	products.DELETE("/:id", d.Products.DeleteProduct)

	orders := api.Group("/orders")
	orders.GET("", d.Orders.ListOrders)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.PATCH("/:id", d.Orders.UpdateStatus)

	api.GET("/statuses", d.Statuses.ListStatuses)
}

func (d *Deps) ready(c echo.Context) error {
	if d.Ready == nil {
		return c.NoContent(http.StatusOK)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()
	if err := d.Ready(ctx); err != nil {
		logging.FromContext(ctx).Warn("readiness_check_failed", "status", 503, "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
