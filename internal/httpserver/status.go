package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/warehouse/internal/logging"
	"github.com/Skotchmaster/warehouse/internal/service"
)

type StatusHTTP struct {
	Svc *service.StatusCatalog
}

func (h *StatusHTTP) ListStatuses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "status.list")

	statuses, err := h.Svc.List(ctx)
	if err != nil {
		return serviceError(l, "list_statuses_failed", err)
	}

	return c.JSON(http.StatusOK, statuses)
}
