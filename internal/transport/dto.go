package transport

import (
	"time"

	"github.com/Skotchmaster/warehouse/internal/models"
)

// ProductRequest is the body of product create and full-replace update.
// Pointers tell a missing field apart from a zero value.
type ProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
}

type CreateOrderRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateStatusRequest struct {
	StatusID int `json:"status_id"`
}

type OrderItemResponse struct {
	ID        uint `json:"id"`
	OrderID   uint `json:"order_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type OrderDetails struct {
	ID        uint            `json:"id"`
	Quantity  int             `json:"quantity"`
	Status    *string         `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Product   *models.Product `json:"product"`
}

type SearchResponse struct {
	Total    int64            `json:"total"`
	Products []models.Product `json:"products"`
}

func NewOrderItemResponse(item *models.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:        item.ID,
		OrderID:   item.OrderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
}

func NewOrderDetails(item *models.OrderItem) OrderDetails {
	d := OrderDetails{
		ID:       item.ID,
		Quantity: item.Quantity,
		Status:   item.StatusDescription(),
		Product:  item.Product,
	}
	if item.Order != nil {
		d.CreatedAt = item.Order.CreatedAt
	}
	return d
}

func NewOrderDetailsList(items []models.OrderItem) []OrderDetails {
	out := make([]OrderDetails, 0, len(items))
	for i := range items {
		out = append(out, NewOrderDetails(&items[i]))
	}
	return out
}
