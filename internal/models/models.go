package models

import (
	"time"
)

const (
	StatusInProgress uint = 1
	StatusShipped    uint = 2
	StatusDelivered  uint = 3
)

// DefaultStatuses is the fixed status catalog seeded on startup.
var DefaultStatuses = []Status{
	{ID: StatusInProgress, Description: "in-progress"},
	{ID: StatusShipped, Description: "shipped"},
	{ID: StatusDelivered, Description: "delivered"},
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Name        string  `gorm:"size:100;uniqueIndex;not null"             json:"name"`
	Description string  `gorm:"size:500;not null;default:''"             json:"description"`
	Price       float64 `gorm:"not null;default:0;check:price >= 0"       json:"price"`
	Quantity    int     `gorm:"not null;default:0;check:quantity >= 0"    json:"quantity"`
}

type Status struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Description string `gorm:"uniqueIndex;not null"           json:"description"`
}

func (Status) TableName() string {
	return "statuses"
}

type Order struct {
	ID        uint      `gorm:"primaryKey"                                    json:"id"`
	CreatedAt time.Time `gorm:"not null"                                      json:"created_at"`
	StatusID  *uint     `gorm:"default:1"                                     json:"status_id"`
	Status    *Status   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"status,omitempty"`
}

// OrderItem is the single line of an order: Quantity units of Product.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey"                                   json:"id"`
	ProductID uint     `gorm:"index;not null"                               json:"product_id"`
	Product   *Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
	OrderID   uint     `gorm:"index;not null"                               json:"order_id"`
	Order     *Order   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"order,omitempty"`
	Quantity  int      `gorm:"not null;check:quantity > 0"                  json:"quantity"`
}

// StatusDescription returns the description of the item's order status, or
// nil when the order has no status.
func (i *OrderItem) StatusDescription() *string {
	if i.Order == nil || i.Order.Status == nil {
		return nil
	}
	d := i.Order.Status.Description
	return &d
}
