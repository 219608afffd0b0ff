package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/warehouse/internal/models"
)

// CreateOrder reserves quantity units of the product and records the order
// and its item in one transaction. The decrement only applies while enough
// stock is left, so concurrent callers can never drive it below zero. The
// returned item has its product and order status loaded.
func (r *GormRepo) CreateOrder(ctx context.Context, productID uint, quantity int) (*models.OrderItem, error) {
	var item models.OrderItem

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", productID, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStockUnavailable
		}

		status := models.StatusInProgress
		order := models.Order{StatusID: &status}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}

		item = models.OrderItem{
			ProductID: productID,
			OrderID:   order.ID,
			Quantity:  quantity,
		}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return err
		}

		return tx.Preload("Product").Preload("Order.Status").First(&item, item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) withDetails(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("Product").Preload("Order.Status")
}

func (r *GormRepo) GetOrderItem(ctx context.Context, id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.withDetails(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) ListOrderItems(ctx context.Context) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0)
	if err := r.withDetails(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateOrderStatus rewrites the status of order orderID through an upsert
// on the order row.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, orderID uint, statusID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			return err
		}
		order.StatusID = &statusID

		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"status_id"}),
			}).
			Create(&order).Error
	})
}
