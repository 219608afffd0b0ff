package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrStockUnavailable means the conditional decrement matched no row: the
// product is gone or holds less than the requested quantity.
var ErrStockUnavailable = errors.New("stock unavailable")

type GormRepo struct {
	DB *gorm.DB
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
