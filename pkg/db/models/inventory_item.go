package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryItem is a catalog entry. Quantity reflects stock available for
// new reservations; all mutations go through the ledger's reserve/release.
type InventoryItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;type:text;not null;index"`
	Description string          `gorm:"column:description;type:text"`
	Category    string          `gorm:"column:category;type:text;index"`
	Quantity    int             `gorm:"column:quantity;not null;default:0"`
	Cost        decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
