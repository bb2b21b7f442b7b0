package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/pkg/enums"
)

// ResourceRequest is the workflow aggregate created from a submitted cart.
// The header is immutable after creation except for status, notes and the
// derived total cost.
type ResourceRequest struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RequesterID uuid.UUID           `gorm:"column:requester_id;type:uuid;not null;index"`
	Status      enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	TotalCost   decimal.Decimal     `gorm:"column:total_cost;type:numeric(12,2);not null;default:0"`
	Notes       *string             `gorm:"column:notes;type:text"`
	AdminNotes  *string             `gorm:"column:admin_notes;type:text"`
	Lines       []RequestLine       `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RequestLine snapshots one cart line at submission time. Cost is the unit
// cost captured when stock was reserved, deliberately decoupled from later
// catalog price changes.
type RequestLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RequestID uuid.UUID       `gorm:"column:request_id;type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Cost      decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ResourceRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (l *RequestLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
