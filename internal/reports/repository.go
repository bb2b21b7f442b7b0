package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the reporting endpoints. All
// SQL here is portable across postgres and sqlite.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// StatusCount is one row of the request status breakdown.
type StatusCount struct {
	Status enums.RequestStatus `json:"status"`
	Count  int64               `json:"count"`
}

// CategorySpend aggregates committed spend per catalog category. Only
// approved and delivered requests count; rejected ones returned their stock
// and their cost with it.
type CategorySpend struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// RequesterStat summarizes one user's request activity.
type RequesterStat struct {
	RequesterID  uuid.UUID `json:"requesterId"`
	RequestCount int64     `json:"requestCount"`
	TotalSpend   float64   `json:"totalSpend"`
}

// CountByStatus returns request counts grouped by status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.ResourceRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

// SpendByCategory sums line cost per item category across committed
// requests.
func (r *Repository) SpendByCategory(ctx context.Context) ([]CategorySpend, error) {
	var rows []CategorySpend
	err := r.db.WithContext(ctx).Raw(`
		SELECT inventory_items.category AS category,
		       SUM(request_lines.cost * request_lines.quantity) AS total
		FROM request_lines
		JOIN resource_requests ON resource_requests.id = request_lines.request_id
		JOIN inventory_items ON inventory_items.id = request_lines.item_id
		WHERE resource_requests.status IN (?, ?)
		GROUP BY inventory_items.category
		ORDER BY total DESC`,
		enums.RequestStatusApproved, enums.RequestStatusDelivered,
	).Scan(&rows).Error
	return rows, err
}

// TopRequesters returns the heaviest requesters by submission count.
func (r *Repository) TopRequesters(ctx context.Context, limit int) ([]RequesterStat, error) {
	var rows []RequesterStat
	err := r.db.WithContext(ctx).Raw(`
		SELECT requester_id,
		       COUNT(*) AS request_count,
		       SUM(total_cost) AS total_spend
		FROM resource_requests
		GROUP BY requester_id
		ORDER BY request_count DESC, total_spend DESC
		LIMIT ?`, limit,
	).Scan(&rows).Error
	return rows, err
}

// LowStockItems lists catalog items at or below the threshold.
func (r *Repository) LowStockItems(ctx context.Context, threshold int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Order("name ASC").
		Find(&items).Error
	return items, err
}
