package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	"github.com/edures/resourcedesk-backend/pkg/pagination"
)

// Repository owns persistence for resource requests and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the request header and its lines in one go.
func (r *Repository) Create(ctx context.Context, request *models.ResourceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindByID loads a request with its lines.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ResourceRequest, error) {
	var request models.ResourceRequest
	err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Save persists header fields (status, notes, total).
func (r *Repository) Save(ctx context.Context, request *models.ResourceRequest) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(request).Error
}

// SaveLine persists one line.
func (r *Repository) SaveLine(ctx context.Context, line *models.RequestLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// ListFilter narrows request listings.
type ListFilter struct {
	RequesterID *uuid.UUID
	Status      *enums.RequestStatus
	Cursor      *pagination.Cursor
	Limit       int
}

// List returns requests newest first with cursor pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ResourceRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.ResourceRequest{}).Preload("Lines")
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	var requests []models.ResourceRequest
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&requests).Error
	return requests, err
}

// CountByStatus returns request counts grouped by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.RequestStatus]int64, error) {
	type row struct {
		Status enums.RequestStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.ResourceRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DeleteTerminalOlderThan removes rejected/delivered requests whose last
// update predates the cutoff. Lines go with them via the cascade.
func (r *Repository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	terminal := []enums.RequestStatus{
		enums.RequestStatusRejected,
		enums.RequestStatusDelivered,
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ResourceRequest{}).
		Where("status IN ? AND updated_at < ?", terminal, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// sqlite does not enforce the cascade through gorm's soft path, so the
	// lines are cleared explicitly before the headers.
	if err := r.db.WithContext(ctx).Where("request_id IN ?", ids).Delete(&models.RequestLine{}).Error; err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ResourceRequest{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
