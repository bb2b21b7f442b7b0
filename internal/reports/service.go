package reports

import (
	"context"
	"fmt"

	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

const (
	topRequesterLimit = 5
	lowStockThreshold = 10
)

// LowStockItemDTO is one understocked catalog entry.
type LowStockItemDTO struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// OverviewDTO is the admin dashboard snapshot.
type OverviewDTO struct {
	StatusCounts    []StatusCount     `json:"statusCounts"`
	SpendByCategory []CategorySpend   `json:"spendByCategory"`
	TopRequesters   []RequesterStat   `json:"topRequesters"`
	LowStockItems   []LowStockItemDTO `json:"lowStockItems"`
}

// Service exposes reporting aggregates to staff.
type Service interface {
	Overview(ctx context.Context, actorRole enums.UserRole) (*OverviewDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs the report service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Overview(ctx context.Context, actorRole enums.UserRole) (*OverviewDTO, error) {
	if !actorRole.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reports are staff only")
	}

	statusCounts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting requests")
	}
	spend, err := s.repo.SpendByCategory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating spend")
	}
	requesters, err := s.repo.TopRequesters(ctx, topRequesterLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ranking requesters")
	}
	lowStock, err := s.repo.LowStockItems(ctx, lowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding low stock")
	}

	overview := &OverviewDTO{
		StatusCounts:    statusCounts,
		SpendByCategory: spend,
		TopRequesters:   requesters,
		LowStockItems:   make([]LowStockItemDTO, 0, len(lowStock)),
	}
	for _, item := range lowStock {
		overview.LowStockItems = append(overview.LowStockItems, LowStockItemDTO{
			ItemID:   item.ID.String(),
			Name:     item.Name,
			Category: item.Category,
			Quantity: item.Quantity,
		})
	}
	return overview, nil
}
