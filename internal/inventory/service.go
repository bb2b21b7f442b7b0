package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/outbox"
	"github.com/edures/resourcedesk-backend/pkg/outbox/payloads"
	"github.com/edures/resourcedesk-backend/pkg/pagination"
)

// Service exposes catalog management for admins and read paths for everyone.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error)
	Restock(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, itemID uuid.UUID, qty int) (*ItemDTO, error)
	BulkImport(ctx context.Context, rows []BulkImportRow) (*BulkImportResult, error)
}

// CreateItemInput holds the validated payload to create a catalog item.
type CreateItemInput struct {
	Name        string
	Description string
	Category    string
	Quantity    int
	Cost        decimal.Decimal
}

// UpdateItemInput holds optional mutation values for a catalog item.
// Quantity is deliberately absent: stock moves through Restock and the
// reservation ledger only.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Category    *string
	Cost        *decimal.Decimal
}

// BulkImportRow is one already-parsed catalog row. Spreadsheet parsing
// happens upstream; the service only applies rows.
type BulkImportRow struct {
	Name        string
	Description string
	Category    string
	Quantity    int
	Cost        decimal.Decimal
}

// BulkImportResult summarizes an applied import.
type BulkImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ListItemsInput narrows and paginates catalog listings.
type ListItemsInput struct {
	Category string
	Cursor   string
	Limit    int
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	emitter  *outbox.Service
	logg     *logger.Logger
}

// NewService constructs the inventory service.
func NewService(repo *Repository, dbClient *db.Client, emitter *outbox.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, emitter: emitter, logg: logg}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative")
	}

	item := &models.InventoryItem{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Quantity:    input.Quantity,
		Cost:        input.Cost,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating inventory item")
	}

	dto := toItemDTO(*item)
	return &dto, nil
}

func (s *service) UpdateItem(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be blank")
		}
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.Cost != nil {
		if input.Cost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative")
		}
		item.Cost = *input.Cost
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating inventory item")
	}
	dto := toItemDTO(*item)
	return &dto, nil
}

func (s *service) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if err := s.repo.Delete(ctx, itemID); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting inventory item")
	}
	return nil
}

func (s *service) GetItem(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}
	dto := toItemDTO(*item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	items, err := s.repo.List(ctx, ListFilter{
		Category: input.Category,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing inventory items")
	}

	result := &ItemListResult{Items: make([]ItemDTO, 0, len(items))}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	for _, item := range items {
		result.Items = append(result.Items, toItemDTO(item))
	}
	if hasMore {
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// BulkImport applies a batch of catalog rows in one transaction. Rows match
// existing items by name: matches get their stock topped up and their
// descriptive fields refreshed, the rest become new items. Any bad row
// aborts the whole import.
func (s *service) BulkImport(ctx context.Context, rows []BulkImportRow) (*BulkImportResult, error) {
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "import contains no rows")
	}
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required").
				WithDetails(map[string]any{"row": i})
		}
		if row.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
				WithDetails(map[string]any{"row": i})
		}
		if row.Cost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative").
				WithDetails(map[string]any{"row": i})
		}
	}

	result := &BulkImportResult{}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, row := range rows {
			name := strings.TrimSpace(row.Name)
			existing, err := txRepo.FindByName(ctx, name)
			if err != nil {
				if !db.IsNotFound(err) {
					return err
				}
				if err := txRepo.Create(ctx, &models.InventoryItem{
					Name:        name,
					Description: row.Description,
					Category:    row.Category,
					Quantity:    row.Quantity,
					Cost:        row.Cost,
				}); err != nil {
					return err
				}
				result.Created++
				continue
			}

			if row.Quantity > 0 {
				if err := txRepo.Release(ctx, existing.ID, row.Quantity); err != nil {
					return err
				}
			}
			updates := map[string]any{"cost": row.Cost}
			if row.Description != "" {
				updates["description"] = row.Description
			}
			if row.Category != "" {
				updates["category"] = row.Category
			}
			if err := txRepo.UpdateDetails(ctx, existing.ID, updates); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "importing inventory rows")
	}
	return result, nil
}

// Restock adds stock and records the replenishment as a domain event in the
// same transaction.
func (s *service) Restock(ctx context.Context, actorID uuid.UUID, actorRole enums.UserRole, itemID uuid.UUID, qty int) (*ItemDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	var updated models.InventoryItem
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Release(ctx, itemID, qty); err != nil {
			return err
		}
		item, err := txRepo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		updated = *item

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryRestocked,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   itemID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: actorRole.String()},
			Data: payloads.InventoryRestockedEvent{
				ItemID:        itemID,
				Name:          item.Name,
				QuantityAdded: qty,
				NewQuantity:   item.Quantity,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restocking inventory item")
	}

	dto := toItemDTO(updated)
	return &dto, nil
}
