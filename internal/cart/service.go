package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

const maxLineQuantity = 1000

type itemLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error)
}

// Service exposes cart operations. Carts never touch the stock ledger;
// adds are checked against the current stock snapshot, but only submission
// actually reserves anything.
type Service interface {
	AddItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error)
	SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error

	// Snapshot returns the raw lines for submission and is the only reader
	// that skips enrichment.
	Snapshot(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

type service struct {
	store *Store
	items itemLoader
}

// NewService builds the cart service.
func NewService(store *Store, items itemLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if items == nil {
		return nil, fmt.Errorf("item loader required")
	}
	return &service{store: store, items: items}, nil
}

func (s *service) AddItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error) {
	if err := validateQty(qty); err != nil {
		return nil, err
	}

	known, err := s.items.FindByIDs(ctx, []uuid.UUID{itemID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading catalog item")
	}
	item, ok := known[itemID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is not in the catalog")
	}

	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	line := cart.Line(itemID)
	newQty := qty
	if line != nil {
		newQty = line.Quantity + qty
	}
	if newQty > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	// Advisory stock check; submission re-validates against the ledger.
	if item.Quantity < newQty {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "not enough stock for "+item.Name).
			WithDetails(map[string]any{
				"itemId":    itemID.String(),
				"requested": newQty,
				"available": item.Quantity,
			})
	}

	if line != nil {
		line.Quantity = newQty
	} else {
		cart.Lines = append(cart.Lines, CartLine{ItemID: itemID, Quantity: qty})
	}

	if err := s.store.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return s.enrich(ctx, cart)
}

func (s *service) SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error) {
	if qty < 0 || qty > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	line := cart.Line(itemID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
	}
	line.Quantity = qty

	if err := s.store.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return s.enrich(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	kept := cart.Lines[:0]
	removed := false
	for _, line := range cart.Lines {
		if line.ItemID == itemID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
	}
	cart.Lines = kept

	if err := s.store.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return s.enrich(ctx, cart)
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return s.enrich(ctx, cart)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return cart, nil
}

// enrich joins the raw lines against the current catalog. Lines whose item
// vanished from the catalog are kept with StockShort set so the client can
// prompt the user to drop them.
func (s *service) enrich(ctx context.Context, cart *Cart) (*CartDTO, error) {
	dto := &CartDTO{
		UserID:         cart.UserID,
		Lines:          make([]CartLineDTO, 0, len(cart.Lines)),
		EstimatedTotal: decimal.Zero,
		UpdatedAt:      cart.UpdatedAt,
	}
	if len(cart.Lines) == 0 {
		return dto, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ItemID)
	}
	known, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading catalog items")
	}

	for _, line := range cart.Lines {
		item, ok := known[line.ItemID]
		if !ok {
			dto.Lines = append(dto.Lines, CartLineDTO{
				ItemID:     line.ItemID,
				Name:       "(no longer available)",
				Quantity:   line.Quantity,
				UnitCost:   decimal.Zero,
				LineTotal:  decimal.Zero,
				StockShort: true,
			})
			continue
		}
		lineTotal := item.Cost.Mul(decimal.NewFromInt(int64(line.Quantity)))
		dto.Lines = append(dto.Lines, CartLineDTO{
			ItemID:     line.ItemID,
			Name:       item.Name,
			Quantity:   line.Quantity,
			UnitCost:   item.Cost,
			LineTotal:  lineTotal,
			Available:  item.Quantity,
			StockShort: line.Quantity > item.Quantity,
		})
		dto.EstimatedTotal = dto.EstimatedTotal.Add(lineTotal)
	}
	return dto, nil
}

func validateQty(qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if qty > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	return nil
}
