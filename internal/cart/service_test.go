package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKV) CartKey(userID string) string {
	return "rd:cart:" + userID
}

type fakeItems struct {
	items map[uuid.UUID]models.InventoryItem
}

func (f *fakeItems) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	out := map[uuid.UUID]models.InventoryItem{}
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func newTestService(t *testing.T, items ...models.InventoryItem) (Service, *fakeItems) {
	t.Helper()
	catalog := &fakeItems{items: map[uuid.UUID]models.InventoryItem{}}
	for _, item := range items {
		catalog.items[item.ID] = item
	}
	store, err := NewStore(newFakeKV(), time.Hour)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	svc, err := NewService(store, catalog)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, catalog
}

func catalogItem(name string, qty int, cost string) models.InventoryItem {
	return models.InventoryItem{
		ID:       uuid.New(),
		Name:     name,
		Quantity: qty,
		Cost:     decimal.RequireFromString(cost),
	}
}

func TestAddItemAccumulatesAndTotals(t *testing.T) {
	pencils := catalogItem("Pencils", 100, "0.50")
	svc, _ := newTestService(t, pencils)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, pencils.ID, 4); err != nil {
		t.Fatalf("add: %v", err)
	}
	dto, err := svc.AddItem(ctx, userID, pencils.ID, 6)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}

	if len(dto.Lines) != 1 || dto.Lines[0].Quantity != 10 {
		t.Fatalf("expected single line of 10, got %+v", dto.Lines)
	}
	if !dto.EstimatedTotal.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected total 5.00, got %s", dto.EstimatedTotal)
	}
}

func TestAddUnknownItemRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeItemUnavailable {
		t.Fatalf("expected item unavailable, got %v", err)
	}
}

func TestAddBeyondStockRejected(t *testing.T) {
	glue := catalogItem("Glue", 2, "1.25")
	svc, _ := newTestService(t, glue)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.AddItem(ctx, userID, glue.ID, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeItemUnavailable {
		t.Fatalf("expected item unavailable, got %v", err)
	}

	// Accumulating past the remaining stock is rejected the same way.
	if _, err := svc.AddItem(ctx, userID, glue.ID, 2); err != nil {
		t.Fatalf("add within stock: %v", err)
	}
	_, err = svc.AddItem(ctx, userID, glue.ID, 1)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeItemUnavailable {
		t.Fatalf("expected item unavailable on accumulated add, got %v", err)
	}
}

func TestAddPastLineCapRejected(t *testing.T) {
	chalk := catalogItem("Chalk", 5000, "0.10")
	svc, _ := newTestService(t, chalk)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, chalk.ID, 600); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.AddItem(ctx, userID, chalk.ID, 600)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error past the line cap, got %v", err)
	}
}

func TestStockShortFlaggedWhenStockDropsAfterAdd(t *testing.T) {
	glue := catalogItem("Glue", 5, "1.25")
	svc, catalog := newTestService(t, glue)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, glue.ID, 4); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Stock moved between the add and the read; the line is flagged, not
	// silently changed.
	item := catalog.items[glue.ID]
	item.Quantity = 1
	catalog.items[glue.ID] = item

	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !dto.Lines[0].StockShort {
		t.Fatal("expected stock short advisory")
	}
	if dto.Lines[0].Available != 1 {
		t.Fatalf("expected available 1, got %d", dto.Lines[0].Available)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	paper := catalogItem("Paper", 50, "3.00")
	svc, _ := newTestService(t, paper)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, paper.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	dto, err := svc.SetItemQuantity(ctx, userID, paper.ID, 7)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if dto.Lines[0].Quantity != 7 {
		t.Fatalf("expected 7, got %d", dto.Lines[0].Quantity)
	}

	// zero removes the line
	dto, err = svc.SetItemQuantity(ctx, userID, paper.ID, 0)
	if err != nil {
		t.Fatalf("set zero: %v", err)
	}
	if len(dto.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", dto.Lines)
	}

	_, err = svc.RemoveItem(ctx, userID, paper.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found removing absent line, got %v", err)
	}
}

func TestClearDropsCart(t *testing.T) {
	crayons := catalogItem("Crayons", 30, "2.00")
	svc, _ := newTestService(t, crayons)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, crayons.ID, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Clear(ctx, userID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(dto.Lines) != 0 {
		t.Fatalf("expected empty cart after clear, got %+v", dto.Lines)
	}
}

func TestVanishedItemFlaggedInEnrichment(t *testing.T) {
	markers := catalogItem("Markers", 10, "4.00")
	svc, catalog := newTestService(t, markers)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userID, markers.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	delete(catalog.items, markers.ID)

	dto, err := svc.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(dto.Lines) != 1 || !dto.Lines[0].StockShort {
		t.Fatalf("expected vanished item flagged, got %+v", dto.Lines)
	}
}
