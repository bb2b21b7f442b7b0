package reports

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "reports-test", Output: io.Discard})
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite"}, config.RotationConfig{
		Dir:            t.TempDir(),
		FileCount:      2,
		BaseName:       "reports_test",
		SizeLimitBytes: 1 << 30,
	}, logg)
	if err != nil {
		t.Fatalf("open db client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(NewRepository(client.DB()))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, client
}

func seedItem(t *testing.T, client *db.Client, name, category string, qty int, cost string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		Quantity: qty,
		Cost:     decimal.RequireFromString(cost),
	}
	if err := client.DB().Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func seedRequest(t *testing.T, client *db.Client, requesterID uuid.UUID, status enums.RequestStatus, lines []models.RequestLine) {
	t.Helper()
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Cost.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	request := models.ResourceRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		Status:      status,
		TotalCost:   total,
		Lines:       lines,
	}
	if err := client.DB().Create(&request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestOverviewAggregates(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	pencils := seedItem(t, client, "Pencils", "supplies", 5, "0.50")
	projector := seedItem(t, client, "Projector", "equipment", 50, "250.00")

	heavy := uuid.New()
	light := uuid.New()
	seedRequest(t, client, heavy, enums.RequestStatusApproved, []models.RequestLine{
		{ItemID: pencils.ID, Quantity: 10, Cost: decimal.RequireFromString("0.50")},
	})
	seedRequest(t, client, heavy, enums.RequestStatusDelivered, []models.RequestLine{
		{ItemID: projector.ID, Quantity: 1, Cost: decimal.RequireFromString("250.00")},
	})
	// rejected spend must not count
	seedRequest(t, client, light, enums.RequestStatusRejected, []models.RequestLine{
		{ItemID: projector.ID, Quantity: 2, Cost: decimal.RequireFromString("250.00")},
	})

	overview, err := svc.Overview(ctx, enums.UserRoleAdmin)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	counts := map[enums.RequestStatus]int64{}
	for _, row := range overview.StatusCounts {
		counts[row.Status] = row.Count
	}
	if counts[enums.RequestStatusApproved] != 1 || counts[enums.RequestStatusDelivered] != 1 || counts[enums.RequestStatusRejected] != 1 {
		t.Fatalf("unexpected status counts: %+v", overview.StatusCounts)
	}

	spend := map[string]float64{}
	for _, row := range overview.SpendByCategory {
		spend[row.Category] = row.Total
	}
	if !approxEqual(spend["supplies"], 5.0) {
		t.Fatalf("expected supplies spend 5.00, got %v", spend["supplies"])
	}
	if !approxEqual(spend["equipment"], 250.0) {
		t.Fatalf("expected equipment spend 250.00 (rejected excluded), got %v", spend["equipment"])
	}

	if len(overview.TopRequesters) == 0 || overview.TopRequesters[0].RequesterID != heavy {
		t.Fatalf("expected heavy requester first, got %+v", overview.TopRequesters)
	}
	if overview.TopRequesters[0].RequestCount != 2 {
		t.Fatalf("expected 2 requests for heavy requester, got %d", overview.TopRequesters[0].RequestCount)
	}

	if len(overview.LowStockItems) != 1 || overview.LowStockItems[0].Name != "Pencils" {
		t.Fatalf("expected pencils flagged as low stock, got %+v", overview.LowStockItems)
	}
}

func TestOverviewIsStaffOnly(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Overview(context.Background(), enums.UserRoleUser)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
