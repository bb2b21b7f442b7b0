package requests

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/internal/cart"
	"github.com/edures/resourcedesk-backend/internal/inventory"
	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/outbox"
)

type fakeCarts struct {
	lines   map[uuid.UUID][]cart.CartLine
	cleared map[uuid.UUID]int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{
		lines:   map[uuid.UUID][]cart.CartLine{},
		cleared: map[uuid.UUID]int{},
	}
}

func (f *fakeCarts) Snapshot(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID, Lines: f.lines[userID]}, nil
}

func (f *fakeCarts) Clear(_ context.Context, userID uuid.UUID) error {
	delete(f.lines, userID)
	f.cleared[userID]++
	return nil
}

type fixture struct {
	svc    Service
	carts  *fakeCarts
	inv    *inventory.Repository
	client *db.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "requests-test", Output: io.Discard})
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite"}, config.RotationConfig{
		Dir:            t.TempDir(),
		FileCount:      2,
		BaseName:       "requests_test",
		SizeLimitBytes: 1 << 30,
	}, logg)
	if err != nil {
		t.Fatalf("open db client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	carts := newFakeCarts()
	invRepo := inventory.NewRepository(client.DB())
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	svc, err := NewService(NewRepository(client.DB()), invRepo, carts, client, emitter, logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &fixture{svc: svc, carts: carts, inv: invRepo, client: client}
}

func (f *fixture) seedItem(t *testing.T, name string, qty int, cost string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:       uuid.New(),
		Name:     name,
		Quantity: qty,
		Cost:     decimal.RequireFromString(cost),
	}
	if err := f.inv.Create(context.Background(), &item); err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return item
}

func (f *fixture) stockOf(t *testing.T, itemID uuid.UUID) int {
	t.Helper()
	item, err := f.inv.FindByID(context.Background(), itemID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item.Quantity
}

func requester() Viewer {
	return Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
}

func admin() Viewer {
	return Viewer{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func manager() Viewer {
	return Viewer{UserID: uuid.New(), Role: enums.UserRoleSchoolManager}
}

func TestSubmitDeductsStockAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	pencils := f.seedItem(t, "Pencils", 100, "0.50")
	paper := f.seedItem(t, "Paper", 20, "3.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{
		{ItemID: pencils.ID, Quantity: 10},
		{ItemID: paper.ID, Quantity: 2},
	}

	dto, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if dto.Status != enums.RequestStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if !dto.TotalCost.Equal(decimal.RequireFromString("11.00")) {
		t.Fatalf("expected total 11.00, got %s", dto.TotalCost)
	}
	if len(dto.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(dto.Lines))
	}

	if got := f.stockOf(t, pencils.ID); got != 90 {
		t.Fatalf("expected 90 pencils left, got %d", got)
	}
	if got := f.stockOf(t, paper.ID); got != 18 {
		t.Fatalf("expected 18 paper left, got %d", got)
	}
	if f.carts.cleared[viewer.UserID] != 1 {
		t.Fatal("cart must be cleared after submission")
	}

	var events []models.OutboxEvent
	if err := f.client.DB().Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventRequestSubmitted {
		t.Fatalf("expected one submitted event, got %+v", events)
	}
}

func TestSubmitInsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	pencils := f.seedItem(t, "Pencils", 100, "0.50")
	glue := f.seedItem(t, "Glue", 1, "1.25")
	f.carts.lines[viewer.UserID] = []cart.CartLine{
		{ItemID: pencils.ID, Quantity: 10},
		{ItemID: glue.ID, Quantity: 5},
	}

	_, err := f.svc.Submit(ctx, viewer, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeSubmissionFailed {
		t.Fatalf("expected submission failed, got %v", err)
	}

	// the pencil reservation from earlier in the loop must be undone
	if got := f.stockOf(t, pencils.ID); got != 100 {
		t.Fatalf("expected pencil stock untouched, got %d", got)
	}
	if got := f.stockOf(t, glue.ID); got != 1 {
		t.Fatalf("expected glue stock untouched, got %d", got)
	}

	var count int64
	if err := f.client.DB().Model(&models.ResourceRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no request rows, got %d", count)
	}
	if f.carts.cleared[viewer.UserID] != 0 {
		t.Fatal("cart must survive a failed submission")
	}
}

func TestSubmitEmptyCartRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), requester(), nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := requester()
	stranger := requester()

	item := f.seedItem(t, "Chalk", 10, "1.00")
	f.carts.lines[owner.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 1}}
	created, err := f.svc.Submit(ctx, owner, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.GetRequest(ctx, owner, created.ID); err != nil {
		t.Fatalf("owner must see own request: %v", err)
	}
	if _, err := f.svc.GetRequest(ctx, admin(), created.ID); err != nil {
		t.Fatalf("admin must see any request: %v", err)
	}
	_, err = f.svc.GetRequest(ctx, stranger, created.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	ownPage, err := f.svc.ListRequests(ctx, stranger, ListRequestsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ownPage.Requests) != 0 {
		t.Fatalf("stranger must see nothing, got %d", len(ownPage.Requests))
	}
	allPage, err := f.svc.ListRequests(ctx, admin(), ListRequestsInput{})
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(allPage.Requests) != 1 {
		t.Fatalf("admin must see the request, got %d", len(allPage.Requests))
	}
}

func TestEditLineQuantityMovesStockAndRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Notebooks", 50, "2.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 5}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 45 {
		t.Fatalf("expected 45 after submit, got %d", got)
	}

	// price change after submission; raising the quantity refreshes the
	// snapshot to the current price while the request is still pending
	reloaded, err := f.inv.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	reloaded.Cost = decimal.RequireFromString("2.50")
	if err := f.inv.Save(ctx, reloaded); err != nil {
		t.Fatalf("reprice: %v", err)
	}

	staff := admin()
	updated, err := f.svc.EditLineQuantity(ctx, staff, created.ID, created.Lines[0].ID, 8)
	if err != nil {
		t.Fatalf("edit line: %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 42 {
		t.Fatalf("expected 42 after raising to 8, got %d", got)
	}
	if !updated.TotalCost.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected total 20.00 at new price, got %s", updated.TotalCost)
	}

	lowered, err := f.svc.EditLineQuantity(ctx, staff, created.ID, created.Lines[0].ID, 3)
	if err != nil {
		t.Fatalf("lower line: %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 47 {
		t.Fatalf("expected 47 after lowering to 3, got %d", got)
	}
	if !lowered.TotalCost.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("expected total 7.50, got %s", lowered.TotalCost)
	}
}

func TestEditLineRejectedOnceDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Rulers", 10, "1.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 2}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{Action: enums.ApprovalActionApprove}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.svc.EditLineQuantity(ctx, admin(), created.ID, created.Lines[0].ID, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestEditLineForbiddenForRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Pencils", 100, "0.30")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 2}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The owner cannot grab extra stock by raising their own line.
	_, err = f.svc.EditLineQuantity(ctx, viewer, created.ID, created.Lines[0].ID, 50)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for requester edit, got %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 98 {
		t.Fatalf("stock must be untouched, got %d", got)
	}

	// Neither can the school manager; corrections are admin work.
	_, err = f.svc.EditLineQuantity(ctx, manager(), created.ID, created.Lines[0].ID, 50)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for manager edit, got %v", err)
	}
}

func TestEditLineAllowedWhileEscalated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Projector bulbs", 10, "40.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 2}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{
		Action:   enums.ApprovalActionApprove,
		Escalate: true,
	}); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	updated, err := f.svc.EditLineQuantity(ctx, admin(), created.ID, created.Lines[0].ID, 1)
	if err != nil {
		t.Fatalf("edit during escalation: %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 9 {
		t.Fatalf("expected 9 after lowering to 1, got %d", got)
	}
	if !updated.TotalCost.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected total 40.00, got %s", updated.TotalCost)
	}
}

func TestRejectionReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Scissors", 30, "4.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 6}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := f.stockOf(t, item.ID); got != 24 {
		t.Fatalf("expected 24 after submit, got %d", got)
	}

	notes := "over budget this term"
	rejected, err := f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{
		Action:     enums.ApprovalActionReject,
		AdminNotes: &notes,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.RequestStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.AdminNotes == nil || *rejected.AdminNotes != notes {
		t.Fatalf("expected admin notes persisted, got %v", rejected.AdminNotes)
	}
	if got := f.stockOf(t, item.ID); got != 30 {
		t.Fatalf("expected full stock back after rejection, got %d", got)
	}
}

func TestEscalationPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Projector", 3, "250.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 1}}
	created, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	escalated, err := f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{
		Action:   enums.ApprovalActionApprove,
		Escalate: true,
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if escalated.Status != enums.RequestStatusPendingManagerApproval {
		t.Fatalf("expected escalated status, got %s", escalated.Status)
	}
	// escalation holds the reservation
	if got := f.stockOf(t, item.ID); got != 2 {
		t.Fatalf("expected reservation held, got %d", got)
	}

	_, err = f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{Action: enums.ApprovalActionApprove})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("admin must not decide an escalated request, got %v", err)
	}

	approved, err := f.svc.ApplyAction(ctx, manager(), created.ID, ActionInput{Action: enums.ApprovalActionApprove})
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if approved.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	delivered, err := f.svc.ApplyAction(ctx, admin(), created.ID, ActionInput{Action: enums.ApprovalActionDeliver})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != enums.RequestStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	// delivery consumes the reservation
	if got := f.stockOf(t, item.ID); got != 2 {
		t.Fatalf("expected stock still consumed, got %d", got)
	}
}

func TestPurgeExpiredRemovesOnlyOldTerminalRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := requester()

	item := f.seedItem(t, "Staplers", 40, "6.00")
	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 1}}
	oldOne, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit old: %v", err)
	}
	if _, err := f.svc.ApplyAction(ctx, admin(), oldOne.ID, ActionInput{Action: enums.ApprovalActionReject}); err != nil {
		t.Fatalf("reject old: %v", err)
	}

	f.carts.lines[viewer.UserID] = []cart.CartLine{{ItemID: item.ID, Quantity: 1}}
	fresh, err := f.svc.Submit(ctx, viewer, nil)
	if err != nil {
		t.Fatalf("submit fresh: %v", err)
	}

	stale := time.Now().Add(-48 * time.Hour)
	if err := f.client.DB().Model(&models.ResourceRequest{}).
		Where("id = ?", oldOne.ID).
		Update("updated_at", stale).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	removed, err := f.svc.PurgeExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged, got %d", removed)
	}

	if _, err := f.svc.GetRequest(ctx, viewer, fresh.ID); err != nil {
		t.Fatalf("fresh pending request must survive: %v", err)
	}
	_, err = f.svc.GetRequest(ctx, viewer, oldOne.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected purged request gone, got %v", err)
	}

	var lineCount int64
	if err := f.client.DB().Model(&models.RequestLine{}).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 1 {
		t.Fatalf("expected only the fresh request's line, got %d", lineCount)
	}
}
