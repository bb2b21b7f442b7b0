package comments

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edures/resourcedesk-backend/internal/requests"
	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "comments-test", Output: io.Discard})
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite"}, config.RotationConfig{
		Dir:            t.TempDir(),
		FileCount:      2,
		BaseName:       "comments_test",
		SizeLimitBytes: 1 << 30,
	}, logg)
	if err != nil {
		t.Fatalf("open db client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	svc, err := NewService(NewRepository(client.DB()), requests.NewRepository(client.DB()), client, emitter)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, client
}

func seedRequest(t *testing.T, client *db.Client, requesterID uuid.UUID, status enums.RequestStatus) models.ResourceRequest {
	t.Helper()
	request := models.ResourceRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		Status:      status,
		TotalCost:   decimal.RequireFromString("10.00"),
	}
	if err := client.DB().Create(&request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return request
}

func TestAddAndListComments(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	owner := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
	reviewer := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	request := seedRequest(t, client, owner.UserID, enums.RequestStatusPending)

	first, err := svc.Add(ctx, owner, request.ID, "Need these before the science fair.")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.AuthorID != owner.UserID {
		t.Fatalf("wrong author: %s", first.AuthorID)
	}

	if _, err := svc.Add(ctx, reviewer, request.ID, "Checking the budget line."); err != nil {
		t.Fatalf("reviewer add: %v", err)
	}

	thread, err := svc.List(ctx, owner, request.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(thread))
	}
	if thread[0].ID != first.ID {
		t.Fatal("thread must be oldest first")
	}

	var events []models.OutboxEvent
	if err := client.DB().Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 commented events, got %d", len(events))
	}
	for _, event := range events {
		if event.EventType != enums.EventRequestCommented {
			t.Fatalf("unexpected event type %s", event.EventType)
		}
	}
}

func TestCommentingStaysOpenOnTerminalRequests(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	owner := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
	request := seedRequest(t, client, owner.UserID, enums.RequestStatusDelivered)

	if _, err := svc.Add(ctx, owner, request.ID, "One box arrived damaged."); err != nil {
		t.Fatalf("commenting on delivered request must work: %v", err)
	}
}

func TestCommentValidation(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	owner := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
	request := seedRequest(t, client, owner.UserID, enums.RequestStatusPending)

	for _, body := range []string{"", "   ", strings.Repeat("x", maxBodyLength+1)} {
		_, err := svc.Add(ctx, owner, request.ID, body)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", body[:min(len(body), 10)], err)
		}
	}
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	if got := preview("short"); got != "short" {
		t.Fatalf("short body must pass through, got %q", got)
	}

	// Multi-byte runes placed so the byte cap lands mid-sequence.
	long := "a" + strings.Repeat("日", 60)
	got := preview(long)
	if len(got) > previewLength {
		t.Fatalf("preview exceeds %d bytes: %d", previewLength, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid utf-8: %q", got)
	}
	if got == "" {
		t.Fatal("preview must keep leading content")
	}
}

func TestCommentVisibilityGate(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	owner := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
	stranger := requests.Viewer{UserID: uuid.New(), Role: enums.UserRoleUser}
	request := seedRequest(t, client, owner.UserID, enums.RequestStatusPending)

	_, err := svc.Add(ctx, stranger, request.ID, "Drive-by comment.")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.List(ctx, stranger, request.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden on list, got %v", err)
	}

	_, err = svc.Add(ctx, owner, uuid.New(), "Lost thread.")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
