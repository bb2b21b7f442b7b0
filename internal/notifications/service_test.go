package notifications

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite"}, config.RotationConfig{
		Dir:            t.TempDir(),
		FileCount:      2,
		BaseName:       "notifications_svc_test",
		SizeLimitBytes: 1 << 30,
	}, logg)
	if err != nil {
		t.Fatalf("open db client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRepository(client.DB())
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo
}

func seedNotification(t *testing.T, repo *Repository, userID uuid.UUID, title string) models.Notification {
	t.Helper()
	row := models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    enums.NotificationRequestStatusChanged,
		Title:   title,
		Message: "body",
	}
	if err := repo.Create(context.Background(), &row); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return row
}

func TestListAndUnreadCount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		seedNotification(t, repo, userID, fmt.Sprintf("note %d", i))
	}
	seedNotification(t, repo, uuid.New(), "someone else's")

	page, err := svc.List(ctx, userID, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page.Notifications))
	}
	if page.UnreadCount != 3 {
		t.Fatalf("expected 3 unread, got %d", page.UnreadCount)
	}
}

func TestMarkReadFlow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	row := seedNotification(t, repo, userID, "pending review")

	if err := svc.MarkRead(ctx, userID, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	page, err := svc.List(ctx, userID, ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.UnreadCount != 0 {
		t.Fatalf("expected 0 unread, got %d", page.UnreadCount)
	}
	if page.Notifications[0].ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}

	// idempotent
	if err := svc.MarkRead(ctx, userID, row.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}

	// scoped to the owner
	err = svc.MarkRead(ctx, uuid.New(), row.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	seedNotification(t, repo, userID, "one")
	seedNotification(t, repo, userID, "two")

	updated, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}
}

func TestDeleteOlderThanKeepsUnread(t *testing.T) {
	_, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	read := seedNotification(t, repo, userID, "old and read")
	seedNotification(t, repo, userID, "old but unread")

	past := time.Now().Add(-30 * 24 * time.Hour)
	if err := repo.db.Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Update("created_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if err := repo.MarkRead(ctx, userID, read.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	count, err := repo.UnreadCount(ctx, userID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread row must survive, got %d", count)
	}
}
