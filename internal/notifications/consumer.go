package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/outbox/payloads"
	"github.com/edures/resourcedesk-backend/pkg/outbox/registry"
)

// userSource is the slice of the user repository the consumer needs to
// resolve recipients.
type userSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListElevated(ctx context.Context) ([]models.User, error)
}

// emailSender delivers one email; failures must never block the in-app row.
type emailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Consumer turns decoded domain events into in-app notification rows and
// best-effort emails. A database failure is returned so the message gets
// redelivered; an email failure is only logged.
type Consumer struct {
	repo   *Repository
	users  userSource
	mailer emailSender
	logg   *logger.Logger
}

// NewConsumer constructs the notification consumer.
func NewConsumer(repo *Repository, users userSource, mailer emailSender, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user source required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{repo: repo, users: users, mailer: mailer, logg: logg}, nil
}

// Handle fans a resolved event out to its recipients.
func (c *Consumer) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	switch payload := event.Payload.(type) {
	case *payloads.RequestSubmittedEvent:
		return c.onSubmitted(ctx, payload)
	case *payloads.RequestStatusChangedEvent:
		return c.onStatusChanged(ctx, payload)
	case *payloads.RequestLineEditedEvent:
		return c.onLineEdited(ctx, event, payload)
	case *payloads.RequestCommentedEvent:
		return c.onCommented(ctx, payload)
	case *payloads.InventoryRestockedEvent:
		// stock replenishment is operational noise, not a user-facing
		// notification; the audit trail lives in the outbox
		c.logg.Debug(c.logg.WithField(ctx, "item_id", payload.ItemID.String()), "restock event acknowledged")
		return nil
	default:
		return registry.NewNonRetryableError(fmt.Errorf("no notification handler for %T", event.Payload))
	}
}

func (c *Consumer) onSubmitted(ctx context.Context, payload *payloads.RequestSubmittedEvent) error {
	staff, err := c.users.ListElevated(ctx)
	if err != nil {
		return fmt.Errorf("loading staff recipients: %w", err)
	}

	link := requestLink(payload.RequestID)
	title := "New resource request"
	message := fmt.Sprintf("A request for %d item(s) totaling %s is waiting for review.",
		len(payload.Lines), payload.TotalCost.StringFixed(2))

	rows := make([]models.Notification, 0, len(staff))
	for _, user := range staff {
		rows = append(rows, models.Notification{
			UserID:  user.ID,
			Type:    enums.NotificationRequestSubmitted,
			Title:   title,
			Message: message,
			Link:    &link,
		})
	}
	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("storing notifications: %w", err)
	}

	for _, user := range staff {
		c.email(ctx, user.Email, title, message)
	}
	return nil
}

func (c *Consumer) onStatusChanged(ctx context.Context, payload *payloads.RequestStatusChangedEvent) error {
	link := requestLink(payload.RequestID)
	title := "Request " + payload.NewStatus.String()
	message := fmt.Sprintf("Your request moved from %s to %s.", payload.PreviousStatus, payload.NewStatus)
	if payload.AdminNotes != nil && *payload.AdminNotes != "" {
		message += " Note: " + *payload.AdminNotes
	}

	return c.notifyUser(ctx, payload.RequesterID, models.Notification{
		UserID:  payload.RequesterID,
		Type:    enums.NotificationRequestStatusChanged,
		Title:   title,
		Message: message,
		Link:    &link,
	})
}

func (c *Consumer) onLineEdited(ctx context.Context, event *registry.ResolvedEvent, payload *payloads.RequestLineEditedEvent) error {
	// requesters editing their own pending request need no notification
	if actorID(event) == payload.RequesterID {
		return nil
	}

	link := requestLink(payload.RequestID)
	title := "Request updated"
	message := fmt.Sprintf("A line on your request changed from %d to %d; the new total is %s.",
		payload.OldQuantity, payload.NewQuantity, payload.NewTotalCost.StringFixed(2))

	return c.notifyUser(ctx, payload.RequesterID, models.Notification{
		UserID:  payload.RequesterID,
		Type:    enums.NotificationRequestLineEdited,
		Title:   title,
		Message: message,
		Link:    &link,
	})
}

func (c *Consumer) onCommented(ctx context.Context, payload *payloads.RequestCommentedEvent) error {
	// authors do not need to hear about their own comments
	if payload.AuthorID == payload.RequesterID {
		return nil
	}

	link := requestLink(payload.RequestID)
	title := "New comment on your request"
	message := payload.Preview

	return c.notifyUser(ctx, payload.RequesterID, models.Notification{
		UserID:  payload.RequesterID,
		Type:    enums.NotificationRequestCommented,
		Title:   title,
		Message: message,
		Link:    &link,
	})
}

func (c *Consumer) notifyUser(ctx context.Context, userID uuid.UUID, row models.Notification) error {
	if err := c.repo.Create(ctx, &row); err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"error":   err.Error(),
		}), "loading notification recipient")
		return nil
	}
	c.email(ctx, user.Email, row.Title, row.Message)
	return nil
}

func (c *Consumer) email(ctx context.Context, to, subject, body string) {
	if err := c.mailer.Send(ctx, to, subject, body); err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"recipient": to,
			"error":     err.Error(),
		}), "sending notification email")
	}
}

func actorID(event *registry.ResolvedEvent) uuid.UUID {
	if event.Envelope.Actor == nil {
		return uuid.Nil
	}
	return event.Envelope.Actor.UserID
}

func requestLink(requestID uuid.UUID) string {
	return "/requests/" + requestID.String()
}
