package comments

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/internal/requests"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/outbox"
	"github.com/edures/resourcedesk-backend/pkg/outbox/payloads"
)

const (
	maxBodyLength = 2000
	previewLength = 120
)

// requestSource is the slice of the request repository the thread needs for
// its visibility check.
type requestSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ResourceRequest, error)
}

// CommentDTO is one thread entry.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"requestId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service exposes the comment thread attached to a request.
type Service interface {
	Add(ctx context.Context, viewer requests.Viewer, requestID uuid.UUID, body string) (*CommentDTO, error)
	List(ctx context.Context, viewer requests.Viewer, requestID uuid.UUID) ([]CommentDTO, error)
}

type service struct {
	repo     *Repository
	reqs     requestSource
	dbClient *db.Client
	emitter  *outbox.Service
}

// NewService constructs the comment service.
func NewService(repo *Repository, reqs requestSource, dbClient *db.Client, emitter *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("comment repository required")
	}
	if reqs == nil {
		return nil, fmt.Errorf("request source required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, reqs: reqs, dbClient: dbClient, emitter: emitter}, nil
}

// Add appends a comment to the request's thread. Commenting stays open in
// every status, terminal ones included, so the paper trail can keep growing
// after delivery.
func (s *service) Add(ctx context.Context, viewer requests.Viewer, requestID uuid.UUID, body string) (*CommentDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if len(body) > maxBodyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is too long")
	}

	request, err := s.loadVisible(ctx, viewer, requestID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		RequestID: requestID,
		AuthorID:  viewer.UserID,
		Body:      body,
	}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCommented,
			AggregateType: enums.AggregateComment,
			AggregateID:   comment.ID,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role.String()},
			Data: payloads.RequestCommentedEvent{
				RequestID:   requestID,
				CommentID:   comment.ID,
				AuthorID:    viewer.UserID,
				RequesterID: request.RequesterID,
				Preview:     preview(body),
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding comment")
	}

	dto := toCommentDTO(*comment)
	return &dto, nil
}

func (s *service) List(ctx context.Context, viewer requests.Viewer, requestID uuid.UUID) ([]CommentDTO, error) {
	if _, err := s.loadVisible(ctx, viewer, requestID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListForRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing comments")
	}
	out := make([]CommentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCommentDTO(row))
	}
	return out, nil
}

func (s *service) loadVisible(ctx context.Context, viewer requests.Viewer, requestID uuid.UUID) (*models.ResourceRequest, error) {
	request, err := s.reqs.FindByID(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading request")
	}
	if !viewer.Role.IsElevated() && request.RequesterID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
	}
	return request, nil
}

func toCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		RequestID: comment.RequestID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func preview(body string) string {
	if len(body) <= previewLength {
		return body
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
