package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/edures/resourcedesk-backend/internal/cart"
	"github.com/edures/resourcedesk-backend/internal/inventory"
	"github.com/edures/resourcedesk-backend/internal/workflow"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/outbox"
	"github.com/edures/resourcedesk-backend/pkg/outbox/payloads"
	"github.com/edures/resourcedesk-backend/pkg/pagination"
)

// Viewer identifies who is making a call so the service can apply
// visibility rules: requesters see their own requests, elevated roles see
// everything.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (v Viewer) canSee(request *models.ResourceRequest) bool {
	return v.Role.IsElevated() || request.RequesterID == v.UserID
}

// cartSource is the slice of the cart service submission needs.
type cartSource interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ListRequestsInput narrows and paginates request listings.
type ListRequestsInput struct {
	Status string
	Cursor string
	Limit  int
}

// ActionInput is one approval decision. Escalate is only meaningful for an
// admin approving a pending request; the workflow ignores it elsewhere.
type ActionInput struct {
	Action     enums.ApprovalAction
	Escalate   bool
	AdminNotes *string
}

// Service exposes the resource request workflow.
type Service interface {
	Submit(ctx context.Context, viewer Viewer, notes *string) (*RequestDTO, error)
	GetRequest(ctx context.Context, viewer Viewer, requestID uuid.UUID) (*RequestDTO, error)
	ListRequests(ctx context.Context, viewer Viewer, input ListRequestsInput) (*RequestListResult, error)
	EditLineQuantity(ctx context.Context, viewer Viewer, requestID, lineID uuid.UUID, qty int) (*RequestDTO, error)
	ApplyAction(ctx context.Context, viewer Viewer, requestID uuid.UUID, input ActionInput) (*RequestDTO, error)

	// PurgeExpired removes terminal requests untouched for longer than
	// maxAge. Called by the retention sweeper.
	PurgeExpired(ctx context.Context, maxAge time.Duration) (int64, error)
}

type service struct {
	repo     *Repository
	invRepo  *inventory.Repository
	carts    cartSource
	dbClient *db.Client
	emitter  *outbox.Service
	logg     *logger.Logger
}

// NewService constructs the request service.
func NewService(
	repo *Repository,
	invRepo *inventory.Repository,
	carts cartSource,
	dbClient *db.Client,
	emitter *outbox.Service,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
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
	return &service{
		repo:     repo,
		invRepo:  invRepo,
		carts:    carts,
		dbClient: dbClient,
		emitter:  emitter,
		logg:     logg,
	}, nil
}

// Submit turns the viewer's cart into a pending request. Stock is deducted
// here, once, for every line inside a single transaction; any line that
// cannot be covered rolls the whole submission back and the cart stays
// intact for the user to adjust.
func (s *service) Submit(ctx context.Context, viewer Viewer, notes *string) (*RequestDTO, error) {
	snapshot, err := s.carts.Snapshot(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var created models.ResourceRequest
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txInv := s.invRepo.WithTx(tx)

		total := decimal.Zero
		lines := make([]models.RequestLine, 0, len(snapshot.Lines))
		eventLines := make([]payloads.RequestLineSnapshot, 0, len(snapshot.Lines))
		for _, cartLine := range snapshot.Lines {
			item, err := txInv.Reserve(ctx, cartLine.ItemID, cartLine.Quantity)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil &&
					(typed.Code() == pkgerrors.CodeInsufficientStock || typed.Code() == pkgerrors.CodeNotFound) {
					return pkgerrors.New(pkgerrors.CodeSubmissionFailed, "submission failed: "+typed.Message()).
						WithDetails(typed.Details())
				}
				return err
			}
			lines = append(lines, models.RequestLine{
				ItemID:   cartLine.ItemID,
				Quantity: cartLine.Quantity,
				Cost:     item.Cost,
			})
			eventLines = append(eventLines, payloads.RequestLineSnapshot{
				ItemID:   cartLine.ItemID,
				ItemName: item.Name,
				Quantity: cartLine.Quantity,
				UnitCost: item.Cost,
			})
			total = total.Add(item.Cost.Mul(decimal.NewFromInt(int64(cartLine.Quantity))))
		}

		request := &models.ResourceRequest{
			RequesterID: viewer.UserID,
			Status:      enums.RequestStatusPending,
			TotalCost:   total,
			Notes:       notes,
			Lines:       lines,
		}
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}
		created = *request

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: enums.AggregateResourceRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role.String()},
			Data: payloads.RequestSubmittedEvent{
				RequestID:   request.ID,
				RequesterID: viewer.UserID,
				Status:      request.Status,
				TotalCost:   total,
				Lines:       eventLines,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submitting request")
	}

	// The cart is disposable once the request exists; a failed clear only
	// leaves stale redis data behind the TTL.
	if err := s.carts.Clear(ctx, viewer.UserID); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"resource_request_id": created.ID.String(),
			"error":               err.Error(),
		}), "clearing cart after submission")
	}

	dto := toRequestDTO(created)
	return &dto, nil
}

func (s *service) GetRequest(ctx context.Context, viewer Viewer, requestID uuid.UUID) (*RequestDTO, error) {
	request, err := s.loadVisible(ctx, viewer, requestID)
	if err != nil {
		return nil, err
	}
	dto := toRequestDTO(*request)
	return &dto, nil
}

func (s *service) ListRequests(ctx context.Context, viewer Viewer, input ListRequestsInput) (*RequestListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	filter := ListFilter{Cursor: cursor, Limit: limit}
	if !viewer.Role.IsElevated() {
		requesterID := viewer.UserID
		filter.RequesterID = &requesterID
	}
	if input.Status != "" {
		status := enums.RequestStatus(input.Status)
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown request status")
		}
		filter.Status = &status
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing requests")
	}

	result := &RequestListResult{Requests: make([]RequestDTO, 0, len(requests))}
	hasMore := len(requests) > limit
	if hasMore {
		requests = requests[:limit]
	}
	for _, request := range requests {
		result.Requests = append(result.Requests, toRequestDTO(request))
	}
	if hasMore {
		last := requests[len(requests)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// EditLineQuantity is a staff correction on a request that has not been
// approved yet. The stock ledger moves by the delta and the line's unit
// cost is refreshed to the current catalog price. Only admins and super
// admins correct lines; requesters adjust quantities by rejecting and
// resubmitting.
func (s *service) EditLineQuantity(ctx context.Context, viewer Viewer, requestID, lineID uuid.UUID, qty int) (*RequestDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if viewer.Role != enums.UserRoleAdmin && viewer.Role != enums.UserRoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change request lines")
	}

	request, err := s.loadVisible(ctx, viewer, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RequestStatusPending && request.Status != enums.RequestStatusPendingManagerApproval {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "lines can only change before the request is approved").
			WithDetails(map[string]any{"status": request.Status.String()})
	}

	var line *models.RequestLine
	for i := range request.Lines {
		if request.Lines[i].ID == lineID {
			line = &request.Lines[i]
			break
		}
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request line not found")
	}

	delta := qty - line.Quantity
	if delta == 0 {
		dto := toRequestDTO(*request)
		return &dto, nil
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txInv := s.invRepo.WithTx(tx)
		txRepo := s.repo.WithTx(tx)

		var item *models.InventoryItem
		if delta > 0 {
			reserved, err := txInv.Reserve(ctx, line.ItemID, delta)
			if err != nil {
				return err
			}
			item = reserved
		} else {
			if err := txInv.Release(ctx, line.ItemID, -delta); err != nil {
				return err
			}
			current, err := txInv.FindByID(ctx, line.ItemID)
			if err != nil {
				return err
			}
			item = current
		}

		oldQuantity := line.Quantity
		line.Quantity = qty
		line.Cost = item.Cost
		if err := txRepo.SaveLine(ctx, line); err != nil {
			return err
		}

		total := decimal.Zero
		for _, l := range request.Lines {
			total = total.Add(l.Cost.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		request.TotalCost = total
		if err := txRepo.Save(ctx, request); err != nil {
			return err
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestLineEdited,
			AggregateType: enums.AggregateResourceRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role.String()},
			Data: payloads.RequestLineEditedEvent{
				RequestID:    request.ID,
				RequesterID:  request.RequesterID,
				LineID:       line.ID,
				ItemID:       line.ItemID,
				OldQuantity:  oldQuantity,
				NewQuantity:  qty,
				UnitCost:     line.Cost,
				NewTotalCost: total,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "editing request line")
	}

	dto := toRequestDTO(*request)
	return &dto, nil
}

// ApplyAction runs one workflow transition. Stock is only touched when the
// transition releases it (rejection); approval and delivery leave the
// deduction made at submission in place.
func (s *service) ApplyAction(ctx context.Context, viewer Viewer, requestID uuid.UUID, input ActionInput) (*RequestDTO, error) {
	request, err := s.loadVisible(ctx, viewer, requestID)
	if err != nil {
		return nil, err
	}

	next, err := workflow.Decide(request.Status, input.Action, viewer.Role, input.Escalate)
	if err != nil {
		return nil, err
	}

	previous := request.Status
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		request.Status = next
		if input.AdminNotes != nil {
			request.AdminNotes = input.AdminNotes
		}
		if err := txRepo.Save(ctx, request); err != nil {
			return err
		}

		if workflow.ReleasesStock(next) {
			txInv := s.invRepo.WithTx(tx)
			for _, line := range request.Lines {
				if err := txInv.Release(ctx, line.ItemID, line.Quantity); err != nil {
					return err
				}
			}
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestStatusChanged,
			AggregateType: enums.AggregateResourceRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: viewer.UserID, Role: viewer.Role.String()},
			Data: payloads.RequestStatusChangedEvent{
				RequestID:      request.ID,
				RequesterID:    request.RequesterID,
				PreviousStatus: previous,
				NewStatus:      next,
				Action:         input.Action.String(),
				Escalated:      next == enums.RequestStatusPendingManagerApproval,
				AdminNotes:     input.AdminNotes,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying request action")
	}

	dto := toRequestDTO(*request)
	return &dto, nil
}

func (s *service) PurgeExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	removed, err := s.repo.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purging expired requests")
	}
	if removed > 0 {
		s.logg.Info(s.logg.WithField(ctx, "removed", removed), "purged expired requests")
	}
	return removed, nil
}

func (s *service) loadVisible(ctx context.Context, viewer Viewer, requestID uuid.UUID) (*models.ResourceRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading request")
	}
	if !viewer.canSee(request) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another user")
	}
	return request, nil
}
