package stockrequests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/numbering"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Linker lets a stock transfer attach to an approved request and settle it
// on receipt, inside the transfer's own transaction.
type Linker interface {
	ForTransfer(ctx context.Context, tx *gorm.DB, organizationID, requestID uuid.UUID) (*models.StockRequest, error)
	MarkFulfilled(ctx context.Context, tx *gorm.DB, organizationID, requestID uuid.UUID) error
}

// Service handles outlet replenishment requests to the central kitchen.
// Approval records intent only; stock moves with a linked transfer.
type Service interface {
	Linker
	Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.StockRequest, error)
	Approve(ctx context.Context, organizationID, requestID, userID uuid.UUID, input ApproveInput) (*models.StockRequest, error)
	Reject(ctx context.Context, organizationID, requestID, userID uuid.UUID) (*models.StockRequest, error)
	Cancel(ctx context.Context, organizationID, requestID, userID uuid.UUID) (*models.StockRequest, error)
	Get(ctx context.Context, organizationID, requestID uuid.UUID) (*models.StockRequest, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*RequestPage, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   catalog.Lookup
	stock     inventory.Poster
	converter units.Converter
	numbers   numbering.Generator
	outbox    outboxPublisher
	logg      *logger.Logger
}

func NewService(
	repo Repository,
	tx txRunner,
	lookup catalog.Lookup,
	stock inventory.Poster,
	converter units.Converter,
	numbers numbering.Generator,
	outbox outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock request repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if converter == nil {
		return nil, fmt.Errorf("unit converter required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("document numbering required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		catalog:   lookup,
		stock:     stock,
		converter: converter,
		numbers:   numbers,
		outbox:    outbox,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.StockRequest, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock request requires at least one item")
	}
	if input.FromOutletID == input.ToOutletID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from_outlet_id and to_outlet_id must differ")
	}
	for i, item := range input.Items {
		if !item.RequestedQty.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested_qty must be greater than zero").
				WithDetails(map[string]any{"index": i})
		}
	}

	var created *models.StockRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		from, err := s.catalog.Outlet(ctx, tx, organizationID, input.FromOutletID)
		if err != nil {
			return err
		}
		to, err := s.catalog.Outlet(ctx, tx, organizationID, input.ToOutletID)
		if err != nil {
			return err
		}
		if !to.IsCentral() {
			return pkgerrors.New(pkgerrors.CodeValidation, "Stock requests must be sent to the central kitchen").
				WithDetails(map[string]any{"to_outlet_id": to.ID})
		}

		now := time.Now().UTC()
		request := &models.StockRequest{
			OrganizationID: organizationID,
			FromOutletID:   from.ID,
			ToOutletID:     to.ID,
			Status:         enums.StockRequestStatusPending,
			RequestedBy:    userID,
			Notes:          input.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for _, item := range input.Items {
			if _, err := s.catalog.Ingredient(ctx, tx, organizationID, item.IngredientID); err != nil {
				return err
			}
			if _, err := s.catalog.Unit(ctx, tx, item.RequestedUnitID); err != nil {
				return err
			}
			request.Items = append(request.Items, models.StockRequestItem{
				IngredientID:    item.IngredientID,
				RequestedQty:    item.RequestedQty,
				RequestedUnitID: item.RequestedUnitID,
				ApprovedQty:     decimal.Zero,
				Notes:           item.Notes,
			})
		}

		requestNo, err := s.numbers.Next(ctx, tx, numbering.Request{OrganizationID: organizationID, Type: enums.DocumentStockRequest})
		if err != nil {
			return err
		}
		request.RequestNo = requestNo

		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock request")
		}
		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, created, "stock request created")
	return created, nil
}

// Approve clamps every listed line to min(approved, requested, central
// stock). Central stock is read in the request's unit.
func (s *service) Approve(ctx context.Context, organizationID, requestID, userID uuid.UUID, input ApproveInput) (*models.StockRequest, error) {
	approvals := make(map[uuid.UUID]decimal.Decimal, len(input.Items))
	for _, item := range input.Items {
		if item.ApprovedQty.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "approved_qty must not be negative").
				WithDetails(map[string]any{"item_id": item.ItemID})
		}
		approvals[item.ItemID] = item.ApprovedQty
	}

	request, err := s.transition(ctx, organizationID, requestID, func(tx *gorm.DB, request *models.StockRequest) error {
		if request.Status != enums.StockRequestStatusPending {
			return invalidTransition("approve", request.Status)
		}

		repo := s.repo.WithTx(tx)
		items, err := repo.Items(ctx, request.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock request items")
		}
		byID := make(map[uuid.UUID]*models.StockRequestItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}
		for id := range approvals {
			if _, ok := byID[id]; !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this stock request").
					WithDetails(map[string]any{"item_id": id})
			}
		}

		lines := make([]payloads.ApprovedLinePart, 0, len(items))
		for i := range items {
			item := &items[i]
			if want, ok := approvals[item.ID]; ok {
				available, err := s.centralAvailable(ctx, tx, request, item)
				if err != nil {
					return err
				}
				approved := decimal.Min(want, item.RequestedQty, available)
				if approved.IsNegative() {
					approved = decimal.Zero
				}
				if err := repo.SetApprovedQty(ctx, item.ID, approved); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approved_qty")
				}
				item.ApprovedQty = approved
			}
			lines = append(lines, payloads.ApprovedLinePart{
				IngredientID: item.IngredientID,
				RequestedQty: item.RequestedQty,
				ApprovedQty:  item.ApprovedQty,
			})
		}

		now := time.Now().UTC()
		approver := userID
		request.Status = enums.StockRequestStatusApproved
		request.ApprovedBy = &approver
		request.ApprovedAt = &now
		request.Items = items
		if err := repo.UpdateStatus(ctx, request.ID, map[string]any{
			"status":      request.Status,
			"approved_by": approver,
			"approved_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock request")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockRequestApproved,
			AggregateType: enums.AggregateStockRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         actor(userID, organizationID),
			Data: payloads.StockRequestApprovedEvent{
				StockRequestID: request.ID,
				OrganizationID: organizationID,
				FromOutletID:   request.FromOutletID,
				ToOutletID:     request.ToOutletID,
				RequestNo:      request.RequestNo,
				Lines:          lines,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock request event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, request, "stock request approved")
	return request, nil
}

// centralAvailable returns the central outlet's on-hand quantity expressed
// in the line's requested unit.
func (s *service) centralAvailable(ctx context.Context, tx *gorm.DB, request *models.StockRequest, item *models.StockRequestItem) (decimal.Decimal, error) {
	level, err := s.stock.CurrentStock(ctx, tx, inventory.StockKey{
		OrganizationID: request.OrganizationID,
		OutletID:       request.ToOutletID,
		IngredientID:   item.IngredientID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if level.UnitID == item.RequestedUnitID || level.QtyOnHand.IsZero() {
		return level.QtyOnHand, nil
	}
	ingredientID := item.IngredientID
	m, _, err := s.converter.WithTx(tx).Multiplier(ctx, level.UnitID, item.RequestedUnitID, &ingredientID)
	if err != nil {
		return decimal.Zero, err
	}
	return level.QtyOnHand.Mul(m), nil
}

func (s *service) Reject(ctx context.Context, organizationID, requestID, userID uuid.UUID) (*models.StockRequest, error) {
	request, err := s.transition(ctx, organizationID, requestID, func(tx *gorm.DB, request *models.StockRequest) error {
		if request.Status != enums.StockRequestStatusPending {
			return invalidTransition("reject", request.Status)
		}
		request.Status = enums.StockRequestStatusRejected
		return s.repo.WithTx(tx).UpdateStatus(ctx, request.ID, map[string]any{"status": request.Status})
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, request, "stock request rejected")
	return request, nil
}

func (s *service) Cancel(ctx context.Context, organizationID, requestID, userID uuid.UUID) (*models.StockRequest, error) {
	request, err := s.transition(ctx, organizationID, requestID, func(tx *gorm.DB, request *models.StockRequest) error {
		if request.Status != enums.StockRequestStatusPending && request.Status != enums.StockRequestStatusApproved {
			return invalidTransition("cancel", request.Status)
		}
		request.Status = enums.StockRequestStatusCancelled
		return s.repo.WithTx(tx).UpdateStatus(ctx, request.ID, map[string]any{"status": request.Status})
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, request, "stock request cancelled")
	return request, nil
}

func (s *service) ForTransfer(ctx context.Context, tx *gorm.DB, organizationID, requestID uuid.UUID) (*models.StockRequest, error) {
	request, err := s.repo.WithTx(tx).LockByID(ctx, organizationID, requestID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if request.Status != enums.StockRequestStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Linked stock request must be approved").
			WithDetails(map[string]any{"stock_request_id": request.ID, "status": request.Status})
	}
	return request, nil
}

func (s *service) MarkFulfilled(ctx context.Context, tx *gorm.DB, organizationID, requestID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	request, err := repo.LockByID(ctx, organizationID, requestID)
	if err != nil {
		return notFoundOr(err)
	}
	// Received goods settle the request even if it was cancelled meanwhile.
	if request.Status == enums.StockRequestStatusFulfilled {
		return nil
	}
	if err := repo.UpdateStatus(ctx, request.ID, map[string]any{"status": enums.StockRequestStatusFulfilled}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfill stock request")
	}
	return nil
}

func (s *service) transition(ctx context.Context, organizationID, requestID uuid.UUID, fn func(tx *gorm.DB, request *models.StockRequest) error) (*models.StockRequest, error) {
	var request *models.StockRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).LockByID(ctx, organizationID, requestID)
		if err != nil {
			return notFoundOr(err)
		}
		if err := fn(tx, locked); err != nil {
			return err
		}
		request = locked
		return nil
	})
	return request, err
}

func (s *service) Get(ctx context.Context, organizationID, requestID uuid.UUID) (*models.StockRequest, error) {
	request, err := s.repo.FindByID(ctx, organizationID, requestID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return request, nil
}

func (s *service) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*RequestPage, error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	requests, err := s.repo.List(ctx, organizationID, filter, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock requests")
	}

	page := &RequestPage{}
	page.Items, page.NextCursor = pagination.Trim(requests, filter.Limit, func(row models.StockRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, nil
}

func (s *service) logTransition(ctx context.Context, request *models.StockRequest, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stock_request_id": request.ID.String(),
		"request_no":       request.RequestNo,
		"status":           string(request.Status),
	})
	s.logg.Info(logCtx, msg)
}

func invalidTransition(action string, status enums.StockRequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("Cannot %s request with status: %s", action, status)).
		WithDetails(map[string]any{"status": status})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Stock request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock request")
}

func actor(userID, organizationID uuid.UUID) *outbox.ActorRef {
	org := organizationID
	return &outbox.ActorRef{UserID: userID, OrganizationID: &org}
}
