package transfers

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
	"github.com/angelmondragon/kitchenledger-backend/internal/stockrequests"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

const (
	shipRemarks    = "Stock transferred out"
	receiveRemarks = "Stock transferred in"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service moves stock between two outlets in two steps. Shipping debits the
// source; receiving credits the destination at the drafted unit cost.
type Service interface {
	Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.StockTransfer, error)
	Ship(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error)
	Receive(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error)
	Cancel(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error)
	Get(ctx context.Context, organizationID, transferID uuid.UUID) (*models.StockTransfer, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*TransferPage, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   catalog.Lookup
	stock     inventory.Poster
	converter units.Converter
	requests  stockrequests.Linker
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
	requests stockrequests.Linker,
	numbers numbering.Generator,
	outbox outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock transfer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock poster required")
	}
	if converter == nil {
		return nil, fmt.Errorf("unit converter required")
	}
	if requests == nil {
		return nil, fmt.Errorf("stock request linker required")
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
		requests:  requests,
		numbers:   numbers,
		outbox:    outbox,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.StockTransfer, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock transfer requires at least one item")
	}
	if input.FromOutletID == input.ToOutletID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from_outlet_id and to_outlet_id must differ")
	}
	for i, item := range input.Items {
		if !item.Qty.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be greater than zero").
				WithDetails(map[string]any{"index": i})
		}
		if item.UnitCost != nil && item.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_cost must not be negative").
				WithDetails(map[string]any{"index": i})
		}
	}

	var created *models.StockTransfer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		from, err := s.catalog.Outlet(ctx, tx, organizationID, input.FromOutletID)
		if err != nil {
			return err
		}
		to, err := s.catalog.Outlet(ctx, tx, organizationID, input.ToOutletID)
		if err != nil {
			return err
		}
		if input.StockRequestID != nil {
			request, err := s.requests.ForTransfer(ctx, tx, organizationID, *input.StockRequestID)
			if err != nil {
				return err
			}
			// The request flows outlet -> central; its goods flow back.
			if request.ToOutletID != from.ID || request.FromOutletID != to.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "Transfer outlets do not match the linked stock request").
					WithDetails(map[string]any{"stock_request_id": request.ID})
			}
		}

		now := time.Now().UTC()
		transfer := &models.StockTransfer{
			OrganizationID: organizationID,
			FromOutletID:   from.ID,
			ToOutletID:     to.ID,
			StockRequestID: input.StockRequestID,
			Status:         enums.StockTransferStatusDraft,
			CreatedBy:      userID,
			Notes:          input.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for _, item := range input.Items {
			if _, err := s.catalog.Ingredient(ctx, tx, organizationID, item.IngredientID); err != nil {
				return err
			}
			if _, err := s.catalog.Unit(ctx, tx, item.UnitID); err != nil {
				return err
			}
			unitCost, err := s.resolveUnitCost(ctx, tx, organizationID, from.ID, item)
			if err != nil {
				return err
			}
			transfer.Items = append(transfer.Items, models.StockTransferItem{
				IngredientID: item.IngredientID,
				Qty:          item.Qty,
				UnitID:       item.UnitID,
				UnitCost:     unitCost,
				TotalCost:    item.Qty.Mul(unitCost),
			})
		}

		transferNo, err := s.numbers.Next(ctx, tx, numbering.Request{OrganizationID: organizationID, Type: enums.DocumentStockTransfer})
		if err != nil {
			return err
		}
		transfer.TransferNo = transferNo

		if err := s.repo.WithTx(tx).Create(ctx, transfer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock transfer")
		}
		created = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, created, "stock transfer created")
	return created, nil
}

// resolveUnitCost prices a line in its own unit. Without an explicit cost
// it takes the source outlet's last cost, held per stock unit.
func (s *service) resolveUnitCost(ctx context.Context, tx *gorm.DB, organizationID, fromOutletID uuid.UUID, item CreateItemInput) (decimal.Decimal, error) {
	if item.UnitCost != nil {
		return *item.UnitCost, nil
	}
	level, err := s.stock.CurrentStock(ctx, tx, inventory.StockKey{
		OrganizationID: organizationID,
		OutletID:       fromOutletID,
		IngredientID:   item.IngredientID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if level.LastCost.IsZero() || level.UnitID == item.UnitID {
		return level.LastCost, nil
	}
	ingredientID := item.IngredientID
	m, _, err := s.converter.WithTx(tx).Multiplier(ctx, item.UnitID, level.UnitID, &ingredientID)
	if err != nil {
		return decimal.Zero, err
	}
	return level.LastCost.Mul(m).Round(4), nil
}

func (s *service) Ship(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error) {
	transfer, err := s.transition(ctx, organizationID, transferID, func(tx *gorm.DB, transfer *models.StockTransfer) error {
		if transfer.Status != enums.StockTransferStatusDraft {
			return invalidTransition("ship", transfer.Status)
		}
		repo := s.repo.WithTx(tx)
		items, err := repo.Items(ctx, transfer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfer items")
		}

		sourceID := transfer.ID
		actorID := userID
		for _, item := range items {
			unitID := item.UnitID
			if _, err := s.stock.PostEntry(ctx, tx, inventory.PostInput{
				OrganizationID: organizationID,
				OutletID:       transfer.FromOutletID,
				IngredientID:   item.IngredientID,
				ChangeQty:      item.Qty.Neg(),
				SourceType:     enums.LedgerSourceTransferOut,
				SourceID:       &sourceID,
				UnitID:         &unitID,
				Remarks:        shipRemarks,
				ActorUserID:    &actorID,
				Guard:          inventory.GuardAvailable,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		transfer.Status = enums.StockTransferStatusShipped
		transfer.ShippedAt = &now
		transfer.ShippedBy = &actorID
		transfer.Items = items
		if err := repo.UpdateStatus(ctx, transfer.ID, map[string]any{
			"status":     transfer.Status,
			"shipped_at": now,
			"shipped_by": actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock transfer")
		}
		return s.emit(ctx, tx, enums.EventStockTransferShipped, transfer, userID, now)
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, transfer, "stock transfer shipped")
	return transfer, nil
}

func (s *service) Receive(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error) {
	transfer, err := s.transition(ctx, organizationID, transferID, func(tx *gorm.DB, transfer *models.StockTransfer) error {
		if transfer.Status != enums.StockTransferStatusShipped {
			return invalidTransition("receive", transfer.Status)
		}
		repo := s.repo.WithTx(tx)
		items, err := repo.Items(ctx, transfer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfer items")
		}

		sourceID := transfer.ID
		actorID := userID
		for _, item := range items {
			unitID := item.UnitID
			unitCost := item.UnitCost
			if _, err := s.stock.PostEntry(ctx, tx, inventory.PostInput{
				OrganizationID: organizationID,
				OutletID:       transfer.ToOutletID,
				IngredientID:   item.IngredientID,
				ChangeQty:      item.Qty,
				SourceType:     enums.LedgerSourceTransferIn,
				SourceID:       &sourceID,
				UnitID:         &unitID,
				UnitCost:       &unitCost,
				Remarks:        receiveRemarks,
				ActorUserID:    &actorID,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		transfer.Status = enums.StockTransferStatusReceived
		transfer.ReceivedAt = &now
		transfer.ReceivedBy = &actorID
		transfer.Items = items
		if err := repo.UpdateStatus(ctx, transfer.ID, map[string]any{
			"status":      transfer.Status,
			"received_at": now,
			"received_by": actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock transfer")
		}
		if transfer.StockRequestID != nil {
			if err := s.requests.MarkFulfilled(ctx, tx, organizationID, *transfer.StockRequestID); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, enums.EventStockTransferReceived, transfer, userID, now)
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, transfer, "stock transfer received")
	return transfer, nil
}

func (s *service) Cancel(ctx context.Context, organizationID, transferID, userID uuid.UUID) (*models.StockTransfer, error) {
	transfer, err := s.transition(ctx, organizationID, transferID, func(tx *gorm.DB, transfer *models.StockTransfer) error {
		switch transfer.Status {
		case enums.StockTransferStatusDraft:
		case enums.StockTransferStatusReceived:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "Cannot cancel received transfer")
		case enums.StockTransferStatusShipped:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "Cannot cancel shipped transfer. Please receive it first.")
		default:
			return invalidTransition("cancel", transfer.Status)
		}
		transfer.Status = enums.StockTransferStatusCancelled
		return s.repo.WithTx(tx).UpdateStatus(ctx, transfer.ID, map[string]any{"status": transfer.Status})
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, transfer, "stock transfer cancelled")
	return transfer, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, transfer *models.StockTransfer, userID uuid.UUID, at time.Time) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateStockTransfer,
		AggregateID:   transfer.ID,
		Version:       1,
		Actor:         actor(userID, transfer.OrganizationID),
		Data: payloads.StockTransferEvent{
			StockTransferID: transfer.ID,
			OrganizationID:  transfer.OrganizationID,
			FromOutletID:    transfer.FromOutletID,
			ToOutletID:      transfer.ToOutletID,
			TransferNo:      transfer.TransferNo,
			StockRequestID:  transfer.StockRequestID,
			Status:          string(transfer.Status),
			OccurredAt:      at,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock transfer event")
	}
	return nil
}

func (s *service) transition(ctx context.Context, organizationID, transferID uuid.UUID, fn func(tx *gorm.DB, transfer *models.StockTransfer) error) (*models.StockTransfer, error) {
	var transfer *models.StockTransfer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).LockByID(ctx, organizationID, transferID)
		if err != nil {
			return notFoundOr(err)
		}
		if err := fn(tx, locked); err != nil {
			return err
		}
		transfer = locked
		return nil
	})
	return transfer, err
}

func (s *service) Get(ctx context.Context, organizationID, transferID uuid.UUID) (*models.StockTransfer, error) {
	transfer, err := s.repo.FindByID(ctx, organizationID, transferID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return transfer, nil
}

func (s *service) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*TransferPage, error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	transfers, err := s.repo.List(ctx, organizationID, filter, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock transfers")
	}

	page := &TransferPage{}
	page.Items, page.NextCursor = pagination.Trim(transfers, filter.Limit, func(row models.StockTransfer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, nil
}

func (s *service) logTransition(ctx context.Context, transfer *models.StockTransfer, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stock_transfer_id": transfer.ID.String(),
		"transfer_no":       transfer.TransferNo,
		"status":            string(transfer.Status),
	})
	s.logg.Info(logCtx, msg)
}

func invalidTransition(action string, status enums.StockTransferStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("Cannot %s transfer with status: %s", action, status)).
		WithDetails(map[string]any{"status": status})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Stock transfer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfer")
}

func actor(userID, organizationID uuid.UUID) *outbox.ActorRef {
	org := organizationID
	return &outbox.ActorRef{UserID: userID, OrganizationID: &org}
}
