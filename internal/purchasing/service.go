package purchasing

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
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

const receiveRemarks = "Received from PO"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives purchase orders through DRAFT, ORDERED and RECEIVED.
type Service interface {
	Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.PurchaseOrder, error)
	Approve(ctx context.Context, organizationID, orderID, userID uuid.UUID) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, organizationID, orderID, userID uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, organizationID, orderID, userID uuid.UUID) (*models.PurchaseOrder, error)
	Get(ctx context.Context, organizationID, orderID uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*OrderPage, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog catalog.Lookup
	stock   inventory.Poster
	numbers numbering.Generator
	outbox  outboxPublisher
	logg    *logger.Logger
}

func NewService(
	repo Repository,
	tx txRunner,
	lookup catalog.Lookup,
	stock inventory.Poster,
	numbers numbering.Generator,
	outbox outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchasing repository required")
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
	if numbers == nil {
		return nil, fmt.Errorf("document numbering required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: lookup,
		stock:   stock,
		numbers: numbers,
		outbox:  outbox,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, organizationID, userID uuid.UUID, input CreateInput) (*models.PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order requires at least one item")
	}
	for i, item := range input.Items {
		if !item.QtyOrdered.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty_ordered must be greater than zero").
				WithDetails(map[string]any{"index": i})
		}
		if item.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_cost must not be negative").
				WithDetails(map[string]any{"index": i})
		}
	}

	var created *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.catalog.Supplier(ctx, tx, organizationID, input.SupplierID); err != nil {
			return err
		}
		outlet, err := s.catalog.Outlet(ctx, tx, organizationID, input.OutletID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		orderDate := now
		if input.OrderDate != nil {
			orderDate = input.OrderDate.UTC()
		}
		createdBy := userID
		order := &models.PurchaseOrder{
			OrganizationID: organizationID,
			SupplierID:     input.SupplierID,
			OutletID:       outlet.ID,
			Status:         enums.PurchaseOrderStatusDraft,
			OrderDate:      orderDate,
			ExpectedDate:   input.ExpectedDate,
			TotalAmount:    decimal.Zero,
			Notes:          input.Notes,
			CreatedBy:      &createdBy,
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
			lineTotal := item.QtyOrdered.Mul(item.UnitCost)
			order.TotalAmount = order.TotalAmount.Add(lineTotal)
			order.Items = append(order.Items, models.PurchaseOrderItem{
				IngredientID: item.IngredientID,
				QtyOrdered:   item.QtyOrdered,
				QtyReceived:  decimal.Zero,
				UnitID:       item.UnitID,
				UnitCost:     item.UnitCost,
				TotalCost:    lineTotal,
				Notes:        item.Notes,
			})
		}
		order.TotalAmount = order.TotalAmount.Round(2)

		poNo, err := s.numbers.Next(ctx, tx, numbering.Request{OrganizationID: organizationID, Type: enums.DocumentPurchaseOrder})
		if err != nil {
			return err
		}
		order.PONo = poNo

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(ctx, created, "purchase order created")
	return created, nil
}

func (s *service) Approve(ctx context.Context, organizationID, orderID, userID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.transition(ctx, organizationID, orderID, func(tx *gorm.DB, order *models.PurchaseOrder) error {
		if order.Status != enums.PurchaseOrderStatusDraft {
			return invalidTransition("approve", order.Status)
		}
		order.Status = enums.PurchaseOrderStatusOrdered
		return s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, map[string]any{"status": order.Status})
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, order, "purchase order approved")
	return order, nil
}

// Receive books every line into stock at its unit cost and finalizes the
// order. DRAFT orders may be received without approval.
func (s *service) Receive(ctx context.Context, organizationID, orderID, userID uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error) {
	received := make(map[uuid.UUID]decimal.Decimal, len(input.Items))
	for _, item := range input.Items {
		if item.QtyReceived.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty_received must not be negative").
				WithDetails(map[string]any{"item_id": item.ItemID})
		}
		received[item.ItemID] = item.QtyReceived
	}

	var from enums.PurchaseOrderStatus
	order, err := s.transition(ctx, organizationID, orderID, func(tx *gorm.DB, order *models.PurchaseOrder) error {
		if order.Status != enums.PurchaseOrderStatusDraft && order.Status != enums.PurchaseOrderStatusOrdered {
			return invalidTransition("receive", order.Status)
		}
		from = order.Status

		repo := s.repo.WithTx(tx)
		items, err := repo.Items(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order items")
		}
		known := make(map[uuid.UUID]struct{}, len(items))
		for _, item := range items {
			known[item.ID] = struct{}{}
		}
		for id := range received {
			if _, ok := known[id]; !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this purchase order").
					WithDetails(map[string]any{"item_id": id})
			}
		}

		sourceID := order.ID
		actorID := userID
		value := decimal.Zero
		for i := range items {
			item := &items[i]
			qty := received[item.ID]
			if err := repo.SetQtyReceived(ctx, item.ID, qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update qty_received")
			}
			item.QtyReceived = qty
			if qty.IsZero() {
				continue
			}
			unitID := item.UnitID
			unitCost := item.UnitCost
			if _, err := s.stock.PostEntry(ctx, tx, inventory.PostInput{
				OrganizationID: order.OrganizationID,
				OutletID:       order.OutletID,
				IngredientID:   item.IngredientID,
				ChangeQty:      qty,
				SourceType:     enums.LedgerSourcePurchase,
				SourceID:       &sourceID,
				UnitID:         &unitID,
				UnitCost:       &unitCost,
				Remarks:        receiveRemarks,
				ActorUserID:    &actorID,
			}); err != nil {
				return err
			}
			value = value.Add(qty.Mul(unitCost))
		}

		receivedDate := time.Now().UTC()
		if input.ReceivedDate != nil {
			receivedDate = input.ReceivedDate.UTC()
		}
		order.Status = enums.PurchaseOrderStatusReceived
		order.ReceivedDate = &receivedDate
		order.ReceivedBy = &actorID
		order.Items = items
		if err := repo.UpdateStatus(ctx, order.ID, map[string]any{
			"status":        order.Status,
			"received_date": receivedDate,
			"received_by":   actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderReceived,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor(userID, organizationID),
			Data: payloads.PurchaseOrderReceivedEvent{
				PurchaseOrderID: order.ID,
				OrganizationID:  organizationID,
				OutletID:        order.OutletID,
				SupplierID:      order.SupplierID,
				PONo:            order.PONo,
				ReceivedValue:   value,
				ReceivedBy:      userID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit purchase order event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, order, "purchase order received")
	if from == enums.PurchaseOrderStatusDraft && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"purchase_order_id": order.ID.String()}), "purchase order received without approval")
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, organizationID, orderID, userID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.transition(ctx, organizationID, orderID, func(tx *gorm.DB, order *models.PurchaseOrder) error {
		switch order.Status {
		case enums.PurchaseOrderStatusReceived:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "Cannot cancel received purchase order")
		case enums.PurchaseOrderStatusCancelled:
			return invalidTransition("cancel", order.Status)
		}
		order.Status = enums.PurchaseOrderStatusCancelled
		return s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, map[string]any{"status": order.Status})
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, order, "purchase order cancelled")
	return order, nil
}

// transition locks the order and runs fn in one transaction.
func (s *service) transition(ctx context.Context, organizationID, orderID uuid.UUID, fn func(tx *gorm.DB, order *models.PurchaseOrder) error) (*models.PurchaseOrder, error) {
	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).LockByID(ctx, organizationID, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		if err := fn(tx, locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	return order, err
}

func (s *service) Get(ctx context.Context, organizationID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.repo.FindByID(ctx, organizationID, orderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, err := s.repo.List(ctx, organizationID, filter, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}

	page := &OrderPage{}
	page.Items, page.NextCursor = pagination.Trim(orders, filter.Limit, func(row models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, nil
}

func (s *service) logTransition(ctx context.Context, order *models.PurchaseOrder, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"purchase_order_id": order.ID.String(),
		"po_no":             order.PONo,
		"status":            order.Status.String(),
	})
	s.logg.Info(logCtx, msg)
}

func invalidTransition(action string, status enums.PurchaseOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("Cannot %s PO with status: %s", action, status)).
		WithDetails(map[string]any{"status": status})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Purchase order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
}

func actor(userID, organizationID uuid.UUID) *outbox.ActorRef {
	org := organizationID
	return &outbox.ActorRef{UserID: userID, OrganizationID: &org}
}
