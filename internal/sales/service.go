package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/numbering"
	"github.com/angelmondragon/kitchenledger-backend/internal/recipes"
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

// Service records point-of-sale transactions.
type Service interface {
	CreateSalesOrder(ctx context.Context, organizationID, userID uuid.UUID, input CreateOrderInput) (*models.SalesOrder, error)
	GetSalesOrder(ctx context.Context, organizationID, orderID uuid.UUID) (*models.SalesOrder, error)
	ListSalesOrders(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*OrderPage, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog catalog.Lookup
	coster  recipes.Coster
	stock   inventory.Poster
	numbers numbering.Generator
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService wires the sales flow: costing, stock deduction and numbering.
func NewService(
	repo Repository,
	tx txRunner,
	lookup catalog.Lookup,
	coster recipes.Coster,
	stock inventory.Poster,
	numbers numbering.Generator,
	outbox outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if coster == nil {
		return nil, fmt.Errorf("recipe coster required")
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
		coster:  coster,
		stock:   stock,
		numbers: numbers,
		outbox:  outbox,
		logg:    logg,
	}, nil
}

// CreateSalesOrder costs every line, freezes the snapshot and deducts the
// ingredients. Any shortfall fails the whole order.
func (s *service) CreateSalesOrder(ctx context.Context, organizationID, userID uuid.UUID, input CreateOrderInput) (*models.SalesOrder, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for i, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty must be greater than zero").
				WithDetails(map[string]any{"index": i})
		}
	}

	var (
		created   *models.SalesOrder
		totalCost decimal.Decimal
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		outlet, err := s.catalog.Outlet(ctx, tx, organizationID, input.OutletID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		order := &models.SalesOrder{
			ID:             uuid.New(),
			OrganizationID: organizationID,
			OutletID:       outlet.ID,
			UserID:         userID,
			OrderDatetime:  now,
			TotalAmount:    decimal.Zero,
			PaymentMethod:  input.PaymentMethod,
			CustomerName:   input.CustomerName,
			Notes:          input.Notes,
			CreatedAt:      now,
		}

		totalCost = decimal.Zero
		for _, line := range input.Items {
			menu, err := s.catalog.Menu(ctx, tx, organizationID, line.MenuID)
			if err != nil {
				return err
			}
			if !menu.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Menu '%s' is not active", menu.Name)).
					WithDetails(map[string]any{"menu_id": menu.ID})
			}

			qty := decimal.NewFromInt(int64(line.Qty))
			cost, err := s.coster.CostRecipe(ctx, tx, recipes.CostInput{
				OrganizationID: organizationID,
				MenuID:         menu.ID,
				OutletID:       outlet.ID,
				Quantity:       qty,
			})
			if err != nil {
				return err
			}

			amount := menu.Price.Mul(qty)
			order.TotalAmount = order.TotalAmount.Add(amount)
			totalCost = totalCost.Add(cost.TotalCost)
			order.Items = append(order.Items, models.SalesOrderItem{
				MenuID:          menu.ID,
				Qty:             line.Qty,
				PriceAtThatTime: menu.Price,
				HPPAtThatTime:   cost.UnitCost,
				TotalItemAmount: amount,
				IngredientUsage: cost.Lines,
				Notes:           line.Notes,
			})
		}

		orderNo, err := s.numbers.Next(ctx, tx, numbering.Request{
			OrganizationID: organizationID,
			Type:           enums.DocumentSalesOrder,
			OutletCode:     outlet.Code,
		})
		if err != nil {
			return err
		}
		order.OrderNo = orderNo

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sales order")
		}

		if err := s.deduct(ctx, tx, order, userID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSalesOrderCompleted,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor(userID, organizationID),
			Data: payloads.SalesOrderCompletedEvent{
				SalesOrderID:   order.ID,
				OrganizationID: organizationID,
				OutletID:       outlet.ID,
				OrderNo:        order.OrderNo,
				TotalAmount:    order.TotalAmount,
				TotalCost:      totalCost,
				ItemCount:      len(order.Items),
				OrderedAt:      order.OrderDatetime,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sales order event")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"sales_order_id": created.ID.String(),
			"order_no":       created.OrderNo,
			"outlet_id":      created.OutletID.String(),
			"total_amount":   created.TotalAmount.String(),
			"total_cost":     totalCost.String(),
		})
		s.logg.Info(logCtx, "sales order completed")
	}
	return created, nil
}

// deduct posts one SALE entry per ingredient line. Lines are expressed in
// the recipe unit; the ledger converts them to the stock unit.
func (s *service) deduct(ctx context.Context, tx *gorm.DB, order *models.SalesOrder, userID uuid.UUID) error {
	orderID := order.ID
	actorID := userID
	remarks := fmt.Sprintf("Sold via order %s", order.OrderNo)
	for _, usage := range postingOrder(order.Items) {
		unitID := usage.UnitID
		unitCost := usage.UnitCost
		if _, err := s.stock.PostEntry(ctx, tx, inventory.PostInput{
			OrganizationID: order.OrganizationID,
			OutletID:       order.OutletID,
			IngredientID:   usage.IngredientID,
			ChangeQty:      usage.Qty.Neg(),
			SourceType:     enums.LedgerSourceSale,
			SourceID:       &orderID,
			UnitID:         &unitID,
			UnitCost:       &unitCost,
			Remarks:        remarks,
			ActorUserID:    &actorID,
			Guard:          inventory.GuardAvailable,
		}); err != nil {
			return err
		}
	}
	return nil
}

// postingOrder flattens the usage lines sorted by ingredient id, so every
// order locks stock rows in the same sequence.
func postingOrder(items []models.SalesOrderItem) []models.IngredientUsage {
	var lines []models.IngredientUsage
	for _, item := range items {
		lines = append(lines, item.IngredientUsage...)
	}
	slices.SortStableFunc(lines, func(a, b models.IngredientUsage) int {
		return bytes.Compare(a.IngredientID[:], b.IngredientID[:])
	})
	return lines
}

func (s *service) GetSalesOrder(ctx context.Context, organizationID, orderID uuid.UUID) (*models.SalesOrder, error) {
	order, err := s.repo.FindByID(ctx, organizationID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sales order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales order")
	}
	return order, nil
}

func (s *service) ListSalesOrders(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, err := s.repo.List(ctx, organizationID, filter, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales orders")
	}

	page := &OrderPage{}
	page.Items, page.NextCursor = pagination.Trim(orders, filter.Limit, func(row models.SalesOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, nil
}

func actor(userID, organizationID uuid.UUID) *outbox.ActorRef {
	org := organizationID
	return &outbox.ActorRef{UserID: userID, OrganizationID: &org}
}
