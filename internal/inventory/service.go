package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/metrics"
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

// Poster is the slice of the ledger document services depend on. PostEntry
// and CurrentStock run on the caller's transaction.
type Poster interface {
	PostEntry(ctx context.Context, tx *gorm.DB, in PostInput) (*PostResult, error)
	CurrentStock(ctx context.Context, tx *gorm.DB, key StockKey) (*models.StockLevel, error)
}

// Service owns stock levels and the inventory ledger.
type Service interface {
	Poster
	Post(ctx context.Context, in PostInput) (*PostResult, error)
	Adjust(ctx context.Context, in AdjustInput) (*PostResult, error)
	SetReorderLevel(ctx context.Context, in ReorderLevelInput) (*models.StockLevel, error)
	ListStock(ctx context.Context, organizationID uuid.UUID, filter StockFilter) ([]StockView, error)
	ListLedger(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter) (*LedgerPage, error)
	LowStock(ctx context.Context, organizationID uuid.UUID) (*LowStockReport, error)
	OrganizationsWithLowStock(ctx context.Context) ([]uuid.UUID, error)
	ExportLedgerXLSX(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter, w io.Writer) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	converter units.Converter
	metrics   *metrics.InventoryMetrics
	logg      *logger.Logger
}

// NewService wires the ledger with its collaborators. Metrics and logger
// may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, converter units.Converter, m *metrics.InventoryMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if converter == nil {
		return nil, fmt.Errorf("unit converter required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		converter: converter,
		metrics:   m,
		logg:      logg,
	}, nil
}

func (s *service) Post(ctx context.Context, in PostInput) (*PostResult, error) {
	var result *PostResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.PostEntry(ctx, tx, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PostEntry appends one ledger entry and moves the stock row by the same
// amount. The row is locked for the read-check-write sequence.
func (s *service) PostEntry(ctx context.Context, tx *gorm.DB, in PostInput) (*PostResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger post")
	}
	if err := validatePost(in); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	key := StockKey{OrganizationID: in.OrganizationID, OutletID: in.OutletID, IngredientID: in.IngredientID}

	ingredient, err := repo.FindIngredient(ctx, in.OrganizationID, in.IngredientID)
	if err != nil {
		return nil, notFoundOr(err, "ingredient not found", "load ingredient")
	}
	if _, err := repo.FindOutlet(ctx, in.OrganizationID, in.OutletID); err != nil {
		return nil, notFoundOr(err, "outlet not found", "load outlet")
	}

	level, err := repo.LockStockLevel(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock level")
	}
	existed := level != nil

	change := in.ChangeQty
	unitCost := in.UnitCost
	if !existed {
		if change.IsNegative() {
			switch in.Guard {
			case GuardAdjust:
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cannot create new stock with negative quantity").
					WithDetails(map[string]any{"ingredient_id": in.IngredientID, "outlet_id": in.OutletID})
			case GuardAvailable:
				s.metrics.IncInsufficient(in.SourceType.String())
				return nil, insufficient(ingredient, in.OutletID, change.Neg(), decimal.Zero, "")
			}
		}
		fresh := &models.StockLevel{
			OrganizationID: in.OrganizationID,
			OutletID:       in.OutletID,
			IngredientID:   in.IngredientID,
			QtyOnHand:      decimal.Zero,
			MinQty:         decimal.Zero,
			UnitID:         ingredient.BaseUnitID,
			LastCost:       decimal.Zero,
		}
		if err := repo.EnsureStockLevel(ctx, fresh); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock level")
		}
		level, err = repo.LockStockLevel(ctx, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock level")
		}
	}

	multiplier := decimal.NewFromInt(1)
	if in.UnitID != nil && *in.UnitID != level.UnitID {
		m, _, err := s.converter.WithTx(tx).Multiplier(ctx, *in.UnitID, level.UnitID, &ingredient.ID)
		if err != nil {
			return nil, err
		}
		multiplier = m
		change = change.Mul(m)
		if unitCost != nil && !m.IsZero() {
			converted := unitCost.Div(m)
			unitCost = &converted
		}
	}

	before := level.QtyOnHand
	after := before.Add(change)
	switch in.Guard {
	case GuardAvailable:
		if after.IsNegative() {
			s.metrics.IncInsufficient(in.SourceType.String())
			return nil, insufficient(ingredient, in.OutletID, change.Neg(), before, "")
		}
	case GuardAdjust:
		if after.IsNegative() {
			return nil, insufficient(ingredient, in.OutletID, change.Neg(), before, "Adjustment would result in negative stock")
		}
	}

	entry := models.LedgerEntry{
		OrganizationID: in.OrganizationID,
		OutletID:       in.OutletID,
		IngredientID:   in.IngredientID,
		ChangeQty:      change,
		SourceType:     in.SourceType,
		SourceID:       in.SourceID,
		UnitID:         level.UnitID,
		CreatedBy:      in.ActorUserID,
		CreatedAt:      time.Now().UTC(),
	}
	if unitCost != nil {
		entry.UnitCost = decimal.NewNullDecimal(*unitCost)
	}
	switch {
	case in.TotalCost != nil:
		entry.TotalCost = decimal.NewNullDecimal(*in.TotalCost)
	case unitCost != nil:
		entry.TotalCost = decimal.NewNullDecimal(change.Abs().Mul(*unitCost))
	}
	if in.Remarks != "" {
		remarks := in.Remarks
		entry.Remarks = &remarks
	}
	if err := repo.InsertLedgerEntry(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ledger entry")
	}

	updates := map[string]any{"qty_on_hand": after}
	if change.IsPositive() && unitCost != nil {
		updates["last_cost"] = *unitCost
		level.LastCost = *unitCost
	}
	if err := repo.UpdateStockLevel(ctx, level.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock level")
	}
	level.QtyOnHand = after
	s.metrics.IncEntry(in.SourceType.String())

	wentLow := crossedReorderLevel(level.MinQty, before, after)
	if wentLow {
		s.metrics.IncLowStock()
		event := outbox.DomainEvent{
			EventType:     enums.EventLowStockDetected,
			AggregateType: enums.AggregateStockLevel,
			AggregateID:   level.ID,
			Version:       1,
			Actor:         actorRef(in.ActorUserID, in.OrganizationID),
			Data: payloads.LowStockDetectedEvent{
				OrganizationID: in.OrganizationID,
				OutletID:       in.OutletID,
				IngredientID:   in.IngredientID,
				QtyOnHand:      after,
				MinQty:         level.MinQty,
				UnitID:         level.UnitID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit low stock event")
		}
	}

	return &PostResult{
		Entry:      entry,
		Stock:      *level,
		QtyBefore:  before,
		WentLow:    wentLow,
		Multiplier: multiplier,
	}, nil
}

// CurrentStock returns the stored row, or a zero-quantity row in the
// ingredient's base unit when nothing was ever posted.
func (s *service) CurrentStock(ctx context.Context, tx *gorm.DB, key StockKey) (*models.StockLevel, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	level, err := repo.FindStockLevel(ctx, key)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock level")
	}

	ingredient, err := repo.FindIngredient(ctx, key.OrganizationID, key.IngredientID)
	if err != nil {
		return nil, notFoundOr(err, "ingredient not found", "load ingredient")
	}
	return &models.StockLevel{
		OrganizationID: key.OrganizationID,
		OutletID:       key.OutletID,
		IngredientID:   key.IngredientID,
		QtyOnHand:      decimal.Zero,
		MinQty:         decimal.Zero,
		UnitID:         ingredient.BaseUnitID,
		LastCost:       decimal.Zero,
	}, nil
}

func (s *service) Adjust(ctx context.Context, in AdjustInput) (*PostResult, error) {
	if in.AdjustmentQty.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment_qty must not be zero")
	}
	var result *PostResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).FindOutlet(ctx, in.OrganizationID, in.OutletID); err != nil {
			return notFoundOr(err, "outlet not found", "load outlet")
		}
		actor := in.ActorUserID
		res, err := s.PostEntry(ctx, tx, PostInput{
			OrganizationID: in.OrganizationID,
			OutletID:       in.OutletID,
			IngredientID:   in.IngredientID,
			ChangeQty:      in.AdjustmentQty,
			SourceType:     enums.LedgerSourceAdjustment,
			UnitID:         in.UnitID,
			UnitCost:       in.UnitCost,
			Remarks:        in.Remarks,
			ActorUserID:    &actor,
			Guard:          GuardAdjust,
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"ledger_id":     result.Entry.ID.String(),
			"outlet_id":     in.OutletID.String(),
			"ingredient_id": in.IngredientID.String(),
			"change_qty":    result.Entry.ChangeQty.String(),
		})
		s.logg.Info(logCtx, "inventory adjustment posted")
	}
	return result, nil
}

func (s *service) SetReorderLevel(ctx context.Context, in ReorderLevelInput) (*models.StockLevel, error) {
	if in.MinQty.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_qty must not be negative")
	}
	var level *models.StockLevel
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindOutlet(ctx, in.OrganizationID, in.OutletID); err != nil {
			return notFoundOr(err, "outlet not found", "load outlet")
		}
		ingredient, err := repo.FindIngredient(ctx, in.OrganizationID, in.IngredientID)
		if err != nil {
			return notFoundOr(err, "ingredient not found", "load ingredient")
		}
		fresh := &models.StockLevel{
			OrganizationID: in.OrganizationID,
			OutletID:       in.OutletID,
			IngredientID:   in.IngredientID,
			QtyOnHand:      decimal.Zero,
			MinQty:         decimal.Zero,
			UnitID:         ingredient.BaseUnitID,
			LastCost:       decimal.Zero,
		}
		if err := repo.EnsureStockLevel(ctx, fresh); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock level")
		}
		row, err := repo.LockStockLevel(ctx, in.StockKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock level")
		}
		if err := repo.UpdateStockLevel(ctx, row.ID, map[string]any{"min_qty": in.MinQty}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reorder level")
		}
		row.MinQty = in.MinQty
		level = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (s *service) ListStock(ctx context.Context, organizationID uuid.UUID, filter StockFilter) ([]StockView, error) {
	rows, err := s.repo.ListStock(ctx, organizationID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock")
	}
	for i := range rows {
		rows[i].IsLowStock = rows[i].QtyOnHand.LessThanOrEqual(rows[i].MinQty)
	}
	return rows, nil
}

func (s *service) ListLedger(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter) (*LedgerPage, error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListLedger(ctx, organizationID, filter, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger")
	}

	page := &LedgerPage{}
	page.Items, page.NextCursor = pagination.Trim(rows, filter.Limit, func(row LedgerView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, nil
}

func (s *service) LowStock(ctx context.Context, organizationID uuid.UUID) (*LowStockReport, error) {
	rows, err := s.repo.ListLowStock(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	for i := range rows {
		rows[i].Shortage = rows[i].MinQty.Sub(rows[i].QtyOnHand)
	}
	return &LowStockReport{TotalAlerts: len(rows), Items: rows}, nil
}

func (s *service) OrganizationsWithLowStock(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.OrganizationsWithLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations with low stock")
	}
	return ids, nil
}

func validatePost(in PostInput) error {
	if in.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	if in.OutletID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "outlet_id required")
	}
	if in.IngredientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "ingredient_id required")
	}
	if !in.SourceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid source_type").
			WithDetails(map[string]any{"source_type": in.SourceType})
	}
	if in.ChangeQty.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "change_qty must not be zero")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_cost must not be negative")
	}
	return nil
}

// crossedReorderLevel is true only on the post that moves a row from above
// a positive min_qty to at or below it.
func crossedReorderLevel(minQty, before, after decimal.Decimal) bool {
	if !minQty.IsPositive() {
		return false
	}
	return before.GreaterThan(minQty) && after.LessThanOrEqual(minQty)
}

func insufficient(ingredient *models.Ingredient, outletID uuid.UUID, required, available decimal.Decimal, message string) *pkgerrors.Error {
	if message == "" {
		message = fmt.Sprintf("Insufficient stock for %s", ingredient.Name)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, message).
		WithDetails(map[string]any{
			"ingredient_id":   ingredient.ID,
			"ingredient_name": ingredient.Name,
			"outlet_id":       outletID,
			"required":        required.String(),
			"available":       available.String(),
		})
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func actorRef(userID *uuid.UUID, organizationID uuid.UUID) *outbox.ActorRef {
	org := organizationID
	ref := &outbox.ActorRef{OrganizationID: &org}
	if userID != nil {
		ref.UserID = *userID
	}
	return ref
}
