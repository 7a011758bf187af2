package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lowStockSource interface {
	OrganizationsWithLowStock(ctx context.Context) ([]uuid.UUID, error)
	LowStock(ctx context.Context, organizationID uuid.UUID) (*inventory.LowStockReport, error)
}

type LowStockDigestJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Inventory lowStockSource
	Outbox    outboxPublisher
}

// NewLowStockDigestJob emits one low_stock_digest event per organization
// that has rows at or below their reorder level.
func NewLowStockDigestJob(params LowStockDigestJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &lowStockDigestJob{
		logg:      params.Logger,
		db:        params.DB,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		now:       time.Now,
	}, nil
}

type lowStockDigestJob struct {
	logg      *logger.Logger
	db        txRunner
	inventory lowStockSource
	outbox    outboxPublisher
	now       func() time.Time
}

func (j *lowStockDigestJob) Name() string { return "low-stock-digest" }

// Run keeps going past a failing organization; the failures come back
// combined.
func (j *lowStockDigestJob) Run(ctx context.Context) error {
	orgs, err := j.inventory.OrganizationsWithLowStock(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	var (
		errs    error
		emitted int
	)
	for _, orgID := range orgs {
		sent, err := j.digest(ctx, orgID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("organization %s: %w", orgID, err))
			continue
		}
		if sent {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"organizations": len(orgs),
		"digests":       emitted,
		"failures":      len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "low stock digest complete")
	return errs
}

func (j *lowStockDigestJob) digest(ctx context.Context, orgID uuid.UUID) (bool, error) {
	report, err := j.inventory.LowStock(ctx, orgID)
	if err != nil {
		return false, err
	}
	if len(report.Items) == 0 {
		return false, nil
	}

	generatedAt := j.now().UTC()
	items := make([]payloads.LowStockDigestItem, 0, len(report.Items))
	for _, row := range report.Items {
		items = append(items, payloads.LowStockDigestItem{
			OutletID:       row.OutletID,
			OutletName:     row.OutletName,
			IngredientID:   row.IngredientID,
			IngredientName: row.IngredientName,
			QtyOnHand:      row.QtyOnHand,
			MinQty:         row.MinQty,
			Shortage:       row.Shortage,
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventLowStockDigest,
		AggregateType: enums.AggregateOrganization,
		AggregateID:   orgID,
		Version:       1,
		OccurredAt:    generatedAt,
		Data: payloads.LowStockDigestEvent{
			OrganizationID: orgID,
			GeneratedAt:    generatedAt,
			Items:          items,
		},
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
