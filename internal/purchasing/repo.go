package purchasing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

// Repository persists purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.PurchaseOrder, error)
	LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.PurchaseOrder, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetQtyReceived(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID loads the header FOR UPDATE; lines are read separately.
func (r *repository) LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Items(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error) {
	var items []models.PurchaseOrderItem
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SetQtyReceived(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrderItem{}).
		Where("id = ?", itemID).
		Update("qty_received", qty).Error
}

func (r *repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ?", organizationID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.OutletID != nil {
		q = q.Where("outlet_id = ?", *filter.OutletID)
	}
	if filter.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filter.SupplierID)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var orders []models.PurchaseOrder
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
