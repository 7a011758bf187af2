package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

// Repository persists sales orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.SalesOrder) error
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.SalesOrder, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.SalesOrder, error)
	ReportLines(ctx context.Context, organizationID uuid.UUID, outletID *uuid.UUID, from, to time.Time) ([]ReportLine, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a sales repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.SalesOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.SalesOrder, error) {
	var order models.SalesOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.SalesOrder, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ?", organizationID)
	if filter.OutletID != nil {
		q = q.Where("outlet_id = ?", *filter.OutletID)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var orders []models.SalesOrder
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&orders).Error
	return orders, err
}

// ReportLines returns the sold lines of orders placed in [from, to).
func (r *repository) ReportLines(ctx context.Context, organizationID uuid.UUID, outletID *uuid.UUID, from, to time.Time) ([]ReportLine, error) {
	q := r.db.WithContext(ctx).
		Table("sales_order_items AS soi").
		Select(`so.id AS order_id, so.total_amount AS order_total, soi.menu_id, m.name AS menu_name, m.category,
			soi.qty, soi.price_at_that_time, soi.hpp_at_that_time, soi.total_item_amount`).
		Joins("JOIN sales_orders so ON so.id = soi.sales_order_id").
		Joins("JOIN menus m ON m.id = soi.menu_id").
		Where("so.organization_id = ? AND so.order_datetime >= ? AND so.order_datetime < ?", organizationID, from.UTC(), to.UTC())
	if outletID != nil {
		q = q.Where("so.outlet_id = ?", *outletID)
	}

	var lines []ReportLine
	err := q.Order("so.order_datetime ASC").Order("soi.id ASC").Scan(&lines).Error
	return lines, err
}
