package stockrequests

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

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.StockRequest) error
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockRequest, error)
	LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockRequest, error)
	Items(ctx context.Context, requestID uuid.UUID) ([]models.StockRequestItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetApprovedQty(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.StockRequest, error)
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

func (r *repository) Create(ctx context.Context, request *models.StockRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockRequest, error) {
	var request models.StockRequest
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockRequest, error) {
	var request models.StockRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) Items(ctx context.Context, requestID uuid.UUID) ([]models.StockRequestItem, error) {
	var items []models.StockRequestItem
	err := r.db.WithContext(ctx).
		Where("stock_request_id = ?", requestID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.StockRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SetApprovedQty(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.StockRequestItem{}).
		Where("id = ?", itemID).
		Update("approved_qty", qty).Error
}

func (r *repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.StockRequest, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ?", organizationID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.FromOutletID != nil {
		q = q.Where("from_outlet_id = ?", *filter.FromOutletID)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var requests []models.StockRequest
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&requests).Error
	return requests, err
}
