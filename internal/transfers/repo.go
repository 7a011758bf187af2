package transfers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.StockTransfer) error
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockTransfer, error)
	LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockTransfer, error)
	Items(ctx context.Context, transferID uuid.UUID) ([]models.StockTransferItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.StockTransfer, error)
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

func (r *repository) Create(ctx context.Context, transfer *models.StockTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) LockByID(ctx context.Context, organizationID, id uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) Items(ctx context.Context, transferID uuid.UUID) ([]models.StockTransferItem, error) {
	var items []models.StockTransferItem
	err := r.db.WithContext(ctx).
		Where("stock_transfer_id = ?", transferID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.StockTransfer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.StockTransfer, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ?", organizationID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.FromOutletID != nil {
		q = q.Where("from_outlet_id = ?", *filter.FromOutletID)
	}
	if filter.ToOutletID != nil {
		q = q.Where("to_outlet_id = ?", *filter.ToOutletID)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var transfers []models.StockTransfer
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&transfers).Error
	return transfers, err
}
