package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/pagination"
)

// Repository persists stock rows and the append-only ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindIngredient(ctx context.Context, organizationID, ingredientID uuid.UUID) (*models.Ingredient, error)
	FindOutlet(ctx context.Context, organizationID, outletID uuid.UUID) (*models.Outlet, error)
	FindStockLevel(ctx context.Context, key StockKey) (*models.StockLevel, error)
	LockStockLevel(ctx context.Context, key StockKey) (*models.StockLevel, error)
	EnsureStockLevel(ctx context.Context, level *models.StockLevel) error
	UpdateStockLevel(ctx context.Context, id uuid.UUID, updates map[string]any) error
	InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListStock(ctx context.Context, organizationID uuid.UUID, filter StockFilter) ([]StockView, error)
	ListLedger(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter, cursor *pagination.Cursor, limit int) ([]LedgerView, error)
	ListLowStock(ctx context.Context, organizationID uuid.UUID) ([]LowStockItem, error)
	OrganizationsWithLowStock(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an inventory repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindIngredient(ctx context.Context, organizationID, ingredientID uuid.UUID) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", ingredientID, organizationID).
		First(&ing).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

func (r *repository) FindOutlet(ctx context.Context, organizationID, outletID uuid.UUID) (*models.Outlet, error) {
	var outlet models.Outlet
	if err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", outletID, organizationID).
		First(&outlet).Error; err != nil {
		return nil, err
	}
	return &outlet, nil
}

func (r *repository) FindStockLevel(ctx context.Context, key StockKey) (*models.StockLevel, error) {
	var level models.StockLevel
	if err := r.keyed(ctx, key).First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// LockStockLevel selects the row FOR UPDATE. The lock is held until the
// surrounding transaction ends.
func (r *repository) LockStockLevel(ctx context.Context, key StockKey) (*models.StockLevel, error) {
	var level models.StockLevel
	if err := r.keyed(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// EnsureStockLevel inserts the row unless another writer already created it.
func (r *repository) EnsureStockLevel(ctx context.Context, level *models.StockLevel) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "outlet_id"}, {Name: "ingredient_id"}},
			DoNothing: true,
		}).
		Create(level).Error
}

func (r *repository) UpdateStockLevel(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListStock(ctx context.Context, organizationID uuid.UUID, filter StockFilter) ([]StockView, error) {
	q := r.db.WithContext(ctx).
		Table("stock_levels AS s").
		Select(`s.id, s.outlet_id, o.name AS outlet_name, s.ingredient_id, i.name AS ingredient_name,
			s.qty_on_hand, s.min_qty, s.unit_id, u.symbol AS unit_symbol, s.last_cost, s.updated_at`).
		Joins("JOIN outlets o ON o.id = s.outlet_id").
		Joins("JOIN ingredients i ON i.id = s.ingredient_id").
		Joins("JOIN units u ON u.id = s.unit_id").
		Where("s.organization_id = ?", organizationID)
	if filter.OutletID != nil {
		q = q.Where("s.outlet_id = ?", *filter.OutletID)
	}
	if filter.LowStockOnly {
		q = q.Where("s.qty_on_hand <= s.min_qty")
	}

	var rows []StockView
	if err := q.Order("o.name ASC").Order("i.name ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListLedger(ctx context.Context, organizationID uuid.UUID, filter LedgerFilter, cursor *pagination.Cursor, limit int) ([]LedgerView, error) {
	q := r.db.WithContext(ctx).
		Table("inventory_ledger AS l").
		Select(`l.id, l.outlet_id, o.name AS outlet_name, l.ingredient_id, i.name AS ingredient_name,
			l.change_qty, l.source_type, l.source_id, l.unit_id, u.symbol AS unit_symbol,
			l.unit_cost, l.total_cost, l.remarks, l.created_by, l.created_at`).
		Joins("JOIN outlets o ON o.id = l.outlet_id").
		Joins("JOIN ingredients i ON i.id = l.ingredient_id").
		Joins("JOIN units u ON u.id = l.unit_id").
		Where("l.organization_id = ?", organizationID)
	if filter.OutletID != nil {
		q = q.Where("l.outlet_id = ?", *filter.OutletID)
	}
	if filter.IngredientID != nil {
		q = q.Where("l.ingredient_id = ?", *filter.IngredientID)
	}
	if filter.SourceType != nil {
		q = q.Where("l.source_type = ?", *filter.SourceType)
	}
	if cursor != nil {
		q = q.Where("(l.created_at < ?) OR (l.created_at = ? AND l.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []LedgerView
	if err := q.Order("l.created_at DESC").Order("l.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListLowStock(ctx context.Context, organizationID uuid.UUID) ([]LowStockItem, error) {
	var rows []LowStockItem
	err := r.db.WithContext(ctx).
		Table("stock_levels AS s").
		Select(`s.outlet_id, o.name AS outlet_name, o.type AS outlet_type, s.ingredient_id,
			i.name AS ingredient_name, s.qty_on_hand, s.min_qty, u.symbol AS unit_symbol`).
		Joins("JOIN outlets o ON o.id = s.outlet_id").
		Joins("JOIN ingredients i ON i.id = s.ingredient_id").
		Joins("JOIN units u ON u.id = s.unit_id").
		Where("s.organization_id = ? AND s.qty_on_hand <= s.min_qty", organizationID).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN o.type = ? THEN 0 ELSE 1 END, s.qty_on_hand ASC",
			Vars: []any{enums.OutletTypeCentral},
		}}).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OrganizationsWithLowStock lists tenants with at least one row at or
// below a positive reorder level.
func (r *repository) OrganizationsWithLowStock(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Distinct("organization_id").
		Where("min_qty > 0 AND qty_on_hand <= min_qty").
		Pluck("organization_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) keyed(ctx context.Context, key StockKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND outlet_id = ? AND ingredient_id = ?", key.OrganizationID, key.OutletID, key.IngredientID)
}
