package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
)

// Repository reads and writes the organization's master data.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOutlet(ctx context.Context, organizationID, id uuid.UUID) (*models.Outlet, error)
	FindSupplier(ctx context.Context, organizationID, id uuid.UUID) (*models.Supplier, error)
	FindIngredient(ctx context.Context, organizationID, id uuid.UUID) (*models.Ingredient, error)
	FindMenu(ctx context.Context, organizationID, id uuid.UUID) (*models.Menu, error)
	FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	ListOutlets(ctx context.Context, organizationID uuid.UUID) ([]models.Outlet, error)
	ListIngredients(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Ingredient, error)
	ListMenus(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Menu, error)
	CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error
	CreateMenu(ctx context.Context, menu *models.Menu) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a catalog repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOutlet(ctx context.Context, organizationID, id uuid.UUID) (*models.Outlet, error) {
	var outlet models.Outlet
	if err := r.scoped(ctx, organizationID, id).First(&outlet).Error; err != nil {
		return nil, err
	}
	return &outlet, nil
}

func (r *repository) FindSupplier(ctx context.Context, organizationID, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.scoped(ctx, organizationID, id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindIngredient(ctx context.Context, organizationID, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.scoped(ctx, organizationID, id).First(&ingredient).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) FindMenu(ctx context.Context, organizationID, id uuid.UUID) (*models.Menu, error) {
	var menu models.Menu
	if err := r.scoped(ctx, organizationID, id).First(&menu).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

func (r *repository) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) ListOutlets(ctx context.Context, organizationID uuid.UUID) ([]models.Outlet, error) {
	var outlets []models.Outlet
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&outlets).Error
	return outlets, err
}

func (r *repository) ListIngredients(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Ingredient, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var ingredients []models.Ingredient
	err := q.Order("name ASC").Find(&ingredients).Error
	return ingredients, err
}

func (r *repository) ListMenus(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Menu, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var menus []models.Menu
	err := q.Order("name ASC").Find(&menus).Error
	return menus, err
}

func (r *repository) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

func (r *repository) CreateMenu(ctx context.Context, menu *models.Menu) error {
	return r.db.WithContext(ctx).Create(menu).Error
}

func (r *repository) scoped(ctx context.Context, organizationID, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Where("id = ? AND organization_id = ?", id, organizationID)
}
