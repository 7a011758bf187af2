package recipes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// Repository persists recipe versions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockMenu(ctx context.Context, organizationID, menuID uuid.UUID) (*models.Menu, error)
	FindActiveRecipe(ctx context.Context, menuID uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, menuID uuid.UUID) ([]models.Recipe, error)
	RecipeLines(ctx context.Context, recipeID uuid.UUID) ([]RecipeLine, error)
	MaxVersion(ctx context.Context, menuID uuid.UUID) (int, error)
	DeactivateRecipes(ctx context.Context, menuID uuid.UUID) error
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	FindCentralOutlet(ctx context.Context, organizationID uuid.UUID) (*models.Outlet, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a recipe repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockMenu serializes recipe writes for one menu.
func (r *repository) LockMenu(ctx context.Context, organizationID, menuID uuid.UUID) (*models.Menu, error) {
	var menu models.Menu
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", menuID, organizationID).
		First(&menu).Error; err != nil {
		return nil, err
	}
	return &menu, nil
}

// FindActiveRecipe returns the highest active version, or nil when the menu
// has no active recipe.
func (r *repository) FindActiveRecipe(ctx context.Context, menuID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Where("menu_id = ? AND is_active = ?", menuID, true).
		Order("version DESC").
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *repository) ListRecipes(ctx context.Context, menuID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("menu_id = ?", menuID).
		Order("version DESC").
		Find(&recipes).Error
	return recipes, err
}

func (r *repository) RecipeLines(ctx context.Context, recipeID uuid.UUID) ([]RecipeLine, error) {
	var lines []RecipeLine
	err := r.db.WithContext(ctx).
		Table("recipe_items AS ri").
		Select(`ri.ingredient_id, i.name AS ingredient_name, ri.qty, ri.unit_id, u.symbol AS unit_symbol`).
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN units u ON u.id = ri.unit_id").
		Where("ri.recipe_id = ?", recipeID).
		Order("i.name ASC").
		Scan(&lines).Error
	return lines, err
}

func (r *repository) MaxVersion(ctx context.Context, menuID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("menu_id = ?", menuID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	return max, err
}

func (r *repository) DeactivateRecipes(ctx context.Context, menuID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("menu_id = ? AND is_active = ?", menuID, true).
		Update("is_active", false).Error
}

func (r *repository) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Create(recipe).Error
}

func (r *repository) FindCentralOutlet(ctx context.Context, organizationID uuid.UUID) (*models.Outlet, error) {
	var outlet models.Outlet
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND type = ?", organizationID, enums.OutletTypeCentral).
		Order("created_at ASC").
		First(&outlet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outlet, nil
}
