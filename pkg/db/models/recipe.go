package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe is one immutable bill-of-materials version for a menu.
type Recipe struct {
	ID        uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	MenuID    uuid.UUID    `gorm:"column:menu_id;type:uuid;not null;index"`
	Version   int          `gorm:"column:version;not null"`
	IsActive  bool         `gorm:"column:is_active;not null"`
	Notes     *string      `gorm:"column:notes"`
	CreatedBy *uuid.UUID   `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
	Items     []RecipeItem `gorm:"foreignKey:RecipeID"`
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// RecipeItem is the quantity of one ingredient needed for a single menu unit.
type RecipeItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID     uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null;index"`
	IngredientID uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	Qty          decimal.Decimal `gorm:"column:qty;type:numeric(14,4);not null"`
	UnitID       uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
}

func (i *RecipeItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
