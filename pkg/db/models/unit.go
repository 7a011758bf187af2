package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Unit is a global measurement unit (g, kg, ml, pcs).
type Unit struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Symbol     string    `gorm:"column:symbol;not null"`
	IsBaseUnit bool      `gorm:"column:is_base_unit;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (u *Unit) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// UnitConversion multiplies a quantity in FromUnit into ToUnit. A nil
// IngredientID makes the row apply to every ingredient.
type UnitConversion struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	IngredientID *uuid.UUID      `gorm:"column:ingredient_id;type:uuid;index"`
	FromUnitID   uuid.UUID       `gorm:"column:from_unit_id;type:uuid;not null"`
	ToUnitID     uuid.UUID       `gorm:"column:to_unit_id;type:uuid;not null"`
	Multiplier   decimal.Decimal `gorm:"column:multiplier;type:numeric(18,8);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *UnitConversion) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
