package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Menu is a sellable item. Its cost is never stored; it is derived from the
// active recipe at read time.
type Menu struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	Category       *string         `gorm:"column:category"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Description    *string         `gorm:"column:description"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Menu) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
