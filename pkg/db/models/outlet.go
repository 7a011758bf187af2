package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// Outlet is a physical location holding stock. Exactly one outlet per
// organization is expected to carry the CENTRAL type.
type Outlet struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string           `gorm:"column:name;not null"`
	Code           string           `gorm:"column:code;not null"`
	Type           enums.OutletType `gorm:"column:type;type:outlet_type_enum;not null"`
	Address        *string          `gorm:"column:address"`
	Phone          *string          `gorm:"column:phone"`
	IsActive       bool             `gorm:"column:is_active;not null"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Outlet) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// IsCentral reports whether the outlet is the organization's hub.
func (o Outlet) IsCentral() bool {
	return o.Type == enums.OutletTypeCentral
}
