package models

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
)

// DocumentSequence is the per-day counter behind human-readable document
// numbers. Scope is the outlet code for sales orders and empty otherwise.
type DocumentSequence struct {
	OrganizationID uuid.UUID          `gorm:"column:organization_id;type:uuid;primaryKey"`
	DocumentType   enums.DocumentType `gorm:"column:document_type;type:document_type_enum;primaryKey"`
	Scope          string             `gorm:"column:scope;primaryKey"`
	SeqDate        string             `gorm:"column:seq_date;type:char(8);primaryKey"`
	LastValue      int64              `gorm:"column:last_value;not null"`
}
