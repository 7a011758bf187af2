package units

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
)

// Repository reads units and conversion multipliers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	FindDirect(ctx context.Context, fromUnitID, toUnitID uuid.UUID, ingredientID *uuid.UUID) (*models.UnitConversion, error)
	ListConversions(ctx context.Context, organizationID uuid.UUID, ingredientID *uuid.UUID) ([]ConversionView, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a units repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindDirect returns the from->to multiplier. When ingredientID is set the
// ingredient-specific row wins over the global one. A nil result with a nil
// error means no row exists in this direction.
func (r *repository) FindDirect(ctx context.Context, fromUnitID, toUnitID uuid.UUID, ingredientID *uuid.UUID) (*models.UnitConversion, error) {
	if ingredientID != nil {
		conv, err := r.first(ctx, r.db.WithContext(ctx).
			Where("from_unit_id = ? AND to_unit_id = ? AND ingredient_id = ?", fromUnitID, toUnitID, *ingredientID))
		if err != nil || conv != nil {
			return conv, err
		}
	}
	return r.first(ctx, r.db.WithContext(ctx).
		Where("from_unit_id = ? AND to_unit_id = ? AND ingredient_id IS NULL", fromUnitID, toUnitID))
}

func (r *repository) first(ctx context.Context, q *gorm.DB) (*models.UnitConversion, error) {
	var conv models.UnitConversion
	err := q.Order("created_at DESC").First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repository) ListConversions(ctx context.Context, organizationID uuid.UUID, ingredientID *uuid.UUID) ([]ConversionView, error) {
	q := r.db.WithContext(ctx).
		Table("unit_conversions AS uc").
		Select(`uc.id, uc.ingredient_id, i.name AS ingredient_name,
			uc.from_unit_id, fu.symbol AS from_unit_symbol,
			uc.to_unit_id, tu.symbol AS to_unit_symbol, uc.multiplier`).
		Joins("JOIN units fu ON fu.id = uc.from_unit_id").
		Joins("JOIN units tu ON tu.id = uc.to_unit_id").
		Joins("LEFT JOIN ingredients i ON i.id = uc.ingredient_id")
	if ingredientID != nil {
		q = q.Where("uc.ingredient_id = ? AND i.organization_id = ?", *ingredientID, organizationID)
	} else {
		q = q.Where("uc.ingredient_id IS NULL OR i.organization_id = ?", organizationID)
	}
	var rows []ConversionView
	if err := q.Order("fu.symbol ASC").Order("tu.symbol ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
