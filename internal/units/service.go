package units

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

// Converter resolves quantities between measurement units.
type Converter interface {
	WithTx(tx *gorm.DB) Converter
	Multiplier(ctx context.Context, fromUnitID, toUnitID uuid.UUID, ingredientID *uuid.UUID) (decimal.Decimal, bool, error)
	Convert(ctx context.Context, fromUnitID, toUnitID uuid.UUID, qty decimal.Decimal, ingredientID *uuid.UUID) (*Conversion, error)
	ListConversions(ctx context.Context, organizationID uuid.UUID, ingredientID *uuid.UUID) ([]ConversionView, error)
}

type service struct {
	repo Repository
}

// NewService builds a converter over the provided repository.
func NewService(repo Repository) (Converter, error) {
	if repo == nil {
		return nil, fmt.Errorf("units repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Converter {
	return &service{repo: s.repo.WithTx(tx)}
}

// Multiplier returns the factor that turns a quantity in fromUnitID into
// toUnitID, and whether it came from the inverse pair. Identical units
// resolve to one without a lookup.
func (s *service) Multiplier(ctx context.Context, fromUnitID, toUnitID uuid.UUID, ingredientID *uuid.UUID) (decimal.Decimal, bool, error) {
	if fromUnitID == toUnitID {
		return decimal.NewFromInt(1), false, nil
	}

	direct, err := s.repo.FindDirect(ctx, fromUnitID, toUnitID, ingredientID)
	if err != nil {
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup unit conversion")
	}
	if direct != nil {
		return direct.Multiplier, false, nil
	}

	reverse, err := s.repo.FindDirect(ctx, toUnitID, fromUnitID, ingredientID)
	if err != nil {
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup reverse unit conversion")
	}
	if reverse != nil && !reverse.Multiplier.IsZero() {
		return decimal.NewFromInt(1).Div(reverse.Multiplier), true, nil
	}

	details := map[string]any{
		"from_unit_id": fromUnitID,
		"to_unit_id":   toUnitID,
	}
	if ingredientID != nil {
		details["ingredient_id"] = *ingredientID
	}
	return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeConversionNotFound, "no conversion between units").WithDetails(details)
}

func (s *service) Convert(ctx context.Context, fromUnitID, toUnitID uuid.UUID, qty decimal.Decimal, ingredientID *uuid.UUID) (*Conversion, error) {
	multiplier, inverse, err := s.Multiplier(ctx, fromUnitID, toUnitID, ingredientID)
	if err != nil {
		return nil, err
	}
	return &Conversion{
		FromUnitID:   fromUnitID,
		ToUnitID:     toUnitID,
		IngredientID: ingredientID,
		Qty:          qty,
		Converted:    qty.Mul(multiplier),
		Multiplier:   multiplier,
		Inverse:      inverse,
	}, nil
}

func (s *service) ListConversions(ctx context.Context, organizationID uuid.UUID, ingredientID *uuid.UUID) ([]ConversionView, error) {
	rows, err := s.repo.ListConversions(ctx, organizationID, ingredientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unit conversions")
	}
	return rows, nil
}
