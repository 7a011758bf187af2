package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

// Lookup resolves organization-scoped master data. A nil tx reads outside
// any transaction.
type Lookup interface {
	Outlet(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Outlet, error)
	Supplier(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Supplier, error)
	Ingredient(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Ingredient, error)
	Menu(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Menu, error)
	Unit(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Unit, error)
}

// Service is the catalog surface exposed to controllers.
type Service interface {
	Lookup
	ListOutlets(ctx context.Context, organizationID uuid.UUID) ([]models.Outlet, error)
	ListIngredients(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Ingredient, error)
	ListMenus(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Menu, error)
	CreateIngredient(ctx context.Context, organizationID uuid.UUID, input CreateIngredientInput) (*models.Ingredient, error)
	CreateMenu(ctx context.Context, organizationID uuid.UUID, input CreateMenuInput) (*models.Menu, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Outlet(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Outlet, error) {
	outlet, err := s.repo.WithTx(tx).FindOutlet(ctx, organizationID, id)
	if err != nil {
		return nil, lookupErr(err, "outlet")
	}
	return outlet, nil
}

func (s *service) Supplier(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.WithTx(tx).FindSupplier(ctx, organizationID, id)
	if err != nil {
		return nil, lookupErr(err, "supplier")
	}
	return supplier, nil
}

func (s *service) Ingredient(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Ingredient, error) {
	ingredient, err := s.repo.WithTx(tx).FindIngredient(ctx, organizationID, id)
	if err != nil {
		return nil, lookupErr(err, "ingredient")
	}
	return ingredient, nil
}

func (s *service) Menu(ctx context.Context, tx *gorm.DB, organizationID, id uuid.UUID) (*models.Menu, error) {
	menu, err := s.repo.WithTx(tx).FindMenu(ctx, organizationID, id)
	if err != nil {
		return nil, lookupErr(err, "menu")
	}
	return menu, nil
}

func (s *service) Unit(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Unit, error) {
	unit, err := s.repo.WithTx(tx).FindUnit(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "unit")
	}
	return unit, nil
}

func (s *service) ListOutlets(ctx context.Context, organizationID uuid.UUID) ([]models.Outlet, error) {
	outlets, err := s.repo.ListOutlets(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outlets")
	}
	return outlets, nil
}

func (s *service) ListIngredients(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Ingredient, error) {
	ingredients, err := s.repo.ListIngredients(ctx, organizationID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}
	return ingredients, nil
}

func (s *service) ListMenus(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]models.Menu, error) {
	menus, err := s.repo.ListMenus(ctx, organizationID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menus")
	}
	return menus, nil
}

func (s *service) CreateIngredient(ctx context.Context, organizationID uuid.UUID, input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if _, err := s.Unit(ctx, nil, input.BaseUnitID); err != nil {
		return nil, err
	}
	ingredient := &models.Ingredient{
		OrganizationID: organizationID,
		Name:           name,
		Category:       input.Category,
		SKU:            input.SKU,
		BaseUnitID:     input.BaseUnitID,
		IsActive:       true,
	}
	if err := s.repo.CreateIngredient(ctx, ingredient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ingredient")
	}
	return ingredient, nil
}

func (s *service) CreateMenu(ctx context.Context, organizationID uuid.UUID, input CreateMenuInput) (*models.Menu, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	menu := &models.Menu{
		OrganizationID: organizationID,
		Name:           name,
		Category:       input.Category,
		Price:          input.Price.Round(2),
		Description:    input.Description,
		IsActive:       true,
	}
	if err := s.repo.CreateMenu(ctx, menu); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu")
	}
	return menu, nil
}

func lookupErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
