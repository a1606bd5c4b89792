package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/repo"

	"github.com/shopspring/decimal"
)

type MealInput struct {
	Name     string
	PhotoURL string
	Content  string
	Price    decimal.Decimal
}

type CatalogService interface {
	CreateMenu(ctx context.Context, p domain.Principal, name, description string) (*domain.Menu, error)
	DeleteMenu(ctx context.Context, p domain.Principal, menuID int64) error
	ListMenus(ctx context.Context, shopID int64) ([]domain.Menu, error)

	CreateMeal(ctx context.Context, p domain.Principal, menuID int64, in MealInput) (*domain.Meal, error)
	UpdateMeal(ctx context.Context, p domain.Principal, mealID int64, patch domain.MealPatch) error
	DeleteMeal(ctx context.Context, p domain.Principal, mealID int64) error
	ListMeals(ctx context.Context, menuID int64) ([]domain.Meal, error)
}

type catalogService struct {
	tx      database.Transactor
	catalog repo.CatalogRepo
	logger  *slog.Logger
}

func NewCatalogService(tx database.Transactor, catalog repo.CatalogRepo, logger *slog.Logger) CatalogService {
	return &catalogService{tx: tx, catalog: catalog, logger: logger.With("component", "catalog_service")}
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid("price must not be negative")
	}
	if !price.Equal(price.Round(2)) {
		return invalid("price has more than two decimal places")
	}
	if price.GreaterThanOrEqual(maxAmount) {
		return invalid("price is too large")
	}
	return nil
}

// ownedMenu loads a menu and checks that the shop principal owns it.
func (s *catalogService) ownedMenu(ctx context.Context, p domain.Principal, menuID int64) (*domain.Menu, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	menu, err := s.catalog.FindMenu(ctx, menuID)
	if err != nil {
		return nil, storageErr("find menu", err)
	}
	if menu == nil {
		return nil, notFound("menu %d", menuID)
	}
	if menu.ShopID != p.ID {
		return nil, forbidden("menu %d belongs to another shop", menuID)
	}
	return menu, nil
}

func (s *catalogService) ownedMeal(ctx context.Context, p domain.Principal, mealID int64) (*domain.Meal, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	meal, err := s.catalog.FindMeal(ctx, mealID)
	if err != nil {
		return nil, storageErr("find meal", err)
	}
	if meal == nil {
		return nil, notFound("meal %d", mealID)
	}
	if meal.ShopID != p.ID {
		return nil, forbidden("meal %d belongs to another shop", mealID)
	}
	return meal, nil
}

func (s *catalogService) CreateMenu(ctx context.Context, p domain.Principal, name, description string) (*domain.Menu, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("menu name is required")
	}

	menu := &domain.Menu{ShopID: p.ID, Name: name, Description: description}
	if _, err := s.catalog.CreateMenu(ctx, menu); err != nil {
		return nil, storageErr("create menu", err)
	}
	return menu, nil
}

// DeleteMenu removes the menu and its meals together.
func (s *catalogService) DeleteMenu(ctx context.Context, p domain.Principal, menuID int64) error {
	if _, err := s.ownedMenu(ctx, p, menuID); err != nil {
		return err
	}

	var meals int64
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if meals, err = s.catalog.DeleteMealsByMenu(ctx, tx, menuID); err != nil {
			return storageErr("delete meals", err)
		}
		ok, err := s.catalog.DeleteMenu(ctx, tx, menuID)
		if err != nil {
			return storageErr("delete menu", err)
		}
		if !ok {
			return notFound("menu %d", menuID)
		}
		return nil
	})
	if err != nil {
		return storageErr("delete menu", err)
	}
	s.logger.InfoContext(ctx, "menu deleted", "menu_id", menuID, "meals", meals)
	return nil
}

func (s *catalogService) ListMenus(ctx context.Context, shopID int64) ([]domain.Menu, error) {
	menus, err := s.catalog.ListMenus(ctx, shopID)
	if err != nil {
		return nil, storageErr("list menus", err)
	}
	return menus, nil
}

func (s *catalogService) CreateMeal(ctx context.Context, p domain.Principal, menuID int64, in MealInput) (*domain.Meal, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("meal name is required")
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	menu, err := s.ownedMenu(ctx, p, menuID)
	if err != nil {
		return nil, err
	}

	meal := &domain.Meal{
		MenuID:   menu.ID,
		ShopID:   menu.ShopID,
		Name:     in.Name,
		PhotoURL: in.PhotoURL,
		Content:  in.Content,
		Price:    in.Price,
	}
	if _, err := s.catalog.CreateMeal(ctx, meal); err != nil {
		return nil, storageErr("create meal", err)
	}
	return meal, nil
}

func (s *catalogService) UpdateMeal(ctx context.Context, p domain.Principal, mealID int64, patch domain.MealPatch) error {
	if patch.Empty() {
		return invalid("no fields to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("meal name must not be empty")
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return err
		}
	}
	if _, err := s.ownedMeal(ctx, p, mealID); err != nil {
		return err
	}

	ok, err := s.catalog.UpdateMeal(ctx, mealID, patch)
	if err != nil {
		return storageErr("update meal", err)
	}
	if !ok {
		return notFound("meal %d", mealID)
	}
	return nil
}

func (s *catalogService) DeleteMeal(ctx context.Context, p domain.Principal, mealID int64) error {
	if _, err := s.ownedMeal(ctx, p, mealID); err != nil {
		return err
	}
	ok, err := s.catalog.DeleteMeal(ctx, mealID)
	if err != nil {
		return storageErr("delete meal", err)
	}
	if !ok {
		return notFound("meal %d", mealID)
	}
	return nil
}

func (s *catalogService) ListMeals(ctx context.Context, menuID int64) ([]domain.Meal, error) {
	menu, err := s.catalog.FindMenu(ctx, menuID)
	if err != nil {
		return nil, storageErr("find menu", err)
	}
	if menu == nil {
		return nil, notFound("menu %d", menuID)
	}
	meals, err := s.catalog.ListMeals(ctx, menuID)
	if err != nil {
		return nil, storageErr("list meals", err)
	}
	return meals, nil
}
