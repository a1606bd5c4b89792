package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"takkeh/internal/domain"
)

type CatalogRepo interface {
	CreateMenu(ctx context.Context, menu *domain.Menu) (int64, error)
	FindMenu(ctx context.Context, id int64) (*domain.Menu, error)
	ListMenus(ctx context.Context, shopId int64) ([]domain.Menu, error)
	DeleteMenu(ctx context.Context, tx *sql.Tx, id int64) (bool, error)

	CreateMeal(ctx context.Context, meal *domain.Meal) (int64, error)
	FindMeal(ctx context.Context, id int64) (*domain.Meal, error)
	ListMeals(ctx context.Context, menuId int64) ([]domain.Meal, error)
	UpdateMeal(ctx context.Context, id int64, patch domain.MealPatch) (bool, error)
	DeleteMeal(ctx context.Context, id int64) (bool, error)
	DeleteMealsByMenu(ctx context.Context, tx *sql.Tx, menuId int64) (int64, error)

	// FindPriced returns the price and owning shop of every existing id.
	FindPriced(ctx context.Context, ids []int64) (map[int64]domain.PricedItem, error)
	// LockExisting takes a share lock on the given meals and returns the ids
	// that still exist.
	LockExisting(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error)
}

type catalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) CatalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) CreateMenu(ctx context.Context, menu *domain.Menu) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO menus (shop_id, name, description) VALUES ($1, $2, $3) RETURNING menu_id, created_at",
		menu.ShopID, menu.Name, menu.Description,
	).Scan(&id, &menu.CreatedAt)
	if err != nil {
		return 0, err
	}
	menu.ID = id
	return id, nil
}

func (r *catalogRepo) FindMenu(ctx context.Context, id int64) (*domain.Menu, error) {
	var m domain.Menu
	err := r.db.QueryRowContext(ctx,
		"SELECT menu_id, shop_id, name, description, created_at FROM menus WHERE menu_id = $1", id,
	).Scan(&m.ID, &m.ShopID, &m.Name, &m.Description, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepo) ListMenus(ctx context.Context, shopId int64) ([]domain.Menu, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT menu_id, shop_id, name, description, created_at FROM menus WHERE shop_id = $1 ORDER BY menu_id", shopId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []domain.Menu
	for rows.Next() {
		var m domain.Menu
		if err := rows.Scan(&m.ID, &m.ShopID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

func (r *catalogRepo) DeleteMenu(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, "DELETE FROM menus WHERE menu_id = $1", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *catalogRepo) CreateMeal(ctx context.Context, meal *domain.Meal) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO meals (menu_id, name, photo_url, content, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING meal_id, created_at`,
		meal.MenuID, meal.Name, meal.PhotoURL, meal.Content, meal.Price,
	).Scan(&id, &meal.CreatedAt)
	if err != nil {
		return 0, err
	}
	meal.ID = id
	return id, nil
}

const mealColumns = "m.meal_id, m.menu_id, mn.shop_id, m.name, m.photo_url, m.content, m.price, m.created_at"

func scanMeal(row rowScanner) (*domain.Meal, error) {
	var m domain.Meal
	if err := row.Scan(&m.ID, &m.MenuID, &m.ShopID, &m.Name, &m.PhotoURL, &m.Content, &m.Price, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepo) FindMeal(ctx context.Context, id int64) (*domain.Meal, error) {
	meal, err := scanMeal(r.db.QueryRowContext(ctx,
		"SELECT "+mealColumns+" FROM meals m JOIN menus mn ON mn.menu_id = m.menu_id WHERE m.meal_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return meal, err
}

func (r *catalogRepo) ListMeals(ctx context.Context, menuId int64) ([]domain.Meal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mealColumns+" FROM meals m JOIN menus mn ON mn.menu_id = m.menu_id WHERE m.menu_id = $1 ORDER BY m.meal_id",
		menuId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []domain.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

func (r *catalogRepo) UpdateMeal(ctx context.Context, id int64, patch domain.MealPatch) (bool, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.PhotoURL != nil {
		add("photo_url", *patch.PhotoURL)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if len(sets) == 0 {
		return false, errors.New("empty meal patch")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE meals SET %s WHERE meal_id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *catalogRepo) DeleteMeal(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM meals WHERE meal_id = $1", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *catalogRepo) DeleteMealsByMenu(ctx context.Context, tx *sql.Tx, menuId int64) (int64, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, "DELETE FROM meals WHERE menu_id = $1", menuId)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *catalogRepo) FindPriced(ctx context.Context, ids []int64) (map[int64]domain.PricedItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.meal_id, mn.shop_id, m.price
		FROM meals m JOIN menus mn ON mn.menu_id = m.menu_id
		WHERE m.meal_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64]domain.PricedItem, len(ids))
	for rows.Next() {
		var it domain.PricedItem
		if err := rows.Scan(&it.ID, &it.ShopID, &it.Price); err != nil {
			return nil, err
		}
		items[it.ID] = it
	}
	return items, rows.Err()
}

func (r *catalogRepo) LockExisting(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx,
		"SELECT meal_id FROM meals WHERE meal_id = ANY($1) ORDER BY meal_id FOR SHARE", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}
