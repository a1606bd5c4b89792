package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"takkeh/internal/domain"
)

// CounterDrift is a shop whose num_orders disagrees with its order rows.
type CounterDrift struct {
	ShopID  int64
	Counter int64
	Actual  int64
}

type ShopRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Shop, error)
	List(ctx context.Context, limit, offset int) ([]domain.Shop, error)
	Update(ctx context.Context, id int64, patch domain.ShopPatch) (bool, error)
	// IncrementOrderCount bumps num_orders in a single statement so
	// concurrent placements never lose an update.
	IncrementOrderCount(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	AdjustFollowers(ctx context.Context, tx *sql.Tx, id int64, delta int) (bool, error)
	FindCounterDrift(ctx context.Context, limit int) ([]CounterDrift, error)
	// ReconcileOrderCount locks the shop row, recounts its orders and stores
	// the result. It returns the counter before and after.
	ReconcileOrderCount(ctx context.Context, tx *sql.Tx, id int64) (before, after int64, err error)
}

type shopRepo struct {
	db *sql.DB
}

func NewShopRepo(db *sql.DB) ShopRepo {
	return &shopRepo{db: db}
}

const shopColumns = `shop_id, shop_name, description, location, email, phone_number, photo_url,
	background_photo_url, open_time, close_time, lat_t, lon_t, followers, num_orders, created_at`

func scanShop(row rowScanner) (*domain.Shop, error) {
	var (
		s        domain.Shop
		lat, lon sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Location, &s.Email, &s.Phone, &s.PhotoURL,
		&s.BackgroundPhotoURL, &s.OpenTime, &s.CloseTime, &lat, &lon, &s.Followers, &s.NumOrders, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Lat = floatPtr(lat)
	s.Lon = floatPtr(lon)
	return &s, nil
}

func (r *shopRepo) FindById(ctx context.Context, id int64) (*domain.Shop, error) {
	shop, err := scanShop(r.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE shop_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return shop, err
}

func (r *shopRepo) List(ctx context.Context, limit, offset int) ([]domain.Shop, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+shopColumns+" FROM shops ORDER BY followers DESC, shop_id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []domain.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		shops = append(shops, *s)
	}
	return shops, rows.Err()
}

func (r *shopRepo) Update(ctx context.Context, id int64, patch domain.ShopPatch) (bool, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("shop_name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Phone != nil {
		add("phone_number", *patch.Phone)
	}
	if patch.PhotoURL != nil {
		add("photo_url", *patch.PhotoURL)
	}
	if patch.BackgroundPhotoURL != nil {
		add("background_photo_url", *patch.BackgroundPhotoURL)
	}
	if patch.OpenTime != nil {
		add("open_time", *patch.OpenTime)
	}
	if patch.CloseTime != nil {
		add("close_time", *patch.CloseTime)
	}
	if patch.Lat != nil {
		add("lat_t", *patch.Lat)
	}
	if patch.Lon != nil {
		add("lon_t", *patch.Lon)
	}
	if len(sets) == 0 {
		return false, errors.New("empty shop patch")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE shops SET %s WHERE shop_id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *shopRepo) IncrementOrderCount(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"UPDATE shops SET num_orders = num_orders + 1 WHERE shop_id = $1", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *shopRepo) AdjustFollowers(ctx context.Context, tx *sql.Tx, id int64, delta int) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"UPDATE shops SET followers = GREATEST(followers + $1, 0) WHERE shop_id = $2", delta, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *shopRepo) FindCounterDrift(ctx context.Context, limit int) ([]CounterDrift, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.shop_id, s.num_orders, COUNT(o.order_id)
		FROM shops s LEFT JOIN orders o ON o.shop_id = s.shop_id
		GROUP BY s.shop_id
		HAVING s.num_orders <> COUNT(o.order_id)
		ORDER BY s.shop_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drift []CounterDrift
	for rows.Next() {
		var d CounterDrift
		if err := rows.Scan(&d.ShopID, &d.Counter, &d.Actual); err != nil {
			return nil, err
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

func (r *shopRepo) ReconcileOrderCount(ctx context.Context, tx *sql.Tx, id int64) (int64, int64, error) {
	q := conn(r.db, tx)

	var before int64
	if err := q.QueryRowContext(ctx,
		"SELECT num_orders FROM shops WHERE shop_id = $1 FOR UPDATE", id).Scan(&before); err != nil {
		return 0, 0, err
	}

	// A fresh statement after the lock sees every order committed before it.
	var after int64
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE shop_id = $1", id).Scan(&after); err != nil {
		return 0, 0, err
	}
	if after == before {
		return before, after, nil
	}

	if _, err := q.ExecContext(ctx,
		"UPDATE shops SET num_orders = $1 WHERE shop_id = $2", after, id); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}
