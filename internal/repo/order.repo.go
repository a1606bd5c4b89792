package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"takkeh/internal/domain"

	"github.com/google/uuid"
)

type OrderRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Order, error)
	// FindByIdempotencyKey returns nil when the buyer never used key.
	FindByIdempotencyKey(ctx context.Context, buyerId int64, key uuid.UUID) (*IdempotencyRecord, error)
	// CreateOrder inserts the header. When the buyer already used the
	// order's idempotency key nothing is written, created is false and the
	// id of the earlier order is returned, or domain.ErrConflict when the
	// earlier order came from a different request.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) (id int64, created bool, err error)
	CreateOrderLines(ctx context.Context, tx *sql.Tx, orderId int64, lines []domain.OrderLine) error
	ListByShop(ctx context.Context, shopId int64, limit int) ([]domain.Order, error)
	ListOpen(ctx context.Context, address string, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.OrderStatus) (bool, error)
	Take(ctx context.Context, tx *sql.Tx, id, driverId int64) (bool, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `order_id, user_id, shop_id, status, total_price, delivery_fee,
	special_instructions, promocode_id, lat_t, lon_t, address, taken, driver_id,
	idempotency_key, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o            domain.Order
		instructions sql.NullString
		address      sql.NullString
		promo        sql.NullInt64
		driver       sql.NullInt64
		lat, lon     sql.NullFloat64
		key          uuid.NullUUID
	)
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.ShopID,
		&o.Status,
		&o.TotalPrice,
		&o.DeliveryFee,
		&instructions,
		&promo,
		&lat,
		&lon,
		&address,
		&o.Taken,
		&driver,
		&key,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Instructions = stringPtr(instructions)
	o.Address = stringPtr(address)
	o.PromoCodeID = int64Ptr(promo)
	o.DriverID = int64Ptr(driver)
	o.Lat = floatPtr(lat)
	o.Lon = floatPtr(lon)
	if key.Valid {
		o.IdempotencyKey = &key.UUID
	}
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT meal_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY line_no", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ItemID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, l)
	}
	return order, rows.Err()
}

// IdempotencyRecord is the order an idempotency key already produced.
type IdempotencyRecord struct {
	OrderID     int64
	Fingerprint string
}

// Matches reports whether a request with fingerprint may replay the record.
// Orders stored without a fingerprint match any request.
func (rec IdempotencyRecord) Matches(fingerprint string) bool {
	return rec.Fingerprint == "" || rec.Fingerprint == fingerprint
}

func (r *orderRepo) findIdempotent(ctx context.Context, q execer, buyerId int64, key uuid.UUID) (*IdempotencyRecord, error) {
	var (
		rec         IdempotencyRecord
		fingerprint sql.NullString
	)
	err := q.QueryRowContext(ctx,
		"SELECT order_id, request_fingerprint FROM orders WHERE user_id = $1 AND idempotency_key = $2",
		buyerId, key).Scan(&rec.OrderID, &fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Fingerprint = fingerprint.String
	return &rec, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, buyerId int64, key uuid.UUID) (*IdempotencyRecord, error) {
	return r.findIdempotent(ctx, r.db, buyerId, key)
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, bool, error) {
	var key, fingerprint any
	if order.IdempotencyKey != nil {
		key = *order.IdempotencyKey
		fingerprint = order.RequestFingerprint
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, shop_id, status, total_price, delivery_fee,
			special_instructions, promocode_id, lat_t, lon_t, address, taken, idempotency_key, request_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12)
		ON CONFLICT (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING order_id`,
		order.BuyerID, order.ShopID, order.Status, order.TotalPrice, order.DeliveryFee,
		order.Instructions, order.PromoCodeID, order.Lat, order.Lon, order.Address, key, fingerprint,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || order.IdempotencyKey == nil {
		return 0, false, err
	}

	// The key was used by a concurrent request that has since committed.
	rec, err := r.findIdempotent(ctx, tx, order.BuyerID, *order.IdempotencyKey)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, sql.ErrNoRows
	}
	if !rec.Matches(order.RequestFingerprint) {
		return 0, false, domain.ErrConflict
	}
	return rec.OrderID, false, nil
}

func (r *orderRepo) CreateOrderLines(ctx context.Context, tx *sql.Tx, orderId int64, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(lines)*5)
	)
	sb.WriteString("INSERT INTO order_items (order_id, line_no, meal_id, quantity, unit_price) VALUES ")
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, orderId, i+1, l.ItemID, l.Quantity, l.UnitPrice)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *orderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepo) ListByShop(ctx context.Context, shopId int64, limit int) ([]domain.Order, error) {
	return r.list(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE shop_id = $1 ORDER BY created_at DESC, order_id DESC LIMIT $2",
		shopId, limit)
}

func (r *orderRepo) ListOpen(ctx context.Context, address string, limit int) ([]domain.Order, error) {
	return r.list(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE address = $1 AND NOT taken AND status <> $2 ORDER BY created_at LIMIT $3",
		address, domain.OrderCancelled, limit)
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.OrderStatus) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE order_id = $2", status, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *orderRepo) Take(ctx context.Context, tx *sql.Tx, id, driverId int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"UPDATE orders SET taken = TRUE, driver_id = $2, updated_at = now() WHERE order_id = $1 AND NOT taken",
		id, driverId)
	if err != nil {
		return false, err
	}
	return affected(res)
}
