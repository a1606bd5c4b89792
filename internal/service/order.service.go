package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxOrderLines      = 100
	maxLineQuantity    = 999
	maxInstructionsLen = 500
)

// Amount bounds follow the NUMERIC(10,2) price and fee columns and the
// NUMERIC(12,2) order total.
var (
	maxAmount     = decimal.New(1, 8)
	maxOrderTotal = decimal.New(1, 10)
)

type PlaceOrderInput struct {
	// BuyerID is optional; when set it must match the authenticated user.
	BuyerID        int64
	ShopID         int64
	Lines          []domain.LineRequest
	Meta           domain.OrderMeta
	IdempotencyKey *uuid.UUID
}

type PlaceOrderResult struct {
	OrderID  int64
	Total    decimal.Decimal
	Replayed bool
}

type OrderService interface {
	PlaceOrder(ctx context.Context, p domain.Principal, in PlaceOrderInput) (PlaceOrderResult, error)
	GetOrder(ctx context.Context, p domain.Principal, id int64) (*domain.Order, error)
	ListShopOrders(ctx context.Context, p domain.Principal, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, p domain.Principal, id int64, status domain.OrderStatus) error
	ListOpenOrders(ctx context.Context, p domain.Principal, city string, limit int) ([]domain.Order, error)
	TakeOrder(ctx context.Context, p domain.Principal, id int64) error
}

type orderService struct {
	tx             database.Transactor
	orderRepo      repo.OrderRepo
	catalogRepo    repo.CatalogRepo
	shopRepo       repo.ShopRepo
	logger         *slog.Logger
	storageTimeout time.Duration
}

func NewOrderService(
	tx database.Transactor,
	orderRepo repo.OrderRepo,
	catalogRepo repo.CatalogRepo,
	shopRepo repo.ShopRepo,
	logger *slog.Logger,
	storageTimeout time.Duration,
) OrderService {
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}
	return &orderService{
		tx:             tx,
		orderRepo:      orderRepo,
		catalogRepo:    catalogRepo,
		shopRepo:       shopRepo,
		logger:         logger.With("component", "order_service"),
		storageTimeout: storageTimeout,
	}
}

// PlaceOrder prices the lines against the menu and, in one transaction,
// writes the order with its lines and bumps the shop's order counter.
// Once validation passes the storage work is detached from the caller's
// cancellation and bounded by the storage timeout instead.
func (s *orderService) PlaceOrder(ctx context.Context, p domain.Principal, in PlaceOrderInput) (PlaceOrderResult, error) {
	if err := p.Require(domain.KindUser); err != nil {
		return PlaceOrderResult{}, err
	}
	if in.BuyerID != 0 && in.BuyerID != p.ID {
		return PlaceOrderResult{}, forbidden("buyer %d does not match the authenticated user", in.BuyerID)
	}
	buyerID := p.ID
	if err := validatePlaceOrder(buyerID, in); err != nil {
		return PlaceOrderResult{}, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storageTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.Int64("shop.id", in.ShopID),
		attribute.Int("order.lines", len(in.Lines)),
	))
	defer span.End()

	res, err := s.placeOrder(ctx, buyerID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PlaceOrderResult{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", res.OrderID), attribute.Bool("order.replayed", res.Replayed))
	return res, nil
}

func (s *orderService) placeOrder(ctx context.Context, buyerID int64, in PlaceOrderInput) (PlaceOrderResult, error) {
	var fingerprint string
	if in.IdempotencyKey != nil {
		fingerprint = requestFingerprint(in)
		rec, err := s.orderRepo.FindByIdempotencyKey(ctx, buyerID, *in.IdempotencyKey)
		if err != nil {
			return PlaceOrderResult{}, storageErr("find order by idempotency key", err)
		}
		if rec != nil {
			if !rec.Matches(fingerprint) {
				return PlaceOrderResult{}, keyReused(*in.IdempotencyKey)
			}
			s.logger.InfoContext(ctx, "order replayed", "order_id", rec.OrderID, "buyer_id", buyerID)
			return PlaceOrderResult{OrderID: rec.OrderID, Replayed: true}, nil
		}
	}

	lines, err := s.resolveLines(ctx, in.ShopID, in.Lines)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	total := domain.OrderTotal(lines)
	if total.GreaterThanOrEqual(maxOrderTotal) {
		return PlaceOrderResult{}, invalid("order total must be below %s", maxOrderTotal)
	}

	order := &domain.Order{
		BuyerID:            buyerID,
		ShopID:             in.ShopID,
		Status:             domain.OrderPending,
		TotalPrice:         total,
		DeliveryFee:        in.Meta.DeliveryFee,
		Instructions:       in.Meta.Instructions,
		PromoCodeID:        in.Meta.PromoCodeID,
		Lat:                in.Meta.Lat,
		Lon:                in.Meta.Lon,
		Address:            in.Meta.Address,
		Taken:              false,
		IdempotencyKey:     in.IdempotencyKey,
		RequestFingerprint: fingerprint,
		Lines:              lines,
	}

	var (
		orderID int64
		created bool
	)
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		found, err := s.catalogRepo.LockExisting(ctx, tx, distinctItemIDs(in.Lines))
		if err != nil {
			return storageErr("lock menu items", err)
		}
		for _, l := range in.Lines {
			if !found[l.ItemID] {
				return notFound("menu item %d", l.ItemID)
			}
		}

		orderID, created, err = s.orderRepo.CreateOrder(ctx, tx, order)
		if repo.IsForeignKeyViolation(err) {
			return notFound("buyer %d or shop %d", buyerID, in.ShopID)
		}
		if errors.Is(err, domain.ErrConflict) {
			return keyReused(*in.IdempotencyKey)
		}
		if err != nil {
			return storageErr("create order", err)
		}
		if !created {
			return nil
		}

		if err := s.orderRepo.CreateOrderLines(ctx, tx, orderID, lines); err != nil {
			return storageErr("create order lines", err)
		}

		ok, err := s.shopRepo.IncrementOrderCount(ctx, tx, in.ShopID)
		if err != nil {
			return storageErr("increment shop order count", err)
		}
		if !ok {
			return notFound("shop %d", in.ShopID)
		}
		return nil
	})
	if err != nil {
		return PlaceOrderResult{}, storageErr("place order", err)
	}

	if !created {
		s.logger.InfoContext(ctx, "order replayed", "order_id", orderID, "buyer_id", buyerID)
		return PlaceOrderResult{OrderID: orderID, Replayed: true}, nil
	}
	s.logger.InfoContext(ctx, "order placed",
		"order_id", orderID,
		"buyer_id", buyerID,
		"shop_id", in.ShopID,
		"total", total.StringFixed(2),
	)
	return PlaceOrderResult{OrderID: orderID, Total: total}, nil
}

// resolveLines prices every line at the current menu price. The whole
// order fails on the first item that is missing or sold by another shop.
func (s *orderService) resolveLines(ctx context.Context, shopID int64, reqs []domain.LineRequest) ([]domain.OrderLine, error) {
	ctx, span := tracer.Start(ctx, "OrderService.resolveLines")
	defer span.End()

	items, err := s.catalogRepo.FindPriced(ctx, distinctItemIDs(reqs))
	if err != nil {
		return nil, storageErr("resolve prices", err)
	}

	lines := make([]domain.OrderLine, 0, len(reqs))
	for _, r := range reqs {
		it, ok := items[r.ItemID]
		if !ok {
			return nil, notFound("menu item %d", r.ItemID)
		}
		if it.ShopID != shopID {
			return nil, invalid("menu item %d does not belong to shop %d", r.ItemID, shopID)
		}
		lines = append(lines, domain.OrderLine{ItemID: r.ItemID, Quantity: r.Quantity, UnitPrice: it.Price})
	}
	return lines, nil
}

func keyReused(key uuid.UUID) error {
	return conflict("idempotency key %s was already used for a different order", key)
}

// requestFingerprint hashes everything in the request that shapes the order,
// so a replayed key can be told apart from a reused one.
func requestFingerprint(in PlaceOrderInput) string {
	raw, _ := json.Marshal(struct {
		ShopID       int64
		Lines        []domain.LineRequest
		DeliveryFee  string
		Instructions *string
		PromoCodeID  *int64
		Lat, Lon     *float64
		Address      *string
	}{
		ShopID:       in.ShopID,
		Lines:        in.Lines,
		DeliveryFee:  in.Meta.DeliveryFee.StringFixed(2),
		Instructions: in.Meta.Instructions,
		PromoCodeID:  in.Meta.PromoCodeID,
		Lat:          in.Meta.Lat,
		Lon:          in.Meta.Lon,
		Address:      in.Meta.Address,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func validatePlaceOrder(buyerID int64, in PlaceOrderInput) error {
	if buyerID <= 0 {
		return invalid("buyer id must be positive")
	}
	if in.ShopID <= 0 {
		return invalid("shop id must be positive")
	}
	if len(in.Lines) == 0 {
		return invalid("order must contain at least one line")
	}
	if len(in.Lines) > maxOrderLines {
		return invalid("order has more than %d lines", maxOrderLines)
	}
	for i, l := range in.Lines {
		if l.ItemID <= 0 {
			return invalid("line %d: item id must be positive", i+1)
		}
		if l.Quantity <= 0 {
			return invalid("line %d: quantity must be a positive integer", i+1)
		}
		if l.Quantity > maxLineQuantity {
			return invalid("line %d: quantity exceeds %d", i+1, maxLineQuantity)
		}
	}

	m := in.Meta
	if m.DeliveryFee.IsNegative() {
		return invalid("delivery fee must not be negative")
	}
	if !m.DeliveryFee.Equal(m.DeliveryFee.Round(2)) {
		return invalid("delivery fee has more than two decimal places")
	}
	if m.DeliveryFee.GreaterThanOrEqual(maxAmount) {
		return invalid("delivery fee must be below %s", maxAmount)
	}
	if m.PromoCodeID != nil && *m.PromoCodeID <= 0 {
		return invalid("promo code id must be positive")
	}
	if err := checkCoords(m.Lat, m.Lon); err != nil {
		return err
	}
	if m.Instructions != nil && len(*m.Instructions) > maxInstructionsLen {
		return invalid("instructions longer than %d bytes", maxInstructionsLen)
	}
	return nil
}

func distinctItemIDs(lines []domain.LineRequest) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ItemID]; ok {
			continue
		}
		seen[l.ItemID] = struct{}{}
		ids = append(ids, l.ItemID)
	}
	return ids
}

func (s *orderService) GetOrder(ctx context.Context, p domain.Principal, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, storageErr("find order", err)
	}
	if order == nil {
		return nil, notFound("order %d", id)
	}

	switch {
	case p.Is(domain.KindUser) && order.BuyerID == p.ID:
	case p.Is(domain.KindShop) && order.ShopID == p.ID:
	case p.Is(domain.KindDriver) && order.DriverID != nil && *order.DriverID == p.ID:
	default:
		return nil, forbidden("order %d is not visible to %s", id, p)
	}
	return order, nil
}

func (s *orderService) ListShopOrders(ctx context.Context, p domain.Principal, limit int) ([]domain.Order, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListByShop(ctx, p.ID, clampLimit(limit))
	if err != nil {
		return nil, storageErr("list shop orders", err)
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, p domain.Principal, id int64, status domain.OrderStatus) error {
	if err := p.Require(domain.KindShop); err != nil {
		return err
	}
	if !status.Valid() {
		return invalid("unknown order status %q", status)
	}

	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return storageErr("find order", err)
	}
	if order == nil {
		return notFound("order %d", id)
	}
	if order.ShopID != p.ID {
		return forbidden("order %d belongs to another shop", id)
	}

	ok, err := s.orderRepo.UpdateOrderStatus(ctx, nil, id, status)
	if err != nil {
		return storageErr("update order status", err)
	}
	if !ok {
		return notFound("order %d", id)
	}
	s.logger.InfoContext(ctx, "order status updated", "order_id", id, "from", order.Status, "to", status)
	return nil
}

func (s *orderService) ListOpenOrders(ctx context.Context, p domain.Principal, city string, limit int) ([]domain.Order, error) {
	if err := p.Require(domain.KindDriver); err != nil {
		return nil, err
	}
	if city == "" {
		return nil, invalid("city is required")
	}
	orders, err := s.orderRepo.ListOpen(ctx, city, clampLimit(limit))
	if err != nil {
		return nil, storageErr("list open orders", err)
	}
	return orders, nil
}

func (s *orderService) TakeOrder(ctx context.Context, p domain.Principal, id int64) error {
	if err := p.Require(domain.KindDriver); err != nil {
		return err
	}

	ok, err := s.orderRepo.Take(ctx, nil, id, p.ID)
	if repo.IsForeignKeyViolation(err) {
		return notFound("driver %d", p.ID)
	}
	if err != nil {
		return storageErr("take order", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "order taken", "order_id", id, "driver_id", p.ID)
		return nil
	}

	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return storageErr("find order", err)
	}
	if order == nil {
		return notFound("order %d", id)
	}
	return conflict("order %d is already taken", id)
}
