package service_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"takkeh/internal/database"
	"takkeh/internal/database/dbtest"
	"takkeh/internal/domain"
	"takkeh/internal/repo"
	"takkeh/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.RunMain(m))
}

type pgFixture struct {
	orders   service.OrderService
	shops    repo.ShopRepo
	buyer    domain.Principal
	shop     int64
	falafel  int64
	hummus   int64
	countSQL func(t *testing.T) int
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	db := dbtest.Require(t)
	ctx := context.Background()

	accounts := repo.NewAccountRepo(db)
	catalog := repo.NewCatalogRepo(db)
	shops := repo.NewShopRepo(db)
	tx := database.New(db, "takkeh")

	buyer, err := accounts.CreateUser(ctx, &domain.User{Name: "Dana", Phone: "0795555555", PasswordHash: "h"})
	require.NoError(t, err)
	shop, err := accounts.CreateShop(ctx, &domain.Shop{Name: "Abu Jbara", Email: "aj@shop.test", PasswordHash: "h"})
	require.NoError(t, err)
	menu, err := catalog.CreateMenu(ctx, &domain.Menu{ShopID: shop, Name: "Sandwiches"})
	require.NoError(t, err)
	falafel, err := catalog.CreateMeal(ctx, &domain.Meal{MenuID: menu, Name: "Falafel", Price: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	hummus, err := catalog.CreateMeal(ctx, &domain.Meal{MenuID: menu, Name: "Hummus", Price: decimal.RequireFromString("3.00")})
	require.NoError(t, err)

	return &pgFixture{
		orders:  service.NewOrderService(tx, repo.NewOrderRepo(db), catalog, shops, slogDiscard(), 5*time.Second),
		shops:   shops,
		buyer:   domain.Principal{Kind: domain.KindUser, ID: buyer},
		shop:    shop,
		falafel: falafel,
		hummus:  hummus,
		countSQL: func(t *testing.T) int {
			var n int
			require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE shop_id = $1", shop).Scan(&n))
			return n
		},
	}
}

func (f *pgFixture) numOrders(t *testing.T) int64 {
	t.Helper()
	shop, err := f.shops.FindById(context.Background(), f.shop)
	require.NoError(t, err)
	return shop.NumOrders
}

func TestPlaceOrderAgainstPostgres(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	res, err := f.orders.PlaceOrder(ctx, f.buyer, service.PlaceOrderInput{
		ShopID: f.shop,
		Lines: []domain.LineRequest{
			{ItemID: f.falafel, Quantity: 2},
			{ItemID: f.hummus, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "13.00", res.Total.StringFixed(2))
	assert.EqualValues(t, 1, f.numOrders(t))

	order, err := f.orders.GetOrder(ctx, f.buyer, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Len(t, order.Lines, 2)
}

func TestUnknownItemLeavesNoTrace(t *testing.T) {
	f := newPGFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), f.buyer, service.PlaceOrderInput{
		ShopID: f.shop,
		Lines: []domain.LineRequest{
			{ItemID: f.falafel, Quantity: 1},
			{ItemID: 9999, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.countSQL(t))
	assert.Zero(t, f.numOrders(t))
}

func TestConcurrentOrdersKeepCounterExact(t *testing.T) {
	f := newPGFixture(t)
	const n = 25

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.orders.PlaceOrder(context.Background(), f.buyer, service.PlaceOrderInput{
				ShopID: f.shop,
				Lines:  []domain.LineRequest{{ItemID: f.falafel, Quantity: 1 + i%4}},
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, n, f.numOrders(t))
	assert.Equal(t, n, f.countSQL(t))
}

func TestConcurrentReplaysCreateOneOrder(t *testing.T) {
	f := newPGFixture(t)
	key := uuid.New()
	in := service.PlaceOrderInput{
		ShopID:         f.shop,
		Lines:          []domain.LineRequest{{ItemID: f.hummus, Quantity: 1}},
		IdempotencyKey: &key,
	}

	ids := make([]int64, 8)
	var g errgroup.Group
	for i := range ids {
		g.Go(func() error {
			res, err := f.orders.PlaceOrder(context.Background(), f.buyer, in)
			ids[i] = res.OrderID
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.countSQL(t))
	assert.EqualValues(t, 1, f.numOrders(t))
}

func slogDiscard() *slog.Logger { return slog.New(slog.DiscardHandler) }
