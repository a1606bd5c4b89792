package worker_test

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
	"takkeh/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.RunMain(m))
}

func TestReconciliationRepairsDrift(t *testing.T) {
	db := dbtest.Require(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	accounts := repo.NewAccountRepo(db)
	catalog := repo.NewCatalogRepo(db)
	shops := repo.NewShopRepo(db)
	tx := database.New(db, "takkeh")

	buyer, err := accounts.CreateUser(ctx, &domain.User{Name: "Lina", Phone: "0793333333", PasswordHash: "h"})
	require.NoError(t, err)
	drifting, err := accounts.CreateShop(ctx, &domain.Shop{Name: "Reem", Email: "reem@shop.test", PasswordHash: "h"})
	require.NoError(t, err)
	steady, err := accounts.CreateShop(ctx, &domain.Shop{Name: "Hashem", Email: "hashem@shop.test", PasswordHash: "h"})
	require.NoError(t, err)

	orders := service.NewOrderService(tx, repo.NewOrderRepo(db), catalog, shops, logger, time.Second)
	for _, shop := range []int64{drifting, drifting, drifting, steady} {
		menu, err := catalog.CreateMenu(ctx, &domain.Menu{ShopID: shop, Name: "Main"})
		require.NoError(t, err)
		meal, err := catalog.CreateMeal(ctx, &domain.Meal{MenuID: menu, Name: "Shawarma", Price: decimal.RequireFromString("2.50")})
		require.NoError(t, err)
		_, err = orders.PlaceOrder(ctx, domain.Principal{Kind: domain.KindUser, ID: buyer}, service.PlaceOrderInput{
			ShopID: shop,
			Lines:  []domain.LineRequest{{ItemID: meal, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	_, err = db.ExecContext(ctx, "UPDATE shops SET num_orders = num_orders + 7 WHERE shop_id = $1", drifting)
	require.NoError(t, err)

	rw := worker.NewReconciliationWorker(tx, shops, time.Minute, logger)
	fixed, err := rw.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	for shop, want := range map[int64]int64{drifting: 3, steady: 1} {
		got, err := shops.FindById(ctx, shop)
		require.NoError(t, err)
		assert.Equal(t, want, got.NumOrders)
	}

	fixed, err = rw.Process(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestRunStopsOnCancel(t *testing.T) {
	db := dbtest.Require(t)
	rw := worker.NewReconciliationWorker(database.New(db, "takkeh"), repo.NewShopRepo(db), 10*time.Millisecond, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, rw.Run(ctx))
}
