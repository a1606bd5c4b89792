// Command simulate fires concurrent orders at one shop and compares the
// shop's order counter with the number of order rows afterwards.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"takkeh/internal/config"
	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/repo"
	"takkeh/internal/service"
	"takkeh/internal/telemetry"
	"takkeh/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	orders := flag.Int("orders", 50, "number of orders to place")
	workers := flag.Int("concurrency", 10, "orders in flight at once")
	replays := flag.Bool("replay", true, "send every order twice with the same idempotency key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := telemetry.NewLogger(telemetry.LoggerOptions{Service: "takkeh-simulate", Env: cfg.AppEnv, Level: "warn"})

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.DB.DSN(), cfg.DB.MaxOpenConns)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	dbService := database.New(db, cfg.DB.Database)

	accountRepo := repo.NewAccountRepo(db)
	catalogRepo := repo.NewCatalogRepo(db)
	shopRepo := repo.NewShopRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	orderService := service.NewOrderService(dbService, orderRepo, catalogRepo, shopRepo, logger, cfg.DB.StorageTimeout)

	buyer, shop, meals := seed(ctx, accountRepo, catalogRepo)
	fmt.Printf("--- PLACING %d ORDERS (buyer %d, shop %d, concurrency %d) ---\n", *orders, buyer, shop, *workers)

	var placed, replayed, failed atomic.Int64
	p := domain.Principal{Kind: domain.KindUser, ID: buyer}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i := 0; i < *orders; i++ {
		g.Go(func() error {
			key := uuid.New()
			in := service.PlaceOrderInput{
				ShopID: shop,
				Lines: []domain.LineRequest{
					{ItemID: meals[i%len(meals)], Quantity: 1 + i%3},
					{ItemID: meals[(i+1)%len(meals)], Quantity: 1},
				},
				IdempotencyKey: &key,
			}
			attempts := 1
			if *replays {
				attempts = 2
			}
			for a := 0; a < attempts; a++ {
				res, err := orderService.PlaceOrder(gctx, p, in)
				switch {
				case err != nil:
					failed.Add(1)
					fmt.Printf("[%d] FAILED: %v\n", i+1, err)
				case res.Replayed:
					replayed.Add(1)
				default:
					placed.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("placed=%d replayed=%d failed=%d in %s\n", placed.Load(), replayed.Load(), failed.Load(), time.Since(start).Round(time.Millisecond))
	report(ctx, db, shopRepo, shop)

	// Knock the counter off and let one reconciliation pass repair it.
	if _, err := db.ExecContext(ctx, `UPDATE shops SET num_orders = num_orders + 7 WHERE shop_id = $1`, shop); err != nil {
		log.Fatal(err)
	}
	fmt.Println("--- COUNTER DRIFTED BY +7, RUNNING RECONCILIATION ---")
	report(ctx, db, shopRepo, shop)

	rw := worker.NewReconciliationWorker(dbService, shopRepo, time.Second, logger)
	fixed, err := rw.Process(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("reconciled %d shop(s)\n", fixed)
	report(ctx, db, shopRepo, shop)
}

func seed(ctx context.Context, accounts repo.AccountRepo, catalog repo.CatalogRepo) (int64, int64, []int64) {
	suffix := uuid.NewString()[:8]

	buyer, err := accounts.CreateUser(ctx, &domain.User{Name: "sim buyer", Phone: "sim-" + suffix, PasswordHash: "-"})
	if err != nil {
		log.Fatalf("seed buyer: %v", err)
	}
	shop, err := accounts.CreateShop(ctx, &domain.Shop{Name: "sim shop " + suffix, Email: suffix + "@sim.local", PasswordHash: "-"})
	if err != nil {
		log.Fatalf("seed shop: %v", err)
	}
	menu, err := catalog.CreateMenu(ctx, &domain.Menu{ShopID: shop, Name: "Mains"})
	if err != nil {
		log.Fatalf("seed menu: %v", err)
	}

	var meals []int64
	for _, m := range []struct {
		name  string
		price string
	}{{"Mansaf", "8.50"}, {"Falafel wrap", "2.25"}, {"Knafeh", "3.00"}} {
		id, err := catalog.CreateMeal(ctx, &domain.Meal{MenuID: menu, ShopID: shop, Name: m.name, Price: decimal.RequireFromString(m.price)})
		if err != nil {
			log.Fatalf("seed meal: %v", err)
		}
		meals = append(meals, id)
	}
	return buyer, shop, meals
}

func report(ctx context.Context, db *sql.DB, shops repo.ShopRepo, shopID int64) {
	shop, err := shops.FindById(ctx, shopID)
	if err != nil || shop == nil {
		log.Fatalf("load shop %d: %v", shopID, err)
	}
	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE shop_id = $1`, shopID).Scan(&count); err != nil {
		log.Fatal(err)
	}
	status := "OK"
	if shop.NumOrders != count {
		status = "DRIFT"
	}
	fmt.Printf("    -> num_orders=%d order rows=%d [%s]\n", shop.NumOrders, count, status)
}
