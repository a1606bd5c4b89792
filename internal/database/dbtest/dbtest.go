// Package dbtest starts a disposable Postgres for integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"testing"
	"time"

	"takkeh/internal/database"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	dbName = "takkeh"
	dbUser = "takkeh"
	dbPwd  = "password1234"
)

// Start launches postgres:16-alpine, applies the schema and returns an open
// handle plus a teardown func. testcontainers panics when no docker host can
// be found; that panic comes back as an error.
func Start(ctx context.Context) (db *sql.DB, teardown func(context.Context) error, err error) {
	defer recoverProvider(&err)

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}
	db, err = database.NewPostgres(ctx, dsn, 20)
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		_ = testcontainers.TerminateContainer(ctr)
		return nil, nil, err
	}

	teardown = func(ctx context.Context) error {
		db.Close()
		return ctr.Terminate(ctx)
	}
	return db, teardown, nil
}

// recoverProvider turns a docker provider panic into *err.
func recoverProvider(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("docker unavailable: %v", r)
	}
}

// Reset empties every table and restarts the id sequences.
func Reset(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE likes, comments, post_categories, categories, posts, user_shop_follows,
		order_items, orders, meals, menus, drivers, shops, users RESTART IDENTITY CASCADE`)
	return err
}

var shared *sql.DB

// RunMain is called from TestMain. Unless -short is set it starts one
// container for the package, runs the tests and tears the container down.
// Without docker the integration tests skip and the rest still run.
func RunMain(m *testing.M) int {
	flag.Parse()
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	db, teardown, err := Start(ctx)
	if err != nil {
		log.Printf("skipping integration tests, could not start postgres container: %v", err)
		return m.Run()
	}
	shared = db
	defer func() {
		if err := teardown(ctx); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}()
	return m.Run()
}

// Require returns the package database with every table emptied, or skips t
// when no container is running.
func Require(t testing.TB) *sql.DB {
	t.Helper()
	if shared == nil {
		t.Skip("integration test needs docker")
	}
	if err := Reset(context.Background(), shared); err != nil {
		t.Fatalf("reset database: %v", err)
	}
	return shared
}
