package database_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"takkeh/internal/database"
	"takkeh/internal/database/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.RunMain(m))
}

func TestHealth(t *testing.T) {
	db := dbtest.Require(t)
	srv := database.New(db, "takkeh")

	stats := srv.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "It's healthy", stats["message"])
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := dbtest.Require(t)
	require.NoError(t, database.Migrate(context.Background(), db))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := dbtest.Require(t)
	ctx := context.Background()
	srv := database.New(db, "takkeh")

	boom := errors.New("boom")
	err := srv.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (phone_number, password_hash) VALUES ('0790000000', 'x')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n)

	err = srv.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (phone_number, password_hash) VALUES ('0790000000', 'x')`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)
}
