package worker

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"takkeh/internal/database"
	"takkeh/internal/repo"
)

const driftBatchSize = 100

// ReconciliationWorker periodically repairs shops whose num_orders counter
// no longer matches the number of order rows they own.
type ReconciliationWorker struct {
	tx       database.Transactor
	shopRepo repo.ShopRepo
	interval time.Duration
	logger   *slog.Logger
}

func NewReconciliationWorker(
	tx database.Transactor,
	shopRepo repo.ShopRepo,
	interval time.Duration,
	logger *slog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		tx:       tx,
		shopRepo: shopRepo,
		interval: interval,
		logger:   logger.With("component", "reconciliation_worker"),
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.InfoContext(ctx, "reconciliation worker started", "interval", rw.interval)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return nil
		case <-ticker.C:
			if _, err := rw.Process(ctx); err != nil {
				rw.logger.ErrorContext(ctx, "reconciliation failed", "err", err)
			}
		}
	}
}

// Process fixes one batch of drifted shops and returns how many it changed.
// A shop that fails is logged and retried on the next tick.
func (rw *ReconciliationWorker) Process(ctx context.Context) (int, error) {
	drifted, err := rw.shopRepo.FindCounterDrift(ctx, driftBatchSize)
	if err != nil {
		return 0, err
	}
	if len(drifted) == 0 {
		return 0, nil
	}

	rw.logger.InfoContext(ctx, "found shops with drifted order counters", "count", len(drifted))

	fixed := 0
	for _, d := range drifted {
		var before, after int64
		err := rw.tx.WithTx(ctx, func(tx *sql.Tx) error {
			var err error
			before, after, err = rw.shopRepo.ReconcileOrderCount(ctx, tx, d.ShopID)
			return err
		})
		if err != nil {
			rw.logger.ErrorContext(ctx, "failed to reconcile shop", "shop_id", d.ShopID, "err", err)
			continue
		}
		if before != after {
			fixed++
			rw.logger.InfoContext(ctx, "order counter repaired", "shop_id", d.ShopID, "from", before, "to", after)
		}
	}
	return fixed, nil
}
