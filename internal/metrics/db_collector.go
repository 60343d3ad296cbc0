package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartDBCollectors refreshes the table gauges every interval until ctx ends.
func StartDBCollectors(ctx context.Context, db *pgxpool.Pool, interval time.Duration, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		updateDBGauges(ctx, db, logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				updateDBGauges(ctx, db, logger)
			}
		}
	}()
}

func updateDBGauges(ctx context.Context, db *pgxpool.Pool, logger *slog.Logger) {
	var flights int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM flights`).Scan(&flights); err != nil {
		logger.Warn("metrics db count flights", "error", err)
	} else {
		SetTimetableFlights(int(flights))
	}

	countByStatus(ctx, db, logger, `SELECT status, COUNT(*) FROM flight_imports GROUP BY status`,
		func(status string, cnt int64) { SetFlightImportStatusCount(status, cnt) })

	var pending int64
	countByStatus(ctx, db, logger, `SELECT status, COUNT(*) FROM outbox_messages GROUP BY status`,
		func(status string, cnt int64) {
			SetOutboxStatusCount(status, cnt)
			if status == "pending" {
				pending = cnt
			}
		})
	SetOutboxPendingCount(pending)
}

func countByStatus(ctx context.Context, db *pgxpool.Pool, logger *slog.Logger, query string, set func(string, int64)) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		logger.Warn("metrics db query", "query", query, "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			cnt    int64
		)
		if err := rows.Scan(&status, &cnt); err != nil {
			logger.Warn("metrics db scan", "query", query, "error", err)
			continue
		}
		set(status, cnt)
	}
}
