package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// WaitForDB pings until the database answers or ctx is done.
func WaitForDB(ctx context.Context, db *sql.DB, retry time.Duration) error {
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		slog.Warn("database unreachable, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry", retry))

		t := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
