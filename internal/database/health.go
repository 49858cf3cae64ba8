package database

import (
	"context"
	"database/sql"
	"time"
)

// CheckHealth pings db with a short timeout.
func CheckHealth(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}
