package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
)

// Supported database/sql drivers.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

func driverName(cfg Config) string {
	if cfg.Driver == DriverPq {
		return DriverPq
	}
	return DriverPgx
}
