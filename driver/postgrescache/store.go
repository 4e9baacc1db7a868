package postgrescache

import (
	"github.com/goforj/attrcache/cachecore"
	"github.com/goforj/attrcache/driver/sqlcore"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config configures a postgres-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a postgres-backed cachecore.Store using the pgx stdlib driver.
func New(cfg Config) (cachecore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "pgx",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}
