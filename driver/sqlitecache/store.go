package sqlitecache

import (
	"github.com/goforj/attrcache/cachecore"
	"github.com/goforj/attrcache/driver/sqlcore"
	_ "modernc.org/sqlite"
)

// Config configures a sqlite-backed cache store.
type Config struct {
	cachecore.BaseConfig
	DSN   string
	Table string
}

// New builds a sqlite-backed cachecore.Store.
func New(cfg Config) (cachecore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "sqlite",
		DSN:        cfg.DSN,
		Table:      cfg.Table,
	})
}
