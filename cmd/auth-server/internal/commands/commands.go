package commands

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Globals struct {
	Dev     bool
	Version string
}

// DatabaseFlags selects and configures the store
type DatabaseFlags struct {
	Driver       string `help:"database driver" default:"sqlite" enum:"postgres,sqlite" env:"AUTH_DB_DRIVER"`
	DSN          string `help:"database connection string" default:"file:auth.db?cache=shared" env:"AUTH_DB_DSN"`
	MaxOpenConns int    `help:"maximum open connections" default:"20" env:"AUTH_DB_MAX_OPEN_CONNS"`
}

// Open returns a bun DB for the configured driver
func (d DatabaseFlags) Open() (*bun.DB, error) {
	switch strings.ToLower(d.Driver) {
	case "postgres":
		sqldb, err := sql.Open("pgx", d.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqldb.SetMaxOpenConns(d.MaxOpenConns)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, d.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite serializes writers
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}
