// Package sqlstore implements the credential store on top of database/sql for
// PostgreSQL (pgx) and SQLite (modernc). Uniqueness of username and email is
// enforced by table constraints.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const defaultTimeout = 5 * time.Second

// Supported drivers, matching the STORAGE_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type dialect struct {
	sqlDriver    string
	gooseDialect string
	numbered     bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return dialect{sqlDriver: "pgx", gooseDialect: "postgres", numbered: true}, nil
	case DriverSQLite:
		return dialect{sqlDriver: "sqlite", gooseDialect: "sqlite3"}, nil
	default:
		return dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// rebind rewrites ? placeholders into $n for dialects that need numbered
// parameters. Queries in this package never contain a literal '?'.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open connects to the database for driver and verifies it with a ping.
// SQLite is limited to a single connection so ":memory:" databases are shared.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore ping: %w", err)
	}
	return db, nil
}

// Pinger adapts a database handle to the readiness check.
type Pinger struct {
	DB     *sql.DB
	Driver string
}

func (p Pinger) Name() string { return p.Driver }

func (p Pinger) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
