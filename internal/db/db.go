package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

// DB is a connection pool that knows which placeholder style its driver
// expects. Queries are written with $N placeholders and passed through
// Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect
}

type Config struct {
	Driver string
	DSN    string
	Pool   PoolConfig
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "pgx", "postgres":
		return OpenPostgresWithConfig(ctx, cfg.DSN, cfg.Pool)
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func (d *DB) Rebind(query string) string {
	return d.Dialect.Rebind(query)
}

// Rebind rewrites $N placeholders to ?N for SQLite.
func (d Dialect) Rebind(query string) string {
	if d != SQLite || !strings.Contains(query, "$") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func Now() int64 {
	return time.Now().UTC().Unix()
}
