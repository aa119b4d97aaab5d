package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
	DialectMySQL
)

// Runner is the subset of *sql.DB and *sql.Tx the load path needs, so the
// same query code can run inside or outside a transaction.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store wraps a single database/sql handle plus the dialect-specific bits
// (placeholder format, autoincrement spelling, insert-or-ignore clause) the
// rest of the code needs.
type Store struct {
	db      *sql.DB
	dialect Dialect
	path    string // sqlite file path; empty for server providers
	url     string
}

func ParseProvider(provider string) (Dialect, error) {
	switch provider {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgresql", "postgres":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return 0, fmt.Errorf("unsupported database provider: %s", provider)
	}
}

func Open(ctx context.Context, provider, url string) (*Store, error) {
	dialect, err := ParseProvider(provider)
	if err != nil {
		return nil, err
	}

	s := &Store{dialect: dialect, url: url}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect(ctx context.Context) error {
	var driverName, dsn string

	switch s.dialect {
	case DialectSQLite:
		driverName = "sqlite3"
		s.path = strings.TrimPrefix(s.url, "sqlite://")
		if idx := strings.Index(s.path, "?"); idx > 0 {
			s.path = s.path[:idx]
		}
		dsn = strings.TrimPrefix(s.url, "sqlite://")
		if !strings.Contains(dsn, "?") {
			dsn += "?cache=shared&_journal_mode=WAL"
		}
	case DialectPostgres:
		driverName = "pgx"
		dsn = s.url
	case DialectMySQL:
		driverName = "mysql"
		dsn = s.url
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Builder returns a statement builder with the dialect's placeholder format.
func (s *Store) Builder() squirrel.StatementBuilderType {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if s.dialect == DialectPostgres {
		format = squirrel.Dollar
	}
	return squirrel.StatementBuilder.PlaceholderFormat(format)
}

// InsertIgnore rewrites an insert so a duplicate primary key is silently
// skipped instead of raising a constraint error.
func (s *Store) InsertIgnore(b squirrel.InsertBuilder, pkColumn string) squirrel.InsertBuilder {
	switch s.dialect {
	case DialectSQLite:
		return b.Options("OR IGNORE")
	case DialectMySQL:
		return b.Options("IGNORE")
	default:
		return b.Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", pkColumn))
	}
}

// Reset rebuilds the store from scratch. For sqlite the database file is
// removed and the connection reopened; server providers drop the tables
// instead, children before parents.
func (s *Store) Reset(ctx context.Context) error {
	if s.dialect == DialectSQLite {
		if s.db != nil {
			s.db.Close()
			s.db = nil
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove database file %s: %w", s.path, err)
		}
		return s.connect(ctx)
	}

	for _, table := range []string{"ShipmentLineItems", "Shipments", "Drivers", "Locations", "Products"} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
