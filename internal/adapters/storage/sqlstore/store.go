// Package sqlstore persists quotes in PostgreSQL (pgx) or SQLite (modernc).
//
// Both dialects share one set of queries written with '?' placeholders;
// they are rebound to '$n' for PostgreSQL. Schema changes are embedded goose
// migrations, one directory per dialect.
package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

//go:embed migrations
var migrationsFS embed.FS

// pgUniqueViolation is the SQLSTATE of unique_violation.
const pgUniqueViolation = "23505"

// sqlitePragmas are applied to every new SQLite connection.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// Store owns the database handle. It implements ports.QuoteRepository and
// ports.HealthChecker.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// Open connects to the configured database and, when migrate_on_start is set,
// applies pending migrations. A nil logger means slog.Default.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}

	var (
		d          dialect
		driverName string
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		d, driverName = postgresDialect, "pgx"
	case config.DriverSQLite:
		d, driverName = sqliteDialect, "sqlite"
		dsn = withSQLitePragmas(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if d == sqliteDialect {
		// SQLite has a single writer, and an in-memory database lives only as
		// long as its connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	s := &Store{
		db:      db,
		dialect: d,
		logger:  cmp.Or(logger, slog.Default()).With(slog.String("component", "sqlstore")),
	}

	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Migrate applies every pending embedded migration for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.dialect.name)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(s.dialect.goose, s.db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		s.logger.InfoContext(ctx, "migration applied",
			slog.String("dialect", s.dialect.name),
			slog.String("source", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}

	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "database"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return s.db.PingContext(ctx)
}

// dialect captures the few places where PostgreSQL and SQLite differ.
type dialect struct {
	name       string
	goose      goose.Dialect
	dollarArgs bool
	lockClause string
}

var (
	postgresDialect = dialect{
		name:       config.DriverPostgres,
		goose:      goose.DialectPostgres,
		dollarArgs: true,
		lockClause: " FOR UPDATE",
	}
	sqliteDialect = dialect{
		name:  config.DriverSQLite,
		goose: goose.DialectSQLite3,
	}
)

// rebind rewrites '?' placeholders into the dialect's bind syntax.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		fmt.Fprintf(&b, "$%d", n)
	}

	return b.String()
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

func withSQLitePragmas(dsn string) string {
	var b strings.Builder

	b.WriteString(dsn)

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, p) {
			continue
		}
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}

	return b.String()
}
