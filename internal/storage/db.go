package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Driver selects the SQL backend.
type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

var (
	// ErrNotFound is returned when a row lookup by id finds nothing.
	ErrNotFound = errors.New("not found")
	// ErrExerciseInUse is returned when deleting an exercise that history or a template references.
	ErrExerciseInUse = errors.New("exercise is referenced by sets or templates")
)

// Notifier receives the tables touched by a committed write.
type Notifier interface {
	Publish(tables ...string)
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn carries the repository methods. It runs either directly against the
// pool or inside a transaction.
type Conn struct {
	q      queryer
	driver Driver
	touch  func(tables ...string)
}

func (c *Conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.rebind(query), args...)
}

func (c *Conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.rebind(query), args...)
}

func (c *Conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.rebind(query), args...)
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (c *Conn) rebind(query string) string {
	if c.driver != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB wraps a database/sql pool and provides repository methods.
type DB struct {
	*Conn
	sql      *sql.DB
	log      *slog.Logger
	notifier Notifier
}

// Open connects to the database. For SQLite the dsn is a file path.
func Open(ctx context.Context, driver Driver, dsn string, log *slog.Logger) (*DB, error) {
	var (
		sqlDB *sql.DB
		err   error
	)
	switch driver {
	case SQLite:
		sqlDB, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// One connection serialises writers and keeps pragmas in effect.
		sqlDB.SetMaxOpenConns(1)
	case Postgres:
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("pinging database: %w", err), sqlDB.Close())
	}

	db := &DB{sql: sqlDB, log: log}
	db.Conn = &Conn{q: sqlDB, driver: driver, touch: db.publish}
	return db, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// SetNotifier registers the receiver of committed-change notifications.
func (db *DB) SetNotifier(n Notifier) {
	db.notifier = n
}

func (db *DB) publish(tables ...string) {
	if db.notifier != nil && len(tables) > 0 {
		db.notifier.Publish(tables...)
	}
}

// Driver returns the backend in use.
func (db *DB) Driver() Driver {
	return db.driver
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Tx is a Conn bound to a transaction. It records which tables were written
// so subscribers are notified once the transaction commits.
type Tx struct {
	*Conn
	touched map[string]struct{}
}

func (tx *Tx) record(tables ...string) {
	for _, t := range tables {
		tx.touched[t] = struct{}{}
	}
}

func (tx *Tx) tables() []string {
	out := make([]string, 0, len(tx.touched))
	for _, t := range allTables {
		if _, ok := tx.touched[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// WithTx runs fn inside a transaction. The transaction commits if fn returns
// nil and rolls back otherwise. fn must only use tx; calling methods on db
// while the transaction is open deadlocks on SQLite.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	tx := &Tx{touched: make(map[string]struct{})}
	tx.Conn = &Conn{q: sqlTx, driver: db.driver, touch: tx.record}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	db.publish(tx.tables()...)
	return nil
}

// MigrateURL returns the golang-migrate database URL for a driver and dsn.
func MigrateURL(driver Driver, dsn string) string {
	if driver == SQLite {
		return "sqlite://" + dsn
	}
	return dsn
}

// RunMigrations applies all pending embedded migrations for the driver.
func RunMigrations(driver Driver, dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(driver))
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateURL(driver, dsn))
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
