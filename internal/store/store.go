package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrMissingTable means a pipeline stage read a table that no
// upstream stage has produced yet
var ErrMissingTable = errors.New("missing upstream table")

// Table names of the pipeline, matching the upstream system
const (
	TableConsumption = "consommation"
	TableWeather     = "meteo"
	TablePrices      = "prix_spot_electricite"
	TableCalendar    = "calendrier_feries"
	TableFused       = "conso_meteo_enrichi"
)

// datetimeLayout is the stored text form of timestamps
const datetimeLayout = "2006-01-02 15:04:05"

// Store persists pipeline tables in SQLite or PostgreSQL
type Store struct {
	db      *sql.DB
	driver  string
	loc     *time.Location
	dataDir string
}

// Option adjusts a Store
type Option func(*Store)

// WithLocation sets the zone reattached to timestamps read back from
// storage. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithDataDir enables CSV mirrors: every replaced table is also
// written to <dir>/<table>.csv after commit
func WithDataDir(dir string) Option {
	return func(s *Store) { s.dataDir = dir }
}

// Open connects to the database. Driver is "sqlite" with a file path
// DSN, or "pgx" with a postgres URL.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == "pgx" {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// Serialize writers to avoid SQLITE_BUSY on the file
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, driver: driver, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is still usable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Count returns the number of rows in a table
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, s.tableErr(table, err)
	}
	return n, nil
}

// Stats summarises one numeric column of a series table
type Stats struct {
	Rows  int
	First time.Time
	Last  time.Time
	Min   float64
	Avg   float64
	Max   float64
}

// SeriesStats reports row count, datetime span and value spread of a
// series table column
func (s *Store) SeriesStats(ctx context.Context, table, col string) (Stats, error) {
	var st Stats
	var first, last sql.NullString
	var min, avg, max sql.NullFloat64

	query := fmt.Sprintf(
		"SELECT COUNT(*), MIN(datetime), MAX(datetime), MIN(%s), AVG(%s), MAX(%s) FROM %s",
		col, col, col, table)
	err := s.db.QueryRowContext(ctx, query).Scan(&st.Rows, &first, &last, &min, &avg, &max)
	if err != nil {
		return st, s.tableErr(table, err)
	}

	if first.Valid {
		st.First, _ = time.ParseInLocation(datetimeLayout, first.String, s.loc)
	}
	if last.Valid {
		st.Last, _ = time.ParseInLocation(datetimeLayout, last.String, s.loc)
	}
	st.Min, st.Avg, st.Max = min.Float64, avg.Float64, max.Float64
	return st, nil
}

// DuplicateTimestamps counts rows sharing a datetime with an earlier
// row of the same table
func (s *Store) DuplicateTimestamps(ctx context.Context, table string) (int, error) {
	var total, distinct int
	query := "SELECT COUNT(*), COUNT(DISTINCT datetime) FROM " + table
	if err := s.db.QueryRowContext(ctx, query).Scan(&total, &distinct); err != nil {
		return 0, s.tableErr(table, err)
	}
	return total - distinct, nil
}

// tableErr maps driver-specific missing-relation errors onto
// ErrMissingTable so callers can react uniformly
func (s *Store) tableErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	return fmt.Errorf("querying %s: %w", table, err)
}

// placeholders renders a parameter list in the dialect of the open
// driver, "(?, ?, ...)" for SQLite and "($1, $2, ...)" for Postgres
func (s *Store) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.driver == "pgx" {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
