// Package sqlstore reads bulk snapshots straight from the neos table, for
// deployments where the dashboard sits next to the database instead of the
// REST API. SQLite (modernc.org/sqlite) and Postgres (lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS neos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    neo_id TEXT UNIQUE,
    name TEXT,
    close_approach_date TEXT,
    diameter_km REAL,
    velocity_km_s REAL,
    miss_distance_au REAL,
    hazardous BOOLEAN
);
CREATE INDEX IF NOT EXISTS ix_neos_close_approach_date ON neos(close_approach_date);`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS neos (
    id SERIAL PRIMARY KEY,
    neo_id VARCHAR UNIQUE,
    name VARCHAR,
    close_approach_date DATE,
    diameter_km DOUBLE PRECISION,
    velocity_km_s DOUBLE PRECISION,
    miss_distance_au DOUBLE PRECISION,
    hazardous BOOLEAN
);
CREATE INDEX IF NOT EXISTS ix_neos_close_approach_date ON neos(close_approach_date);`

const selectColumns = `SELECT id, neo_id, name, close_approach_date, diameter_km, velocity_km_s, miss_distance_au, hazardous FROM neos`

// Store implements stream.SnapshotSource over a neos table.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return newStore(db, driver, logger), nil
}

func newStore(db *sql.DB, driver string, logger *slog.Logger) *Store {
	return &Store{db: db, driver: driver, logger: logger}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the neos table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// FetchRecords returns every row matching q ordered by date. Rows missing a
// date or a finite miss distance are skipped.
func (s *Store) FetchRecords(ctx context.Context, q domain.Query) ([]domain.NeoRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.StartDate != "" {
		args = append(args, q.StartDate)
		where = append(where, "close_approach_date >= "+s.placeholder(len(args)))
	}
	if q.EndDate != "" {
		args = append(args, q.EndDate)
		where = append(where, "close_approach_date <= "+s.placeholder(len(args)))
	}
	if q.Hazardous != nil {
		args = append(args, *q.Hazardous)
		where = append(where, "hazardous = "+s.placeholder(len(args)))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY close_approach_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query neos: %w", err)
	}
	defer rows.Close()

	var (
		records []domain.NeoRecord
		skipped int
	)
	for rows.Next() {
		rec, ok, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neos: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("neos table contains incomplete rows", "skipped", skipped, "kept", len(records))
	}
	return records, nil
}

// Insert stores records, ignoring any whose neo_id is already present. It
// returns the number of rows written. Record IDs are assigned by the database.
func (s *Store) Insert(ctx context.Context, records []domain.NeoRecord) (int, error) {
	stmt := "INSERT INTO neos (neo_id, name, close_approach_date, diameter_km, velocity_km_s, miss_distance_au, hazardous) VALUES (" +
		strings.Join([]string{
			s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
			s.placeholder(5), s.placeholder(6), s.placeholder(7),
		}, ", ") + ") ON CONFLICT (neo_id) DO NOTHING"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, r := range records {
		res, err := tx.ExecContext(ctx, stmt,
			nullString(r.NeoID), r.Name, r.CloseApproachDate,
			r.DiameterKm, r.VelocityKmS, r.MissDistanceAu, r.Hazardous,
		)
		if err != nil {
			return 0, fmt.Errorf("insert neo %q: %w", r.NeoID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert neo %q: %w", r.NeoID, err)
		}
		written += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return written, nil
}

func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func scanRecord(rows *sql.Rows) (domain.NeoRecord, bool, error) {
	var (
		id                       int64
		neoID, name, date        sql.NullString
		diameter, velocity, miss sql.NullFloat64
		hazardous                sql.NullBool
	)
	if err := rows.Scan(&id, &neoID, &name, &date, &diameter, &velocity, &miss, &hazardous); err != nil {
		return domain.NeoRecord{}, false, fmt.Errorf("scan neo: %w", err)
	}
	if !date.Valid || !miss.Valid || math.IsNaN(miss.Float64) || math.IsInf(miss.Float64, 0) {
		return domain.NeoRecord{}, false, nil
	}
	day, err := domain.NormalizeDate(date.String)
	if err != nil {
		return domain.NeoRecord{}, false, nil
	}
	return domain.NeoRecord{
		ID:                domain.RecordID(strconv.FormatInt(id, 10)),
		NeoID:             neoID.String,
		Name:              name.String,
		CloseApproachDate: day,
		DiameterKm:        diameter.Float64,
		VelocityKmS:       velocity.Float64,
		MissDistanceAu:    miss.Float64,
		Hazardous:         hazardous.Bool,
	}, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
