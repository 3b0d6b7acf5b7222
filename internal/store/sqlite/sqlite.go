package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/maloquacious/thoughtdb/internal/logger"
	"github.com/maloquacious/thoughtdb/internal/store"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using modernc.org/sqlite.
type SQLiteStore struct {
	dbPath          string
	db              *sql.DB
	expectedVersion string
	builder         squirrel.StatementBuilderType
	log             logger.Logger
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLiteStore. A nil log uses logger.Default.
func New(dbPath string, expectedVersion string, log logger.Logger) *SQLiteStore {
	if log == nil {
		log = logger.Default
	}
	return &SQLiteStore{
		dbPath:          dbPath,
		expectedVersion: expectedVersion,
		builder:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log:             log,
	}
}

// Open opens (or creates) the SQLite database with foreign keys enforced.
func (s *SQLiteStore) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection, so the pool is pinned to one.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
		s.log.Debug("applied %s", pragma)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Probe reads the catalog, which fails on files that are not databases.
func (s *SQLiteStore) Probe(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	return nil
}

// EnsureSchema creates the core tables and indexes and upserts the seed rows.
func (s *SQLiteStore) EnsureSchema(ctx context.Context, seed []store.AppInfoEntry) error {
	if s.db == nil {
		return store.ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range coreTables {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, stmt := range coreIndexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	for _, e := range seed {
		query, args, err := s.builder.Insert(TableAppInfo).
			Options("OR REPLACE").
			Columns("id", "key", "value").
			Values(e.ID, e.Key, e.Value).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build app_info upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert app_info %q: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("schema ensured, %d app_info rows upserted", len(seed))
	return nil
}

// Verify returns the required tables and indexes present in sqlite_master.
func (s *SQLiteStore) Verify(ctx context.Context) (store.Catalog, error) {
	var c store.Catalog
	if s.db == nil {
		return c, store.ErrNotOpen
	}

	names := append(append([]string{}, RequiredTables...), RequiredIndexes...)
	query, args, err := s.builder.Select("type", "name").
		From("sqlite_master").
		Where(squirrel.Eq{"name": names}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return c, fmt.Errorf("failed to build catalog query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return c, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, name string
		if err := rows.Scan(&typ, &name); err != nil {
			return store.Catalog{}, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		switch typ {
		case "table":
			c.Tables = append(c.Tables, name)
		case "index":
			c.Indexes = append(c.Indexes, name)
		}
	}
	if err := rows.Err(); err != nil {
		return store.Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return c, nil
}

// TableCount returns the number of tables not owned by SQLite itself.
func (s *SQLiteStore) TableCount(ctx context.Context) (int, error) {
	return s.count(ctx, s.builder.Select("COUNT(*)").
		From("sqlite_master").
		Where(squirrel.Eq{"type": "table"}).
		Where(squirrel.NotLike{"name": "sqlite_%"}))
}

// AppInfoCount returns the number of rows in app_info.
func (s *SQLiteStore) AppInfoCount(ctx context.Context) (int, error) {
	return s.count(ctx, s.builder.Select("COUNT(*)").From(TableAppInfo))
}

func (s *SQLiteStore) count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	if s.db == nil {
		return 0, store.ErrNotOpen
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

// AppInfo returns the app_info rows ordered by id.
func (s *SQLiteStore) AppInfo(ctx context.Context) ([]store.AppInfoEntry, error) {
	if s.db == nil {
		return nil, store.ErrNotOpen
	}
	query, args, err := s.builder.Select("id", "key", "value").
		From(TableAppInfo).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build app_info query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query app_info: %w", err)
	}
	defer rows.Close()

	var entries []store.AppInfoEntry
	for rows.Next() {
		var e store.AppInfoEntry
		var value sql.NullString
		if err := rows.Scan(&e.ID, &e.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan app_info row: %w", err)
		}
		e.Value = value.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CheckState returns the current state of the datastore.
func (s *SQLiteStore) CheckState(ctx context.Context) (store.StoreState, error) {
	if s.db == nil {
		return store.StateMissing, store.ErrNotOpen
	}

	catalog, err := s.Verify(ctx)
	if err != nil {
		return store.StateUninitialized, err
	}
	for _, name := range append(append([]string{}, RequiredTables...), RequiredIndexes...) {
		if !catalog.Has(name) {
			return store.StateUninitialized, nil
		}
	}

	version, err := s.appVersion(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return store.StateUninitialized, nil
	}
	if err != nil {
		return store.StateUninitialized, err
	}

	if version != s.expectedVersion {
		return store.StateVersionMismatch, nil
	}

	return store.StateReady, nil
}

// appVersion returns the version row from app_info.
func (s *SQLiteStore) appVersion(ctx context.Context) (string, error) {
	query, args, err := s.builder.Select("value").
		From(TableAppInfo).
		Where(squirrel.Eq{"key": store.KeyVersion}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build version query: %w", err)
	}

	var version sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("failed to query app version: %w", err)
	}
	return version.String, nil
}
