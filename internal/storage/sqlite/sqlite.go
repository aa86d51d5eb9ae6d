package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

const DefaultTable = "gaming-playtime-tracker-rate-limits"

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SQLiteStore keeps request records in a single table on local disk. It
// suits single-node deployments that want counts to survive restarts.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// Open opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path, table string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps RecordIfBelow atomic and the in-memory db shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLiteStore{db: db, table: tableName(table)}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func tableName(name string) string {
	if name == "" {
		name = DefaultTable
	}
	return unsafeIdent.ReplaceAllString(name, "_")
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	identity  TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	expire_at INTEGER NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_identity_ts ON %s (identity, ts)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE identity = ? AND ts >= ?`, s.table),
		identity, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Record(ctx context.Context, rec limiter.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.purge(ctx, tx, rec); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (identity, ts, expire_at) VALUES (?, ?, ?)`, s.table),
		rec.Identity, rec.Timestamp.UnixMilli(), rec.ExpireAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordIfBelow(ctx context.Context, rec limiter.Record, since time.Time, max int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.purge(ctx, tx, rec); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %[1]s (identity, ts, expire_at)
SELECT ?, ?, ?
WHERE (SELECT COUNT(*) FROM %[1]s WHERE identity = ? AND ts >= ?) < ?`, s.table),
		rec.Identity, rec.Timestamp.UnixMilli(), rec.ExpireAt.UnixMilli(),
		rec.Identity, since.UnixMilli(), max,
	)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n == 1, nil
}

// purge drops the identity's records that expired before rec was taken.
func (s *SQLiteStore) purge(ctx context.Context, tx *sql.Tx, rec limiter.Record) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE identity = ? AND expire_at <= ?`, s.table),
		rec.Identity, rec.Timestamp.UnixMilli(),
	); err != nil {
		return fmt.Errorf("purge expired records: %w", err)
	}
	return nil
}

var _ limiter.CeilingStore = (*SQLiteStore)(nil)
