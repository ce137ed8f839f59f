package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/abiflow/internal/logging"
	"github.com/me/abiflow/pkg/model"

	_ "modernc.org/sqlite"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a new database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// NewRecordID returns a fresh history record ID.
func NewRecordID() string {
	return "rec_" + uuid.New().String()
}

func (s *SQLiteStore) Record(ctx context.Context, rec *model.Record) error {
	if rec.ID == "" {
		rec.ID = NewRecordID()
	}
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "history", "id", rec.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, run_id, job, task, directory, status, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Job, rec.Task, rec.Directory, string(rec.Status),
		rec.CheckedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert history %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "history", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var args []any
	if opts.Directory != "" {
		whereClauses = append(whereClauses, "directory = ?")
		args = append(args, opts.Directory)
	}
	if opts.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, opts.Status)
	}
	where := ""
	if len(whereClauses) > 0 {
		where = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, job, task, directory, status, checked_at FROM history`+where+
			` ORDER BY checked_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (s *SQLiteStore) Latest(ctx context.Context, directory string) (*model.Record, error) {
	s.logger.Debug("sql", "op", "latest", "table", "history", "directory", directory)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, job, task, directory, status, checked_at FROM history
		 WHERE directory = ? ORDER BY checked_at DESC, rowid DESC LIMIT 1`, directory)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*model.Record, error) {
	var rec model.Record
	var status, checkedAt string
	if err := sc.Scan(&rec.ID, &rec.RunID, &rec.Job, &rec.Task, &rec.Directory, &status, &checkedAt); err != nil {
		return nil, err
	}
	rec.Status = model.ParseStatus(status)
	t, err := time.Parse(timeFormat, checkedAt)
	if err != nil {
		return nil, fmt.Errorf("record %s: checked_at: %w", rec.ID, err)
	}
	rec.CheckedAt = t
	return &rec, nil
}
