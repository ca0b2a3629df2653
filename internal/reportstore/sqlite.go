package reportstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const listColumns = "token, status, created_at, updated_at, vehicle_type, scenario, severity, confidence, confidence_level, error_category, error_message"

var _ Store = (*SQLite)(nil)

// SQLite is a Store backed by a single database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the report database at path.
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("open report store: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open report store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Put(ctx context.Context, rec Record) error {
	rec, err := stamp(rec, time.Now().UTC())
	if err != nil {
		return err
	}
	report := rec.Report
	if len(report) == 0 {
		report = nil
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO reports (
                token, status, created_at, updated_at, vehicle_type, scenario,
                severity, confidence, confidence_level, error_category, error_message, report_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(token) DO UPDATE SET
                status = excluded.status,
                updated_at = excluded.updated_at,
                vehicle_type = excluded.vehicle_type,
                scenario = excluded.scenario,
                severity = excluded.severity,
                confidence = excluded.confidence,
                confidence_level = excluded.confidence_level,
                error_category = excluded.error_category,
                error_message = excluded.error_message,
                report_json = excluded.report_json`,
			rec.Token,
			string(rec.Status),
			rec.CreatedAt.Format(timeLayout),
			rec.UpdatedAt.Format(timeLayout),
			rec.VehicleType,
			rec.Scenario,
			nullableString(rec.Severity),
			rec.Confidence,
			nullableString(rec.ConfidenceLevel),
			nullableString(rec.ErrorCategory),
			nullableString(rec.ErrorMessage),
			nullableBytes(report),
		)
		if err != nil {
			return fmt.Errorf("put report %s: %w", rec.Token, err)
		}
		return nil
	})
}

func (s *SQLite) Get(ctx context.Context, token string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listColumns+`, report_json FROM reports WHERE token = ?`, token)
	var report sql.NullString
	rec, err := scanRecord(row, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get report %s: %w", token, err)
	}
	if report.Valid {
		rec.Report = []byte(report.String)
	}
	return rec, nil
}

func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `SELECT ` + listColumns + ` FROM reports`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, token`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, token string) (bool, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE token = ?`, token)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete report %s: %w", token, err)
	}
	return affected > 0, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }, extra ...any) (Record, error) {
	var (
		rec             Record
		status          string
		createdRaw      string
		updatedRaw      string
		severity        sql.NullString
		confidenceLevel sql.NullString
		errorCategory   sql.NullString
		errorMessage    sql.NullString
	)
	dest := []any{
		&rec.Token, &status, &createdRaw, &updatedRaw, &rec.VehicleType, &rec.Scenario,
		&severity, &rec.Confidence, &confidenceLevel, &errorCategory, &errorMessage,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	rec.Severity = severity.String
	rec.ConfidenceLevel = confidenceLevel.String
	rec.ErrorCategory = errorCategory.String
	rec.ErrorMessage = errorMessage.String
	return rec, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableBytes(value []byte) any {
	if value == nil {
		return nil
	}
	return string(value)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}
