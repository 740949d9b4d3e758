package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			route_key TEXT NOT NULL,
			http_method TEXT,
			path TEXT,
			issues JSON,
			info_count INTEGER,
			warn_count INTEGER,
			error_count INTEGER,
			generated_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_route ON reports(route_key, generated_at);`,
		`CREATE TABLE IF NOT EXISTS fixtures (
			root TEXT NOT NULL,
			class TEXT NOT NULL,
			payload JSON,
			created_at INTEGER,
			PRIMARY KEY (root, class)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- ReportStore Implementation ---

// SaveReport appends one report run. A nil issue list is stored as [];
// anything that is not an issue list is rejected.
func (s *SQLiteStore) SaveReport(ctx context.Context, r ReportRecord) error {
	if len(r.Issues) == 0 {
		r.Issues = json.RawMessage("[]")
	}
	if err := validateIssues(r.Issues); err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.RouteKey, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (route_key, http_method, path, issues, info_count, warn_count, error_count, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RouteKey, r.Method, r.Path, []byte(r.Issues), r.Info, r.Warn, r.Error, r.GeneratedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.RouteKey, err)
	}
	return nil
}

const reportColumns = "route_key, http_method, path, issues, info_count, warn_count, error_count, generated_at"

func (s *SQLiteStore) LatestReport(ctx context.Context, routeKey string) (ReportRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE route_key = ? ORDER BY generated_at DESC, id DESC LIMIT 1", routeKey)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ReportRecord{}, false, nil
	}
	if err != nil {
		return ReportRecord{}, false, fmt.Errorf("failed to load report %s: %w", routeKey, err)
	}
	return r, true, nil
}

func (s *SQLiteStore) ReportHistory(ctx context.Context, routeKey string, limit int) ([]ReportRecord, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE route_key = ? ORDER BY generated_at DESC, id DESC LIMIT ?", routeKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (s *SQLiteStore) ListLatestReports(ctx context.Context) ([]ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports r
		WHERE id = (
			SELECT id FROM reports WHERE route_key = r.route_key
			ORDER BY generated_at DESC, id DESC LIMIT 1
		)
		ORDER BY route_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (ReportRecord, error) {
	var r ReportRecord
	var issues []byte
	var generated int64
	if err := row.Scan(&r.RouteKey, &r.Method, &r.Path, &issues, &r.Info, &r.Warn, &r.Error, &generated); err != nil {
		return ReportRecord{}, err
	}
	r.Issues = issues
	r.GeneratedAt = time.UnixMilli(generated).UTC()
	return r, nil
}

func collectReports(rows *sql.Rows) ([]ReportRecord, error) {
	var out []ReportRecord
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- FixtureStore Implementation ---

func (s *SQLiteStore) SaveFixture(ctx context.Context, f FixtureRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fixtures (root, class, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(root, class) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at
	`, f.Root, f.Class, []byte(f.Payload), f.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save fixture %s: %w", f.Class, err)
	}
	return nil
}

func (s *SQLiteStore) LoadFixture(ctx context.Context, root, class string) (FixtureRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT root, class, payload, created_at FROM fixtures WHERE root = ? AND class = ?", root, class)

	var f FixtureRecord
	var payload []byte
	var created int64
	err := row.Scan(&f.Root, &f.Class, &payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return FixtureRecord{}, false, nil
	}
	if err != nil {
		return FixtureRecord{}, false, fmt.Errorf("failed to load fixture %s: %w", class, err)
	}
	f.Payload = payload
	f.CreatedAt = time.UnixMilli(created).UTC()
	return f, true, nil
}
