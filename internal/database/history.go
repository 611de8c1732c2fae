package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pluginlinks/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "pluginlinks.db"

// ErrNotFound is returned when the database file does not exist and
// Options.CreateIfNotExists is false.
var ErrNotFound = errors.New("database not found")

// HistoryDB records enhancement passes.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_url TEXT NOT NULL,
		shape TEXT NOT NULL DEFAULT '',
		linked INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_page_url ON runs(page_url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SavePass stores a summary of pass and returns the new row id.
func (h *HistoryDB) SavePass(ctx context.Context, pass *model.Pass) (int64, error) {
	if pass == nil {
		return 0, errors.New("nil pass")
	}

	ts := pass.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
	INSERT INTO runs (page_url, shape, linked, skipped, reason, error, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := h.db.ExecContext(ctx, query,
		pass.PageURL,
		string(pass.Shape),
		len(pass.Linked),
		pass.Skipped,
		pass.Reason,
		pass.Error,
		ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save pass: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// Record stores pass and discards the row id.
func (h *HistoryDB) Record(ctx context.Context, pass *model.Pass) error {
	_, err := h.SavePass(ctx, pass)
	return err
}

// ListRuns returns stored runs, newest first. An empty pageURL lists runs for
// every page. A limit of zero or less returns all rows.
func (h *HistoryDB) ListRuns(ctx context.Context, pageURL string, limit int) ([]model.Run, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, page_url, shape, linked, skipped, reason, error, timestamp FROM runs`)
	if pageURL != "" {
		sb.WriteString(` WHERE page_url = ?`)
		args = append(args, pageURL)
	}
	sb.WriteString(` ORDER BY timestamp DESC, id DESC`)
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0)
	for rows.Next() {
		var (
			run       model.Run
			shape     string
			timestamp string
		)
		if err := rows.Scan(&run.ID, &run.PageURL, &shape, &run.Linked, &run.Skipped,
			&run.Reason, &run.Error, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Shape = model.Shape(shape)
		run.Timestamp = parseTimestamp(timestamp)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListPages returns every page URL with at least one stored run.
func (h *HistoryDB) ListPages(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT page_url FROM runs ORDER BY page_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var page string
		if err := rows.Scan(&page); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// timestampLayout is fixed width so timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
