package store

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

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	agency TEXT NOT NULL DEFAULT '',
	solicitation_number TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	posted_date DATETIME,
	due_date DATETIME,
	url TEXT NOT NULL DEFAULT '',
	estimated_value REAL NOT NULL DEFAULT 0,
	fingerprint TEXT NOT NULL,
	identity_key TEXT NOT NULL DEFAULT '',
	relevance_score INTEGER,
	status TEXT NOT NULL,
	discovered_at DATETIME NOT NULL,
	last_seen_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_opportunities_fingerprint ON opportunities (fingerprint);
CREATE INDEX IF NOT EXISTS idx_opportunities_identity ON opportunities (identity_key);
CREATE INDEX IF NOT EXISTS idx_opportunities_due_date ON opportunities (due_date);
`

const sqliteColumns = `id, source_id, title, description, agency, solicitation_number,
	category, posted_date, due_date, url, estimated_value, fingerprint,
	identity_key, relevance_score, status, discovered_at, last_seen_at`

// SQLiteStore persists opportunity rows in a local SQLite file. It serves
// single-node installs where running Postgres is not worth the trouble.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if needed creates) the database at path. WAL mode
// keeps the scheduler's writes from blocking API reads.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store.path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (*engine.OpportunityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM opportunities WHERE fingerprint = ?", sqliteColumns),
		fingerprint)

	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) FindByIdentity(ctx context.Context, key string) (*engine.OpportunityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM opportunities WHERE identity_key = ? ORDER BY discovered_at DESC LIMIT 1", sqliteColumns),
		key)

	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, record engine.OpportunityRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO opportunities (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, sqliteColumns),
		record.ID, record.SourceID, record.Title, record.Description, record.Agency,
		record.SolicitationNumber, string(record.Category), nullTime(record.PostedDate),
		nullTime(record.DueDate), record.URL, record.EstimatedValue, record.Fingerprint,
		record.IdentityKey, nullInt(record.RelevanceScore), string(record.Status),
		record.DiscoveredAt, record.LastSeenAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return engine.ErrDedupConflict
		}
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fields engine.UpdateFields) error {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if fields.Status != nil {
		add("status", string(*fields.Status))
	}
	if fields.DueDate != nil {
		add("due_date", *fields.DueDate)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Category != nil {
		add("category", string(*fields.Category))
	}
	if fields.RelevanceScore != nil {
		add("relevance_score", *fields.RelevanceScore)
	}
	if fields.LastSeenAt != nil {
		add("last_seen_at", *fields.LastSeenAt)
	}
	if fields.Fingerprint != nil {
		add("fingerprint", *fields.Fingerprint)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE opportunities SET %s WHERE id = ?", strings.Join(sets, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update opportunity %s: %w", id, engine.ErrStoreUnavailable)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter engine.ListFilter) ([]engine.OpportunityRecord, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.MinScore > 0 {
		clauses = append(clauses, "relevance_score >= ?")
		args = append(args, filter.MinScore)
	}

	query := fmt.Sprintf("SELECT %s FROM opportunities", sqliteColumns)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY discovered_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()
	return collectSQLiteRecords(rows)
}

func (s *SQLiteStore) DueWithin(ctx context.Context, window time.Duration, now time.Time) ([]engine.OpportunityRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE status = ? AND due_date > ? AND due_date <= ?
		ORDER BY due_date ASC`, sqliteColumns),
		string(engine.StatusOpen), now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list due opportunities: %w", err)
	}
	defer rows.Close()
	return collectSQLiteRecords(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteRecord(row rowScanner) (*engine.OpportunityRecord, error) {
	var rec engine.OpportunityRecord
	var category, status string
	var posted, due sql.NullTime
	var score sql.NullInt64
	err := row.Scan(
		&rec.ID, &rec.SourceID, &rec.Title, &rec.Description, &rec.Agency,
		&rec.SolicitationNumber, &category, &posted, &due, &rec.URL,
		&rec.EstimatedValue, &rec.Fingerprint, &rec.IdentityKey, &score, &status,
		&rec.DiscoveredAt, &rec.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Category = engine.Category(category)
	rec.Status = engine.Status(status)
	if posted.Valid {
		t := posted.Time.UTC()
		rec.PostedDate = &t
	}
	if due.Valid {
		t := due.Time.UTC()
		rec.DueDate = &t
	}
	if score.Valid {
		v := int(score.Int64)
		rec.RelevanceScore = &v
	}
	return &rec, nil
}

func collectSQLiteRecords(rows *sql.Rows) ([]engine.OpportunityRecord, error) {
	var out []engine.OpportunityRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
