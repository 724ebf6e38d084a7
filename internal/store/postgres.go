// Package store provides the opportunity persistence implementations:
// in-memory for tests, Postgres for deployments, and SQLite for single-node
// installs.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for opportunity rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore persists opportunity rows in Postgres. Fingerprint uniqueness
// is enforced by a unique index, so a losing concurrent insert surfaces as
// ErrDedupConflict.
type PostgresStore struct {
	pool  pgxPool
	table string
}

// NewPostgresStore creates a Postgres-backed store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	resolved, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, table: resolved}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = "opportunities"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

const opportunityColumns = `
	id,
	source_id,
	title,
	description,
	agency,
	solicitation_number,
	category,
	posted_date,
	due_date,
	url,
	estimated_value,
	fingerprint,
	identity_key,
	relevance_score,
	status,
	discovered_at,
	last_seen_at`

func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string) (*engine.OpportunityRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE fingerprint = $1`, opportunityColumns, s.table)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, key string) (*engine.OpportunityRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s WHERE identity_key = $1 ORDER BY discovered_at DESC LIMIT 1`,
		opportunityColumns, s.table)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record engine.OpportunityRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.table, opportunityColumns)

	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.SourceID,
		record.Title,
		record.Description,
		record.Agency,
		record.SolicitationNumber,
		string(record.Category),
		record.PostedDate,
		record.DueDate,
		record.URL,
		record.EstimatedValue,
		record.Fingerprint,
		record.IdentityKey,
		record.RelevanceScore,
		string(record.Status),
		record.DiscoveredAt,
		record.LastSeenAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return engine.ErrDedupConflict
		}
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fields engine.UpdateFields) error {
	sets, args := buildUpdateSets(fields)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		s.table, strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update opportunity %s: %w", id, engine.ErrStoreUnavailable)
	}
	return nil
}

func buildUpdateSets(fields engine.UpdateFields) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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
	return sets, args
}

func (s *PostgresStore) List(ctx context.Context, filter engine.ListFilter) ([]engine.OpportunityRecord, error) {
	var clauses []string
	var args []any
	where := func(condition string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(condition, len(args)))
	}
	if filter.Status != "" {
		where("status = $%d", string(filter.Status))
	}
	if filter.Category != "" {
		where("category = $%d", string(filter.Category))
	}
	if filter.MinScore > 0 {
		where("relevance_score >= $%d", filter.MinScore)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, opportunityColumns, s.table)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY discovered_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresStore) DueWithin(ctx context.Context, window time.Duration, now time.Time) ([]engine.OpportunityRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE status = $1 AND due_date > $2 AND due_date <= $3
ORDER BY due_date ASC`, opportunityColumns, s.table)

	rows, err := s.pool.Query(ctx, query, string(engine.StatusOpen), now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list due opportunities: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*engine.OpportunityRecord, error) {
	var rec engine.OpportunityRecord
	var category, status string
	err := row.Scan(
		&rec.ID,
		&rec.SourceID,
		&rec.Title,
		&rec.Description,
		&rec.Agency,
		&rec.SolicitationNumber,
		&category,
		&rec.PostedDate,
		&rec.DueDate,
		&rec.URL,
		&rec.EstimatedValue,
		&rec.Fingerprint,
		&rec.IdentityKey,
		&rec.RelevanceScore,
		&status,
		&rec.DiscoveredAt,
		&rec.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Category = engine.Category(category)
	rec.Status = engine.Status(status)
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]engine.OpportunityRecord, error) {
	var out []engine.OpportunityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
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
