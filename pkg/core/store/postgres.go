package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filing_analyzer/pkg/core/filing"
)

// Fields and sections are stored as JSONB so the field set can grow
// without migrations.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS filings (
		filing_id         TEXT PRIMARY KEY,
		form_type         TEXT NOT NULL,
		amended           BOOLEAN NOT NULL DEFAULT FALSE,
		filing_date       DATE,
		fiscal_period     TEXT NOT NULL DEFAULT '',
		period_of_report  DATE,
		financial_metrics JSONB NOT NULL DEFAULT '{}',
		sections          JSONB NOT NULL DEFAULT '[]',
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS filings_form_date_idx ON filings (form_type, filing_date)`,
}

// PostgresStore keeps filings in the filings table. Form and date filters
// run in SQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the filings table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveFiling upserts a filing by id.
func (s *PostgresStore) SaveFiling(ctx context.Context, rec filing.Record) error {
	if s.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		INSERT INTO filings (
			filing_id, form_type, amended, filing_date, fiscal_period,
			period_of_report, financial_metrics, sections
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (filing_id)
		DO UPDATE SET
			form_type = EXCLUDED.form_type,
			amended = EXCLUDED.amended,
			filing_date = EXCLUDED.filing_date,
			fiscal_period = EXCLUDED.fiscal_period,
			period_of_report = EXCLUDED.period_of_report,
			financial_metrics = EXCLUDED.financial_metrics,
			sections = EXCLUDED.sections,
			updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, string(rec.Form), rec.Amended, nullableDate(rec.FilingDate), rec.PeriodLabel,
		nullableDate(rec.PeriodEnd), fields, sections,
	)
	if err != nil {
		return fmt.Errorf("failed to save filing %s: %w", rec.ID, err)
	}
	return nil
}

// ListFilings returns the filings passing filter, ordered by filing id.
func (s *PostgresStore) ListFilings(ctx context.Context, filter filing.Filter) ([]filing.Record, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}
	query, args := listQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list filings: %w", err)
	}
	defer rows.Close()

	var out []filing.Record
	for rows.Next() {
		rec, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read filings: %w", err)
	}
	s.logger.Debug("listed filings", "count", len(out))
	return out, nil
}

// listQuery builds the SELECT for filter with positional arguments.
func listQuery(filter filing.Filter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if len(filter.FormTypes) > 0 {
		forms := make([]string, len(filter.FormTypes))
		for i, f := range filter.FormTypes {
			forms[i] = string(f)
		}
		args = append(args, forms)
		where = append(where, fmt.Sprintf("form_type = ANY($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("filing_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.Until())
		where = append(where, fmt.Sprintf("filing_date < $%d", len(args)))
	}

	query := `SELECT filing_id, form_type, amended, filing_date, fiscal_period,
		period_of_report, financial_metrics, sections FROM filings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY filing_id", args
}

func scanFiling(rows pgx.Rows) (filing.Record, error) {
	var (
		rec                 filing.Record
		form                string
		filed, periodEnd    *time.Time
		fieldsJSON, secJSON []byte
	)
	if err := rows.Scan(&rec.ID, &form, &rec.Amended, &filed, &rec.PeriodLabel, &periodEnd, &fieldsJSON, &secJSON); err != nil {
		return filing.Record{}, fmt.Errorf("failed to scan filing: %w", err)
	}
	rec.Form = filing.FormType(form)
	if filed != nil {
		rec.FilingDate = filed.UTC()
	}
	if periodEnd != nil {
		rec.PeriodEnd = periodEnd.UTC()
	}
	if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
		return filing.Record{}, fmt.Errorf("filing %s: failed to unmarshal fields: %w", rec.ID, err)
	}
	if err := json.Unmarshal(secJSON, &rec.Sections); err != nil {
		return filing.Record{}, fmt.Errorf("filing %s: failed to unmarshal sections: %w", rec.ID, err)
	}
	return rec, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
