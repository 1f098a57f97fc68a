package regras

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/lote"
	"ComissoesCorpApp/internal/sheet"
)

// PostgresStore persists rule sheets as jsonb rows keyed by sheet name and
// context tuple. Sheets are heterogeneous, so row payloads stay schemaless;
// the context tuple is stored separately to make the upsert key explicit.
//
//	CREATE TABLE regras_linhas (
//	    id        BIGSERIAL PRIMARY KEY,
//	    aba       TEXT NOT NULL,
//	    contexto  JSONB NOT NULL,
//	    dados     JSONB NOT NULL,
//	    UNIQUE (aba, contexto)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ lote.Backend = (*PostgresStore)(nil)

func (s *PostgresStore) FetchSheetRows(ctx context.Context, aba string, opts lote.FetchOptions) (lote.SheetPage, error) {
	where, args := filterClause(aba, opts.Filters)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM regras_linhas"+where, args...).Scan(&total); err != nil {
		return lote.SheetPage{}, fmt.Errorf("counting rows of %s: %w", aba, err)
	}

	query := "SELECT dados FROM regras_linhas" + where
	if opts.SortField != "" {
		dir := "ASC"
		if strings.EqualFold(opts.SortDir, "desc") {
			dir = "DESC"
		}
		args = append(args, opts.SortField)
		query += fmt.Sprintf(" ORDER BY dados->>$%d %s", len(args), dir)
	} else {
		query += " ORDER BY id"
	}
	if !opts.AllPages {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		size := opts.PageSize
		if size < 1 {
			size = 50
		}
		if size > config.FetchAllPageSize {
			size = config.FetchAllPageSize
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return lote.SheetPage{}, fmt.Errorf("reading %s: %w", aba, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return lote.SheetPage{}, err
	}

	cols, err := s.sheetColumns(ctx, aba)
	if err != nil {
		return lote.SheetPage{}, err
	}
	return lote.SheetPage{Rows: records, Total: total, Columns: cols}, nil
}

func (s *PostgresStore) sheetColumns(ctx context.Context, aba string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT jsonb_object_keys(dados) FROM regras_linhas WHERE aba = $1", aba)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", aba, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols, rows.Err()
}

func (s *PostgresStore) FetchDistinctValues(ctx context.Context, aba, coluna string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT dados->>$2 FROM regras_linhas
		 WHERE aba = $1 AND dados->>$2 IS NOT NULL AND dados->>$2 <> ''
		 ORDER BY 1`, aba, coluna)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", aba, coluna, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) QueryRows(ctx context.Context, aba string, contexto map[string]string) ([]sheet.Record, error) {
	where, args := filterClause(aba, contexto)
	rows, err := s.pool.Query(ctx, "SELECT dados FROM regras_linhas"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", aba, err)
	}
	return scanRecords(rows)
}

func (s *PostgresStore) MutateRow(ctx context.Context, aba string, contexto map[string]string, updates map[string]interface{}) error {
	ctxJSON, err := json.Marshal(contexto)
	if err != nil {
		return err
	}
	updJSON, err := json.Marshal(updates)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE regras_linhas SET dados = dados || $3::jsonb WHERE aba = $1 AND contexto = $2::jsonb",
		aba, string(ctxJSON), string(updJSON))
	if err != nil {
		return fmt.Errorf("updating %s: %w", aba, err)
	}
	if tag.RowsAffected() == 0 {
		seed := make(map[string]interface{}, len(contexto)+len(updates))
		for k, v := range contexto {
			seed[k] = v
		}
		for k, v := range updates {
			seed[k] = v
		}
		seedJSON, err := json.Marshal(seed)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO regras_linhas (aba, contexto, dados) VALUES ($1, $2::jsonb, $3::jsonb)",
			aba, string(ctxJSON), string(seedJSON)); err != nil {
			return fmt.Errorf("inserting into %s: %w", aba, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) MutateScoped(ctx context.Context, aba string, scope escopo.Scope, updates map[string]interface{}, dryRun bool) (lote.MutationResult, error) {
	where, args := scopeClause(aba, scope)

	if dryRun {
		rows, err := s.pool.Query(ctx, "SELECT dados FROM regras_linhas"+where+" ORDER BY id", args...)
		if err != nil {
			return lote.MutationResult{}, fmt.Errorf("previewing %s: %w", aba, err)
		}
		records, err := scanRecords(rows)
		if err != nil {
			return lote.MutationResult{}, err
		}
		return lote.MutationResult{Affected: len(records), Preview: records}, nil
	}

	updJSON, err := json.Marshal(updates)
	if err != nil {
		return lote.MutationResult{}, err
	}
	args = append(args, string(updJSON))
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE regras_linhas SET dados = dados || $%d::jsonb%s", len(args), where), args...)
	if err != nil {
		return lote.MutationResult{}, fmt.Errorf("updating %s: %w", aba, err)
	}
	return lote.MutationResult{Affected: int(tag.RowsAffected())}, nil
}

// filterClause builds the WHERE clause for exact single-value filters. A
// value carrying '|' matches any of its alternatives.
func filterClause(aba string, filters map[string]string) (string, []interface{}) {
	clauses := []string{"aba = $1"}
	args := []interface{}{aba}
	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		vals := strings.Split(filters[f], "|")
		args = append(args, f)
		fieldArg := len(args)
		args = append(args, vals)
		clauses = append(clauses, fmt.Sprintf("dados->>$%d = ANY($%d)", fieldArg, fieldArg+1))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scopeClause builds the WHERE clause for a multi-valued scope. Unconstrained
// fields add no condition.
func scopeClause(aba string, scope escopo.Scope) (string, []interface{}) {
	clauses := []string{"aba = $1"}
	args := []interface{}{aba}
	fields := make([]string, 0, len(scope))
	for f, vals := range scope {
		if len(vals) > 0 {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	for _, f := range fields {
		args = append(args, f)
		fieldArg := len(args)
		args = append(args, scope[f])
		clauses = append(clauses, fmt.Sprintf("dados->>$%d = ANY($%d)", fieldArg, fieldArg+1))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecords(rows pgx.Rows) ([]sheet.Record, error) {
	defer rows.Close()
	var raw []map[string]interface{}
	for rows.Next() {
		var dados map[string]interface{}
		if err := rows.Scan(&dados); err != nil {
			return nil, err
		}
		raw = append(raw, dados)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sheet.Normalize(raw), nil
}
