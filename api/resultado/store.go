package resultado

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"ComissoesCorpApp/internal/sheet"
)

// Each result sheet produced by the calculation pipeline lands in its own
// table; the metrics view reads the state table. Sheets keep their original
// heterogeneous column sets, so every read is dynamic over rows.Columns().
var tableFor = map[string]string{
	"COMISSOES_CALCULADAS":   "res_comissoes_calculadas",
	"COMISSOES_RECEBIMENTO":  "res_comissoes_recebimento",
	"RECONCILIACAO":          "res_reconciliacao",
	"RESUMO_COLABORADOR":     "res_resumo_colaborador",
	"ESTADO":                 "res_estado",
	"MÉTRICAS_PROCESSOS":     "res_estado",
	"METRICAS_PROCESSOS":     "res_estado",
	"VALIDACAO":              "res_validacao",
	"DEBUG_RECEBIMENTOS_RAW": "res_debug_recebimentos_raw",
	"DEBUG_ENV":              "res_debug_env",
	"DEBUG_ANALISE_INFO":     "res_debug_analise_info",
	"DEBUG_ANALISE_SAMPLE":   "res_debug_analise_sample",
}

var ErrAbaDesconhecida = errors.New("unknown result sheet")

// Store reads the result tables. Results are produced elsewhere; this side
// never writes.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) table(aba string) (string, error) {
	t, ok := tableFor[strings.ToUpper(strings.TrimSpace(aba))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAbaDesconhecida, aba)
	}
	return t, nil
}

// undefinedColumn reports the Postgres undefined_column condition. Result
// sheets do not share columns, so filtering or listing an absent column is an
// expected miss, not a failure.
func undefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42703"
}

type readOptions struct {
	Limit   int
	Offset  int
	Sort    string
	Dir     string
	Filters map[string][]string
	AllRows bool
}

// Read returns one page of a result sheet plus the unpaged total. A filter on
// a column the sheet does not have matches nothing.
func (s *Store) Read(aba string, opts readOptions) ([]sheet.Record, int, error) {
	table, err := s.table(aba)
	if err != nil {
		return nil, 0, err
	}

	where, args := filterClause(opts.Filters)

	var total int
	err = s.db.QueryRow("SELECT COUNT(*) FROM "+table+where, args...).Scan(&total)
	if undefinedColumn(err) {
		return []sheet.Record{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	query := "SELECT * FROM " + table + where
	if opts.Sort != "" {
		dir := "ASC"
		if strings.EqualFold(opts.Dir, "desc") {
			dir = "DESC"
		}
		query += " ORDER BY " + pq.QuoteIdentifier(opts.Sort) + " " + dir
	}
	if !opts.AllRows && opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", opts.Limit, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if undefinedColumn(err) {
		return []sheet.Record{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", aba, err)
	}
	defer rows.Close()

	records, err := scanDynamic(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ReadAll loads a whole sheet for aggregation.
func (s *Store) ReadAll(aba string) ([]sheet.Record, error) {
	records, _, err := s.Read(aba, readOptions{AllRows: true})
	return records, err
}

// DistinctValues lists the distinct non-empty values of one column, sorted.
// An absent column yields an empty list.
func (s *Store) DistinctValues(aba, coluna string) ([]string, error) {
	table, err := s.table(aba)
	if err != nil {
		return nil, err
	}
	col := pq.QuoteIdentifier(coluna)
	query := fmt.Sprintf(
		"SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL AND %s::text <> '' ORDER BY 1",
		col, table, col, col)
	rows, err := s.db.Query(query)
	if undefinedColumn(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", aba, coluna, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// filterClause builds exact-match filters; multiple values per column match
// as OR via = ANY.
func filterClause(filters map[string][]string) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(filters))
	for c := range filters {
		cols = append(cols, c)
	}
	// deterministic clause order keeps query plans cacheable
	sort.Strings(cols)
	clauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, c := range cols {
		args = append(args, pq.Array(filters[c]))
		clauses = append(clauses, fmt.Sprintf("%s::text = ANY($%d)", pq.QuoteIdentifier(c), len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanDynamic reads arbitrary-width rows into records keyed by column name.
func scanDynamic(rows *sql.Rows) ([]sheet.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var raw []map[string]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case []byte:
				rec[c] = string(v)
			default:
				rec[c] = v
			}
		}
		raw = append(raw, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sheet.Normalize(raw), nil
}
