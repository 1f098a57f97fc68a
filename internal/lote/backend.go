package lote

import (
	"context"

	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/sheet"
)

// FetchOptions controls a paged sheet read. Filters values may carry multiple
// alternatives separated by '|' (matched as OR). AllPages ignores Page and
// PageSize and returns the whole sheet.
type FetchOptions struct {
	Page      int
	PageSize  int
	SortField string
	SortDir   string
	Filters   map[string]string
	AllPages  bool
}

// SheetPage is one page of a sheet read plus the sheet's column set and the
// unpaged total.
type SheetPage struct {
	Rows    []sheet.Record
	Total   int
	Columns []string
}

// MutationResult reports a scoped mutation: the affected row count and, for
// dry runs, the rows that would be touched.
type MutationResult struct {
	Affected int
	Preview  []sheet.Record
}

// Backend is the boundary to the calculation/storage system this subsystem
// does not own. Implementations live at the transport edge (Postgres in
// api/regras, api/resultado); everything in this package stays pure against
// the interface.
type Backend interface {
	FetchSheetRows(ctx context.Context, aba string, opts FetchOptions) (SheetPage, error)

	// FetchDistinctValues returns the distinct values of a column. An unknown
	// column is an empty result, not an error - heterogeneous sheets make
	// that an expected condition.
	FetchDistinctValues(ctx context.Context, aba, coluna string) ([]string, error)

	// QueryRows returns the rows matching an exact context-filter tuple.
	QueryRows(ctx context.Context, aba string, contexto map[string]string) ([]sheet.Record, error)

	// MutateRow upserts exactly one row identified by its full context tuple.
	MutateRow(ctx context.Context, aba string, contexto map[string]string, updates map[string]interface{}) error

	// MutateScoped updates every row inside the scope, or previews the
	// affected set when dryRun is true.
	MutateScoped(ctx context.Context, aba string, scope escopo.Scope, updates map[string]interface{}, dryRun bool) (MutationResult, error)
}
