package lote

import (
	"context"
	"fmt"
	"sync"

	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/sheet"
)

// fakeBackend is an in-memory Backend for engine and wizard tests. It records
// every mutating call so fail-stop behavior can be asserted precisely.
type fakeBackend struct {
	mu   sync.Mutex
	rows []sheet.Record

	// failScoped makes MutateScoped fail when the scope pins cargo to this
	// value.
	failScoped string

	scopedCalls []escopo.Scope
	rowCalls    []map[string]string
	queryCalls  int
}

func newFakeBackend(rows []sheet.Record) *fakeBackend {
	return &fakeBackend{rows: rows}
}

func (f *fakeBackend) FetchSheetRows(ctx context.Context, aba string, opts FetchOptions) (SheetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cols := map[string]bool{}
	for _, r := range f.rows {
		for k := range r {
			cols[k] = true
		}
	}
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	return SheetPage{Rows: append([]sheet.Record(nil), f.rows...), Total: len(f.rows), Columns: names}, nil
}

func (f *fakeBackend) FetchDistinctValues(ctx context.Context, aba, coluna string) ([]string, error) {
	page, _ := f.FetchSheetRows(ctx, aba, FetchOptions{AllPages: true})
	return escopo.UniqueValues(page.Rows, coluna, escopo.Scope{}), nil
}

func (f *fakeBackend) QueryRows(ctx context.Context, aba string, contexto map[string]string) ([]sheet.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	scope := escopo.Scope{}
	for field, v := range contexto {
		scope[field] = []string{v}
	}
	return escopo.FilterPool(f.rows, scope), nil
}

func (f *fakeBackend) MutateRow(ctx context.Context, aba string, contexto map[string]string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowCalls = append(f.rowCalls, contexto)
	scope := escopo.Scope{}
	for field, v := range contexto {
		scope[field] = []string{v}
	}
	for _, row := range f.rows {
		if escopo.Matches(row, scope) {
			for k, v := range updates {
				row[k] = v
			}
			return nil
		}
	}
	rec := sheet.Record{}
	for k, v := range contexto {
		rec[k] = v
	}
	for k, v := range updates {
		rec[k] = v
	}
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakeBackend) MutateScoped(ctx context.Context, aba string, scope escopo.Scope, updates map[string]interface{}, dryRun bool) (MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopedCalls = append(f.scopedCalls, scope)

	if f.failScoped != "" {
		if cargos, ok := scope["cargo"]; ok && len(cargos) == 1 && cargos[0] == f.failScoped {
			return MutationResult{}, fmt.Errorf("write rejected for %s", f.failScoped)
		}
	}

	matched := escopo.FilterPool(f.rows, scope)
	if dryRun {
		return MutationResult{Affected: len(matched), Preview: matched}, nil
	}
	for _, row := range matched {
		for k, v := range updates {
			row[k] = v
		}
	}
	return MutationResult{Affected: len(matched)}, nil
}

func (f *fakeBackend) scopedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scopedCalls)
}
