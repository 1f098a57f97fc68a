package lote

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/sheet"
)

// PorCargo is the per-role slice of a dry-run count.
type PorCargo struct {
	Cargo  string `json:"cargo"`
	Linhas int    `json:"linhas"`
}

// DryRunResult is the preview of a batch action: how many rows it would
// touch, broken down per role for the share mode.
type DryRunResult struct {
	Total    int        `json:"linhas_afetadas"`
	PorCargo []PorCargo `json:"por_cargo,omitempty"`
}

// CargoOutcome reports one per-role apply request. On a fail-stop the failed
// role carries Erro and the remaining roles are never attempted.
type CargoOutcome struct {
	Cargo    string `json:"cargo"`
	Linhas   int    `json:"linhas"`
	Aplicado bool   `json:"aplicado"`
	Erro     string `json:"erro,omitempty"`
}

// ApplyResult reports a completed (or stopped) apply.
type ApplyResult struct {
	Total    int            `json:"linhas_afetadas"`
	PorCargo []CargoOutcome `json:"por_cargo,omitempty"`
}

// PEValidation is the percentage-sum check of one rule context.
type PEValidation struct {
	Contexto map[string]string `json:"contexto"`
	Soma     string            `json:"soma"`
	Valida   bool              `json:"valida"`
}

// Engine runs batch actions for one rule sheet against the backend. It owns
// no state beyond the sheet binding; session state lives in the Session.
type Engine struct {
	backend Backend
	aba     string
}

func NewEngine(backend Backend, aba string) *Engine {
	return &Engine{backend: backend, aba: aba}
}

// DryRun previews the session's configured action without mutating anything.
// The uniform-rate mode asks the backend for the scoped count in one request;
// the share mode validates the 100.00 sum first and then counts the scope
// once per entered role. A result for a configuration the session has since
// left is dropped.
func (e *Engine) DryRun(ctx context.Context, sess *Session) (*DryRunResult, error) {
	gen, err := sess.beginPreview()
	if err != nil {
		return nil, err
	}
	scope, action, _ := sess.Snapshot()

	result, err := e.dryRun(ctx, scope, action)
	if err != nil {
		sess.failPreview(gen)
		return nil, err
	}
	if !sess.completePreview(gen, result) {
		log.Printf("[INFO] dropping stale dry-run result for session %s", sess.ID)
		return nil, ErrTransicaoInvalida
	}
	return result, nil
}

func (e *Engine) dryRun(ctx context.Context, scope escopo.Scope, action BatchAction) (*DryRunResult, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	switch action.Kind {
	case AcaoTaxaUniforme:
		res, err := e.backend.MutateScoped(ctx, e.aba, scope, map[string]interface{}{action.Field: action.Valor}, true)
		if err != nil {
			return nil, err
		}
		return &DryRunResult{Total: res.Affected}, nil

	case AcaoFatiasPorCargo:
		out := &DryRunResult{}
		for _, cargo := range action.Cargos() {
			n, err := e.countScoped(ctx, scope.With(config.FieldCargo, cargo))
			if err != nil {
				return nil, fmt.Errorf("counting rows for role %s: %w", cargo, err)
			}
			out.PorCargo = append(out.PorCargo, PorCargo{Cargo: cargo, Linhas: n})
			out.Total += n
		}
		return out, nil
	}
	return nil, ErrAcaoInvalida
}

// countScoped counts the rows a scope reaches. Single-valued fields are
// pushed to the backend as exact filters; multi-valued fields are re-checked
// here since the context-query contract is one value per field.
func (e *Engine) countScoped(ctx context.Context, scope escopo.Scope) (int, error) {
	contexto := make(map[string]string)
	for field, vals := range scope {
		if len(vals) == 1 {
			contexto[field] = vals[0]
		}
	}
	rows, err := e.backend.QueryRows(ctx, e.aba, contexto)
	if err != nil {
		return 0, err
	}
	return len(escopo.FilterPool(rows, scope)), nil
}

// Apply executes the session's action. The share-sum invariant is re-checked
// immediately before the first request; a violation stops the apply with zero
// requests issued. Per-role requests run in sorted role order and stop on the
// first failure, reporting which roles were applied and which one failed.
func (e *Engine) Apply(ctx context.Context, sess *Session) (*ApplyResult, error) {
	if err := sess.beginApply(); err != nil {
		return nil, err
	}
	scope, action, _ := sess.Snapshot()

	if err := action.Validate(); err != nil {
		sess.finishApply(false)
		return nil, err
	}

	switch action.Kind {
	case AcaoTaxaUniforme:
		res, err := e.backend.MutateScoped(ctx, e.aba, scope, map[string]interface{}{action.Field: action.Valor}, false)
		if err != nil {
			sess.finishApply(false)
			return nil, err
		}
		sess.finishApply(true)
		log.Printf("[INFO] applied uniform rate %s to %d rows on %s", action.Valor.StringFixed(2), res.Affected, e.aba)
		return &ApplyResult{Total: res.Affected}, nil

	case AcaoFatiasPorCargo:
		out := &ApplyResult{}
		for _, cargo := range action.Cargos() {
			res, err := e.backend.MutateScoped(ctx, e.aba,
				scope.With(config.FieldCargo, cargo),
				map[string]interface{}{action.Field: action.Fatias[cargo]}, false)
			if err != nil {
				out.PorCargo = append(out.PorCargo, CargoOutcome{Cargo: cargo, Erro: err.Error()})
				sess.finishApply(false)
				log.Printf("[ERROR] share apply stopped at role %s on %s: %v", cargo, e.aba, err)
				return out, fmt.Errorf("apply stopped at role %s: %w", cargo, err)
			}
			out.PorCargo = append(out.PorCargo, CargoOutcome{Cargo: cargo, Linhas: res.Affected, Aplicado: true})
			out.Total += res.Affected
		}
		sess.finishApply(true)
		log.Printf("[INFO] applied %d role shares to %d rows on %s", len(out.PorCargo), out.Total, e.aba)
		return out, nil
	}

	sess.finishApply(false)
	return nil, ErrAcaoInvalida
}

// UpdateInline upserts one field of one rule row identified by its full
// context tuple. Inline edits bypass the session machinery; there is no dry
// run for a single row.
func (e *Engine) UpdateInline(ctx context.Context, contexto map[string]string, field string, value interface{}) error {
	return e.backend.MutateRow(ctx, e.aba, contexto, map[string]interface{}{field: value})
}

// ValidatePE sums the per-role share percentages of one rule context and
// reports whether they reach exactly 100.00.
func (e *Engine) ValidatePE(ctx context.Context, contexto map[string]string) (*PEValidation, error) {
	rows, err := e.backend.QueryRows(ctx, e.aba, contexto)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, row := range rows {
		raw := sheet.Str(row[config.FieldFatiaCargo])
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			d = decimal.NewFromFloat(sheet.Num(row[config.FieldFatiaCargo]))
		}
		sum = sum.Add(d)
	}
	sum = sum.Round(2)
	return &PEValidation{
		Contexto: contexto,
		Soma:     sum.StringFixed(2),
		Valida:   sum.Equal(decimal.NewFromInt(100)),
	}, nil
}
