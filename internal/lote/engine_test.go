package lote

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ComissoesCorpApp/internal/escopo"
	"ComissoesCorpApp/internal/sheet"
)

func ruleRows() []sheet.Record {
	return []sheet.Record{
		{"linha": "AGRICOLA", "grupo": "TRATORES", "cargo": "Vendedor", "fatia_cargo_pct": "50.00"},
		{"linha": "AGRICOLA", "grupo": "TRATORES", "cargo": "Gerente", "fatia_cargo_pct": "50.00"},
		{"linha": "AGRICOLA", "grupo": "COLHEITADEIRAS", "cargo": "Vendedor", "fatia_cargo_pct": "100.00"},
		{"linha": "CONSTRUCAO", "grupo": "ESCAVADEIRAS", "cargo": "Vendedor", "fatia_cargo_pct": "70.00"},
	}
}

func fatiasAction(t *testing.T, shares map[string]string) BatchAction {
	t.Helper()
	fatias, err := ParseFatias(shares)
	if err != nil {
		t.Fatalf("parse fatias: %v", err)
	}
	return NewFatiasAction(fatias)
}

func TestDryRunTaxaCountsScope(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	if err := sess.Configure(escopo.Scope{"linha": {"AGRICOLA"}}, NewTaxaAction(decimal.NewFromFloat(2.5))); err != nil {
		t.Fatalf("configure: %v", err)
	}

	result, err := engine.DryRun(context.Background(), sess)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("affected = %d, want 3", result.Total)
	}
	if sess.State() != StatePreviewReady {
		t.Fatalf("state = %s, want %s", sess.State(), StatePreviewReady)
	}
	for _, row := range backend.rows {
		if sheet.Str(row["taxa_rateio_maximo_pct"]) != "" {
			t.Fatalf("dry run must not write")
		}
	}
}

func TestDryRunFatiasCountsPerRole(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	action := fatiasAction(t, map[string]string{"Vendedor": "60", "Gerente": "40"})
	if err := sess.Configure(escopo.Scope{"linha": {"AGRICOLA"}}, action); err != nil {
		t.Fatalf("configure: %v", err)
	}

	result, err := engine.DryRun(context.Background(), sess)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("total = %d, want 3", result.Total)
	}
	if len(result.PorCargo) != 2 {
		t.Fatalf("expected one slice per entered role, got %d", len(result.PorCargo))
	}
	// sorted role order
	if result.PorCargo[0].Cargo != "Gerente" || result.PorCargo[0].Linhas != 1 {
		t.Fatalf("unexpected first slice: %+v", result.PorCargo[0])
	}
	if result.PorCargo[1].Cargo != "Vendedor" || result.PorCargo[1].Linhas != 2 {
		t.Fatalf("unexpected second slice: %+v", result.PorCargo[1])
	}
}

func TestDryRunRejectsBadSumBeforeAnyRequest(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	action := fatiasAction(t, map[string]string{"Vendedor": "60", "Gerente": "39.99"})
	if err := sess.Configure(escopo.Scope{}, action); err != nil {
		t.Fatalf("configure: %v", err)
	}

	_, err := engine.DryRun(context.Background(), sess)
	if !errors.Is(err, ErrSomaFatias) {
		t.Fatalf("expected ErrSomaFatias, got %v", err)
	}
	if backend.queryCalls != 0 || backend.scopedCount() != 0 {
		t.Fatalf("validation must run before any backend call")
	}
	if sess.State() != StateConfiguring {
		t.Fatalf("failed dry run must return to configuring, got %s", sess.State())
	}
}

func previewReady(t *testing.T, engine *Engine, sess *Session) {
	t.Helper()
	if _, err := engine.DryRun(context.Background(), sess); err != nil {
		t.Fatalf("dry run: %v", err)
	}
}

func TestApplyTaxaWritesOnlyScope(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	if err := sess.Configure(escopo.Scope{"linha": {"AGRICOLA"}}, NewTaxaAction(decimal.NewFromFloat(2.5))); err != nil {
		t.Fatalf("configure: %v", err)
	}
	previewReady(t, engine, sess)

	result, err := engine.Apply(context.Background(), sess)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("affected = %d, want 3", result.Total)
	}
	for _, row := range backend.rows {
		touched := row["taxa_rateio_maximo_pct"] != nil
		inScope := sheet.Str(row["linha"]) == "AGRICOLA"
		if touched != inScope {
			t.Fatalf("row %v: touched=%v inScope=%v", row, touched, inScope)
		}
	}
	if sess.State() != StateApplied {
		t.Fatalf("state = %s, want %s", sess.State(), StateApplied)
	}
}

func TestApplyRequiresPreviewReady(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	if err := sess.Configure(escopo.Scope{}, NewTaxaAction(decimal.NewFromInt(1))); err != nil {
		t.Fatalf("configure: %v", err)
	}

	if _, err := engine.Apply(context.Background(), sess); !errors.Is(err, ErrSemPreview) {
		t.Fatalf("expected ErrSemPreview, got %v", err)
	}
	if backend.scopedCount() != 0 {
		t.Fatalf("no request may be issued without a preview")
	}
}

func TestApplyFatiasFailStop(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	backend.failScoped = "Gerente"
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	action := fatiasAction(t, map[string]string{"Apoio": "10", "Gerente": "40", "Vendedor": "50"})
	if err := sess.Configure(escopo.Scope{"linha": {"AGRICOLA"}}, action); err != nil {
		t.Fatalf("configure: %v", err)
	}
	previewReady(t, engine, sess)
	applied := backend.scopedCount()

	result, err := engine.Apply(context.Background(), sess)
	if err == nil {
		t.Fatalf("expected the apply to stop on Gerente")
	}
	// sorted order: Apoio applied, Gerente failed, Vendedor never attempted
	if backend.scopedCount()-applied != 2 {
		t.Fatalf("expected exactly 2 write attempts, got %d", backend.scopedCount()-applied)
	}
	if len(result.PorCargo) != 2 {
		t.Fatalf("result must report the attempted roles, got %+v", result.PorCargo)
	}
	if !result.PorCargo[0].Aplicado || result.PorCargo[0].Cargo != "Apoio" {
		t.Fatalf("Apoio should have applied: %+v", result.PorCargo[0])
	}
	if result.PorCargo[1].Aplicado || result.PorCargo[1].Erro == "" {
		t.Fatalf("Gerente should carry the failure: %+v", result.PorCargo[1])
	}
	if sess.State() != StateFailed {
		t.Fatalf("state = %s, want %s", sess.State(), StateFailed)
	}
}

func TestApplyFatiasScopesEachRole(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")
	sess := newSession("CONFIG_COMISSAO")
	action := fatiasAction(t, map[string]string{"Vendedor": "60", "Gerente": "40"})
	if err := sess.Configure(escopo.Scope{"linha": {"AGRICOLA"}}, action); err != nil {
		t.Fatalf("configure: %v", err)
	}
	previewReady(t, engine, sess)

	result, err := engine.Apply(context.Background(), sess)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("total = %d, want 3", result.Total)
	}
	// the out-of-scope CONSTRUCAO row keeps its original share
	last := backend.rows[3]
	if sheet.Str(last["fatia_cargo_pct"]) != "70.00" {
		t.Fatalf("out-of-scope row was touched: %v", last)
	}
	// in-scope Vendedor rows carry the new share
	if !backend.rows[0]["fatia_cargo_pct"].(decimal.Decimal).Equal(decimal.NewFromInt(60)) {
		t.Fatalf("in-scope Vendedor row not updated: %v", backend.rows[0])
	}
}

func TestUpdateInline(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")

	contexto := map[string]string{"linha": "AGRICOLA", "grupo": "TRATORES", "cargo": "Vendedor"}
	if err := engine.UpdateInline(context.Background(), contexto, "fatia_cargo_pct", "55.00"); err != nil {
		t.Fatalf("inline update: %v", err)
	}
	if len(backend.rowCalls) != 1 {
		t.Fatalf("inline edits go through the single-row upsert")
	}
	if sheet.Str(backend.rows[0]["fatia_cargo_pct"]) != "55.00" {
		t.Fatalf("row not updated: %v", backend.rows[0])
	}
}

func TestValidatePE(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	engine := NewEngine(backend, "CONFIG_COMISSAO")

	res, err := engine.ValidatePE(context.Background(), map[string]string{"linha": "AGRICOLA", "grupo": "TRATORES"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valida || res.Soma != "100.00" {
		t.Fatalf("TRATORES shares sum to 100.00, got %+v", res)
	}

	res, err = engine.ValidatePE(context.Background(), map[string]string{"linha": "CONSTRUCAO"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valida || res.Soma != "70.00" {
		t.Fatalf("CONSTRUCAO shares sum to 70.00 and are invalid, got %+v", res)
	}
}
