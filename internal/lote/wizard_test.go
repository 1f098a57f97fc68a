package lote

import (
	"context"
	"errors"
	"testing"

	"ComissoesCorpApp/internal/sheet"
)

func openWizard(t *testing.T, backend Backend) *Wizard {
	t.Helper()
	w, err := NewWizard(context.Background(), backend, "CONFIG_COMISSAO")
	if err != nil {
		t.Fatalf("open wizard: %v", err)
	}
	return w
}

func TestWizardLinearNavigation(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))
	if w.Step() != StepEscopo {
		t.Fatalf("wizard opens on the scope step, got %s", w.Step())
	}

	if _, err := w.Back(); !errors.Is(err, ErrPassoInvalido) {
		t.Fatalf("cannot go back from the first step, got %v", err)
	}

	for _, want := range []Step{StepCampos, StepModo} {
		got, err := w.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("step = %s, want %s", got, want)
		}
	}

	// the preview step is entered through ComputePreview, never by Next
	if _, err := w.Next(); !errors.Is(err, ErrPassoInvalido) {
		t.Fatalf("next from modo must fail, got %v", err)
	}
}

func TestWizardOptionsNarrowAcrossFields(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))

	if err := w.SetScope("linha", []string{"AGRICOLA"}); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	grupos := w.OptionsFor("grupo")
	if len(grupos) != 2 || grupos[0] != "COLHEITADEIRAS" || grupos[1] != "TRATORES" {
		t.Fatalf("grupo options = %v", grupos)
	}

	// the chosen field still offers its alternatives
	linhas := w.OptionsFor("linha")
	if len(linhas) != 2 {
		t.Fatalf("linha options must ignore linha's own selection, got %v", linhas)
	}
}

func TestWizardUpdatePreviewIsReadOnly(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	w := openWizard(t, backend)

	if err := w.SetScope("linha", []string{"AGRICOLA"}); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if err := w.SetCampo("taxa_rateio_maximo_pct", "3.00"); err != nil {
		t.Fatalf("set campo: %v", err)
	}
	if err := w.SetModo(ModoAtualizar); err != nil {
		t.Fatalf("set modo: %v", err)
	}
	w.Next()
	w.Next()

	preview, err := w.ComputePreview(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Total != 3 {
		t.Fatalf("preview total = %d, want 3", preview.Total)
	}
	if w.Step() != StepPreview {
		t.Fatalf("preview must advance the step, got %s", w.Step())
	}
	for _, row := range backend.rows {
		if row["taxa_rateio_maximo_pct"] != nil {
			t.Fatalf("preview must not write")
		}
	}
}

func TestWizardConfirmRequiresPreview(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))
	if _, err := w.Confirm(context.Background()); !errors.Is(err, ErrPreviewPendente) {
		t.Fatalf("confirm without preview must fail, got %v", err)
	}
}

func TestWizardConfirmUpdateWrites(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	w := openWizard(t, backend)

	w.SetScope("linha", []string{"AGRICOLA"})
	w.SetCampo("taxa_rateio_maximo_pct", "3.00")
	w.SetModo(ModoAtualizar)
	w.Next()
	w.Next()
	if _, err := w.ComputePreview(context.Background()); err != nil {
		t.Fatalf("preview: %v", err)
	}

	result, err := w.Confirm(context.Background())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Affected != 3 {
		t.Fatalf("affected = %d, want 3", result.Affected)
	}
	if sheet.Str(backend.rows[0]["taxa_rateio_maximo_pct"]) != "3.00" {
		t.Fatalf("in-scope row not written: %v", backend.rows[0])
	}
	if backend.rows[3]["taxa_rateio_maximo_pct"] != nil {
		t.Fatalf("out-of-scope row was written: %v", backend.rows[3])
	}
}

func TestWizardCreateComposesCartesianProduct(t *testing.T) {
	backend := newFakeBackend(ruleRows())
	w := openWizard(t, backend)

	w.SetScope("linha", []string{"NOVA_LINHA"})
	w.SetScope("cargo", []string{"Vendedor", "Gerente"})
	w.SetCampo("fatia_cargo_pct", "50.00")
	w.SetModo(ModoCriar)
	w.Next()
	w.Next()

	preview, err := w.ComputePreview(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Total != 2 {
		t.Fatalf("1 linha x 2 cargos = 2 rows, got %d", preview.Total)
	}
	for _, row := range preview.Rows {
		if sheet.Str(row["linha"]) != "NOVA_LINHA" || sheet.Str(row["fatia_cargo_pct"]) != "50.00" {
			t.Fatalf("composed row missing fields: %v", row)
		}
	}

	before := len(backend.rows)
	result, err := w.Confirm(context.Background())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Affected != 2 {
		t.Fatalf("affected = %d, want 2", result.Affected)
	}
	if len(backend.rows) != before+2 {
		t.Fatalf("create mode must insert new rows")
	}
}

func TestWizardScopeChangeInvalidatesPreview(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))

	w.SetScope("linha", []string{"AGRICOLA"})
	w.SetCampo("taxa_rateio_maximo_pct", "3.00")
	w.SetModo(ModoAtualizar)
	w.Next()
	w.Next()
	if _, err := w.ComputePreview(context.Background()); err != nil {
		t.Fatalf("preview: %v", err)
	}

	if err := w.SetScope("linha", []string{"CONSTRUCAO"}); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if w.Step() != StepModo {
		t.Fatalf("editing after preview must fall back to the mode step, got %s", w.Step())
	}
	if _, err := w.Confirm(context.Background()); !errors.Is(err, ErrPreviewPendente) {
		t.Fatalf("stale preview must not confirm, got %v", err)
	}
}

func TestWizardClosedRejectsEverything(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))
	w.Close()

	if err := w.SetScope("linha", []string{"X"}); !errors.Is(err, ErrWizardEncerrado) {
		t.Fatalf("expected ErrWizardEncerrado, got %v", err)
	}
	if _, err := w.ComputePreview(context.Background()); !errors.Is(err, ErrWizardEncerrado) {
		t.Fatalf("expected ErrWizardEncerrado, got %v", err)
	}
	if _, err := w.Confirm(context.Background()); !errors.Is(err, ErrWizardEncerrado) {
		t.Fatalf("expected ErrWizardEncerrado, got %v", err)
	}
}

func TestWizardCreateRequiresScope(t *testing.T) {
	w := openWizard(t, newFakeBackend(ruleRows()))
	w.SetCampo("fatia_cargo_pct", "50.00")
	w.SetModo(ModoCriar)
	w.Next()
	w.Next()

	if _, err := w.ComputePreview(context.Background()); !errors.Is(err, ErrEscopoVazio) {
		t.Fatalf("create mode needs at least one scope field, got %v", err)
	}
}
