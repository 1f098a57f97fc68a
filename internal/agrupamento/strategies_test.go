package agrupamento

import (
	"testing"

	"ComissoesCorpApp/internal/sheet"
)

func TestStrategyForKnownSheets(t *testing.T) {
	cases := []struct {
		aba  string
		kind Kind
	}{
		{"COMISSOES_CALCULADAS", ByItem},
		{"comissoes_calculadas", ByItem},
		{"COMISSOES_RECEBIMENTO", ByPaymentEvent},
		{"RECONCILIACAO", ByReconciliationSummary},
		{"ESTADO", ByProcessMetrics},
		{"MÉTRICAS_PROCESSOS", ByProcessMetrics},
	}
	for _, c := range cases {
		strat, ok := StrategyFor(c.aba)
		if !ok {
			t.Fatalf("expected a strategy for %s", c.aba)
		}
		if strat.Kind != c.kind {
			t.Fatalf("strategy for %s = %s, want %s", c.aba, strat.Kind, c.kind)
		}
	}
	if _, ok := StrategyFor("RESUMO_COLABORADOR"); ok {
		t.Fatalf("sheets without a grouped view must not resolve")
	}
}

func TestRecebimentoEventTagging(t *testing.T) {
	rows := []sheet.Record{
		{
			"processo": "P1", "TIPO_PAGAMENTO": "Antecipação", "DATA_RECEBIMENTO": "01/2024",
			"nome_colaborador": "Ana", "comissao_total": 30.0,
		},
		{
			"processo": "P1", "TIPO_PAGAMENTO": "Liquidação", "DATA_PAGAMENTO": "02/2024",
			"nome_colaborador": "Ana", "comissao_calculada": 50.0,
		},
	}
	got := Aggregate(rows, recebimentoSpec())
	if len(got) != 1 || len(got[0].Children) != 2 {
		t.Fatalf("expected one process with two events")
	}

	adi := got[0].Children[0]
	if sheet.Str(adi.Summary["tipo_evento"]) != EventoAdiantamento {
		t.Fatalf("advance rows must tag as %s, got %v", EventoAdiantamento, adi.Summary["tipo_evento"])
	}
	if adi.Rollups["comissao_calculada"] != 30.0 {
		t.Fatalf("advance commission must coalesce from comissao_total, got %v", adi.Rollups["comissao_calculada"])
	}

	pag := got[0].Children[1]
	if sheet.Str(pag.Summary["tipo_evento"]) != EventoPagamento {
		t.Fatalf("settlement rows must tag as %s, got %v", EventoPagamento, pag.Summary["tipo_evento"])
	}
	if got[0].Rollups["comissao_calculada"] != 80.0 {
		t.Fatalf("process commission = %v, want 80", got[0].Rollups["comissao_calculada"])
	}
}

func TestReconciliacaoSplitsAndJoins(t *testing.T) {
	rows := []sheet.Record{
		{"PROCESSO": "P1", "SALDO_FINAL_RECONCILIACAO": 150.0, "COMISSAO_CORRETA_TOTAL": 200.0},
		{"processo": "P1", "cod_produto": "X1", "comissao_calculada": 120.0, "nome_colaborador": "Ana"},
		{"processo": "P1", "cod_produto": "X1", "comissao_calculada": 80.0, "nome_colaborador": "Bruno"},
		{"processo": "P2", "cod_produto": "X9", "comissao_calculada": 10.0, "nome_colaborador": "Carla"},
		{"PROCESSO": "P3", "SALDO_FINAL_RECONCILIACAO": -5.0},
		{"PROCESSO": "P4", "SALDO_FINAL_RECONCILIACAO": 0.0},
	}
	got := AggregateReconciliacao(rows)
	if len(got) != 3 {
		t.Fatalf("expected one node per summary row, got %d", len(got))
	}

	p1 := got[0]
	if sheet.Str(p1.Summary["status_reconciliacao"]) != StatusAPagar {
		t.Fatalf("positive balance must read %s", StatusAPagar)
	}
	if len(p1.Children) != 1 {
		t.Fatalf("P1 should join exactly its own item rows, got %d items", len(p1.Children))
	}
	if p1.Rollups["comissao_calculada"] != 200.0 {
		t.Fatalf("summary commission rollup = %v, want 200", p1.Rollups["comissao_calculada"])
	}

	if sheet.Str(got[1].Summary["status_reconciliacao"]) != StatusADescontar {
		t.Fatalf("negative balance must read %s", StatusADescontar)
	}
	if sheet.Str(got[2].Summary["status_reconciliacao"]) != StatusQuitado {
		t.Fatalf("zero balance must read %s", StatusQuitado)
	}
	if len(got[1].Children) != 0 {
		t.Fatalf("a summary without item rows has no children")
	}
}
