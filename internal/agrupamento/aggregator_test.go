package agrupamento

import (
	"encoding/json"
	"testing"

	"ComissoesCorpApp/internal/sheet"
)

func faturamentoRows() []sheet.Record {
	return []sheet.Record{
		{
			"processo": "P1", "cod_produto": "X1", "descricao_produto": "Trator",
			"nome_colaborador": "Ana", "comissao_calculada": 10.0, "faturamento_item": 100.0,
		},
		{
			// same item, different casing and padding on the code
			"processo": "P1", "cod_produto": " x1 ", "descricao_produto": "Trator",
			"nome_colaborador": "Bruno", "comissao_calculada": 12.0, "faturamento_item": 100.0,
		},
		{
			"processo": "P1", "cod_produto": "X2", "descricao_produto": "Plantadeira",
			"nome_colaborador": "Ana", "comissao_calculada": 5.0, "faturamento_item": 40.0,
		},
		{
			"processo": "P2", "cod_produto": "X1", "descricao_produto": "Trator",
			"nome_colaborador": "Carla", "comissao_calculada": 7.5, "faturamento_item": 100.0,
		},
	}
}

func TestAggregateGroupsByProcessoAndItem(t *testing.T) {
	got := Aggregate(faturamentoRows(), faturamentoSpec())
	if len(got) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(got))
	}

	p1 := got[0]
	if p1.Key != "P1" {
		t.Fatalf("expected first process P1, got %s", p1.Key)
	}
	if len(p1.Children) != 2 {
		t.Fatalf("P1 should have 2 items, got %d", len(p1.Children))
	}

	x1 := p1.Children[0]
	if x1.Key != "P1-X1" {
		t.Fatalf("item key = %s, want P1-X1", x1.Key)
	}
	if len(x1.Rows) != 2 {
		t.Fatalf("normalized codes must share a bucket, got %d leaf rows", len(x1.Rows))
	}
	if got := x1.Rollups["comissao_calculada"]; got != 22.0 {
		t.Fatalf("item commission = %v, want 22.00", got)
	}
	if got := x1.Rollups["faturamento_item"]; got != 100.0 {
		t.Fatalf("billed item value must count once per item, got %v", got)
	}
}

func TestRollupsEqualSumOfChildren(t *testing.T) {
	for _, proc := range Aggregate(faturamentoRows(), faturamentoSpec()) {
		for name, total := range proc.Rollups {
			var sum float64
			for _, item := range proc.Children {
				sum += item.Rollups[name]
			}
			if total != sum {
				t.Fatalf("%s rollup %s = %v, children sum %v", proc.Key, name, total, sum)
			}
		}
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	a, _ := json.Marshal(Aggregate(faturamentoRows(), faturamentoSpec()))
	b, _ := json.Marshal(Aggregate(faturamentoRows(), faturamentoSpec()))
	if string(a) != string(b) {
		t.Fatalf("same input must produce an identical tree")
	}
}

func TestAggregateRecomputesAfterDelta(t *testing.T) {
	rows := faturamentoRows()
	before := Aggregate(rows, faturamentoSpec())
	if before[0].Children[0].Rollups["comissao_calculada"] != 22.0 {
		t.Fatalf("precondition failed")
	}

	rows[0]["comissao_calculada"] = 11.0
	after := Aggregate(rows, faturamentoSpec())
	if got := after[0].Children[0].Rollups["comissao_calculada"]; got != 23.0 {
		t.Fatalf("re-aggregation must reflect the edit, got %v", got)
	}
	if got := after[0].Rollups["comissao_calculada"]; got != 28.0 {
		t.Fatalf("process rollup must follow, got %v", got)
	}
}

func TestFallbackItemKeyNeverCollidesWithCodes(t *testing.T) {
	rows := []sheet.Record{
		{"processo": "P1", "cod_produto": "", "descricao_produto": "A", "comissao_calculada": 1.0},
		{"processo": "P1", "cod_produto": "A", "descricao_produto": "outro", "comissao_calculada": 2.0},
	}
	got := Aggregate(rows, faturamentoSpec())
	if len(got[0].Children) != 2 {
		t.Fatalf("description-derived key must not collide with a real code, got %d items", len(got[0].Children))
	}
	if got[0].Children[0].Key != "P1-ITEM_A" {
		t.Fatalf("fallback key = %s, want P1-ITEM_A", got[0].Children[0].Key)
	}
}

func TestLeafKeysAreParentScoped(t *testing.T) {
	got := Aggregate(faturamentoRows(), faturamentoSpec())
	leaf := got[0].Children[0].Rows[1]
	if leaf["key"] != "P1-X1-2" {
		t.Fatalf("leaf key = %v, want P1-X1-2", leaf["key"])
	}
}

func TestNonNumericMetricValuesCountAsZero(t *testing.T) {
	rows := []sheet.Record{
		{"processo": "P1", "cod_produto": "X1", "comissao_calculada": "n/a"},
		{"processo": "P1", "cod_produto": "X1", "comissao_calculada": 4.0},
	}
	got := Aggregate(rows, faturamentoSpec())
	if got[0].Rollups["comissao_calculada"] != 4.0 {
		t.Fatalf("unparseable values must contribute zero, got %v", got[0].Rollups["comissao_calculada"])
	}
}
