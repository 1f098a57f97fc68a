package agrupamento

import (
	"testing"

	"ComissoesCorpApp/internal/sheet"
)

func TestParseMetricMapVariants(t *testing.T) {
	if got := ParseMetricMap(nil); len(got) != 0 {
		t.Fatalf("nil must parse to an empty map")
	}
	if got := ParseMetricMap(`{"Ana": 1.5}`); got["Ana"] != 1.5 {
		t.Fatalf("JSON string must parse, got %v", got)
	}
	if got := ParseMetricMap(map[string]interface{}{"Ana": "2.5"}); got["Ana"] != 2.5 {
		t.Fatalf("structured map with string values must coerce, got %v", got)
	}
	if got := ParseMetricMap("not json at all"); len(got) != 0 {
		t.Fatalf("garbage must parse to an empty map, got %v", got)
	}
}

func TestFoldMetricsUnionsCollaborators(t *testing.T) {
	rows := []sheet.Record{
		{
			"PROCESSO": "P1",
			"TCMP":     `{"Ana": 1.5, "Bruno": 2.0}`,
			"FCMP":     `{"Ana": 0.5}`,
		},
	}
	got := FoldMetrics(rows)
	if len(got) != 1 {
		t.Fatalf("expected one process node")
	}
	node := got[0]
	if len(node.Rows) != 2 {
		t.Fatalf("expected the union of both maps, got %d collaborators", len(node.Rows))
	}

	// sorted union: Ana then Bruno
	ana := node.Rows[0]
	if sheet.Str(ana["nome_colaborador"]) != "Ana" || ana["tcmp"] != 1.5 || ana["fcmp"] != 0.5 {
		t.Fatalf("unexpected Ana row: %v", ana)
	}
	bruno := node.Rows[1]
	if sheet.Str(bruno["nome_colaborador"]) != "Bruno" || bruno["tcmp"] != 2.0 || bruno["fcmp"] != 0.0 {
		t.Fatalf("a collaborator in one map only must still appear with zero, got %v", bruno)
	}

	if node.Rollups["tcmp"] != 3.5 || node.Rollups["fcmp"] != 0.5 {
		t.Fatalf("rollups = %v, want tcmp 3.5 fcmp 0.5", node.Rollups)
	}
}

func TestFoldMetricsIsolatesBadRows(t *testing.T) {
	rows := make([]sheet.Record, 0, 50)
	for i := 0; i < 50; i++ {
		rec := sheet.Record{
			"PROCESSO": "P" + string(rune('A'+i%26)) + string(rune('0'+i/26)),
			"TCMP":     `{"Ana": 1.0}`,
			"FCMP":     `{"Ana": 1.0}`,
		}
		if i == 17 {
			rec["TCMP"] = "{broken"
		}
		rows = append(rows, rec)
	}
	got := FoldMetrics(rows)
	if len(got) != 50 {
		t.Fatalf("one malformed row must not take the batch down, got %d nodes", len(got))
	}
	bad := got[17]
	if bad.Rollups["tcmp"] != 0 {
		t.Fatalf("malformed map must fold as empty, got %v", bad.Rollups["tcmp"])
	}
	if bad.Rollups["fcmp"] != 1.0 {
		t.Fatalf("the row's other map must still fold, got %v", bad.Rollups["fcmp"])
	}
	if got[16].Rollups["tcmp"] != 1.0 || got[18].Rollups["tcmp"] != 1.0 {
		t.Fatalf("neighbors of a malformed row must be unaffected")
	}
}
