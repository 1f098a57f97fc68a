package agrupamento

import (
	"encoding/json"
	"fmt"
	"sort"

	"ComissoesCorpApp/internal/sheet"
)

// MetricMap is a per-collaborator metric map embedded in a state row, either
// as an already-structured mapping or as a JSON string. Parsing is
// validate-or-default: anything unreadable yields an empty map so one bad row
// never takes the batch down.
type MetricMap map[string]float64

// ParseMetricMap converts the embedded field value into a MetricMap. A parse
// failure returns an empty map, never an error.
func ParseMetricMap(v interface{}) MetricMap {
	switch t := v.(type) {
	case nil:
		return MetricMap{}
	case MetricMap:
		return t
	case map[string]float64:
		return MetricMap(t)
	case map[string]interface{}:
		out := make(MetricMap, len(t))
		for k, val := range t {
			out[k] = sheet.Num(val)
		}
		return out
	case string:
		if t == "" {
			return MetricMap{}
		}
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return MetricMap{}
		}
		out := make(MetricMap, len(parsed))
		for k, val := range parsed {
			out[k] = sheet.Num(val)
		}
		return out
	default:
		return MetricMap{}
	}
}

// names returns the union of collaborator names across both maps, sorted so
// the fold is deterministic.
func metricNames(tcmp, fcmp MetricMap) []string {
	seen := make(map[string]struct{}, len(tcmp)+len(fcmp))
	for n := range tcmp {
		seen[n] = struct{}{}
	}
	for n := range fcmp {
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// FoldMetrics flattens the per-process weighted-rate (TCMP) and
// weighted-factor (FCMP) maps of state rows into one node per process with
// one child row per collaborator. A collaborator present in only one map
// still appears, with the other metric zero.
func FoldMetrics(rows []sheet.Record) []*GroupNode {
	var order []string
	byProcesso := make(map[string]*GroupNode)

	for idx, row := range rows {
		processo := sheet.Str(sheet.Field(row, "PROCESSO", "processo"))
		if processo == "" {
			processo = fmt.Sprintf("PROC_%d", idx)
		}
		node, ok := byProcesso[processo]
		if !ok {
			node = &GroupNode{
				Key: processo,
				Summary: sheet.Record{
					"processo":              processo,
					"MES_ANO_FATURAMENTO":   sheet.Field(row, "MES_ANO_FATURAMENTO", "mes_ano_faturamento"),
					"STATUS_CALCULO_MEDIAS": sheet.Field(row, "STATUS_CALCULO_MEDIAS", "status_calculo_medias"),
				},
			}
			byProcesso[processo] = node
			order = append(order, processo)
		}

		tcmp := ParseMetricMap(sheet.Field(row, "TCMP", "tcmp"))
		fcmp := ParseMetricMap(sheet.Field(row, "FCMP", "fcmp"))
		for _, nome := range metricNames(tcmp, fcmp) {
			node.Rows = append(node.Rows, sheet.Record{
				"key":              processo + "-" + nome,
				"nome_colaborador": nome,
				"tcmp":             tcmp[nome],
				"fcmp":             fcmp[nome],
				"fonte":            "ESTADO",
			})
		}
	}

	out := make([]*GroupNode, 0, len(order))
	for _, processo := range order {
		node := byProcesso[processo]
		computeRollups(node, []Metric{{Name: "tcmp"}, {Name: "fcmp"}})
		out = append(out, node)
	}
	return out
}
