package agrupamento

import (
	"fmt"
	"strings"

	"ComissoesCorpApp/internal/sheet"
)

// Kind tags the grouping strategy applied to a result sheet.
type Kind string

const (
	ByItem                  Kind = "por_item"
	ByPaymentEvent          Kind = "por_evento_pagamento"
	ByReconciliationSummary Kind = "por_resumo_reconciliacao"
	ByProcessMetrics        Kind = "por_metricas_processo"
)

// Payment event tags derived from the tipo field of recebimento rows.
const (
	EventoAdiantamento = "Adiantamento"
	EventoPagamento    = "Pagamento"
)

// Reconciliation status derived from the final balance.
const (
	StatusAPagar    = "A Pagar"
	StatusADescontar = "A Descontar"
	StatusQuitado   = "Quitado"
)

// Strategy couples a kind with its aggregation recipe. Selected once per
// result sheet instead of branching inside the fold.
type Strategy struct {
	Kind Kind
	Spec Spec
}

// StrategyFor resolves the grouping strategy for a result sheet name. The
// reconciliation and metrics sheets are handled by their dedicated folds
// (AggregateReconciliacao, FoldMetrics); they still resolve here so callers
// can dispatch on Kind.
func StrategyFor(aba string) (Strategy, bool) {
	switch strings.ToUpper(strings.TrimSpace(aba)) {
	case "COMISSOES_CALCULADAS":
		return Strategy{Kind: ByItem, Spec: faturamentoSpec()}, true
	case "COMISSOES_RECEBIMENTO":
		return Strategy{Kind: ByPaymentEvent, Spec: recebimentoSpec()}, true
	case "RECONCILIACAO":
		return Strategy{Kind: ByReconciliationSummary}, true
	case "ESTADO", "MÉTRICAS_PROCESSOS", "METRICAS_PROCESSOS":
		return Strategy{Kind: ByProcessMetrics}, true
	}
	return Strategy{}, false
}

// itemKey buckets by product code; rows without one fall back to a
// description-derived key. The ITEM_ prefix keeps fallback keys from ever
// colliding with a real code.
func itemKey(row sheet.Record) string {
	if cod := sheet.NormKey(row["cod_produto"]); cod != "" {
		return cod
	}
	return "ITEM_" + sheet.NormKey(row["descricao_produto"])
}

func processoKey(row sheet.Record) string {
	return sheet.Str(sheet.Field(row, "processo", "PROCESSO"))
}

// faturamentoSpec: Processo -> Item -> Colaborador over COMISSOES_CALCULADAS.
// Commission sums from the collaborator leaves; the billed item value is a
// per-item first-seen summary so the process total counts each item once.
func faturamentoSpec() Spec {
	return Spec{
		Levels: []Level{
			{
				Name:    "processo",
				Key:     processoKey,
				Summary: []string{"processo"},
			},
			{
				Name: "item",
				Key:  itemKey,
				Summary: []string{
					"processo", "cod_produto", "descricao_produto",
					"linha", "grupo", "subgrupo", "tipo_mercadoria",
					"faturamento_item",
				},
			},
		},
		Metrics: []Metric{
			{Name: "comissao_calculada"},
			{Name: "faturamento_item", Summary: true},
		},
	}
}

// eventTag derives the payment-event type of a recebimento row.
func eventTag(row sheet.Record) string {
	tipo := sheet.Str(sheet.Field(row, "TIPO_PAGAMENTO", "tipo_lancamento"))
	if strings.EqualFold(strings.TrimSpace(tipo), "Antecipação") {
		return EventoAdiantamento
	}
	return EventoPagamento
}

// eventRef is the date/document reference that distinguishes events of the
// same type within a process.
func eventRef(row sheet.Record) string {
	if eventTag(row) == EventoAdiantamento {
		return sheet.Str(sheet.Field(row, "DATA_RECEBIMENTO"))
	}
	return sheet.Str(sheet.Field(row, "DATA_PAGAMENTO", "DATA_RECEBIMENTO", "documento_nf"))
}

// recebimentoSpec: Processo -> Payment-Event -> Colaborador over
// COMISSOES_RECEBIMENTO. Event rows are heterogeneous (advances carry
// comissao_total, settlements comissao_calculada), so the leaf map coalesces
// them into one summable field.
func recebimentoSpec() Spec {
	return Spec{
		Levels: []Level{
			{
				Name:    "processo",
				Key:     processoKey,
				Summary: []string{"processo"},
			},
			{
				Name: "evento",
				Key: func(row sheet.Record) string {
					return sheet.NormKey(eventTag(row)) + "_" + sheet.NormKey(eventRef(row))
				},
				Summarize: func(row sheet.Record) sheet.Record {
					tag := eventTag(row)
					ref := eventRef(row)
					return sheet.Record{
						"processo":             sheet.Field(row, "processo", "PROCESSO"),
						"tipo_evento":          tag,
						"descricao_evento":     fmt.Sprintf("%s %s", tag, ref),
						"valor_recebido_total": sheet.Num(sheet.Field(row, "valor_recebido_total", "faturamento_item", "VALOR_PAGO")),
					}
				},
			},
		},
		Metrics: []Metric{
			{Name: "comissao_calculada"},
			{Name: "valor_recebido_total", Summary: true},
		},
		LeafMap: func(leaf sheet.Record) sheet.Record {
			leaf["comissao_calculada"] = sheet.Num(sheet.Field(leaf, "comissao_calculada", "comissao_total"))
			return leaf
		},
	}
}

// AggregateReconciliacao builds the Resumo -> Item -> Colaborador view. The
// top level comes from the rows carrying a final reconciliation balance; the
// item/collaborator levels come from the remaining rows, joined on the shared
// process identifier.
func AggregateReconciliacao(rows []sheet.Record) []*GroupNode {
	var resumos, linhas []sheet.Record
	for _, row := range rows {
		if sheet.Has(row, "SALDO_FINAL_RECONCILIACAO") {
			resumos = append(resumos, row)
		} else {
			linhas = append(linhas, row)
		}
	}

	itemSpec := Spec{
		Levels: []Level{
			{
				Name:    "processo",
				Key:     processoKey,
				Summary: []string{"processo"},
			},
			{
				Name: "item",
				Key:  itemKey,
				Summary: []string{
					"processo", "cod_produto", "descricao_produto", "linha",
				},
			},
		},
		Metrics: []Metric{{Name: "comissao_calculada"}},
	}

	out := make([]*GroupNode, 0, len(resumos))
	for idx, resumo := range resumos {
		processo := sheet.Str(sheet.Field(resumo, "PROCESSO", "processo"))
		saldo := sheet.Num(resumo["SALDO_FINAL_RECONCILIACAO"])

		node := &GroupNode{
			Key: fmt.Sprintf("resumo_%s_%d", processo, idx),
			Summary: sheet.Record{
				"PROCESSO":                  processo,
				"SALDO_FINAL_RECONCILIACAO": saldo,
				"COMISSAO_CORRETA_TOTAL":    sheet.Field(resumo, "COMISSAO_CORRETA_TOTAL", "COMISSOES_CORRETA_TOTAL"),
				"TOTAL_ADIANTAMENTOS_PAGOS": sheet.Field(resumo, "TOTAL_ADIANTAMENTOS_PAGOS", "TOTAL_ADIANTADO", "total_adiantamentos_pagos"),
				"status_reconciliacao":      statusReconciliacao(saldo),
			},
		}

		var doProcesso []sheet.Record
		for _, r := range linhas {
			if sheet.Str(sheet.Field(r, "processo", "PROCESSO")) == processo {
				doProcesso = append(doProcesso, r)
			}
		}
		for _, proc := range Aggregate(doProcesso, itemSpec) {
			node.Children = append(node.Children, proc.Children...)
		}

		node.Rollups = map[string]float64{"comissao_calculada": 0}
		for _, item := range node.Children {
			node.Rollups["comissao_calculada"] += item.Rollups["comissao_calculada"]
		}
		out = append(out, node)
	}
	return out
}

func statusReconciliacao(saldo float64) string {
	switch {
	case saldo > 0:
		return StatusAPagar
	case saldo < 0:
		return StatusADescontar
	default:
		return StatusQuitado
	}
}
