package agrupamento

import (
	"fmt"

	"ComissoesCorpApp/internal/sheet"
)

// GroupNode is one node of an aggregated result tree. Intermediate nodes hold
// Children; the deepest grouped level holds the leaf Rows (one per input row,
// with a synthetic key derived from the parent). Rollups are always recomputed
// bottom-up, never carried over from input rows.
type GroupNode struct {
	Key      string             `json:"key"`
	Summary  sheet.Record       `json:"summary,omitempty"`
	Children []*GroupNode       `json:"items,omitempty"`
	Rows     []sheet.Record     `json:"colaboradores,omitempty"`
	Rollups  map[string]float64 `json:"rollups"`

	childIndex map[string]int
}

// Metric declares one rollup. The value summed at internal nodes is always
// the children's rollup of the same name. At the deepest grouped level the
// source is either the leaf rows (summed) or, for Summary metrics, the node's
// first-seen summary value - faturamento_item repeats on every collaborator
// row of an item and must not be multiply counted.
type Metric struct {
	Name    string
	Summary bool
}

// Level describes one grouping level: how a row maps to the level key and
// which first-seen fields become the node summary. When Summarize is set it
// builds the summary instead (used for derived fields like the payment-event
// tag).
type Level struct {
	Name      string
	Key       func(sheet.Record) string
	Summary   []string
	Summarize func(sheet.Record) sheet.Record
}

// Spec is a full aggregation recipe: ordered grouping levels, declared
// rollups, and an optional per-leaf canonicalizer. LeafMap may add fields to
// the attached leaf copy (e.g. coalescing comissao_total into
// comissao_calculada); it never drops the original ones.
type Spec struct {
	Levels  []Level
	Metrics []Metric
	LeafMap func(sheet.Record) sheet.Record
}

func (n *GroupNode) child(key string) *GroupNode {
	if n.childIndex == nil {
		return nil
	}
	if i, ok := n.childIndex[key]; ok {
		return n.Children[i]
	}
	return nil
}

func (n *GroupNode) addChild(c *GroupNode) {
	if n.childIndex == nil {
		n.childIndex = make(map[string]int)
	}
	n.childIndex[c.Key] = len(n.Children)
	n.Children = append(n.Children, c)
}

// Aggregate folds flat rows into a tree per the spec. Rows are consumed in
// input order; the first occurrence of a level key establishes the node and
// its summary, later rows only extend children. The result is deterministic:
// aggregating the same input twice yields structurally identical trees.
func Aggregate(rows []sheet.Record, spec Spec) []*GroupNode {
	root := &GroupNode{}
	for _, row := range rows {
		node := root
		for _, lvl := range spec.Levels {
			part := lvl.Key(row)
			full := part
			if node.Key != "" {
				full = node.Key + "-" + part
			}
			child := node.child(full)
			if child == nil {
				child = &GroupNode{Key: full, Summary: levelSummary(lvl, row)}
				node.addChild(child)
			}
			node = child
		}
		leaf := sheet.Clone(row)
		if spec.LeafMap != nil {
			leaf = spec.LeafMap(leaf)
		}
		leaf["key"] = fmt.Sprintf("%s-%d", node.Key, len(node.Rows)+1)
		node.Rows = append(node.Rows, leaf)
	}
	for _, n := range root.Children {
		computeRollups(n, spec.Metrics)
	}
	return root.Children
}

func levelSummary(lvl Level, row sheet.Record) sheet.Record {
	if lvl.Summarize != nil {
		return lvl.Summarize(row)
	}
	summary := make(sheet.Record, len(lvl.Summary))
	for _, f := range lvl.Summary {
		summary[f] = row[f]
	}
	return summary
}

// computeRollups fills Rollups bottom-up. At every internal node the rollup
// equals the sum of the children's same-named rollups; non-numeric and
// missing values count as zero.
func computeRollups(n *GroupNode, metrics []Metric) {
	n.Rollups = make(map[string]float64, len(metrics))
	if len(n.Children) == 0 {
		for _, m := range metrics {
			if m.Summary {
				n.Rollups[m.Name] = sheet.Num(n.Summary[m.Name])
				continue
			}
			var sum float64
			for _, row := range n.Rows {
				sum += sheet.Num(row[m.Name])
			}
			n.Rollups[m.Name] = sum
		}
		return
	}
	for _, c := range n.Children {
		computeRollups(c, metrics)
	}
	for _, m := range metrics {
		var sum float64
		for _, c := range n.Children {
			sum += c.Rollups[m.Name]
		}
		n.Rollups[m.Name] = sum
	}
}
