package render

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

func writeCSV(rows [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return "", model.Wrap(model.ErrInternal, "write CSV: %v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", model.Wrap(model.ErrInternal, "flush CSV: %v", err)
	}
	return sb.String(), nil
}

// RenderCSVNodes emits a header + one data row per node, truncated to
// cfg.MaxRows (spec.md §4.6 preview truncation).
func RenderCSVNodes(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	rows := [][]string{{"id", "label", "layer", "weight", "is_partition", "belongs_to"}}
	for _, n := range g.OrderedNodes() {
		rows = append(rows, []string{
			n.ExternalID, n.Label, n.Layer,
			strconv.FormatFloat(n.Weight, 'g', -1, 64),
			strconv.FormatBool(n.IsPartition),
			n.BelongsTo,
		})
	}
	return writeCSV(truncateRows(rows, cfg.MaxRows))
}

// RenderCSVEdges emits a header + one data row per edge, truncated to
// cfg.MaxRows.
func RenderCSVEdges(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	rows := [][]string{{"id", "source", "target", "label", "layer", "weight"}}
	for _, e := range g.OrderedEdges() {
		rows = append(rows, []string{
			e.ExternalID, e.Source, e.Target, e.Label, e.Layer,
			strconv.FormatFloat(e.Weight, 'g', -1, 64),
		})
	}
	return writeCSV(truncateRows(rows, cfg.MaxRows))
}

// RenderCSVMatrix emits an adjacency matrix with node labels in row 0 and
// column 0 (spec.md §4.6). Cell (i,j) holds the edge weight (or 1 if
// UseEdgeWeight is false) for the first edge found from row-node to
// column-node, 0 when no such edge exists. Matrix targets ignore MaxRows:
// truncating a square matrix mid-row would not produce a usable preview.
func RenderCSVMatrix(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	nodes := g.NonPartitionNodes()
	ids := make([]string, len(nodes))
	labels := make([]string, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ExternalID
		labels[i] = n.Label
		index[n.ExternalID] = i
	}

	weight := make([][]float64, len(ids))
	present := make([][]bool, len(ids))
	for i := range weight {
		weight[i] = make([]float64, len(ids))
		present[i] = make([]bool, len(ids))
	}
	for _, e := range g.NonPartitionEdges() {
		si, sok := index[e.Source]
		ti, tok := index[e.Target]
		if !sok || !tok || present[si][ti] {
			continue
		}
		present[si][ti] = true
		if cfg.UseEdgeWeight {
			weight[si][ti] = e.Weight
		} else {
			weight[si][ti] = 1
		}
	}

	header := append([]string{""}, labels...)
	rows := [][]string{header}
	for i := range ids {
		row := make([]string, 0, len(ids)+1)
		row = append(row, labels[i])
		for j := range ids {
			row = append(row, strconv.FormatFloat(weight[i][j], 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return writeCSV(rows)
}
