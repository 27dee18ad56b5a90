package dataset

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/layercake/layercake/internal/model"
)

// headerSet is a case-insensitive lookup of a parsed header row.
type headerSet map[string]int

func newHeaderSet(headers []string) headerSet {
	hs := make(headerSet, len(headers))
	for i, h := range headers {
		hs[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return hs
}

func (hs headerSet) has(names ...string) bool {
	for _, n := range names {
		if _, ok := hs[n]; ok {
			return true
		}
	}
	return false
}

func (hs headerSet) get(row []string, names ...string) (string, bool) {
	for _, n := range names {
		if i, ok := hs[n]; ok && i < len(row) {
			return row[i], true
		}
	}
	return "", false
}

// InferDataType implements spec.md §4.1's header-signature inference for
// tabular sources: {id,source,target} -> edges; {id,(name|label),(color|colour)}
// -> layers; {id,...} -> nodes.
func InferDataType(headers []string) (model.DataType, error) {
	hs := newHeaderSet(headers)
	if !hs.has("id") {
		return "", model.Wrap(model.ErrAmbiguousDataType, "header row has no id column")
	}
	if hs.has("source") && hs.has("target") {
		return model.DataTypeEdges, nil
	}
	if (hs.has("name") || hs.has("label")) && hs.has("color", "colour") {
		return model.DataTypeLayers, nil
	}
	return model.DataTypeNodes, nil
}

// ParseTabular parses CSV/TSV bytes into normal form for the given
// (already-resolved) data type. The first row MUST be headers.
func ParseTabular(r io.Reader, format model.FileFormat, dataType model.DataType) (*model.NormalForm, error) {
	cr := csv.NewReader(r)
	if format == model.FormatTSV {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "parse tabular source: %v", err)
	}
	if len(rows) == 0 {
		return &model.NormalForm{}, nil
	}

	headers := rows[0]
	hs := newHeaderSet(headers)
	data := rows[1:]

	switch dataType {
	case model.DataTypeNodes:
		return parseNodeRows(hs, headers, data)
	case model.DataTypeEdges:
		return parseEdgeRows(hs, headers, data)
	case model.DataTypeLayers:
		return parseLayerRows(hs, headers, data)
	default:
		return nil, model.Wrap(model.ErrUnsupportedFormat, "tabular sources cannot declare data_type %q", dataType)
	}
}

func recognisedColumns(kind model.DataType) map[string]bool {
	switch kind {
	case model.DataTypeNodes:
		return map[string]bool{"id": true, "label": true, "layer": true, "weight": true, "is_partition": true, "belongs_to": true}
	case model.DataTypeEdges:
		return map[string]bool{"id": true, "source": true, "target": true, "label": true, "layer": true, "weight": true}
	case model.DataTypeLayers:
		return map[string]bool{
			"id": true, "name": true, "label": true, "color": true, "colour": true,
			"background_color": true, "text_color": true, "border_color": true, "alias": true,
		}
	default:
		return nil
	}
}

func attrsFromRow(hs headerSet, headers, row []string, recognised map[string]bool) map[string]any {
	var attrs map[string]any
	for name, idx := range hs {
		if recognised[name] || idx >= len(row) {
			continue
		}
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrs[headers[idx]] = row[idx]
	}
	return attrs
}

func parseNodeRows(hs headerSet, headers []string, rows [][]string) (*model.NormalForm, error) {
	if !hs.has("id") {
		return nil, model.Wrap(model.ErrInvalidConfig, "nodes require an id column")
	}
	recognised := recognisedColumns(model.DataTypeNodes)
	nf := &model.NormalForm{}
	for _, row := range rows {
		id, _ := hs.get(row, "id")
		if id == "" {
			continue
		}
		label, _ := hs.get(row, "label")
		if label == "" {
			label = id
		}
		layer, _ := hs.get(row, "layer")
		weightRaw, hasWeight := hs.get(row, "weight")
		weight := 1.0
		if hasWeight {
			weight = parseWeight(weightRaw)
		}
		isPartitionRaw, _ := hs.get(row, "is_partition")
		belongsTo, _ := hs.get(row, "belongs_to")

		w := weight
		nf.Nodes = append(nf.Nodes, model.NormalNode{
			ID:          id,
			Label:       label,
			Layer:       normalizeLayerID(layer),
			Weight:      &w,
			IsPartition: parseBool(isPartitionRaw),
			BelongsTo:   belongsTo,
			Attrs:       attrsFromRow(hs, headers, row, recognised),
		})
	}
	return nf, nil
}

func parseEdgeRows(hs headerSet, headers []string, rows [][]string) (*model.NormalForm, error) {
	if !hs.has("id") || !hs.has("source") || !hs.has("target") {
		return nil, model.Wrap(model.ErrInvalidConfig, "edges require id, source and target columns")
	}
	recognised := recognisedColumns(model.DataTypeEdges)
	nf := &model.NormalForm{}
	for _, row := range rows {
		id, _ := hs.get(row, "id")
		source, _ := hs.get(row, "source")
		target, _ := hs.get(row, "target")
		if id == "" || source == "" || target == "" {
			continue
		}
		label, _ := hs.get(row, "label")
		layer, _ := hs.get(row, "layer")
		weightRaw, hasWeight := hs.get(row, "weight")
		weight := 1.0
		if hasWeight {
			weight = parseWeight(weightRaw)
		}
		w := weight
		nf.Edges = append(nf.Edges, model.NormalEdge{
			ID:     id,
			Source: source,
			Target: target,
			Label:  label,
			Layer:  normalizeLayerID(layer),
			Weight: &w,
			Attrs:  attrsFromRow(hs, headers, row, recognised),
		})
	}
	return nf, nil
}

func parseLayerRows(hs headerSet, headers []string, rows [][]string) (*model.NormalForm, error) {
	if !hs.has("id") || !(hs.has("name") || hs.has("label")) || !hs.has("color", "colour") {
		return nil, model.Wrap(model.ErrInvalidConfig, "layers require id, name|label and color|colour columns")
	}
	nf := &model.NormalForm{}
	for _, row := range rows {
		id, _ := hs.get(row, "id")
		if id == "" {
			continue
		}
		name, _ := hs.get(row, "name")
		if name == "" {
			name, _ = hs.get(row, "label")
		}
		color, _ := hs.get(row, "color")
		if color == "" {
			color, _ = hs.get(row, "colour")
		}
		bg, hasBG := hs.get(row, "background_color")
		if !hasBG {
			bg = color
		}
		txt, _ := hs.get(row, "text_color")
		border, _ := hs.get(row, "border_color")
		alias, _ := hs.get(row, "alias")

		nf.Layers = append(nf.Layers, model.NormalLayer{
			ID:              normalizeLayerID(id),
			Label:           name,
			BackgroundColor: bg,
			TextColor:       txt,
			BorderColor:     border,
			Alias:           alias,
		})
	}
	return nf, nil
}
