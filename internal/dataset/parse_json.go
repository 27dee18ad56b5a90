package dataset

import (
	"encoding/json"

	"github.com/layercake/layercake/internal/model"
)

// ParseJSON parses JSON bytes into normal form. It accepts two shapes per
// spec.md §6:
//
//   - the full graph form: {"nodes":[...],"edges":[...],"layers":[...]}
//   - a single-array form, when dataType names exactly one of nodes/edges/
//     layers and the payload is a bare JSON array of that kind's records.
func ParseJSON(raw []byte, dataType model.DataType) (*model.NormalForm, error) {
	if dataType == model.DataTypeGraph {
		return parseGraphForm(raw)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return parseSingleArray(arr, dataType)
	}

	// Fall back to the full graph form even when a single data_type was
	// declared: a JSON source may still carry the envelope and simply be
	// scoped down to one of its sections.
	nf, err := parseGraphForm(raw)
	if err != nil {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "parse json source: not an array and not a graph envelope")
	}
	return scopeToDataType(nf, dataType), nil
}

func parseGraphForm(raw []byte) (*model.NormalForm, error) {
	var nf model.NormalForm
	if err := json.Unmarshal(raw, &nf); err != nil {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "parse json graph envelope: %v", err)
	}
	normalizeNormalForm(&nf)
	return &nf, nil
}

func parseSingleArray(arr []json.RawMessage, dataType model.DataType) (*model.NormalForm, error) {
	nf := &model.NormalForm{}
	switch dataType {
	case model.DataTypeNodes:
		nodes := make([]model.NormalNode, 0, len(arr))
		for _, raw := range arr {
			var n model.NormalNode
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, model.Wrap(model.ErrUnsupportedFormat, "parse json node: %v", err)
			}
			nodes = append(nodes, n)
		}
		nf.Nodes = nodes
	case model.DataTypeEdges:
		edges := make([]model.NormalEdge, 0, len(arr))
		for _, raw := range arr {
			var e model.NormalEdge
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, model.Wrap(model.ErrUnsupportedFormat, "parse json edge: %v", err)
			}
			edges = append(edges, e)
		}
		nf.Edges = edges
	case model.DataTypeLayers:
		layers := make([]model.NormalLayer, 0, len(arr))
		for _, raw := range arr {
			var l model.NormalLayer
			if err := json.Unmarshal(raw, &l); err != nil {
				return nil, model.Wrap(model.ErrUnsupportedFormat, "parse json layer: %v", err)
			}
			layers = append(layers, l)
		}
		nf.Layers = layers
	default:
		return nil, model.Wrap(model.ErrUnsupportedFormat, "json array source must declare nodes, edges or layers, got %q", dataType)
	}
	normalizeNormalForm(nf)
	return nf, nil
}

func scopeToDataType(nf *model.NormalForm, dataType model.DataType) *model.NormalForm {
	switch dataType {
	case model.DataTypeNodes:
		return &model.NormalForm{Nodes: nf.Nodes}
	case model.DataTypeEdges:
		return &model.NormalForm{Edges: nf.Edges}
	case model.DataTypeLayers:
		return &model.NormalForm{Layers: nf.Layers}
	default:
		return nf
	}
}

// normalizeNormalForm applies the ingest-time normalizations (layer id
// casing, weight defaulting) uniformly regardless of which JSON shape the
// source used, matching the behaviour already applied by the CSV/TSV path.
func normalizeNormalForm(nf *model.NormalForm) {
	for i := range nf.Nodes {
		nf.Nodes[i].Layer = normalizeLayerID(nf.Nodes[i].Layer)
		if nf.Nodes[i].Weight == nil {
			w := 1.0
			nf.Nodes[i].Weight = &w
		}
	}
	for i := range nf.Edges {
		nf.Edges[i].Layer = normalizeLayerID(nf.Edges[i].Layer)
		if nf.Edges[i].Weight == nil {
			w := 1.0
			nf.Edges[i].Weight = &w
		}
	}
	for i := range nf.Layers {
		nf.Layers[i].ID = normalizeLayerID(nf.Layers[i].ID)
	}
}
