package edits

import (
	"fmt"
	"strings"

	"github.com/layercake/layercake/internal/model"
)

// normalizeLayerID mirrors internal/dataset's ingest-time normalization
// (DESIGN.md decision #3) so a replayed layer edit addresses the same key a
// build would have produced.
func normalizeLayerID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// asFieldMap accepts the shapes a decoded JSONB new_value column can take:
// a native map[string]any (already decoded) is the only one replay needs to
// support, since the journal store decodes its JSONB new_value column
// before handing it back.
func asFieldMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func floatField(fields map[string]any, key string, def float64) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func boolField(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func attrsField(fields map[string]any, key string) map[string]any {
	m, _ := fields[key].(map[string]any)
	return m
}

func nodeFromFields(externalID string, fields map[string]any) *model.GraphNode {
	label := stringField(fields, "label")
	if label == "" {
		label = externalID
	}
	return &model.GraphNode{
		ExternalID:  externalID,
		Label:       label,
		Layer:       normalizeLayerID(stringField(fields, "layer")),
		Weight:      floatField(fields, "weight", 1),
		IsPartition: boolField(fields, "is_partition"),
		BelongsTo:   stringField(fields, "belongs_to"),
		Attributes:  attrsField(fields, "attrs"),
	}
}

func edgeFromFields(externalID, source, target string, fields map[string]any) *model.GraphEdge {
	return &model.GraphEdge{
		ExternalID: externalID,
		Source:     source,
		Target:     target,
		Label:      stringField(fields, "label"),
		Layer:      normalizeLayerID(stringField(fields, "layer")),
		Weight:     floatField(fields, "weight", 1),
		Attributes: attrsField(fields, "attrs"),
	}
}

func layerFromFields(layerID string, fields map[string]any) *model.GraphLayer {
	return &model.GraphLayer{
		LayerID:         layerID,
		Name:            stringField(fields, "name"),
		BackgroundColor: stringField(fields, "background_color"),
		TextColor:       stringField(fields, "text_color"),
		BorderColor:     stringField(fields, "border_color"),
		Alias:           stringField(fields, "alias"),
		Properties:      attrsField(fields, "properties"),
	}
}

// errSkipField is returned by applyNodeField/applyLayerField when a null
// new_value targets a required field (spec.md's replay table: "a null
// new_value clears the field (for nullable fields) or skips (for required
// fields)"). The caller maps it to OutcomeSkipped rather than
// OutcomeFailed.
var errSkipField = fmt.Errorf("required field left unset by null new_value")

// applyNodeField sets a single field on an existing node. A nil newValue
// clears nullable fields (layer, belongs_to, attrs) and skips for required
// fields (label).
func applyNodeField(n *model.GraphNode, field string, newValue any) error {
	switch field {
	case "label":
		if newValue == nil {
			return errSkipField
		}
		n.Label, _ = newValue.(string)
	case "layer":
		if newValue == nil {
			n.Layer = ""
			return nil
		}
		n.Layer = normalizeLayerID(fmt.Sprint(newValue))
	case "weight":
		if newValue == nil {
			n.Weight = 1
			return nil
		}
		n.Weight = toFloat(newValue, 1)
	case "is_partition":
		n.IsPartition = toBool(newValue)
	case "belongs_to":
		if newValue == nil {
			n.BelongsTo = ""
			return nil
		}
		n.BelongsTo, _ = newValue.(string)
	case "attrs":
		if newValue == nil {
			n.Attributes = nil
			return nil
		}
		m, ok := newValue.(map[string]any)
		if !ok {
			return fmt.Errorf("attrs must be an object")
		}
		n.Attributes = m
	default:
		return fmt.Errorf("unknown node field %q", field)
	}
	return nil
}

func applyEdgeField(e *model.GraphEdge, field string, newValue any) error {
	switch field {
	case "label":
		e.Label, _ = newValue.(string)
	case "layer":
		if newValue == nil {
			e.Layer = ""
			return nil
		}
		e.Layer = normalizeLayerID(fmt.Sprint(newValue))
	case "weight":
		if newValue == nil {
			e.Weight = 1
			return nil
		}
		e.Weight = toFloat(newValue, 1)
	case "source", "target":
		return fmt.Errorf("endpoint field %q cannot be changed by update; delete and recreate", field)
	case "attrs":
		if newValue == nil {
			e.Attributes = nil
			return nil
		}
		m, ok := newValue.(map[string]any)
		if !ok {
			return fmt.Errorf("attrs must be an object")
		}
		e.Attributes = m
	default:
		return fmt.Errorf("unknown edge field %q", field)
	}
	return nil
}

func applyLayerField(l *model.GraphLayer, field string, newValue any) error {
	switch field {
	case "name":
		if newValue == nil {
			return errSkipField
		}
		l.Name, _ = newValue.(string)
	case "alias":
		l.Alias, _ = newValue.(string)
	case "background_color":
		l.BackgroundColor, _ = newValue.(string)
	case "text_color":
		l.TextColor, _ = newValue.(string)
	case "border_color":
		l.BorderColor, _ = newValue.(string)
	case "properties":
		if newValue == nil {
			l.Properties = nil
			return nil
		}
		m, ok := newValue.(map[string]any)
		if !ok {
			return fmt.Errorf("properties must be an object")
		}
		l.Properties = m
	default:
		return fmt.Errorf("unknown layer field %q", field)
	}
	return nil
}

func toFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return def
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}
