package dataset

import (
	"strconv"
	"strings"
)

// normalizeLayerID lower-cases layer ids at ingest so later lookups in the
// project palette and in rendering never have to reconcile mixed-case
// identifiers from different source datasets. Resolves spec.md §9's open
// question on layer-id case sensitivity (see DESIGN.md decision #3).
func normalizeLayerID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// parseBool accepts a Go bool or the truthy strings spec.md §4.1 names for
// is_partition: "true"/"yes"/"y"/"1" (case-insensitive); anything else is
// false.
func parseBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		default:
			return false
		}
	case float64:
		return t != 0
	default:
		return false
	}
}

// parseWeight parses a free-form attribute value into a float64, defaulting
// to 1 per spec.md §4.1 ("missing weight defaults to 1").
func parseWeight(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if t == "" {
			return 1
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 1
		}
		return f
	default:
		return 1
	}
}
