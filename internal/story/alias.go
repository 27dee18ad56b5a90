package story

import (
	"fmt"
	"strings"
)

// sanitizeAlias lowercases and strips everything but alphanumerics from a
// node's external id, producing a stable mermaid/plantuml participant
// identifier (spec.md §4.7: "sanitised alphanumerics").
func sanitizeAlias(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "p"
	}
	return sb.String()
}

// aliasAllocator assigns a stable alias per (dataset_id, external_id),
// resolving collisions between distinct keys that sanitize to the same
// alias with a "_1", "_2", ... suffix (spec.md §4.7 step 3).
type aliasAllocator struct {
	byKey map[string]string
	used  map[string]bool
}

func newAliasAllocator() *aliasAllocator {
	return &aliasAllocator{byKey: map[string]string{}, used: map[string]bool{}}
}

func (a *aliasAllocator) alias(datasetID, externalID string) string {
	key := datasetID + "\x00" + externalID
	if existing, ok := a.byKey[key]; ok {
		return existing
	}

	base := sanitizeAlias(externalID)
	candidate := base
	for n := 1; a.used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
	a.used[candidate] = true
	a.byKey[key] = candidate
	return candidate
}
