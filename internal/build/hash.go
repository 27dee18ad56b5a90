package build

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/layercake/layercake/internal/model"
)

// UpstreamSource is an upstream dataset or virtualised computed graph,
// already reduced to the (id, filename, processed_at, data_type, normal
// form) shape the merge and hash steps need (spec.md §4.2). For a Dataset
// upstream these fields come straight off the model.Dataset row; for a
// computed upstream (Graph/Merge/Transform/Filter node) the caller
// virtualises the GraphData into the same shape, using the GraphData's id
// as ID, its dag node id as Filename, and its UpdatedAt as ProcessedAt.
type UpstreamSource struct {
	ID          string
	Filename    string
	ProcessedAt time.Time
	DataType    model.DataType
	NormalForm  *model.NormalForm
}

// ComputeSourceHash implements spec.md §4.2 step 2:
// SHA256(∀ upstream in declared order: id || filename || processed_at-rfc3339).
func ComputeSourceHash(upstreams []UpstreamSource) string {
	h := sha256.New()
	for _, u := range upstreams {
		h.Write([]byte(u.ID))
		h.Write([]byte(u.Filename))
		h.Write([]byte(u.ProcessedAt.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
