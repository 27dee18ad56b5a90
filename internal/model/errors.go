// Package model defines the entities and error taxonomy shared by every
// Layercake component: Project, Plan, Dataset, GraphData and friends.
package model

import (
	"errors"
	"fmt"
)

// Sentinel errors form the taxonomy from the design's error-handling section.
// Call sites wrap them with Wrap (message "detail: sentinel") so callers
// can still dispatch with errors.Is while getting a human-readable message.
var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrAmbiguousDataType = errors.New("ambiguous data type")
	ErrUpstreamNotReady  = errors.New("upstream not ready")
	ErrDanglingEdge      = errors.New("dangling edge")
	ErrEdgeOnPartition   = errors.New("edge on partition")
	ErrPartitionCycle    = errors.New("partition cycle")
	ErrBelongsToMissing  = errors.New("belongs_to target missing")
	ErrCyclicPlan        = errors.New("cyclic plan")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrReplayFailed      = errors.New("replay failed")
	ErrCancelled         = errors.New("execution stopped by user")
	ErrInternal          = errors.New("internal error")
)

// Wrap attaches a sentinel to a formatted detail message while keeping it
// matchable with errors.Is(err, sentinel).
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
