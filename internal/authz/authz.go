// Package authz implements the Authorization Gate (spec.md §4.8): a pure
// role-preorder policy with no concrete identity provider, consumed as a
// guard around mutating entry points. Grounded on
// original_source's services/authorization.rs ProjectRole/has_permission,
// adapted from its async-GraphQL-context-bound AuthorizationService to a
// plain IdentityResolver port per the Non-goals carried forward
// ("authentication/session/presence" stays out of scope; the gate only
// consumes an already-resolved role).
package authz

import (
	"context"
	"strings"

	"github.com/layercake/layercake/internal/model"
)

// Role is a project-scoped permission level forming the total preorder
// Owner ⊇ Editor ⊇ Viewer (spec.md §4.8).
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole normalises a stored/external role string, grounded on
// authorization.rs's ProjectRole::from_str.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "owner":
		return RoleOwner, nil
	case "editor":
		return RoleEditor, nil
	case "viewer":
		return RoleViewer, nil
	default:
		return "", model.Wrap(model.ErrInvalidConfig, "invalid project role %q", s)
	}
}

// rank orders roles for the has_permission preorder check.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Satisfies reports whether r carries at least the permissions of
// required, i.e. r ⊇ required (authorization.rs's has_permission).
func (r Role) Satisfies(required Role) bool {
	return r.rank() >= required.rank()
}

// OperationFamily names one of spec.md §4.8's gate rows.
type OperationFamily string

const (
	FamilyRead   OperationFamily = "read"   // project/graph/artefact reads
	FamilyMutate OperationFamily = "mutate" // dataset/graph/plan/edits mutation
	FamilyAdmin  OperationFamily = "admin"  // delete project, manage collaborators
)

// minimumRole is the gate table from spec.md §4.8.
var minimumRole = map[OperationFamily]Role{
	FamilyRead:   RoleViewer,
	FamilyMutate: RoleEditor,
	FamilyAdmin:  RoleOwner,
}

// IdentityResolver resolves an opaque caller identity (as produced by
// whatever external auth collaborator this process is deployed behind)
// into an effective role for a project. Authentication/session mechanics
// are explicitly out of scope (spec.md §1 Non-goals); the Gate only needs
// this one outcome.
type IdentityResolver interface {
	ResolveRole(ctx context.Context, callerID, projectID string) (Role, error)
}

// Gate is pure policy: it never touches a database or network itself,
// delegating identity resolution to IdentityResolver and returning
// ErrForbidden/ErrUnauthorized per spec.md §4.8's table. "Gate is pure
// policy; not part of any algorithm" (spec.md §4.8) — callers wrap their
// own mutating entry points with Check.
type Gate struct {
	resolver IdentityResolver
}

// NewGate wires an Authorization Gate against an IdentityResolver.
func NewGate(resolver IdentityResolver) *Gate {
	return &Gate{resolver: resolver}
}

// Check resolves callerID's role for projectID and verifies it satisfies
// family's minimum role, returning model.ErrForbidden (role too low) or
// propagating the resolver's own error (e.g. model.ErrUnauthorized for an
// unrecognised caller) otherwise.
func (g *Gate) Check(ctx context.Context, callerID, projectID string, family OperationFamily) error {
	required, ok := minimumRole[family]
	if !ok {
		return model.Wrap(model.ErrInvalidConfig, "unknown operation family %q", family)
	}

	role, err := g.resolver.ResolveRole(ctx, callerID, projectID)
	if err != nil {
		return err
	}
	if !role.Satisfies(required) {
		return model.Wrap(model.ErrForbidden, "role %q does not satisfy minimum role %q for %s", role, required, family)
	}
	return nil
}
