package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, RoleOwner.Satisfies(RoleOwner))
	assert.True(t, RoleOwner.Satisfies(RoleEditor))
	assert.True(t, RoleOwner.Satisfies(RoleViewer))

	assert.False(t, RoleEditor.Satisfies(RoleOwner))
	assert.True(t, RoleEditor.Satisfies(RoleEditor))
	assert.True(t, RoleEditor.Satisfies(RoleViewer))

	assert.False(t, RoleViewer.Satisfies(RoleOwner))
	assert.False(t, RoleViewer.Satisfies(RoleEditor))
	assert.True(t, RoleViewer.Satisfies(RoleViewer))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Owner")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, r)

	_, err = ParseRole("superuser")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

type fakeResolver struct {
	roles map[string]Role
	err   error
}

func (f *fakeResolver) ResolveRole(_ context.Context, callerID, projectID string) (Role, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.roles[callerID+"\x00"+projectID], nil
}

func TestGate_Check_AllowsSufficientRole(t *testing.T) {
	resolver := &fakeResolver{roles: map[string]Role{"user1\x00proj1": RoleEditor}}
	gate := NewGate(resolver)
	err := gate.Check(context.Background(), "user1", "proj1", FamilyMutate)
	assert.NoError(t, err)
}

func TestGate_Check_DeniesInsufficientRole(t *testing.T) {
	resolver := &fakeResolver{roles: map[string]Role{"user1\x00proj1": RoleViewer}}
	gate := NewGate(resolver)
	err := gate.Check(context.Background(), "user1", "proj1", FamilyMutate)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestGate_Check_DeniesAdminToEditor(t *testing.T) {
	resolver := &fakeResolver{roles: map[string]Role{"user1\x00proj1": RoleEditor}}
	gate := NewGate(resolver)
	err := gate.Check(context.Background(), "user1", "proj1", FamilyAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestGate_Check_PropagatesResolverError(t *testing.T) {
	resolver := &fakeResolver{err: model.Wrap(model.ErrUnauthorized, "no session")}
	gate := NewGate(resolver)
	err := gate.Check(context.Background(), "user1", "proj1", FamilyRead)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
