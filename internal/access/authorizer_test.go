package access

import (
	"context"
	"errors"
	"testing"

	"stablehub/internal/shared/apperror"
	"stablehub/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memberMap map[[2]uuid.UUID]MemberRole

func (m memberMap) FindMembership(_ context.Context, stableID, userID uuid.UUID) (*StableMember, error) {
	role, ok := m[[2]uuid.UUID{stableID, userID}]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	return &StableMember{StableID: stableID, UserID: userID, Role: role}, nil
}

type failingRepo struct{}

func (failingRepo) FindMembership(context.Context, uuid.UUID, uuid.UUID) (*StableMember, error) {
	return nil, errors.New("db unavailable")
}

func TestMembershipAuthorizer(t *testing.T) {
	ctx := context.Background()
	stable := uuid.New()
	manager := Actor{ID: uuid.New(), Role: users.RoleUser}
	staff := Actor{ID: uuid.New(), Role: users.RoleUser}
	outsider := Actor{ID: uuid.New(), Role: users.RoleUser}
	admin := Actor{ID: uuid.New(), Role: users.RoleAdmin}

	authz := NewMembershipAuthorizer(memberMap{
		{stable, manager.ID}: MemberRoleManager,
		{stable, staff.ID}:   MemberRoleStaff,
	})

	cases := []struct {
		name         string
		actor        Actor
		access, mgmt bool
	}{
		{"manager", manager, true, true},
		{"staff", staff, true, false},
		{"outsider", outsider, false, false},
		{"system admin", admin, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := authz.HasStableAccess(ctx, stable, tc.actor)
			require.NoError(t, err)
			assert.Equal(t, tc.access, ok)

			ok, err = authz.HasStableManagementAccess(ctx, stable, tc.actor)
			require.NoError(t, err)
			assert.Equal(t, tc.mgmt, ok)
		})
	}
}

func TestRequireHelpers(t *testing.T) {
	ctx := context.Background()
	stable := uuid.New()
	staff := Actor{ID: uuid.New(), Role: users.RoleUser}
	authz := NewMembershipAuthorizer(memberMap{{stable, staff.ID}: MemberRoleStaff})

	assert.NoError(t, RequireStableAccess(ctx, authz, stable, staff))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(RequireStableManagement(ctx, authz, stable, staff)))

	broken := NewMembershipAuthorizer(failingRepo{})
	assert.Equal(t, apperror.KindInfrastructure, apperror.KindOf(RequireStableAccess(ctx, broken, stable, staff)))
}
